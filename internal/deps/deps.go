// Package deps extracts the dependency references of a binary: the needed
// library names, the embedded search paths (ELF RPATH/RUNPATH) and, for
// Mach-O, the LC_RPATH list. ELF binaries are read directly through
// debug/elf; PE and Mach-O go through the platform's objdump/otool tools,
// whose textual output is parsed by the functions in parse.go.
package deps

import (
	"debug/elf"

	"github.com/crossdeployqt/crossdeployqt/internal/binfmt"
	"github.com/crossdeployqt/crossdeployqt/internal/helpers"
	"github.com/crossdeployqt/crossdeployqt/internal/platform"
)

// Record is the parsed dependency information of one binary
type Record struct {
	// Needed lists the dependency references in the order the binary
	// declares them: bare names, absolute paths or token-prefixed paths.
	Needed []string
	// SearchPaths lists the binary's embedded search paths (ELF RPATH and
	// RUNPATH entries, possibly containing $ORIGIN tokens). Empty for PE
	// and Mach-O.
	SearchPaths []string
}

// Cache memoizes parse results per canonical path for the duration of one
// traversal pass. The Mach-O rpath lists are cached separately because they
// come from a second otool invocation.
type Cache struct {
	records     map[string]Record
	machoRpaths map[string][]string
}

func NewCache() *Cache {
	return &Cache{
		records:     make(map[string]Record),
		machoRpaths: make(map[string][]string),
	}
}

// Put pre-seeds the cache with a record. Used by tests to drive the
// traversal without spawning any external tool.
func (c *Cache) Put(path string, rec Record) {
	c.records[helpers.CanonicalPath(path)] = rec
}

// PutMachORpaths pre-seeds the rpath list for a Mach-O binary
func (c *Cache) PutMachORpaths(path string, rpaths []string) {
	c.machoRpaths[helpers.CanonicalPath(path)] = rpaths
}

// Parse returns the dependency record of the binary, parsing at most once
// per canonical path per cache
func (c *Cache) Parse(path string, kind binfmt.Kind) Record {
	key := helpers.CanonicalPath(path)
	if rec, ok := c.records[key]; ok {
		return rec
	}
	var rec Record
	switch kind {
	case binfmt.ELF:
		rec = parseELF(path)
	case binfmt.PE:
		rec = parsePE(path)
	default:
		rec = parseMachO(path)
	}
	c.records[key] = rec
	return rec
}

// MachORpaths returns the LC_RPATH entries of the Mach-O binary, parsing at
// most once per canonical path per cache
func (c *Cache) MachORpaths(path string) []string {
	key := helpers.CanonicalPath(path)
	if rpaths, ok := c.machoRpaths[key]; ok {
		return rpaths
	}
	rpaths := parseMachORpathList(path)
	c.machoRpaths[key] = rpaths
	return rpaths
}

// parseELF reads NEEDED and RPATH/RUNPATH entries straight from the dynamic
// section. RPATH and RUNPATH are conflated; for deploy-time resolution the
// loader's propagation difference does not matter.
func parseELF(path string) Record {
	var rec Record
	f, err := elf.Open(path)
	if err != nil {
		return rec
	}
	defer f.Close()

	needed, err := f.DynString(elf.DT_NEEDED)
	if err == nil {
		rec.Needed = needed
	}
	for _, tag := range []elf.DynTag{elf.DT_RPATH, elf.DT_RUNPATH} {
		entries, err := f.DynString(tag)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			rec.SearchPaths = append(rec.SearchPaths, splitNonEmpty(entry, ":")...)
		}
	}
	return rec
}

// ElfSoname returns the SONAME of the shared object, or "" if it has none
// or is not readable as ELF
func ElfSoname(path string) string {
	f, err := elf.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()
	sonames, err := f.DynString(elf.DT_SONAME)
	if err != nil || len(sonames) == 0 {
		return ""
	}
	return sonames[0]
}

func parsePE(path string) Record {
	out, code := platform.RunCommand(platform.ObjdumpPE + " -p " + platform.ShellEscape(path))
	if code != 0 {
		return Record{}
	}
	return Record{Needed: ParsePEObjdump(out)}
}

func parseMachO(path string) Record {
	out, code := platform.RunCommand(platform.Otool + " -L " + platform.ShellEscape(path))
	if code != 0 {
		return Record{}
	}
	return Record{Needed: ParseOtoolDeps(out)}
}

func parseMachORpathList(path string) []string {
	out, code := platform.RunCommand(platform.Otool + " -l " + platform.ShellEscape(path))
	if code != 0 {
		return nil
	}
	return ParseOtoolRpaths(out)
}

// MachOIDAndDeps returns the install-name ID line and the dependency list of
// a Mach-O binary as reported by otool -L. Used by the install-name fixups.
func MachOIDAndDeps(path string) (string, []string) {
	out, code := platform.RunCommand(platform.Otool + " -L " + platform.ShellEscape(path))
	if code != 0 {
		return "", nil
	}
	return ParseOtoolIDAndDeps(out)
}
