package resolve

import (
	"path/filepath"
	"strings"

	"github.com/crossdeployqt/crossdeployqt/internal/binfmt"
	"github.com/crossdeployqt/crossdeployqt/internal/deps"
	"github.com/crossdeployqt/crossdeployqt/internal/helpers"
)

// findInSearchDirs tries the context's search directories in order.
// First hit wins. An absolute reference that exists resolves to itself.
func (ctx *Context) findInSearchDirs(nameOrPath string) (string, bool) {
	if filepath.IsAbs(nameOrPath) && helpers.Exists(nameOrPath) {
		return helpers.CanonicalPath(nameOrPath), true
	}
	for _, dir := range ctx.SearchDirs {
		cand := filepath.Join(dir, nameOrPath)
		if helpers.Exists(cand) {
			return helpers.CanonicalPath(cand), true
		}
	}
	return "", false
}

// expandElfOrigin substitutes every occurrence of $ORIGIN / ${ORIGIN} in an
// embedded search path with the subject binary's directory. The substitution
// is literal and applies to both spellings.
func expandElfOrigin(searchPath, subject string) string {
	origin := filepath.Dir(subject)
	searchPath = strings.ReplaceAll(searchPath, "${ORIGIN}", origin)
	searchPath = strings.ReplaceAll(searchPath, "$ORIGIN", origin)
	return searchPath
}

// expandMachOToken substitutes a leading @loader_path/ or @executable_path/
// token. mainExe is always the original input binary, never a nested library.
func expandMachOToken(p, subject, mainExe string) string {
	if rest, ok := strings.CutPrefix(p, "@loader_path/"); ok {
		return filepath.Join(filepath.Dir(subject), rest)
	}
	if rest, ok := strings.CutPrefix(p, "@executable_path/"); ok {
		return filepath.Join(filepath.Dir(mainExe), rest)
	}
	return p
}

func (ctx *Context) resolveELF(ref, subject string, rec deps.Record) (string, bool) {
	if filepath.IsAbs(ref) && helpers.Exists(ref) {
		return helpers.CanonicalPath(ref), true
	}
	for _, sp := range rec.SearchPaths {
		cand := filepath.Join(expandElfOrigin(sp, subject), ref)
		if helpers.Exists(cand) {
			return helpers.CanonicalPath(cand), true
		}
	}
	return ctx.findInSearchDirs(ref)
}

func (ctx *Context) resolveMachO(ref, subject string, rpaths []string, mainExe string) (string, bool) {
	if filepath.IsAbs(ref) && helpers.Exists(ref) {
		return helpers.CanonicalPath(ref), true
	}
	if strings.HasPrefix(ref, "@loader_path/") || strings.HasPrefix(ref, "@executable_path/") {
		cand := expandMachOToken(ref, subject, mainExe)
		if helpers.Exists(cand) {
			return helpers.CanonicalPath(cand), true
		}
	}
	if tail, ok := strings.CutPrefix(ref, "@rpath/"); ok {
		for _, rp := range rpaths {
			cand := filepath.Join(expandMachOToken(rp, subject, mainExe), tail)
			if helpers.Exists(cand) {
				return helpers.CanonicalPath(cand), true
			}
		}
	}
	return ctx.findInSearchDirs(ref)
}

// ResolveRef maps one dependency reference of subject to an absolute
// canonical path, or reports that it could not be found. mainExe is the
// original input binary (the @executable_path anchor).
func (ctx *Context) ResolveRef(ref, subject string, rec deps.Record, cache *deps.Cache, mainExe string) (string, bool) {
	switch ctx.Cfg.Kind {
	case binfmt.ELF:
		return ctx.resolveELF(ref, subject, rec)
	case binfmt.PE:
		return ctx.findInSearchDirs(ref)
	default:
		return ctx.resolveMachO(ref, subject, cache.MachORpaths(subject), mainExe)
	}
}
