package patch

import (
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/crossdeployqt/crossdeployqt/internal/deps"
	"github.com/crossdeployqt/crossdeployqt/internal/helpers"
	"github.com/crossdeployqt/crossdeployqt/internal/platform"
)

// AddMainExecutableRpath declares where the bundled frameworks live relative
// to the executable in Contents/MacOS
func AddMainExecutableRpath(dest string) {
	cmd := platform.InstallNameTool + " -add_rpath '@executable_path/../Frameworks' " + platform.ShellEscape(dest)
	if _, code := platform.RunCommand(cmd); code != 0 {
		log.Println("Warning: install-name-tool failed to add rpath on", dest)
	}
}

// AddPluginRpaths adds the frameworks rpath to every plugin dylib under the
// PlugIns directory; plugins sit two levels below Contents.
func AddPluginRpaths(pluginsBase string) {
	if !helpers.Exists(pluginsBase) {
		return
	}
	filepath.Walk(pluginsBase, func(path string, info os.FileInfo, err error) error {
		if err != nil || !info.Mode().IsRegular() || !strings.HasSuffix(path, ".dylib") {
			return nil
		}
		cmd := platform.InstallNameTool + " -add_rpath '@loader_path/../../Frameworks' " + platform.ShellEscape(path)
		platform.RunCommand(cmd)
		return nil
	})
}

func pathStartsWith(path, prefix string) bool {
	if prefix == "" {
		return false
	}
	p := helpers.CanonicalPath(path)
	pre := helpers.CanonicalPath(prefix)
	return p == pre || strings.HasPrefix(p, pre+string(filepath.Separator))
}

// FrameworkInstallName computes the canonical @rpath/... install name of a
// bundled binary: for a framework-internal binary
// @rpath/<Name>.framework/Versions/<V>/<Name> with the version taken from
// the destination path (defaulting to A), for a loose dylib
// @rpath/<basename>.
func FrameworkInstallName(binPath, bundleRoot string) string {
	rel, err := filepath.Rel(bundleRoot, binPath)
	if err != nil {
		rel = binPath
	}
	rel = filepath.ToSlash(rel)
	if idx := strings.Index(rel, "Frameworks/"); idx >= 0 {
		after := rel[idx+len("Frameworks/"):]
		if fwIdx := strings.Index(after, ".framework/"); fwIdx >= 0 {
			name := after[:fwIdx]
			tail := after[fwIdx+len(".framework/"):]
			version := "A"
			if vIdx := strings.Index(tail, "Versions/"); vIdx >= 0 {
				afterVersions := tail[vIdx+len("Versions/"):]
				if slash := strings.Index(afterVersions, "/"); slash >= 0 {
					version = afterVersions[:slash]
				}
			}
			return "@rpath/" + name + ".framework/Versions/" + version + "/" + name
		}
	}
	return "@rpath/" + filepath.Base(binPath)
}

// findFrameworkBinary locates the primary binary of a framework bundle:
// Versions/Current/<Name> first, then letter-versioned subdirectories in
// order, then any subdirectory of Versions/.
func findFrameworkBinary(frameworkRoot string) string {
	name := strings.TrimSuffix(filepath.Base(frameworkRoot), ".framework")
	versions := filepath.Join(frameworkRoot, "Versions")
	if !helpers.IsDirectory(versions) {
		return ""
	}
	if cand := filepath.Join(versions, "Current", name); helpers.IsRegularFile(cand) {
		return cand
	}
	for v := 'A'; v <= 'Z'; v++ {
		if cand := filepath.Join(versions, string(v), name); helpers.IsRegularFile(cand) {
			return cand
		}
	}
	entries, err := os.ReadDir(versions)
	if err != nil {
		return ""
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if cand := filepath.Join(versions, entry.Name(), name); helpers.IsRegularFile(cand) {
			return cand
		}
	}
	return ""
}

// collectMachOSubjects gathers every binary the fixup passes operate on: the
// executables in Contents/MacOS, each framework's primary binary, loose
// dylibs under Contents/Frameworks, and dylibs under Contents/PlugIns.
func collectMachOSubjects(root string) []string {
	macOSDir := filepath.Join(root, "Contents", "MacOS")
	fwDir := filepath.Join(root, "Contents", "Frameworks")
	pluginsDir := filepath.Join(root, "Contents", "PlugIns")

	var bins []string
	if entries, err := os.ReadDir(macOSDir); err == nil {
		for _, entry := range entries {
			path := filepath.Join(macOSDir, entry.Name())
			if helpers.IsRegularFile(path) {
				bins = append(bins, path)
			}
		}
	}
	if helpers.Exists(fwDir) {
		filepath.Walk(fwDir, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return nil
			}
			if info.IsDir() && strings.HasSuffix(path, ".framework") {
				if bin := findFrameworkBinary(path); bin != "" {
					bins = append(bins, bin)
				}
			}
			if info.Mode().IsRegular() && strings.HasSuffix(path, ".dylib") {
				bins = append(bins, path)
			}
			return nil
		})
	}
	if helpers.Exists(pluginsDir) {
		filepath.Walk(pluginsDir, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return nil
			}
			if info.Mode().IsRegular() && strings.HasSuffix(path, ".dylib") {
				bins = append(bins, path)
			}
			return nil
		})
	}

	sort.Strings(bins)
	var unique []string
	for _, bin := range bins {
		unique = helpers.AppendIfMissing(unique, bin)
	}
	return unique
}

// FixInstallNames runs the two Mach-O canonicalization passes over the
// bundle: first set the install-name ID of every binary under
// Contents/Frameworks, then rewrite every dependency reference that points
// into Contents/Frameworks to its @rpath/... form.
func FixInstallNames(root string) {
	fwDir := filepath.Join(root, "Contents", "Frameworks")
	bins := collectMachOSubjects(root)

	for _, bin := range bins {
		if !pathStartsWith(bin, fwDir) {
			continue
		}
		newID := FrameworkInstallName(bin, root)
		cmd := platform.InstallNameTool + " -id " + platform.ShellEscape(newID) + " " + platform.ShellEscape(bin)
		if _, code := platform.RunCommand(cmd); code != 0 {
			log.Println("Warning: install-name-tool failed to set ID on", bin)
		}
	}

	for _, bin := range bins {
		_, depRefs := deps.MachOIDAndDeps(bin)
		for _, dep := range depRefs {
			if !pathStartsWith(dep, fwDir) {
				continue
			}
			newRef := FrameworkInstallName(dep, root)
			cmd := platform.InstallNameTool + " -change " + platform.ShellEscape(dep) +
				" " + platform.ShellEscape(newRef) + " " + platform.ShellEscape(bin)
			if _, code := platform.RunCommand(cmd); code != 0 {
				log.Println("Warning: install-name-tool failed to rewrite", dep, "in", bin)
			}
		}
	}
}
