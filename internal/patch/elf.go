// Package patch makes the staged output relocatable: ELF RUNPATH rewrites,
// Mach-O install-name and rpath fixups, and the in-file Qt6Core.dll prefix
// patch for PE.
package patch

import (
	"log"
	"path/filepath"

	"github.com/crossdeployqt/crossdeployqt/internal/platform"
)

// SetELFMainRunpath points the staged main binary at the bundled libraries.
// It lives in usr/bin, the libraries in usr/lib.
func SetELFMainRunpath(dest string) {
	cmd := platform.Patchelf + " --set-rpath '$ORIGIN/../lib' " + platform.ShellEscape(dest)
	if _, code := platform.RunCommand(cmd); code != 0 {
		log.Println("Warning: patchelf failed to set RUNPATH on", dest)
	}
}

// SweepELFPluginRunpaths rewrites the RUNPATH of every staged plugin so it
// finds the bundled libraries two levels up
func SweepELFPluginRunpaths(root string) {
	pluginsDir := filepath.Join(root, "usr", "plugins")
	cmd := "find " + platform.ShellEscape(pluginsDir) +
		" -type f -name '*.so*' -exec " + platform.Patchelf +
		" --set-rpath '$ORIGIN/../../lib' {} +"
	platform.RunCommand(cmd)
}
