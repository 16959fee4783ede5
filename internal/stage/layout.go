// Package stage copies resolved libraries, plugins and the main binary into
// the platform-specific relocatable output layout.
package stage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/crossdeployqt/crossdeployqt/internal/binfmt"
)

// NormalizeOutputRoot appends the platform bundle suffix to the requested
// output directory unless it already carries it. PE output stays a flat
// directory.
func NormalizeOutputRoot(kind binfmt.Kind, requestedOut, binaryPath string) string {
	baseName := filepath.Base(binaryPath)
	switch kind {
	case binfmt.ELF:
		if strings.HasSuffix(requestedOut, ".AppDir") {
			return requestedOut
		}
		return filepath.Join(requestedOut, baseName+".AppDir")
	case binfmt.MachO:
		if strings.HasSuffix(requestedOut, ".app") {
			return requestedOut
		}
		return filepath.Join(requestedOut, baseName+".app")
	}
	return requestedOut
}

// LibDir is where shared libraries are staged
func LibDir(kind binfmt.Kind, root string) string {
	switch kind {
	case binfmt.ELF:
		return filepath.Join(root, "usr", "lib")
	case binfmt.MachO:
		return filepath.Join(root, "Contents", "Frameworks")
	}
	return root
}

// PluginsBase is where Qt plugins are staged
func PluginsBase(kind binfmt.Kind, root string) string {
	switch kind {
	case binfmt.ELF:
		return filepath.Join(root, "usr", "plugins")
	case binfmt.MachO:
		return filepath.Join(root, "Contents", "PlugIns")
	}
	return filepath.Join(root, "plugins")
}

// QmlBase is where QML modules are staged
func QmlBase(kind binfmt.Kind, root string) string {
	switch kind {
	case binfmt.ELF:
		return filepath.Join(root, "usr", "qml")
	case binfmt.MachO:
		return filepath.Join(root, "Contents", "Resources", "qml")
	}
	return filepath.Join(root, "qml")
}

// TranslationsDir is where translation catalogs are staged
func TranslationsDir(kind binfmt.Kind, root string) string {
	switch kind {
	case binfmt.ELF:
		return filepath.Join(root, "usr", "translations")
	case binfmt.MachO:
		return filepath.Join(root, "Contents", "Resources", "translations")
	}
	return filepath.Join(root, "translations")
}

// MainBinaryDest is where the main binary lands
func MainBinaryDest(kind binfmt.Kind, root, binaryPath string) string {
	name := filepath.Base(binaryPath)
	switch kind {
	case binfmt.ELF:
		return filepath.Join(root, "usr", "bin", name)
	case binfmt.MachO:
		return filepath.Join(root, "Contents", "MacOS", name)
	}
	return filepath.Join(root, name)
}

// EnsureOutputLayout pre-creates the platform output skeleton
func EnsureOutputLayout(kind binfmt.Kind, root string) error {
	if err := os.MkdirAll(root, 0755); err != nil {
		return fmt.Errorf("failed to create output root %s: %w", root, err)
	}
	var dirs []string
	switch kind {
	case binfmt.PE:
		dirs = []string{
			filepath.Join(root, "plugins", "platforms"),
			filepath.Join(root, "plugins", "imageformats"),
			filepath.Join(root, "qml"),
			filepath.Join(root, "translations"),
		}
	case binfmt.ELF:
		dirs = []string{
			filepath.Join(root, "usr", "bin"),
			filepath.Join(root, "usr", "lib"),
			filepath.Join(root, "usr", "plugins", "platforms"),
			filepath.Join(root, "usr", "plugins", "imageformats"),
			filepath.Join(root, "usr", "qml"),
			filepath.Join(root, "usr", "translations"),
		}
	case binfmt.MachO:
		dirs = []string{
			filepath.Join(root, "Contents", "MacOS"),
			filepath.Join(root, "Contents", "Frameworks"),
			filepath.Join(root, "Contents", "PlugIns", "quick"),
			filepath.Join(root, "Contents", "PlugIns", "platforms"),
			filepath.Join(root, "Contents", "PlugIns", "imageformats"),
			filepath.Join(root, "Contents", "Resources", "qml"),
			filepath.Join(root, "Contents", "Resources", "translations"),
		}
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}
