package resolve

import (
	"path/filepath"
	"strings"

	"github.com/crossdeployqt/crossdeployqt/internal/binfmt"
)

// windowsSystemDlls are never deployed; the target system provides them
var windowsSystemDlls = map[string]bool{
	"kernel32.dll": true,
	"user32.dll":   true,
	"gdi32.dll":    true,
	"shell32.dll":  true,
	"ole32.dll":    true,
	"advapi32.dll": true,
	"ws2_32.dll":   true,
	"ntdll.dll":    true,
	"sechost.dll":  true,
	"shlwapi.dll":  true,
	"comdlg32.dll": true,
	"imm32.dll":    true,
	"version.dll":  true,
	"winmm.dll":    true,
	"cfgmgr32.dll": true,
}

// IsQtLibraryName reports whether a library name looks like a Qt library:
// lowercased it starts with "qt" or contains "qt6". An unresolved reference
// with such a name is fatal; a resolved one is always deployed.
func IsQtLibraryName(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasPrefix(lower, "qt") || strings.Contains(lower, "qt6")
}

func (ctx *Context) inQtPath(libPath string) bool {
	if ctx.Qt.Libs != "" && strings.HasPrefix(libPath, ctx.Qt.Libs) {
		return true
	}
	if ctx.Qt.Bins != "" && strings.HasPrefix(libPath, ctx.Qt.Bins) {
		return true
	}
	if ctx.Qt.Prefix != "" && strings.HasPrefix(libPath, ctx.Qt.Prefix) {
		return true
	}
	return false
}

func (ctx *Context) nearBinary(libPath string) bool {
	return filepath.Dir(libPath) == filepath.Dir(ctx.Cfg.BinaryPath)
}

// ShouldDeploy decides whether a resolved library is staged into the output.
// Qt libraries and libraries living next to the main binary are deployed;
// host-system libraries are left for the target system to provide.
func (ctx *Context) ShouldDeploy(libPath string) bool {
	base := filepath.Base(libPath)

	switch ctx.Cfg.Kind {
	case binfmt.ELF:
		if strings.HasPrefix(libPath, "/lib") || strings.HasPrefix(libPath, "/usr/lib") {
			return IsQtLibraryName(base) || ctx.inQtPath(libPath)
		}
		return IsQtLibraryName(base) || ctx.inQtPath(libPath) || ctx.nearBinary(libPath)

	case binfmt.PE:
		lower := strings.ToLower(base)
		if strings.HasPrefix(lower, "api-ms-win-") || strings.HasPrefix(lower, "ext-ms-win-") {
			return false
		}
		if windowsSystemDlls[lower] {
			return false
		}
		if strings.HasPrefix(libPath, "/nix/store/") {
			return true
		}
		return IsQtLibraryName(base) || ctx.inQtPath(libPath) || ctx.nearBinary(libPath)

	default: // Mach-O
		if strings.HasPrefix(libPath, "/System/Library/Frameworks/") || strings.HasPrefix(libPath, "/usr/lib/") {
			return false
		}
		return IsQtLibraryName(base) || ctx.inQtPath(libPath) || ctx.nearBinary(libPath)
	}
}
