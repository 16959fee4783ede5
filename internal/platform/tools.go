package platform

import (
	"github.com/crossdeployqt/crossdeployqt/internal/binfmt"
	"github.com/crossdeployqt/crossdeployqt/internal/helpers"
)

// External tool names, resolved via $PATH
const (
	ObjdumpPE       = "x86_64-w64-mingw32-objdump"
	Otool           = "llvm-otool"
	InstallNameTool = "llvm-install-name-tool"
	Patchelf        = "patchelf"
	QmlScanner      = "qmlimportscanner"
	Lconvert        = "lconvert"
)

// MissingTools returns the names of the external tools required for
// deploying a binary of the given kind that are not installed
func MissingTools(kind binfmt.Kind) []string {
	var missing []string

	qtpathsBin := GetEnv("QTPATHS_BIN")
	haveQtpaths := false
	if qtpathsBin != "" {
		haveQtpaths = helpers.IsRegularFile(qtpathsBin) || helpers.Exists(qtpathsBin)
	} else {
		haveQtpaths = IsCommandAvailable("qtpaths")
	}
	if !haveQtpaths {
		if qtpathsBin != "" {
			missing = append(missing, qtpathsBin+" (from QTPATHS_BIN)")
		} else {
			missing = append(missing, "qtpaths")
		}
	}

	if !IsCommandAvailable(QmlScanner) {
		missing = append(missing, QmlScanner)
	}
	if !IsCommandAvailable(Lconvert) {
		missing = append(missing, Lconvert)
	}

	switch kind {
	case binfmt.ELF:
		// ELF dependencies are read in-process via debug/elf; only the
		// patcher shells out.
		if !IsCommandAvailable(Patchelf) {
			missing = append(missing, Patchelf)
		}
	case binfmt.PE:
		if !IsCommandAvailable(ObjdumpPE) {
			missing = append(missing, ObjdumpPE)
		}
	case binfmt.MachO:
		if !IsCommandAvailable(Otool) {
			missing = append(missing, Otool)
		}
		if !IsCommandAvailable(InstallNameTool) {
			missing = append(missing, InstallNameTool)
		}
	}

	return missing
}
