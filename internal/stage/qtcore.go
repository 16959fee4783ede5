package stage

import (
	"path/filepath"
	"strings"

	"github.com/crossdeployqt/crossdeployqt/internal/helpers"
)

// FindStagedQtCore returns the staged copy of Qt6Core.dll when one of the
// resolved libraries is the Qt core DLL (matched case-insensitively), or ""
func FindStagedQtCore(outputRoot string, resolvedLibs []string) string {
	for _, lib := range resolvedLibs {
		name := filepath.Base(lib)
		if strings.ToLower(name) != "qt6core.dll" {
			continue
		}
		staged := filepath.Join(outputRoot, name)
		if helpers.Exists(staged) {
			return staged
		}
	}
	return ""
}
