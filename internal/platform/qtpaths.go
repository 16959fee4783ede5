package platform

import (
	"log"
	"strings"

	goversion "github.com/hashicorp/go-version"

	"github.com/crossdeployqt/crossdeployqt/internal/helpers"
)

// QtLocations holds the Qt install directories as answered by the qtpaths
// tool. A location that could not be queried, or that does not exist on
// disk, is the empty string; callers treat an empty entry as "absent" and
// skip the corresponding deployment step.
type QtLocations struct {
	Libs         string
	Bins         string
	Prefix       string
	Plugins      string
	Qml          string
	Translations string
}

// QtPathsTool returns the name (or path) of the Qt query tool: the value of
// QTPATHS_BIN if set, otherwise "qtpaths"
func QtPathsTool() string {
	if bin := GetEnv("QTPATHS_BIN"); bin != "" {
		return bin
	}
	return "qtpaths"
}

func queryQtPath(tool, key string) string {
	out, code := RunCommand(tool + " --query " + key)
	if code != 0 {
		return ""
	}
	return strings.TrimSpace(out)
}

// QueryQtLocations probes the Qt installation by invoking the qtpaths tool
// once per location key. Directories that do not exist come back empty.
func QueryQtLocations() QtLocations {
	tool := QtPathsTool()
	loc := QtLocations{
		Libs:         queryQtPath(tool, "QT_INSTALL_LIBS"),
		Bins:         queryQtPath(tool, "QT_INSTALL_BINS"),
		Prefix:       queryQtPath(tool, "QT_INSTALL_PREFIX"),
		Plugins:      queryQtPath(tool, "QT_INSTALL_PLUGINS"),
		Qml:          queryQtPath(tool, "QT_INSTALL_QML"),
		Translations: queryQtPath(tool, "QT_INSTALL_TRANSLATIONS"),
	}
	for _, dir := range []*string{&loc.Libs, &loc.Bins, &loc.Prefix, &loc.Plugins, &loc.Qml, &loc.Translations} {
		if *dir != "" && !helpers.Exists(*dir) {
			*dir = ""
		}
	}
	return loc
}

// WarnIfOldQt queries QT_VERSION and warns when the installation predates
// Qt 6. The deployment proceeds either way; plugin and prefix handling
// assume the Qt 6 layout.
func WarnIfOldQt() {
	raw := queryQtPath(QtPathsTool(), "QT_VERSION")
	if raw == "" {
		return
	}
	v, err := goversion.NewVersion(raw)
	if err != nil {
		return
	}
	six, _ := goversion.NewVersion("6.0.0")
	if v.LessThan(six) {
		log.Println("Warning: Qt", raw, "found; this tool targets Qt 6 layouts")
	}
}
