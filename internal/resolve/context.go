// Package resolve maps dependency references to filesystem paths, decides
// which resolved libraries belong in the deployment, and walks the
// transitive dependency closure.
package resolve

import (
	"path/filepath"
	"strings"

	"github.com/crossdeployqt/crossdeployqt/internal/binfmt"
	"github.com/crossdeployqt/crossdeployqt/internal/helpers"
	"github.com/crossdeployqt/crossdeployqt/internal/platform"
)

// Config is the deployment request as produced by the CLI
type Config struct {
	Kind       binfmt.Kind
	BinaryPath string   // main binary, an existing regular file
	OutputRoot string   // platform-normalized output root
	QmlRoots   []string // extra directories to scan for QML sources
	Languages  []string // explicit language tags; empty means derive from locale env
	Overlays   []string // directories merged onto the output verbatim
}

// Context carries everything resolution needs: the configuration, the Qt
// locations and the ordered search directories. It is built once per
// deployment pass and read-only afterwards.
type Context struct {
	Cfg Config
	Qt  platform.QtLocations

	// SearchDirs is the ordered, canonicalized, deduplicated list of
	// directories tried when a reference has no other way to resolve.
	// The main binary's own directory always comes first.
	SearchDirs []string

	// QmlImportPaths are passed to the QML import scanner
	QmlImportPaths []string

	// QmlRoots are the root directories considered for QML scanning
	// (CLI-provided plus QML_ROOT env entries)
	QmlRoots []string

	searchDirSet map[string]bool
}

// NewContext builds the resolve context: search directories from the
// binary's location, the loader-path environment of the detected platform
// and the Qt install, QML import paths, and QML roots. As a side effect the
// Qt libs/bins directory is prepended to the loader-path variables of this
// process so that child tools inherit a search path that finds Qt.
func NewContext(cfg Config, qt platform.QtLocations) *Context {
	ctx := &Context{Cfg: cfg, Qt: qt, searchDirSet: make(map[string]bool)}

	ctx.addSearchDir(filepath.Dir(cfg.BinaryPath))

	switch cfg.Kind {
	case binfmt.ELF:
		ld := platform.GetEnv("LD_LIBRARY_PATH")
		for _, p := range platform.SplitPathList(ld) {
			ctx.addSearchDir(p)
		}
		if qt.Libs != "" {
			ctx.addSearchDir(qt.Libs)
			platform.SetEnv("LD_LIBRARY_PATH", platform.JoinPathList(qt.Libs, ld))
		}
	case binfmt.PE:
		path := platform.GetEnv("PATH")
		entries := platform.SplitPathList(path)
		for _, p := range entries {
			ctx.addSearchDir(p)
		}
		if qt.Bins != "" {
			ctx.addSearchDir(qt.Bins)
			platform.SetEnv("PATH", platform.JoinPathList(qt.Bins, path))
		}
		// A MinGW-style prefix keeps qml next to bin; consider those as
		// QML import paths, not as library search directories.
		for _, p := range entries {
			if !strings.HasSuffix(p, "/bin") {
				continue
			}
			base := filepath.Dir(p)
			for _, cand := range []string{
				filepath.Join(base, "qml"),
				filepath.Join(base, "lib", "qt-6", "qml"),
			} {
				if helpers.Exists(cand) {
					ctx.QmlImportPaths = append(ctx.QmlImportPaths, cand)
				}
			}
		}
	case binfmt.MachO:
		dyld := platform.GetEnv("DYLD_LIBRARY_PATH")
		for _, p := range platform.SplitPathList(dyld) {
			ctx.addSearchDir(p)
		}
		dyldFw := platform.GetEnv("DYLD_FRAMEWORK_PATH")
		for _, p := range platform.SplitPathList(dyldFw) {
			ctx.addSearchDir(p)
		}
		if qt.Libs != "" {
			ctx.addSearchDir(qt.Libs)
			platform.SetEnv("DYLD_LIBRARY_PATH", platform.JoinPathList(qt.Libs, dyld))
			platform.SetEnv("DYLD_FRAMEWORK_PATH", platform.JoinPathList(qt.Libs, dyldFw))
		}
	}

	if qt.Qml != "" && helpers.Exists(qt.Qml) {
		ctx.QmlImportPaths = append(ctx.QmlImportPaths, qt.Qml)
	}
	for _, p := range platform.SplitPathList(platform.GetEnv("QML2_IMPORT_PATH")) {
		if helpers.Exists(p) {
			ctx.QmlImportPaths = append(ctx.QmlImportPaths, p)
		}
	}

	ctx.QmlRoots = append(ctx.QmlRoots, cfg.QmlRoots...)
	ctx.QmlRoots = append(ctx.QmlRoots, platform.SplitPathList(platform.GetEnv("QML_ROOT"))...)

	return ctx
}

func (ctx *Context) addSearchDir(dir string) {
	if dir == "" {
		return
	}
	key := helpers.CanonicalPath(dir)
	if ctx.searchDirSet[key] {
		return
	}
	ctx.searchDirSet[key] = true
	ctx.SearchDirs = append(ctx.SearchDirs, key)
}
