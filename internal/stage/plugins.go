package stage

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/crossdeployqt/crossdeployqt/internal/binfmt"
	"github.com/crossdeployqt/crossdeployqt/internal/helpers"
	"github.com/crossdeployqt/crossdeployqt/internal/platform"
	"github.com/crossdeployqt/crossdeployqt/internal/resolve"
)

// imageFormatPlugins is the minimal image-format set deployed next to the
// platform plugin
var imageFormatPlugins = []string{"qjpeg", "qico", "qgif", "qpng"}

func platformPluginName(kind binfmt.Kind) string {
	switch kind {
	case binfmt.PE:
		return "qwindows.dll"
	case binfmt.ELF:
		return "libqxcb.so"
	default:
		return "libqcocoa.dylib"
	}
}

func imageFormatPluginName(kind binfmt.Kind, name string) string {
	if kind == binfmt.PE {
		return name + ".dll"
	}
	return "lib" + name + kind.LibraryExt()
}

// pluginRoots enumerates candidate Qt plugin directories: the Qt install
// and, on PE, MINGW_QT_PLUGINS entries, roots derived from PATH entries
// ending in /bin, and the prefix holding a resolved Qt6Core.dll. The list
// is sorted before selection.
func pluginRoots(ctx *resolve.Context, resolvedLibs []string) []string {
	var roots []string
	if ctx.Qt.Plugins != "" {
		roots = append(roots, ctx.Qt.Plugins)
	}

	if ctx.Cfg.Kind == binfmt.PE {
		for _, p := range platform.SplitPathList(platform.GetEnv("MINGW_QT_PLUGINS")) {
			roots = append(roots, p)
		}

		for _, p := range platform.SplitPathList(platform.GetEnv("PATH")) {
			if !strings.HasSuffix(p, "/bin") {
				continue
			}
			base := filepath.Dir(p)
			for _, cand := range []string{
				filepath.Join(base, "plugins"),
				filepath.Join(base, "lib", "qt-6", "plugins"),
			} {
				if helpers.Exists(cand) {
					roots = append(roots, cand)
				}
			}
		}

		for _, lib := range resolvedLibs {
			if strings.ToLower(filepath.Base(lib)) != "qt6core.dll" {
				continue
			}
			prefix := filepath.Dir(filepath.Dir(lib))
			for _, cand := range []string{
				filepath.Join(prefix, "plugins"),
				filepath.Join(prefix, "lib", "qt-6", "plugins"),
			} {
				if helpers.Exists(cand) {
					roots = append(roots, cand)
				}
			}
		}
	}

	sort.Strings(roots)
	var unique []string
	for _, root := range roots {
		unique = helpers.AppendIfMissing(unique, root)
	}
	return unique
}

// CopyPlugins stages the minimal plugin set: the platform plugin plus the
// common image-format plugins, taken from the first candidate root that
// actually contains the expected platform plugin.
func CopyPlugins(ctx *resolve.Context, resolvedLibs []string) {
	kind := ctx.Cfg.Kind
	dstBase := PluginsBase(kind, ctx.Cfg.OutputRoot)
	want := platformPluginName(kind)

	for _, root := range pluginRoots(ctx, resolvedLibs) {
		platformPlugin := filepath.Join(root, "platforms", want)
		if !helpers.Exists(platformPlugin) {
			continue
		}
		dest := filepath.Join(dstBase, "platforms", want)
		if err := CopyFile(platformPlugin, dest); err != nil {
			helpers.PrintError("copy "+platformPlugin, err)
		}
		for _, name := range imageFormatPlugins {
			src := filepath.Join(root, "imageformats", imageFormatPluginName(kind, name))
			if !helpers.Exists(src) {
				continue
			}
			if err := CopyFile(src, filepath.Join(dstBase, "imageformats", filepath.Base(src))); err != nil {
				helpers.PrintError("copy "+src, err)
			}
		}
		break
	}
}
