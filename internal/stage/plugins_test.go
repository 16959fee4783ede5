package stage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crossdeployqt/crossdeployqt/internal/binfmt"
	"github.com/crossdeployqt/crossdeployqt/internal/platform"
	"github.com/crossdeployqt/crossdeployqt/internal/resolve"
)

func pluginContext(t *testing.T, kind binfmt.Kind, qt platform.QtLocations) *resolve.Context {
	t.Helper()
	root := filepath.Join(t.TempDir(), "out")
	require.NoError(t, EnsureOutputLayout(kind, root))
	return &resolve.Context{
		Cfg: resolve.Config{Kind: kind, BinaryPath: "/nowhere/app", OutputRoot: root},
		Qt:  qt,
	}
}

func TestCopyPluginsELF(t *testing.T) {
	pluginsRoot := t.TempDir()
	writeFile(t, filepath.Join(pluginsRoot, "platforms", "libqxcb.so"), "xcb")
	writeFile(t, filepath.Join(pluginsRoot, "imageformats", "libqjpeg.so"), "jpeg")
	writeFile(t, filepath.Join(pluginsRoot, "imageformats", "libqpng.so"), "png")

	t.Setenv("PATH", "")
	ctx := pluginContext(t, binfmt.ELF, platform.QtLocations{Plugins: pluginsRoot})
	CopyPlugins(ctx, nil)

	out := ctx.Cfg.OutputRoot
	assert.FileExists(t, filepath.Join(out, "usr", "plugins", "platforms", "libqxcb.so"))
	assert.FileExists(t, filepath.Join(out, "usr", "plugins", "imageformats", "libqjpeg.so"))
	assert.FileExists(t, filepath.Join(out, "usr", "plugins", "imageformats", "libqpng.so"))
}

func TestCopyPluginsSkipsRootWithoutPlatformPlugin(t *testing.T) {
	emptyRoot := t.TempDir()
	goodRoot := t.TempDir()
	writeFile(t, filepath.Join(goodRoot, "platforms", "qwindows.dll"), "win")

	t.Setenv("PATH", "")
	t.Setenv("MINGW_QT_PLUGINS", goodRoot)
	ctx := pluginContext(t, binfmt.PE, platform.QtLocations{Plugins: emptyRoot})
	CopyPlugins(ctx, nil)

	assert.FileExists(t, filepath.Join(ctx.Cfg.OutputRoot, "plugins", "platforms", "qwindows.dll"))
}

func TestCopyPluginsDerivesRootFromQtCoreDLL(t *testing.T) {
	prefix := t.TempDir()
	qtCore := filepath.Join(prefix, "bin", "Qt6Core.dll")
	writeFile(t, qtCore, "MZ")
	writeFile(t, filepath.Join(prefix, "plugins", "platforms", "qwindows.dll"), "win")

	t.Setenv("PATH", "")
	t.Setenv("MINGW_QT_PLUGINS", "")
	ctx := pluginContext(t, binfmt.PE, platform.QtLocations{})
	CopyPlugins(ctx, []string{qtCore})

	assert.FileExists(t, filepath.Join(ctx.Cfg.OutputRoot, "plugins", "platforms", "qwindows.dll"))
}

// PATH-derived candidate roots are a MinGW convention; ELF and Mach-O only
// ever look in the Qt install's plugins directory
func TestCopyPluginsELFIgnoresPathDerivedRoots(t *testing.T) {
	prefix := t.TempDir()
	writeFile(t, filepath.Join(prefix, "plugins", "platforms", "libqxcb.so"), "xcb")

	t.Setenv("PATH", filepath.Join(prefix, "bin"))
	ctx := pluginContext(t, binfmt.ELF, platform.QtLocations{})
	CopyPlugins(ctx, nil)

	assert.NoFileExists(t, filepath.Join(ctx.Cfg.OutputRoot, "usr", "plugins", "platforms", "libqxcb.so"))
}

func TestCopyPluginsNoRoots(t *testing.T) {
	t.Setenv("PATH", "")
	ctx := pluginContext(t, binfmt.ELF, platform.QtLocations{})
	CopyPlugins(ctx, nil)

	entries, err := os.ReadDir(filepath.Join(ctx.Cfg.OutputRoot, "usr", "plugins", "platforms"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStagePEFlat(t *testing.T) {
	ctx := pluginContext(t, binfmt.PE, platform.QtLocations{})
	lib := writeFile(t, filepath.Join(t.TempDir(), "Qt6Core.dll"), "MZ")
	StageLibraries(ctx, []string{lib})
	assert.FileExists(t, filepath.Join(ctx.Cfg.OutputRoot, "Qt6Core.dll"))
}

func TestStageMachOCopiesWholeFramework(t *testing.T) {
	qtLib := t.TempDir()
	fwBin := filepath.Join(qtLib, "QtCore.framework", "Versions", "A", "QtCore")
	writeFile(t, fwBin, "macho")
	writeFile(t, filepath.Join(qtLib, "QtCore.framework", "Resources", "Info.plist"), "<plist/>")

	ctx := pluginContext(t, binfmt.MachO, platform.QtLocations{})
	StageLibraries(ctx, []string{fwBin})

	out := ctx.Cfg.OutputRoot
	assert.FileExists(t, filepath.Join(out, "Contents", "Frameworks", "QtCore.framework", "Versions", "A", "QtCore"))
	assert.FileExists(t, filepath.Join(out, "Contents", "Frameworks", "QtCore.framework", "Resources", "Info.plist"))
}

func TestStageMachOLooseDylib(t *testing.T) {
	lib := writeFile(t, filepath.Join(t.TempDir(), "libextra.dylib"), "macho")
	ctx := pluginContext(t, binfmt.MachO, platform.QtLocations{})
	StageLibraries(ctx, []string{lib})
	assert.FileExists(t, filepath.Join(ctx.Cfg.OutputRoot, "Contents", "Frameworks", "libextra.dylib"))
}
