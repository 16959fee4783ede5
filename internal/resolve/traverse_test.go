package resolve

import (
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crossdeployqt/crossdeployqt/internal/binfmt"
	"github.com/crossdeployqt/crossdeployqt/internal/deps"
	"github.com/crossdeployqt/crossdeployqt/internal/helpers"
	"github.com/crossdeployqt/crossdeployqt/internal/platform"
)

// buildElfFixture lays out a fake Qt install and main binary; dependency
// records are pre-seeded into the cache so no external tool runs
func buildElfFixture(t *testing.T) (Config, *Context, *deps.Cache, string) {
	t.Helper()
	dir := t.TempDir()
	qtLibs := filepath.Join(dir, "qt", "lib")
	mainBin := touch(t, filepath.Join(dir, "build", "app"))
	touch(t, filepath.Join(qtLibs, "libQt6Core.so.6"))
	touch(t, filepath.Join(qtLibs, "libQt6Gui.so.6"))
	touch(t, filepath.Join(qtLibs, "libicudata.so.72"))

	t.Setenv("LD_LIBRARY_PATH", "")

	cfg := Config{Kind: binfmt.ELF, BinaryPath: mainBin}
	ctx := NewContext(cfg, platform.QtLocations{Libs: qtLibs})
	cache := deps.NewCache()
	return cfg, ctx, cache, qtLibs
}

func TestClosureTransitive(t *testing.T) {
	_, ctx, cache, qtLibs := buildElfFixture(t)

	cache.Put(ctx.Cfg.BinaryPath, deps.Record{Needed: []string{"libQt6Gui.so.6", "libm.so.6"}})
	cache.Put(filepath.Join(qtLibs, "libQt6Gui.so.6"), deps.Record{Needed: []string{"libQt6Core.so.6"}})
	cache.Put(filepath.Join(qtLibs, "libQt6Core.so.6"), deps.Record{Needed: []string{"libicudata.so.72"}})
	cache.Put(filepath.Join(qtLibs, "libicudata.so.72"), deps.Record{})

	libs, err := ctx.Closure(cache)
	require.NoError(t, err)
	sort.Strings(libs)

	want := []string{
		helpers.CanonicalPath(filepath.Join(qtLibs, "libQt6Core.so.6")),
		helpers.CanonicalPath(filepath.Join(qtLibs, "libQt6Gui.so.6")),
		helpers.CanonicalPath(filepath.Join(qtLibs, "libicudata.so.72")),
	}
	sort.Strings(want)
	assert.Equal(t, want, libs)
}

func TestClosureExcludesMainBinary(t *testing.T) {
	_, ctx, cache, qtLibs := buildElfFixture(t)
	cache.Put(ctx.Cfg.BinaryPath, deps.Record{Needed: []string{"libQt6Core.so.6"}})
	cache.Put(filepath.Join(qtLibs, "libQt6Core.so.6"), deps.Record{})

	libs, err := ctx.Closure(cache)
	require.NoError(t, err)
	assert.NotContains(t, libs, helpers.CanonicalPath(ctx.Cfg.BinaryPath))
}

func TestClosureMissingQtLibraryIsFatal(t *testing.T) {
	_, ctx, cache, _ := buildElfFixture(t)
	cache.Put(ctx.Cfg.BinaryPath, deps.Record{Needed: []string{"libQt6Network.so.6"}})

	_, err := ctx.Closure(cache)
	require.Error(t, err)
	var missing *MissingQtLibraryError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "libQt6Network.so.6", missing.Name)
	assert.Contains(t, err.Error(), "libQt6Network.so.6")
}

func TestClosureSkipsUnresolvedNonQt(t *testing.T) {
	_, ctx, cache, qtLibs := buildElfFixture(t)
	cache.Put(ctx.Cfg.BinaryPath, deps.Record{Needed: []string{"libQt6Core.so.6", "libweird.so.9"}})
	cache.Put(filepath.Join(qtLibs, "libQt6Core.so.6"), deps.Record{})

	libs, err := ctx.Closure(cache)
	require.NoError(t, err)
	assert.Len(t, libs, 1)
}

func TestClosureHandlesCycles(t *testing.T) {
	_, ctx, cache, qtLibs := buildElfFixture(t)
	cache.Put(ctx.Cfg.BinaryPath, deps.Record{Needed: []string{"libQt6Core.so.6"}})
	cache.Put(filepath.Join(qtLibs, "libQt6Core.so.6"), deps.Record{Needed: []string{"libQt6Gui.so.6"}})
	cache.Put(filepath.Join(qtLibs, "libQt6Gui.so.6"), deps.Record{Needed: []string{"libQt6Core.so.6"}})

	libs, err := ctx.Closure(cache)
	require.NoError(t, err)
	assert.Len(t, libs, 2)
}

func TestClosureFromReturnsOnlyDiscoveredDeps(t *testing.T) {
	_, ctx, cache, qtLibs := buildElfFixture(t)
	plugin := touch(t, filepath.Join(t.TempDir(), "libqtquick2plugin.so"))

	cache.Put(plugin, deps.Record{Needed: []string{"libQt6Core.so.6"}})
	cache.Put(filepath.Join(qtLibs, "libQt6Core.so.6"), deps.Record{Needed: []string{"libicudata.so.72"}})
	cache.Put(filepath.Join(qtLibs, "libicudata.so.72"), deps.Record{})

	libs := ctx.ClosureFrom(cache, []string{plugin})
	sort.Strings(libs)

	want := []string{
		helpers.CanonicalPath(filepath.Join(qtLibs, "libQt6Core.so.6")),
		helpers.CanonicalPath(filepath.Join(qtLibs, "libicudata.so.72")),
	}
	sort.Strings(want)
	assert.Equal(t, want, libs)
	assert.NotContains(t, libs, helpers.CanonicalPath(plugin))
}

func TestClosureFromSilentlySkipsUnresolved(t *testing.T) {
	_, ctx, cache, _ := buildElfFixture(t)
	plugin := touch(t, filepath.Join(t.TempDir(), "libqtquick2plugin.so"))
	cache.Put(plugin, deps.Record{Needed: []string{"libQt6Missing.so.6"}})

	libs := ctx.ClosureFrom(cache, []string{plugin})
	assert.Empty(t, libs)
}

func TestMissingQtLibraryErrorMessage(t *testing.T) {
	err := &MissingQtLibraryError{Name: "libQt6Core.so.6"}
	assert.Equal(t, "Required Qt library not found in search paths: libQt6Core.so.6", err.Error())
}
