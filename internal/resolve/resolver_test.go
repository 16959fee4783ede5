package resolve

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crossdeployqt/crossdeployqt/internal/binfmt"
	"github.com/crossdeployqt/crossdeployqt/internal/deps"
	"github.com/crossdeployqt/crossdeployqt/internal/helpers"
	"github.com/crossdeployqt/crossdeployqt/internal/platform"
)

func touch(t *testing.T, path string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	return path
}

func TestExpandElfOriginReplacesEveryOccurrence(t *testing.T) {
	got := expandElfOrigin("$ORIGIN/../lib:${ORIGIN}/plugins:$ORIGIN", "/opt/app/bin/main")
	assert.Equal(t, "/opt/app/bin/../lib:/opt/app/bin/plugins:/opt/app/bin", got)
}

func TestResolveELFViaEmbeddedSearchPath(t *testing.T) {
	dir := t.TempDir()
	subject := touch(t, filepath.Join(dir, "bin", "main"))
	lib := touch(t, filepath.Join(dir, "lib", "libdep.so.1"))

	ctx := testContext(binfmt.ELF, subject, platform.QtLocations{})
	rec := deps.Record{SearchPaths: []string{"$ORIGIN/../lib"}}

	found, ok := ctx.ResolveRef("libdep.so.1", subject, rec, deps.NewCache(), subject)
	require.True(t, ok)
	assert.Equal(t, helpers.CanonicalPath(lib), found)
}

func TestResolveAbsoluteRef(t *testing.T) {
	dir := t.TempDir()
	lib := touch(t, filepath.Join(dir, "libabs.so"))
	ctx := testContext(binfmt.ELF, filepath.Join(dir, "main"), platform.QtLocations{})

	found, ok := ctx.ResolveRef(lib, filepath.Join(dir, "main"), deps.Record{}, deps.NewCache(), filepath.Join(dir, "main"))
	require.True(t, ok)
	assert.Equal(t, helpers.CanonicalPath(lib), found)
}

func TestResolveFallsBackToSearchDirsFirstHitWins(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	touch(t, filepath.Join(first, "libboth.so"))
	touch(t, filepath.Join(second, "libboth.so"))

	ctx := testContext(binfmt.ELF, "/nowhere/main", platform.QtLocations{})
	ctx.searchDirSet = make(map[string]bool)
	ctx.addSearchDir(first)
	ctx.addSearchDir(second)

	found, ok := ctx.ResolveRef("libboth.so", "/nowhere/main", deps.Record{}, deps.NewCache(), "/nowhere/main")
	require.True(t, ok)
	assert.Equal(t, helpers.CanonicalPath(filepath.Join(first, "libboth.so")), found)
}

// @loader_path anchors at the subject being resolved, @executable_path
// always at the original input binary
func TestResolveMachOTokens(t *testing.T) {
	dir := t.TempDir()
	mainExe := touch(t, filepath.Join(dir, "MacOS", "Main"))
	subject := touch(t, filepath.Join(dir, "Frameworks", "libplugin.dylib"))
	nearLoader := touch(t, filepath.Join(dir, "Frameworks", "libnear.dylib"))
	nearExe := touch(t, filepath.Join(dir, "MacOS", "libexe.dylib"))

	ctx := testContext(binfmt.MachO, mainExe, platform.QtLocations{})
	cache := deps.NewCache()
	cache.PutMachORpaths(subject, nil)

	found, ok := ctx.ResolveRef("@loader_path/libnear.dylib", subject, deps.Record{}, cache, mainExe)
	require.True(t, ok)
	assert.Equal(t, helpers.CanonicalPath(nearLoader), found)

	found, ok = ctx.ResolveRef("@executable_path/libexe.dylib", subject, deps.Record{}, cache, mainExe)
	require.True(t, ok)
	assert.Equal(t, helpers.CanonicalPath(nearExe), found)
}

func TestResolveMachORpathExpansion(t *testing.T) {
	dir := t.TempDir()
	mainExe := touch(t, filepath.Join(dir, "MacOS", "Main"))
	subject := mainExe
	lib := touch(t, filepath.Join(dir, "Frameworks", "QtCore.framework", "Versions", "A", "QtCore"))

	ctx := testContext(binfmt.MachO, mainExe, platform.QtLocations{})
	cache := deps.NewCache()
	cache.PutMachORpaths(subject, []string{"@executable_path/../Frameworks"})

	found, ok := ctx.ResolveRef("@rpath/QtCore.framework/Versions/A/QtCore", subject, deps.Record{}, cache, mainExe)
	require.True(t, ok)
	assert.Equal(t, helpers.CanonicalPath(lib), found)
}

func TestResolveMissReturnsFalse(t *testing.T) {
	ctx := testContext(binfmt.PE, "/nowhere/app.exe", platform.QtLocations{})
	_, ok := ctx.ResolveRef("NoSuch.dll", "/nowhere/app.exe", deps.Record{}, deps.NewCache(), "/nowhere/app.exe")
	assert.False(t, ok)
}

func TestNewContextSearchDirOrder(t *testing.T) {
	binDir := t.TempDir()
	qtLibs := t.TempDir()
	ldDir := t.TempDir()
	mainBin := touch(t, filepath.Join(binDir, "app"))

	t.Setenv("LD_LIBRARY_PATH", ldDir)

	cfg := Config{Kind: binfmt.ELF, BinaryPath: mainBin}
	ctx := NewContext(cfg, platform.QtLocations{Libs: qtLibs})

	require.Len(t, ctx.SearchDirs, 3)
	assert.Equal(t, helpers.CanonicalPath(binDir), ctx.SearchDirs[0])
	assert.Equal(t, helpers.CanonicalPath(ldDir), ctx.SearchDirs[1])
	assert.Equal(t, helpers.CanonicalPath(qtLibs), ctx.SearchDirs[2])

	// Qt libs was prepended to the child-process environment
	assert.Equal(t, qtLibs+platform.PathListSeparator()+ldDir, os.Getenv("LD_LIBRARY_PATH"))
}

func TestNewContextDeduplicatesSearchDirs(t *testing.T) {
	binDir := t.TempDir()
	mainBin := touch(t, filepath.Join(binDir, "app"))
	t.Setenv("LD_LIBRARY_PATH", binDir)

	cfg := Config{Kind: binfmt.ELF, BinaryPath: mainBin}
	ctx := NewContext(cfg, platform.QtLocations{})
	assert.Len(t, ctx.SearchDirs, 1)
}
