package qml

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crossdeployqt/crossdeployqt/internal/binfmt"
	"github.com/crossdeployqt/crossdeployqt/internal/resolve"
)

func buildQmlModule(t *testing.T, kind binfmt.Kind) (string, *resolve.Context) {
	t.Helper()
	moduleDir := filepath.Join(t.TempDir(), "QtQuick")
	require.NoError(t, os.MkdirAll(moduleDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(moduleDir, "qmldir"), []byte("module QtQuick\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(moduleDir, "libqtquick2plugin"+kind.LibraryExt()), []byte("plugin"), 0755))

	root := t.TempDir()
	ctx := &resolve.Context{
		Cfg: resolve.Config{Kind: kind, BinaryPath: "/nowhere/app", OutputRoot: root},
	}
	return moduleDir, ctx
}

func TestCopyModuleTreeELF(t *testing.T) {
	moduleDir, ctx := buildQmlModule(t, binfmt.ELF)
	dst := filepath.Join(ctx.Cfg.OutputRoot, "usr", "qml", "QtQuick")

	require.NoError(t, copyModuleTree(ctx, moduleDir, dst))
	assert.FileExists(t, filepath.Join(dst, "qmldir"))
	assert.FileExists(t, filepath.Join(dst, "libqtquick2plugin.so"))
}

func TestCopyModuleTreeSkipsSymlinksOnELF(t *testing.T) {
	moduleDir, ctx := buildQmlModule(t, binfmt.ELF)
	require.NoError(t, os.Symlink("qmldir", filepath.Join(moduleDir, "qmldir.link")))
	dst := filepath.Join(ctx.Cfg.OutputRoot, "usr", "qml", "QtQuick")

	require.NoError(t, copyModuleTree(ctx, moduleDir, dst))
	assert.NoFileExists(t, filepath.Join(dst, "qmldir.link"))
}

// On Mach-O a plugin dylib is relocated into Contents/PlugIns/quick and the
// staged module keeps only a relative symlink to it
func TestCopyModuleTreeMachORelocatesDylibs(t *testing.T) {
	moduleDir, ctx := buildQmlModule(t, binfmt.MachO)
	dst := filepath.Join(ctx.Cfg.OutputRoot, "Contents", "Resources", "qml", "QtQuick")

	require.NoError(t, copyModuleTree(ctx, moduleDir, dst))

	moved := filepath.Join(ctx.Cfg.OutputRoot, "Contents", "PlugIns", "quick", "libqtquick2plugin.dylib")
	info, err := os.Stat(moved)
	require.NoError(t, err)
	assert.True(t, info.Mode().IsRegular())

	staged := filepath.Join(dst, "libqtquick2plugin.dylib")
	linkInfo, err := os.Lstat(staged)
	require.NoError(t, err)
	require.NotZero(t, linkInfo.Mode()&os.ModeSymlink, "staged plugin must be a symlink")

	target, err := os.Readlink(staged)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("..", "..", "..", "PlugIns", "quick", "libqtquick2plugin.dylib"), target)

	// qmldir is staged as a regular file
	assert.FileExists(t, filepath.Join(dst, "qmldir"))
}
