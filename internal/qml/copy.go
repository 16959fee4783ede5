package qml

import (
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/crossdeployqt/crossdeployqt/internal/binfmt"
	"github.com/crossdeployqt/crossdeployqt/internal/helpers"
	"github.com/crossdeployqt/crossdeployqt/internal/platform"
	"github.com/crossdeployqt/crossdeployqt/internal/resolve"
	"github.com/crossdeployqt/crossdeployqt/internal/stage"
)

// CopyModules scans for used QML modules and copies each module directory
// into the QML output base. Failures inside one module are warnings; the
// remaining modules still deploy.
func CopyModules(ctx *resolve.Context) {
	cwd, _ := os.Getwd()
	roots := DiscoverRoots(ctx, cwd)
	if len(roots) == 0 {
		return
	}
	LogRoots(roots)

	modules := ScanImports(ctx, roots)
	if len(modules) == 0 {
		return
	}

	qmlBase := stage.QmlBase(ctx.Cfg.Kind, ctx.Cfg.OutputRoot)
	for _, m := range modules {
		dst := filepath.Join(qmlBase, m.RelativePath)
		if platform.Verbose() {
			log.Println("[qml] module:", m.Path, "->", dst)
		}
		if err := copyModuleTree(ctx, m.Path, dst); err != nil {
			helpers.PrintError("traverse QML module "+m.Path, err)
		}
	}
}

// copyModuleTree copies every regular file of a module. Symlinks are
// skipped, except on Mach-O where a symlink to a dylib participates in the
// plugin relocation.
func copyModuleTree(ctx *resolve.Context, srcRoot, dstRoot string) error {
	os.MkdirAll(dstRoot, 0755)
	return filepath.Walk(srcRoot, func(src string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(srcRoot, src)
		if relErr != nil {
			return relErr
		}
		out := filepath.Join(dstRoot, rel)

		if ctx.Cfg.Kind == binfmt.MachO {
			return copyMachOModuleEntry(ctx, src, out, info)
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return nil
		}
		return stage.CopyFile(src, out)
	})
}

// copyMachOModuleEntry relocates plugin dylibs into Contents/PlugIns/quick
// and leaves a relative symlink in the staged module, so the bundle never
// carries the same plugin twice
func copyMachOModuleEntry(ctx *resolve.Context, src, out string, info os.FileInfo) error {
	isLink := info.Mode()&os.ModeSymlink != 0
	target := src
	if isLink {
		if resolved := helpers.CanonicalPath(src); helpers.IsRegularFile(resolved) {
			target = resolved
		}
	}

	if strings.HasSuffix(target, ".dylib") {
		quickDir := filepath.Join(ctx.Cfg.OutputRoot, "Contents", "PlugIns", "quick")
		os.MkdirAll(quickDir, 0755)
		moved := filepath.Join(quickDir, filepath.Base(target))
		if platform.Verbose() {
			log.Println("[qml] stage dylib:", target, "->", moved)
		}
		if err := stage.CopyFile(target, moved); err != nil {
			return err
		}
		os.MkdirAll(filepath.Dir(out), 0755)
		os.Remove(out)
		relTarget, err := filepath.Rel(filepath.Dir(out), moved)
		if err != nil {
			return stage.CopyFile(moved, out)
		}
		if err := os.Symlink(relTarget, out); err != nil {
			return stage.CopyFile(moved, out)
		}
		return nil
	}

	if isLink {
		return nil
	}
	return stage.CopyFile(src, out)
}
