package qml

import (
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/crossdeployqt/crossdeployqt/internal/binfmt"
	"github.com/crossdeployqt/crossdeployqt/internal/deps"
	"github.com/crossdeployqt/crossdeployqt/internal/helpers"
	"github.com/crossdeployqt/crossdeployqt/internal/platform"
	"github.com/crossdeployqt/crossdeployqt/internal/resolve"
	"github.com/crossdeployqt/crossdeployqt/internal/stage"
)

// ListPluginLibraries enumerates the staged QML plugin libraries by
// extension under the QML output base and, on Mach-O, under
// Contents/PlugIns/quick, deduplicated by canonical path
func ListPluginLibraries(kind binfmt.Kind, outputRoot string) []string {
	dirs := []string{stage.QmlBase(kind, outputRoot)}
	if kind == binfmt.MachO {
		dirs = append(dirs, filepath.Join(outputRoot, "Contents", "PlugIns", "quick"))
	}

	ext := kind.LibraryExt()
	seen := make(map[string]bool)
	var libs []string
	for _, dir := range dirs {
		if !helpers.Exists(dir) {
			continue
		}
		filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
			if err != nil || !info.Mode().IsRegular() || !strings.HasSuffix(path, ext) {
				return nil
			}
			key := helpers.CanonicalPath(path)
			if !seen[key] {
				seen[key] = true
				libs = append(libs, path)
			}
			return nil
		})
	}
	return libs
}

// ResolvePluginDependencies runs the second traversal pass: QML plugins
// load libraries the main binary never references, so their own dependency
// closure is computed from scratch (fresh cache) and staged through the
// platform library copier.
func ResolvePluginDependencies(ctx *resolve.Context) {
	plugins := ListPluginLibraries(ctx.Cfg.Kind, ctx.Cfg.OutputRoot)
	if len(plugins) == 0 {
		return
	}
	if platform.Verbose() {
		for _, p := range plugins {
			log.Println("[qml-deps] seed:", p)
		}
	}

	cache := deps.NewCache()
	libs := ctx.ClosureFrom(cache, plugins)
	if len(libs) == 0 {
		return
	}
	stage.StageLibraries(ctx, libs)
}
