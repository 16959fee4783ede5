// Package qml discovers the QML modules an application uses, stages them
// into the output tree, and closes over the staged plugin libraries'
// further dependencies.
package qml

import (
	"log"
	"path/filepath"
	"sort"
	"strings"

	"github.com/crossdeployqt/crossdeployqt/internal/helpers"
	"github.com/crossdeployqt/crossdeployqt/internal/platform"
	"github.com/crossdeployqt/crossdeployqt/internal/resolve"
)

// Module is one record from the import scanner: the module's source
// directory and its destination relative to the QML output base
type Module struct {
	Path         string
	RelativePath string
}

// DiscoverRoots decides which directories to scan for QML sources:
// CLI/env-provided roots win; with none given, the working directory and
// the binary's directory are candidates when they actually contain .qml
// files.
func DiscoverRoots(ctx *resolve.Context, cwd string) []string {
	var roots []string
	roots = append(roots, ctx.QmlRoots...)

	if len(roots) == 0 {
		binDir := filepath.Dir(ctx.Cfg.BinaryPath)
		for _, cand := range []string{cwd, binDir} {
			if cand != "" && containsQmlFiles(cand) {
				roots = append(roots, cand)
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

func containsQmlFiles(dir string) bool {
	if !helpers.IsDirectory(dir) {
		return false
	}
	return len(helpers.FilesWithSuffixInDirectoryRecursive(dir, ".qml")) > 0
}

// ScanImports runs the QML import scanner over each root and returns the
// module records, deduplicated by source path and in stable order.
func ScanImports(ctx *resolve.Context, roots []string) []Module {
	if len(roots) == 0 {
		return nil
	}

	var importArgs strings.Builder
	for _, p := range ctx.QmlImportPaths {
		importArgs.WriteString(" -importPath ")
		importArgs.WriteString(platform.ShellEscape(p))
	}

	var modules []Module
	for _, root := range roots {
		cmd := platform.QmlScanner + " -rootPath " + platform.ShellEscape(root) + importArgs.String()
		out, code := platform.RunCommand(cmd)
		if code != 0 || out == "" {
			continue
		}
		modules = append(modules, ParseScannerOutput(out, ctx.Qt.Qml)...)
	}

	sort.Slice(modules, func(i, j int) bool { return modules[i].Path < modules[j].Path })
	seen := make(map[string]bool)
	var unique []Module
	for _, m := range modules {
		if seen[m.Path] {
			continue
		}
		seen[m.Path] = true
		unique = append(unique, m)
	}
	return unique
}

// ParseScannerOutput walks the scanner's JSON line by line: '{' opens a
// record, '}' closes it, and the quoted values after "path" and
// "relativePath" are captured. A record without relativePath derives it by
// stripping the Qt qml prefix from the source path, falling back to the
// basename.
func ParseScannerOutput(out, qtQmlDir string) []Module {
	var modules []Module
	var current Module
	inObject := false
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "{") {
			inObject = true
			current = Module{}
		}
		if inObject {
			if v, ok := quotedValueAfter(line, `"path"`); ok {
				current.Path = v
			}
			if v, ok := quotedValueAfter(line, `"relativePath"`); ok {
				current.RelativePath = v
			}
		}
		if strings.Contains(line, "}") && inObject {
			inObject = false
			if current.Path == "" {
				continue
			}
			if current.RelativePath == "" {
				current.RelativePath = deriveRelativePath(current.Path, qtQmlDir)
			}
			modules = append(modules, current)
		}
	}
	return modules
}

func quotedValueAfter(line, key string) (string, bool) {
	idx := strings.Index(line, key)
	if idx < 0 {
		return "", false
	}
	rest := line[idx+len(key):]
	q1 := strings.Index(rest, `"`)
	if q1 < 0 {
		return "", false
	}
	rest = rest[q1+1:]
	q2 := strings.Index(rest, `"`)
	if q2 < 0 {
		return "", false
	}
	return rest[:q2], true
}

func deriveRelativePath(sourcePath, qtQmlDir string) string {
	if qtQmlDir != "" && strings.HasPrefix(sourcePath, qtQmlDir) {
		rel := strings.TrimPrefix(sourcePath, qtQmlDir)
		rel = strings.TrimLeft(rel, "/\\")
		if rel != "" {
			return rel
		}
	}
	if idx := strings.LastIndexAny(sourcePath, "/\\"); idx >= 0 {
		return sourcePath[idx+1:]
	}
	return sourcePath
}

// LogRoots prints the discovered roots in verbose mode
func LogRoots(roots []string) {
	if platform.Verbose() && len(roots) > 0 {
		log.Println("[qml] roots:", strings.Join(roots, " "))
	}
}
