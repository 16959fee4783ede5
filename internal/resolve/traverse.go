package resolve

import (
	"fmt"
	"log"

	"github.com/crossdeployqt/crossdeployqt/internal/deps"
	"github.com/crossdeployqt/crossdeployqt/internal/helpers"
	"github.com/crossdeployqt/crossdeployqt/internal/platform"
)

// MissingQtLibraryError is the fatal case: a reference that looks like a Qt
// library could not be resolved in any search path. Non-Qt references that
// fail to resolve are silently skipped instead.
type MissingQtLibraryError struct {
	Name string
}

func (e *MissingQtLibraryError) Error() string {
	return "Required Qt library not found in search paths: " + e.Name
}

// Closure computes the transitive dependency closure of the main binary:
// parse, resolve each reference, filter, recurse. The returned set holds
// canonical library paths and never includes the main binary itself. The
// iteration order of the result is unspecified.
func (ctx *Context) Closure(cache *deps.Cache) ([]string, error) {
	mainBin := ctx.Cfg.BinaryPath
	rec := cache.Parse(mainBin, ctx.Cfg.Kind)

	var stack []string
	for _, ref := range rec.Needed {
		found, ok := ctx.ResolveRef(ref, mainBin, rec, cache, mainBin)
		if !ok {
			if IsQtLibraryName(ref) {
				return nil, &MissingQtLibraryError{Name: ref}
			}
			continue
		}
		if ctx.ShouldDeploy(found) {
			stack = append(stack, found)
		}
	}

	visited := make(map[string]bool)
	mainKey := helpers.CanonicalPath(mainBin)
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		key := helpers.CanonicalPath(cur)
		if visited[key] {
			continue
		}
		visited[key] = true
		if platform.Verbose() {
			log.Println("[resolve] inspect:", cur)
		}

		childRec := cache.Parse(cur, ctx.Cfg.Kind)
		for _, ref := range childRec.Needed {
			if platform.Verbose() {
				log.Println("[resolve]   dep:", ref)
			}
			found, ok := ctx.ResolveRef(ref, cur, childRec, cache, mainBin)
			if !ok {
				if IsQtLibraryName(ref) {
					return nil, &MissingQtLibraryError{Name: ref}
				}
				continue
			}
			if ctx.ShouldDeploy(found) {
				if platform.Verbose() {
					log.Println("[resolve]     push:", found)
				}
				stack = append(stack, found)
			}
		}
	}

	var libs []string
	for key := range visited {
		if key == mainKey {
			continue
		}
		libs = append(libs, key)
	}
	return libs, nil
}

// ClosureFrom computes the dependency closure of an already-staged seed set
// (the QML plugin libraries). The result holds only the newly discovered
// dependencies, not the seeds; unresolved references are skipped.
func (ctx *Context) ClosureFrom(cache *deps.Cache, seeds []string) []string {
	stack := append([]string(nil), seeds...)
	visited := make(map[string]bool)
	result := make(map[string]bool)

	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		key := helpers.CanonicalPath(cur)
		if visited[key] {
			continue
		}
		visited[key] = true

		rec := cache.Parse(cur, ctx.Cfg.Kind)
		for _, ref := range rec.Needed {
			found, ok := ctx.ResolveRef(ref, cur, rec, cache, ctx.Cfg.BinaryPath)
			if !ok {
				continue
			}
			if !ctx.ShouldDeploy(found) {
				continue
			}
			fkey := helpers.CanonicalPath(found)
			if !visited[fkey] {
				stack = append(stack, found)
			}
			result[fkey] = true
		}
	}

	var libs []string
	for key := range result {
		libs = append(libs, key)
	}
	return libs
}

// PrintResolved logs the filtered resolved library list
func PrintResolved(libs []string) {
	if len(libs) == 0 {
		return
	}
	log.Println("Resolved shared libraries (filtered):")
	for _, lib := range libs {
		fmt.Println("  " + lib)
	}
}
