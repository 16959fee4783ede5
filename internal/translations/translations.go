// Package translations stages the Qt translation catalogs for the requested
// languages, aggregating each language's catalogs into a single qt_<lang>.qm.
package translations

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/crossdeployqt/crossdeployqt/internal/helpers"
	"github.com/crossdeployqt/crossdeployqt/internal/platform"
	"github.com/crossdeployqt/crossdeployqt/internal/resolve"
	"github.com/crossdeployqt/crossdeployqt/internal/stage"
)

// Languages returns the language tags to deploy: the configured list when
// given, returned as is; otherwise derived from the locale environment, with
// "en" appended when it is not already in the derived list.
func Languages(cfg resolve.Config) []string {
	if len(cfg.Languages) > 0 {
		return cfg.Languages
	}
	return languagesFromEnv()
}

func languagesFromEnv() []string {
	var langs []string
	pick := platform.GetEnv("LC_ALL")
	if pick == "" {
		pick = platform.GetEnv("LANG")
	}
	if one := parseLocale(pick); one != "" {
		langs = append(langs, one)
	}
	if !helpers.SliceContains(langs, "en") {
		langs = append(langs, "en")
	}
	return langs
}

// parseLocale keeps the leading identifier of a locale value such as
// de_DE.UTF-8, lowercased
func parseLocale(s string) string {
	if s == "" {
		return ""
	}
	if end := strings.IndexAny(s, "_.@ "); end >= 0 {
		s = s[:end]
	}
	return strings.ToLower(s)
}

// catalogsForLanguage enumerates the per-module catalogs whose basename
// ends in _<lang>.qm
func catalogsForLanguage(qtTransDir, lang string) []string {
	var files []string
	suffix := "_" + lang + ".qm"
	entries, err := os.ReadDir(qtTransDir)
	if err != nil {
		return files
	}
	for _, entry := range entries {
		name := entry.Name()
		if len(name) > len(suffix) && strings.HasSuffix(name, suffix) {
			path := filepath.Join(qtTransDir, name)
			if helpers.IsRegularFile(path) {
				files = append(files, path)
			}
		}
	}
	return files
}

// runLconvert aggregates the catalogs into outputQm and reports success
func runLconvert(inputs []string, outputQm string) bool {
	if len(inputs) == 0 {
		return false
	}
	var cmd strings.Builder
	cmd.WriteString(platform.Lconvert + " -o " + platform.ShellEscape(outputQm))
	for _, in := range inputs {
		cmd.WriteString(" -i " + platform.ShellEscape(in))
	}
	_, code := platform.RunCommand(cmd.String())
	return code == 0 && helpers.Exists(outputQm)
}

// Deploy stages the translation catalogs: per language, aggregate all
// matching catalogs into qt_<lang>.qm, or fall back to copying each catalog
// verbatim when aggregation fails
func Deploy(ctx *resolve.Context) {
	qtTransDir := ctx.Qt.Translations
	if qtTransDir == "" {
		return
	}
	outDir := stage.TranslationsDir(ctx.Cfg.Kind, ctx.Cfg.OutputRoot)
	os.MkdirAll(outDir, 0755)

	for _, lang := range Languages(ctx.Cfg) {
		catalogs := catalogsForLanguage(qtTransDir, lang)
		if len(catalogs) == 0 {
			continue
		}
		aggregated := filepath.Join(outDir, "qt_"+lang+".qm")
		if runLconvert(catalogs, aggregated) {
			continue
		}
		for _, catalog := range catalogs {
			if err := stage.CopyFile(catalog, filepath.Join(outDir, filepath.Base(catalog))); err != nil {
				helpers.PrintError("copy "+catalog, err)
			}
		}
	}
}
