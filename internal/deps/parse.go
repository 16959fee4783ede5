package deps

import (
	"strings"
)

func splitNonEmpty(s, sep string) []string {
	var out []string
	for _, piece := range strings.Split(s, sep) {
		if piece != "" {
			out = append(out, piece)
		}
	}
	return out
}

// ParsePEObjdump extracts the imported DLL names from `objdump -p` output on
// a PE binary: the token after each "DLL Name:" prefix.
func ParsePEObjdump(out string) []string {
	var needed []string
	for _, line := range strings.Split(out, "\n") {
		idx := strings.Index(line, "DLL Name:")
		if idx < 0 {
			continue
		}
		name := strings.TrimSpace(line[idx+len("DLL Name:"):])
		name = strings.TrimRight(name, "\r")
		if name != "" {
			needed = append(needed, name)
		}
	}
	return needed
}

// ParseOtoolDeps extracts the dependency install names from `otool -L`
// output. The first line echoes the subject and is skipped; each following
// line holds the install name up to the first whitespace or '('.
func ParseOtoolDeps(out string) []string {
	var needed []string
	for i, line := range strings.Split(out, "\n") {
		if i == 0 {
			continue
		}
		if tok := otoolLineToken(line); tok != "" {
			needed = append(needed, tok)
		}
	}
	return needed
}

// ParseOtoolIDAndDeps is ParseOtoolDeps but keeps the first token apart: a
// dylib's otool -L output repeats its own install-name ID before the
// dependencies.
func ParseOtoolIDAndDeps(out string) (string, []string) {
	var id string
	var deps []string
	tookID := false
	for i, line := range strings.Split(out, "\n") {
		if i == 0 {
			continue
		}
		tok := otoolLineToken(line)
		if tok == "" {
			continue
		}
		if !tookID {
			id = tok
			tookID = true
			continue
		}
		deps = append(deps, tok)
	}
	return id, deps
}

func otoolLineToken(line string) string {
	start := 0
	for start < len(line) && (line[start] == ' ' || line[start] == '\t') {
		start++
	}
	end := start
	for end < len(line) && line[end] != ' ' && line[end] != '\t' && line[end] != '(' && line[end] != '\r' {
		end++
	}
	return line[start:end]
}

// ParseOtoolRpaths extracts the LC_RPATH paths from `otool -l` load-command
// output. A "cmd LC_RPATH" line arms the parser; the next "path " line
// carries the value, terminated by " (offset ...)".
func ParseOtoolRpaths(out string) []string {
	var rpaths []string
	inRpath := false
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "cmd LC_RPATH") {
			inRpath = true
			continue
		}
		if !inRpath {
			continue
		}
		idx := strings.Index(line, "path ")
		if idx < 0 {
			continue
		}
		path := line[idx+len("path "):]
		if paren := strings.Index(path, " ("); paren >= 0 {
			path = path[:paren]
		}
		path = strings.TrimSpace(path)
		if path != "" {
			rpaths = append(rpaths, path)
		}
		inRpath = false
	}
	return rpaths
}
