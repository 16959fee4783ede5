// Package platform wraps the process environment and the external tools the
// deployer shells out to: the path-list separator of the host, environment
// get/set, quoting of shell arguments and a blocking command runner.
package platform

import (
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"
)

// Verbose reports whether CROSSDEPLOYQT_VERBOSE was set when the process
// started. Read once, any non-empty value enables it.
var Verbose = sync.OnceValue(func() bool {
	return os.Getenv("CROSSDEPLOYQT_VERBOSE") != ""
})

// GetEnv returns the value of the environment variable, or "" if unset
func GetEnv(key string) string {
	return os.Getenv(key)
}

// SetEnv sets the environment variable for this process and its children
func SetEnv(key, value string) {
	os.Setenv(key, value)
}

// PathListSeparator returns the separator used in path-list environment
// variables on the host the tool itself runs on: ';' on Windows, ':' elsewhere
func PathListSeparator() string {
	if runtime.GOOS == "windows" {
		return ";"
	}
	return ":"
}

// SplitPathList splits a path-list string on the host separator, dropping
// empty entries
func SplitPathList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, PathListSeparator()) {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// JoinPathList joins entries with the host separator, dropping empty ones
func JoinPathList(entries ...string) string {
	var kept []string
	for _, e := range entries {
		if e != "" {
			kept = append(kept, e)
		}
	}
	return strings.Join(kept, PathListSeparator())
}

// ShellEscape single-quotes s so it is safe to embed in a shell command line
func ShellEscape(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// RunCommand executes the shell command line and returns its standard output
// and exit code. Blocks until the command has completed. Tests replace this
// to run without the external tools installed.
var RunCommand = func(command string) (string, int) {
	cmd := exec.Command("sh", "-c", command)
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return string(out), exitErr.ExitCode()
		}
		return string(out), -1
	}
	return string(out), 0
}

// IsCommandAvailable returns true if a program with that name is on the $PATH
func IsCommandAvailable(name string) bool {
	cmd := exec.Command("sh", "-c", "command -v "+name)
	if err := cmd.Run(); err != nil {
		return false
	}
	return true
}
