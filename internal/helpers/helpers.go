package helpers

import (
	"log"
	"os"
	"path/filepath"
	"strings"
)

// PrintError prints error, prefixed by a string that explains the context
func PrintError(context string, e error) {
	if e != nil {
		os.Stderr.WriteString("ERROR " + context + ": " + e.Error() + "\n")
	}
}

// LogError logs error, prefixed by a string that explains the context
func LogError(context string, e error) {
	if e != nil {
		l := log.New(os.Stderr, "", 1)
		l.Println("ERROR " + context + ": " + e.Error())
	}
}

// Exists returns true if the path exists
func Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// IsDirectory returns true if the path exists and is a directory
func IsDirectory(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// IsRegularFile returns true if the path exists and is a regular file
func IsRegularFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

// CanonicalPath returns the canonical absolute form of path. Symlinks are
// resolved when possible; a path that does not (fully) exist is still
// returned in cleaned absolute form so it can serve as a map key.
func CanonicalPath(path string) string {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		path = resolved
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return filepath.Clean(abs)
}

// AppendIfMissing appends item to slice unless it is already present
func AppendIfMissing(slice []string, item string) []string {
	for _, ele := range slice {
		if ele == item {
			return slice
		}
	}
	return append(slice, item)
}

// SliceContains returns true if slice contains the exact element
func SliceContains(slice []string, element string) bool {
	for _, item := range slice {
		if item == element {
			return true
		}
	}
	return false
}

// FilesWithSuffixInDirectory returns the files in a given directory with the given filename extension
func FilesWithSuffixInDirectory(directory string, extension string) []string {
	var foundfiles []string
	files, err := os.ReadDir(directory)
	if err != nil {
		return foundfiles
	}

	for _, file := range files {
		if strings.HasSuffix(file.Name(), extension) {
			foundfiles = append(foundfiles, filepath.Join(directory, file.Name()))
		}
	}
	return foundfiles
}

// FilesWithSuffixInDirectoryRecursive returns the files under directory,
// recursively, with the given filename extension
func FilesWithSuffixInDirectoryRecursive(directory string, extension string) []string {
	var foundfiles []string
	filepath.Walk(directory, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.Mode().IsRegular() && strings.HasSuffix(info.Name(), extension) {
			foundfiles = append(foundfiles, path)
		}
		return nil
	})
	return foundfiles
}
