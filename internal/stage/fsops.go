package stage

import (
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/crossdeployqt/crossdeployqt/internal/helpers"
	"github.com/crossdeployqt/crossdeployqt/internal/platform"
)

// CopyFile copies src to dst, creating parent directories on demand. The
// copy is skipped when dst already is a regular file of identical size with
// a last-write time at or after src's; this keeps a re-run from rewriting an
// already-populated output tree. The destination always ends up
// owner-writable so the patchers can modify it afterwards.
func CopyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}

	srcInfo, err := os.Stat(src)
	if err != nil {
		return err
	}
	if dstInfo, err := os.Stat(dst); err == nil && dstInfo.Mode().IsRegular() {
		if dstInfo.Size() == srcInfo.Size() && !dstInfo.ModTime().Before(srcInfo.ModTime()) {
			if platform.Verbose() {
				log.Println("[copy-skip]", src, "->", dst)
			}
			return ensureOwnerWritable(dst)
		}
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, srcInfo.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return ensureOwnerWritable(dst)
}

func ensureOwnerWritable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	return os.Chmod(path, info.Mode().Perm()|0200)
}

// MergeTree merges srcRoot onto dstRoot verbatim: directories are created,
// regular files are copied over, symlinks are recreated as symlinks when
// possible (falling back to copying the target's bytes). Last write wins;
// there is no conflict reporting.
func MergeTree(srcRoot, dstRoot string) {
	if !helpers.IsDirectory(srcRoot) {
		return
	}
	filepath.Walk(srcRoot, func(src string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		rel, relErr := filepath.Rel(srcRoot, src)
		if relErr != nil {
			rel = filepath.Base(src)
		}
		dst := filepath.Join(dstRoot, rel)

		if info.IsDir() {
			os.MkdirAll(dst, 0755)
			return nil
		}
		os.MkdirAll(filepath.Dir(dst), 0755)

		if info.Mode()&os.ModeSymlink != 0 {
			target, readErr := os.Readlink(src)
			if readErr != nil {
				return nil
			}
			os.Remove(dst)
			if symErr := os.Symlink(target, dst); symErr == nil {
				return nil
			}
			resolved := helpers.CanonicalPath(filepath.Join(filepath.Dir(src), target))
			if helpers.IsRegularFile(resolved) {
				if copyErr := CopyFile(resolved, dst); copyErr != nil {
					helpers.PrintError("overlay copy "+resolved, copyErr)
				}
			}
			return nil
		}

		if info.Mode().IsRegular() {
			if copyErr := CopyFile(src, dst); copyErr != nil {
				helpers.PrintError("overlay copy "+src, copyErr)
			}
		}
		return nil
	})
}

// ApplyOverlays merges each overlay directory onto the output root in order
func ApplyOverlays(outputRoot string, overlays []string) {
	for _, overlay := range overlays {
		if overlay == "" || !helpers.IsDirectory(overlay) {
			continue
		}
		if platform.Verbose() {
			log.Println("[overlay] merge", overlay, "->", outputRoot)
		}
		MergeTree(overlay, outputRoot)
	}
}
