package stage

import (
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/otiai10/copy"
	"gopkg.in/ini.v1"

	"github.com/crossdeployqt/crossdeployqt/internal/binfmt"
	"github.com/crossdeployqt/crossdeployqt/internal/deps"
	"github.com/crossdeployqt/crossdeployqt/internal/helpers"
	"github.com/crossdeployqt/crossdeployqt/internal/platform"
	"github.com/crossdeployqt/crossdeployqt/internal/resolve"
)

// StageLibraries copies the resolved libraries into the output layout of the
// platform. Copy failures are warnings; deployment continues.
func StageLibraries(ctx *resolve.Context, libs []string) {
	switch ctx.Cfg.Kind {
	case binfmt.PE:
		stagePE(ctx.Cfg.OutputRoot, libs)
	case binfmt.ELF:
		stageELF(ctx.Cfg.OutputRoot, libs)
	case binfmt.MachO:
		stageMachO(ctx.Cfg.OutputRoot, libs)
	}
}

func stagePE(root string, libs []string) {
	for _, lib := range libs {
		dest := filepath.Join(root, filepath.Base(lib))
		if err := CopyFile(lib, dest); err != nil {
			helpers.PrintError("copy "+lib, err)
		}
	}
}

func stageELF(root string, libs []string) {
	libDir := LibDir(binfmt.ELF, root)
	os.MkdirAll(libDir, 0755)
	for _, lib := range libs {
		dest := filepath.Join(libDir, filepath.Base(lib))
		if err := CopyFile(lib, dest); err != nil {
			helpers.PrintError("copy "+lib, err)
			continue
		}
		createSonameLink(libDir, dest)
	}
}

// createSonameLink makes the library reachable under its SONAME when that
// differs from the on-disk filename. Loaders resolve NEEDED entries by
// SONAME, so the link must exist inside the lib directory.
func createSonameLink(libDir, dest string) {
	soname := deps.ElfSoname(dest)
	if soname == "" || soname == filepath.Base(dest) {
		return
	}
	linkPath := filepath.Join(libDir, soname)
	os.Remove(linkPath)
	if err := os.Symlink(filepath.Base(dest), linkPath); err != nil {
		// Filesystem without symlink support: a second copy works too
		if copyErr := CopyFile(dest, linkPath); copyErr != nil {
			helpers.PrintError("soname link "+soname, copyErr)
		}
	}
}

func stageMachO(root string, libs []string) {
	fwDir := LibDir(binfmt.MachO, root)
	os.MkdirAll(fwDir, 0755)
	copiedFrameworks := make(map[string]bool)
	for _, lib := range libs {
		if platform.Verbose() {
			log.Println("[macho-copy] lib:", lib)
		}
		if fwRoot := frameworkRootOf(lib); fwRoot != "" {
			name := filepath.Base(fwRoot)
			if copiedFrameworks[name] {
				continue
			}
			copiedFrameworks[name] = true
			dst := filepath.Join(fwDir, name)
			if platform.Verbose() {
				log.Println("[macho-copy] framework:", fwRoot, "->", dst)
			}
			err := copy.Copy(fwRoot, dst, copy.Options{
				OnSymlink:   func(string) copy.SymlinkAction { return copy.Skip },
				OnDirExists: func(string, string) copy.DirExistsAction { return copy.Merge },
			})
			if err != nil {
				helpers.PrintError("copy framework "+fwRoot, err)
			}
		} else {
			dest := filepath.Join(fwDir, filepath.Base(lib))
			if platform.Verbose() {
				log.Println("[macho-copy] dylib:", lib, "->", dest)
			}
			if err := CopyFile(lib, dest); err != nil {
				helpers.PrintError("copy "+lib, err)
			}
		}
	}
}

// frameworkRootOf walks up the parent chain looking for a .framework
// ancestor; a library inside one is deployed as the whole framework bundle
func frameworkRootOf(lib string) string {
	dir := filepath.Dir(lib)
	for dir != "/" && dir != "." && dir != "" {
		if strings.HasSuffix(dir, ".framework") {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// CopyMain copies the main binary to its platform destination
func CopyMain(cfg resolve.Config) error {
	dest := MainBinaryDest(cfg.Kind, cfg.OutputRoot, cfg.BinaryPath)
	if err := CopyFile(cfg.BinaryPath, dest); err != nil {
		helpers.PrintError("copy main binary "+cfg.BinaryPath, err)
		return err
	}
	return nil
}

// WriteQtConf emits the qt.conf that points the deployed Qt at the bundled
// plugin/qml/translation directories. Mach-O bundles locate everything
// relative to the executable and need none.
func WriteQtConf(kind binfmt.Kind, root string) {
	var confPath string
	entries := map[string]string{}
	switch kind {
	case binfmt.ELF:
		confPath = filepath.Join(root, "usr", "bin", "qt.conf")
		entries["Prefix"] = ".."
		entries["Plugins"] = "../plugins"
		entries["Qml2Imports"] = "../qml"
		entries["Translations"] = "../translations"
	case binfmt.PE:
		confPath = filepath.Join(root, "qt.conf")
		entries["Prefix"] = "."
		entries["Plugins"] = "plugins"
		entries["Qml2Imports"] = "qml"
		entries["Translations"] = "translations"
	default:
		return
	}

	ini.PrettyFormat = false
	cfg := ini.Empty()
	sec, err := cfg.NewSection("Paths")
	if err != nil {
		helpers.PrintError("qt.conf", err)
		return
	}
	for _, key := range []string{"Prefix", "Plugins", "Qml2Imports", "Translations"} {
		sec.NewKey(key, entries[key])
	}
	if err := cfg.SaveTo(confPath); err != nil {
		helpers.PrintError("write "+confPath, err)
	}
}
