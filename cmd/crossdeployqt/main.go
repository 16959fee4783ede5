// crossdeployqt takes a compiled Qt application binary (ELF, PE or Mach-O)
// and produces a self-contained, relocatable distribution directory: the
// binary, its non-system shared-library closure, the Qt plugins and QML
// modules it uses, and the requested translation catalogs.
package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v2"

	"github.com/crossdeployqt/crossdeployqt/internal/binfmt"
	"github.com/crossdeployqt/crossdeployqt/internal/deploy"
	"github.com/crossdeployqt/crossdeployqt/internal/helpers"
	"github.com/crossdeployqt/crossdeployqt/internal/platform"
	"github.com/crossdeployqt/crossdeployqt/internal/resolve"
	"github.com/crossdeployqt/crossdeployqt/internal/stage"
)

func main() {
	if !isatty.IsTerminal(os.Stderr.Fd()) && !isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		log.SetFlags(0)
	}

	app := &cli.App{
		Name:  "crossdeployqt",
		Usage: "bundle a Qt application binary with its libraries, plugins, QML modules and translations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "bin",
				Usage:    "path to the main binary to deploy",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "out",
				Usage:    "output directory (platform bundle suffix is appended if missing)",
				Required: true,
			},
			&cli.StringSliceFlag{
				Name:  "qml-root",
				Usage: "additional directory to scan for QML sources (repeatable)",
			},
			&cli.StringFlag{
				Name:  "languages",
				Usage: "comma-separated language tags for translations (default: derive from locale)",
			},
			&cli.StringSliceFlag{
				Name:  "overlay",
				Usage: "directory merged onto the output tree as a final step (repeatable)",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		// Flag parsing errors; ExitCoder errors have already exited
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
}

func run(c *cli.Context) error {
	binPath := c.String("bin")
	outDir := c.String("out")

	if !helpers.Exists(binPath) {
		return cli.Exit("Binary does not exist: "+binPath, 2)
	}
	if !helpers.IsRegularFile(binPath) {
		return cli.Exit("Binary path is not a file: "+binPath, 2)
	}

	kind, err := binfmt.Detect(binPath)
	if err != nil {
		return cli.Exit("Failed to detect binary type: "+err.Error(), 2)
	}
	log.Println("Detected:", kind)

	if missing := platform.MissingTools(kind); len(missing) > 0 {
		return cli.Exit("Missing required tools: "+strings.Join(missing, ", "), 2)
	}
	platform.WarnIfOldQt()

	var languages []string
	for _, lang := range strings.Split(c.String("languages"), ",") {
		if lang != "" {
			languages = append(languages, lang)
		}
	}

	cfg := resolve.Config{
		Kind:       kind,
		BinaryPath: binPath,
		OutputRoot: stage.NormalizeOutputRoot(kind, outDir, binPath),
		QmlRoots:   c.StringSlice("qml-root"),
		Languages:  languages,
		Overlays:   c.StringSlice("overlay"),
	}

	if err := deploy.Run(cfg); err != nil {
		return cli.Exit("Error: "+err.Error(), 1)
	}

	fmt.Println("Deployment complete at:", cfg.OutputRoot)
	return nil
}
