// Package deploy drives a full deployment: dependency closure, staging,
// plugins, QML, translations, overlays and the relocatability patches, in
// the platform's required order.
package deploy

import (
	"log"

	"github.com/crossdeployqt/crossdeployqt/internal/binfmt"
	"github.com/crossdeployqt/crossdeployqt/internal/deps"
	"github.com/crossdeployqt/crossdeployqt/internal/patch"
	"github.com/crossdeployqt/crossdeployqt/internal/platform"
	"github.com/crossdeployqt/crossdeployqt/internal/qml"
	"github.com/crossdeployqt/crossdeployqt/internal/resolve"
	"github.com/crossdeployqt/crossdeployqt/internal/stage"
	"github.com/crossdeployqt/crossdeployqt/internal/translations"
)

// Run performs the deployment described by cfg. cfg.OutputRoot must already
// be platform-normalized. The returned error is fatal (exit code 1);
// recoverable problems have been logged and skipped.
func Run(cfg resolve.Config) error {
	if err := stage.EnsureOutputLayout(cfg.Kind, cfg.OutputRoot); err != nil {
		return err
	}

	ctx := resolve.NewContext(cfg, platform.QueryQtLocations())
	cache := deps.NewCache()

	libs, err := ctx.Closure(cache)
	if err != nil {
		return err
	}
	resolve.PrintResolved(libs)

	stage.StageLibraries(ctx, libs)
	stage.WriteQtConf(cfg.Kind, cfg.OutputRoot)
	if err := stage.CopyMain(cfg); err != nil {
		return err
	}

	switch cfg.Kind {
	case binfmt.PE:
		deployPE(ctx, libs)
	case binfmt.ELF:
		deployELF(ctx, libs)
	case binfmt.MachO:
		deployMachO(ctx, libs)
	}
	return nil
}

func deployPE(ctx *resolve.Context, libs []string) {
	cfg := ctx.Cfg
	patchStagedQtCore(cfg, libs)
	stage.CopyPlugins(ctx, libs)
	qml.CopyModules(ctx)
	translations.Deploy(ctx)
	stage.ApplyOverlays(cfg.OutputRoot, cfg.Overlays)
	qml.ResolvePluginDependencies(ctx)
}

func deployELF(ctx *resolve.Context, libs []string) {
	cfg := ctx.Cfg
	patch.SetELFMainRunpath(stage.MainBinaryDest(cfg.Kind, cfg.OutputRoot, cfg.BinaryPath))
	stage.CopyPlugins(ctx, libs)
	patch.SweepELFPluginRunpaths(cfg.OutputRoot)
	qml.CopyModules(ctx)
	translations.Deploy(ctx)
	stage.ApplyOverlays(cfg.OutputRoot, cfg.Overlays)
	// Re-stage the plugin set so an overlay cannot leave a stale platform
	// plugin in place, then sweep the runpaths again over whatever landed.
	stage.CopyPlugins(ctx, libs)
	patch.SweepELFPluginRunpaths(cfg.OutputRoot)
	qml.ResolvePluginDependencies(ctx)
}

func deployMachO(ctx *resolve.Context, libs []string) {
	cfg := ctx.Cfg
	patch.AddMainExecutableRpath(stage.MainBinaryDest(cfg.Kind, cfg.OutputRoot, cfg.BinaryPath))
	stage.CopyPlugins(ctx, libs)
	patch.AddPluginRpaths(stage.PluginsBase(cfg.Kind, cfg.OutputRoot))
	qml.CopyModules(ctx)
	translations.Deploy(ctx)
	stage.ApplyOverlays(cfg.OutputRoot, cfg.Overlays)
	qml.ResolvePluginDependencies(ctx)
	patch.FixInstallNames(cfg.OutputRoot)
}

// patchStagedQtCore rewrites the embedded prefix paths of a staged
// Qt6Core.dll; without it the DLL keeps pointing at the build machine's Qt
func patchStagedQtCore(cfg resolve.Config, libs []string) {
	staged := stage.FindStagedQtCore(cfg.OutputRoot, libs)
	if staged == "" {
		return
	}
	if platform.Verbose() {
		log.Println("[pe] patch Qt6Core.dll:", staged)
	}
	if _, err := patch.PatchQtCoreDLL(staged); err != nil {
		log.Println("Warning: failed to patch", staged+":", err)
	}
}
