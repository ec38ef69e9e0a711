package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/vk/mammoth/internal/config"
	"github.com/vk/mammoth/internal/ctxlog"
	"github.com/vk/mammoth/internal/fsutil"
	"github.com/vk/mammoth/internal/loader"
)

// LoadModules loads the global modules first and then every host's modules
// in declaration order. Disabled modules are skipped. A failing module
// aborts loading unless ContinueOnModuleError is set.
func (a *App) LoadModules(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	f := a.File()

	warnUnreferencedLibraries(a.logger, f)

	var failed []error
	load := func(scope string, m config.Module) error {
		if !m.Enabled {
			logger.Debug("Skipping disabled module.", "module", m.Name, "scope", scope)
			return nil
		}
		if _, err := a.set.LoadModule(ctx, scope, m); err != nil {
			if !a.config.ContinueOnModuleError || errors.Is(err, context.Canceled) {
				return err
			}
			logger.Error("Module failed to load, continuing.", "module", m.Name, "scope", scope, "error", err)
			failed = append(failed, err)
		}
		return nil
	}

	for _, m := range f.Modules {
		if err := load(loader.GlobalScope, m); err != nil {
			return fmt.Errorf("failed to load global modules: %w", err)
		}
	}
	for _, h := range f.Hosts {
		scope := h.ID().String()
		for _, m := range h.Modules {
			if err := load(scope, m); err != nil {
				return fmt.Errorf("failed to load modules of host %s: %w", scope, err)
			}
		}
	}

	logger.Info("Modules loaded.", "count", len(a.set.Modules()), "failed", len(failed))
	return nil
}

// warnUnreferencedLibraries reports libraries under mods_dir that no
// declared module resolves to, disabled modules included.
func warnUnreferencedLibraries(logger *slog.Logger, f *config.File) {
	dir := f.Mammoth.ModsDir
	if dir == "" {
		return
	}
	libs, err := fsutil.FindFilesByExtension(dir, config.LibraryExt)
	if err != nil {
		logger.Warn("Cannot scan mods_dir for module libraries.", "mods_dir", dir, "error", err)
		return
	}

	referenced := make(map[string]struct{})
	mark := func(m config.Module) {
		referenced[absPath(m.LibraryPath(dir))] = struct{}{}
	}
	for _, m := range f.Modules {
		mark(m)
	}
	for _, h := range f.Hosts {
		for _, m := range h.Modules {
			mark(m)
		}
	}

	for _, lib := range libs {
		if _, ok := referenced[absPath(lib)]; !ok {
			logger.Warn("Module library is not referenced by any module.", "path", lib)
		}
	}
	logger.Debug("Module libraries available.", "mods_dir", dir, "count", len(libs))
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}
