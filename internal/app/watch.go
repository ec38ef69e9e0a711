package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/vk/mammoth/internal/ctxlog"
	"github.com/vk/mammoth/internal/fsutil"
)

var configExtensions = []string{".hcl", ".yaml", ".yml"}

// watch re-reads and re-validates the configuration whenever it changes on
// disk until ctx is done. Loaded modules are never replaced; the outcome is
// only logged.
func (a *App) watch(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	path, err := filepath.Abs(a.config.ConfigPath)
	if err != nil {
		return fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory, editors often replace files on save.
	dir, name := path, ""
	if !info.IsDir() {
		dir, name = filepath.Dir(path), filepath.Base(path)
	}
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch directory: %w", err)
	}
	logger.Info("Watching configuration for changes.", "path", path)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if name != "" && filepath.Base(event.Name) != name {
				continue
			}
			if name == "" && !fsutil.HasExtension(event.Name, configExtensions...) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			logger.Debug("Configuration file changed.", "event", event.Op.String(), "file", event.Name)
			a.recheck(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("File watcher error.", "error", err)
		}
	}
}

func (a *App) recheck(ctx context.Context) {
	logger := ctxlog.FromContext(ctx)

	f, err := a.loader.Load(ctx, a.config.ConfigPath)
	if err != nil {
		logger.Error("Configuration change rejected.", "error", err)
		return
	}
	if err := a.validateFile(ctx, f); err != nil {
		logger.Error("Configuration change rejected.", "error", err)
		return
	}
	logger.Info("Configuration change accepted, restart to apply it.")
}
