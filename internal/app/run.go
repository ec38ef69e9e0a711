package app

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/vk/mammoth/internal/ctxlog"
	"golang.org/x/sync/errgroup"
)

// Run validates the configuration, loads every module and then serves until
// ctx is cancelled, after which all modules are shut down in reverse load
// order. With ValidateOnly set it returns right after validation.
func (a *App) Run(ctx context.Context) (err error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
	}()

	if err := a.Validate(ctx); err != nil {
		return err
	}
	if a.config.ValidateOnly {
		a.logger.Debug("Validation only requested, not loading modules.")
		return nil
	}

	defer func() {
		if shutdownErr := a.set.Shutdown(); shutdownErr != nil {
			err = errors.Join(err, fmt.Errorf("module shutdown: %w", shutdownErr))
		}
		a.logger.Info("🏁 All modules shut down.")
	}()

	if err := a.LoadModules(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	if port := a.config.HealthcheckPort; port > 0 {
		ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
		if err != nil {
			return fmt.Errorf("health check server: %w", err)
		}
		g.Go(func() error { return a.serveHealthcheck(gctx, ln) })
	} else {
		a.logger.Warn("Health check server not started: disabled")
	}
	if a.config.Watch {
		g.Go(func() error { return a.watch(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	a.logger.Info("🚀 Mammoth host running.", "modules", len(a.set.Modules()))
	if a.onReady != nil {
		a.onReady()
	}
	err = g.Wait()
	a.logger.Debug("App.Run method finished.")
	return err
}
