package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vk/mammoth/internal/ctxlog"
)

type healthResponse struct {
	Status   string `json:"status"`
	Instance string `json:"instance"`
	Modules  int    `json:"modules"`
}

type moduleResponse struct {
	Scope    string    `json:"scope"`
	Name     string    `json:"name"`
	Version  string    `json:"version"`
	Library  string    `json:"library"`
	LoadedAt time.Time `json:"loaded_at"`
}

// Handler returns the admin HTTP handler serving /health, /modules and
// /metrics.
func (a *App) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", a.healthHandler)
	r.Get("/modules", a.modulesHandler)
	r.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	return r
}

// healthHandler reports liveness together with the instance id.
func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	a.logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
	writeJSON(w, healthResponse{
		Status:   "ok",
		Instance: a.instanceID.String(),
		Modules:  len(a.set.Modules()),
	})
}

func (a *App) modulesHandler(w http.ResponseWriter, r *http.Request) {
	loaded := a.set.Modules()
	out := make([]moduleResponse, 0, len(loaded))
	for _, l := range loaded {
		out = append(out, moduleResponse{
			Scope:    l.Scope,
			Name:     l.Name,
			Version:  l.Version,
			Library:  l.Library.Path,
			LoadedAt: l.LoadedAt,
		})
	}
	writeJSON(w, out)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(v)
}

// serveHealthcheck runs the admin server on ln until ctx is done.
func (a *App) serveHealthcheck(ctx context.Context, ln net.Listener) error {
	logger := ctxlog.FromContext(ctx)

	a.httpServer = &http.Server{
		Handler:           a.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("🩺 Health check server starting", "address", fmt.Sprintf("http://%s/health", ln.Addr()))
		// Serve returns ErrServerClosed on graceful shutdown.
		if err := a.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			logger.Error("Health check server failed unexpectedly", "error", err)
			return fmt.Errorf("health check server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	return a.closeHealthCheckServer(ctx)
}

func (a *App) closeHealthCheckServer(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Closing health check server...")

	if a.httpServer == nil {
		logger.Debug("Health check server was not running.")
		return nil
	}

	// Create a context with a timeout for the shutdown process.
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	logger.Info("🩺 Shutting down health check server...")
	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Health check server shutdown failed", "error", err)
		return err
	}

	logger.Debug("Health check server shut down gracefully.")
	return nil
}
