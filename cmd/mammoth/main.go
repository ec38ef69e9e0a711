package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/vk/mammoth/internal/app"
	"github.com/vk/mammoth/internal/cli"
	"github.com/vk/mammoth/internal/config"
	"github.com/vk/mammoth/internal/hcl_adapter"
	"github.com/vk/mammoth/internal/yaml_adapter"
)

// main is the entrypoint for the mammoth host.
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The real main function handles errors and exit codes.
	if err := run(ctx, os.Stdout, os.Args[1:]); err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			stop()
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// newConfigLoader dispatches configuration paths to the HCL or YAML loader.
func newConfigLoader() config.Loader {
	yml := yaml_adapter.NewLoader()
	return config.ByExtension{
		".hcl":  hcl_adapter.NewLoader(),
		".yaml": yml,
		".yml":  yml,
	}
}

// run encapsulates the main application logic for easier testing and error handling.
func run(ctx context.Context, outW io.Writer, args []string) error {
	appConfig, shouldExit, err := cli.Parse(args, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	mammothApp, err := app.NewApp(outW, appConfig, newConfigLoader())
	if err != nil {
		return fmt.Errorf("application startup failed: %w", err)
	}

	return mammothApp.Run(ctx)
}
