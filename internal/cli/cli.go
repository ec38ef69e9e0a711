package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"github.com/vk/mammoth/internal/app"
)

// EnvPrefix prefixes environment variables that override flag defaults,
// e.g. MAMMOTH_LOG_LEVEL=debug.
const EnvPrefix = "MAMMOTH_"

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// options mirrors the flags. Keys are the flag names with dashes replaced
// by underscores, which is also how environment variables map onto them.
type options struct {
	Config                string `koanf:"config"`
	LogLevel              string `koanf:"log_level"`
	LogFormat             string `koanf:"log_format"`
	HealthcheckPort       int    `koanf:"healthcheck_port"`
	Validate              bool   `koanf:"validate"`
	Watch                 bool   `koanf:"watch"`
	ContinueOnModuleError bool   `koanf:"continue_on_module_error"`
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
// Precedence is explicit flags, then MAMMOTH_* environment variables, then
// flag defaults.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("mammoth", flag.ContinueOnError)
	flagSet.SetOutput(output)

	// Custom usage/help text function
	flagSet.Usage = func() {
		fmt.Fprint(output, `
Mammoth - A pluggable module host.

Usage:
  mammoth [options] [CONFIG_PATH]

Arguments:
  CONFIG_PATH
    Path to a .hcl/.yaml/.yml file or a directory containing them.

Environment:
  Every option can also be set as MAMMOTH_<OPTION>, e.g. MAMMOTH_LOG_LEVEL.

Options:
`)
		flagSet.PrintDefaults()
	}

	flagSet.String("config", "", "Path to the configuration file or directory.")
	flagSet.String("c", "", "Path to the configuration file or directory (shorthand).")
	flagSet.Int("healthcheck-port", 0, "Port for the admin server (/health, /modules, /metrics). 0 is disabled.")
	flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	flagSet.Bool("validate", false, "Validate the configuration and exit.")
	flagSet.Bool("watch", false, "Re-validate the configuration whenever it changes.")
	flagSet.Bool("continue-on-module-error", false, "Skip modules that fail to load instead of aborting.")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	opts, err := resolve(flagSet)
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	if opts.Config == "" && flagSet.NArg() > 0 {
		opts.Config = flagSet.Arg(0)
	}
	slog.Debug("Config path determined.", "path", opts.Config)

	if opts.Config == "" {
		slog.Debug("No config path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	config, err := app.NewConfig(app.Config{
		ConfigPath:            opts.Config,
		LogFormat:             strings.ToLower(opts.LogFormat),
		LogLevel:              strings.ToLower(opts.LogLevel),
		HealthcheckPort:       opts.HealthcheckPort,
		ValidateOnly:          opts.Validate,
		Watch:                 opts.Watch,
		ContinueOnModuleError: opts.ContinueOnModuleError,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}

// resolve layers flag defaults, the environment and explicitly set flags.
func resolve(flagSet *flag.FlagSet) (*options, error) {
	k := koanf.New(".")

	set := func(f *flag.Flag) {
		name := f.Name
		if name == "c" {
			name = "config"
		}
		_ = k.Set(strings.ReplaceAll(name, "-", "_"), f.Value.String())
	}

	flagSet.VisitAll(func(f *flag.Flag) {
		if f.Name != "c" {
			set(f)
		}
	})
	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("could not load environment: %w", err)
	}
	flagSet.Visit(set)

	var opts options
	if err := k.Unmarshal("", &opts); err != nil {
		return nil, fmt.Errorf("invalid option: %w", err)
	}
	return &opts, nil
}
