package app

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ConfigPath string `validate:"required"`

	LogFormat       string `validate:"oneof=text json"`
	LogLevel        string `validate:"oneof=debug info warn error"`
	HealthcheckPort int    `validate:"gte=0,lte=65535"`

	// ValidateOnly stops after validation instead of loading modules.
	ValidateOnly bool
	// Watch re-validates the configuration whenever it changes on disk.
	Watch bool
	// ContinueOnModuleError skips modules that fail to load instead of
	// aborting start-up.
	ContinueOnModuleError bool
}

// NewConfig validates cfg and returns a copy of it.
func NewConfig(cfg Config) (*Config, error) {
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}
