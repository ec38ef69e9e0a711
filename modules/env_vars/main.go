// Command env_vars is a mammoth module that checks the process environment.
// Its configuration lists the variables that must be set:
//
//	mod "env_vars" {
//	  config = { require = ["HOME", "PATH"] }
//	}
package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/vk/mammoth/pkg/diagnostics"
	"github.com/vk/mammoth/pkg/mammoth"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

var MammothVersion = func() string { return mammoth.Version }

var configType = cty.Object(map[string]cty.Type{"require": cty.List(cty.String)})

var MammothConstruct = func(cfg cty.Value) (mammoth.Interface, error) {
	var c Config
	if !cfg.IsNull() {
		// HCL tuples and YAML sequences both become a list of strings.
		converted, err := convert.Convert(cfg, configType)
		if err != nil {
			return nil, fmt.Errorf("env_vars: %w", err)
		}
		cfg = converted
	}
	if err := mammoth.DecodeConfig(cfg, &c); err != nil {
		return nil, fmt.Errorf("env_vars: %w", err)
	}
	return &Module{config: c, lookup: os.LookupEnv}, nil
}

// Config is the module configuration.
type Config struct {
	Require []string `cty:"require"`
}

// Module reports on environment variables.
type Module struct {
	mammoth.Base

	config Config
	lookup func(string) (string, bool)
}

// Missing returns the required variables that are unset, sorted.
func (m *Module) Missing() []string {
	var missing []string
	for _, name := range m.config.Require {
		if _, ok := m.lookup(name); !ok {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing
}

// OnValidation fails when a required variable is unset.
func (m *Module) OnValidation(logger diagnostics.Logger) error {
	missing := m.Missing()
	if len(missing) == 0 {
		return nil
	}
	for _, name := range missing {
		logger.Log(diagnostics.Error, fmt.Sprintf("Environment variable %s is not set.", name))
	}
	return fmt.Errorf("missing environment variables: %s", strings.Join(missing, ", "))
}

func (m *Module) OnLoad() {
	m.Log(diagnostics.Information, fmt.Sprintf("%d required environment variables present", len(m.config.Require)))
}

func main() {}
