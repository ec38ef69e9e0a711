// Command print is an example mammoth module. Build it as a plugin:
//
//	go build -buildmode=plugin -o mods/print.so ./modules/print
//
// Its configuration is either a string or a map of strings. It prints the
// configuration when loaded and rejects the string "test_error" during
// validation.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/vk/mammoth/pkg/diagnostics"
	"github.com/vk/mammoth/pkg/mammoth"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// MammothVersion reports the SDK version the module was built against.
var MammothVersion = func() string { return mammoth.Version }

// MammothConstruct builds the module from its configuration.
var MammothConstruct = func(cfg cty.Value) (mammoth.Interface, error) {
	return newModule(cfg, os.Stdout)
}

// MammothDestroy releases an instance built by MammothConstruct.
var MammothDestroy = func(i mammoth.Interface) {
	if m, ok := i.(*Module); ok {
		m.values = nil
	}
}

// Module prints its configuration.
type Module struct {
	mammoth.Base

	message string
	values  map[string]string
	out     io.Writer
}

func newModule(cfg cty.Value, out io.Writer) (*Module, error) {
	m := &Module{out: out}
	if cfg.IsNull() {
		return m, nil
	}

	if cfg.Type().Equals(cty.String) {
		if err := mammoth.DecodeConfig(cfg, &m.message); err != nil {
			return nil, err
		}
		return m, nil
	}

	asMap, err := convert.Convert(cfg, cty.Map(cty.String))
	if err != nil {
		return nil, fmt.Errorf("print: config must be a string or a map of strings: %w", err)
	}
	m.values = make(map[string]string)
	for k, v := range asMap.AsValueMap() {
		if !v.IsNull() {
			m.values[k] = v.AsString()
		}
	}
	return m, nil
}

// OnValidation rejects the configuration "test_error".
func (m *Module) OnValidation(logger diagnostics.Logger) error {
	if m.message == "test_error" {
		logger.Log(diagnostics.Error, "print: test_error configuration requested")
		return errors.New("test_error configuration")
	}
	return nil
}

// OnLoad prints the configuration.
func (m *Module) OnLoad() {
	m.Log(diagnostics.Information, "Printing configuration")

	if m.message != "" {
		fmt.Fprintf(m.out, "      %s\n", m.message)
		return
	}
	if m.values == nil {
		fmt.Fprintln(m.out, "      (null)")
		return
	}

	// Sort keys for consistent output
	keys := make([]string, 0, len(m.values))
	for k := range m.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		fmt.Fprintf(m.out, "      %s = %q\n", k, m.values[k])
	}
}

func (m *Module) OnShutdown() {
	m.Log(diagnostics.Debug, "print shutting down")
}

func main() {}
