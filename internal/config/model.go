package config

import (
	"path/filepath"
	"runtime"

	"github.com/vk/mammoth/pkg/diagnostics"
	"github.com/zclconf/go-cty/cty"
)

// Mammoth holds the global settings of the host.
type Mammoth struct {
	// ModsDir is the default directory module libraries are loaded from.
	ModsDir     string
	LogFile     string
	LogSeverity *diagnostics.Severity
}

// Severity returns the configured log severity or the default.
func (m Mammoth) Severity() diagnostics.Severity {
	if m.LogSeverity == nil {
		return diagnostics.DefaultSeverity
	}
	return *m.LogSeverity
}

// SetLogSeverity sets the log file threshold.
func (m *Mammoth) SetLogSeverity(sev diagnostics.Severity) {
	m.LogSeverity = &sev
}

// LibraryExt is the file extension of module libraries on this platform.
var LibraryExt = libraryExt(runtime.GOOS)

func libraryExt(goos string) string {
	if goos == "windows" {
		return ".dll"
	}
	return ".so"
}

// LibraryFileName returns the library file name for a module name.
func LibraryFileName(name string) string {
	return name + LibraryExt
}

// Module describes one pluggable module.
type Module struct {
	Name string
	// Location overrides the library path derived from the modules
	// directory.
	Location string
	Enabled  bool
	// Config is handed unchanged to the module's constructor. It is
	// cty.NilVal when the configuration has none.
	Config cty.Value
}

// NewModule returns an enabled module without configuration.
func NewModule(name string) Module {
	return Module{Name: name, Enabled: true, Config: cty.NilVal}
}

// NewDisabledModule returns a module that will never be loaded.
func NewDisabledModule(name string) Module {
	return Module{Name: name, Enabled: false, Config: cty.NilVal}
}

// WithConfig returns a copy of m carrying cfg.
func (m Module) WithConfig(cfg cty.Value) Module {
	m.Config = cfg
	return m
}

// ID implements validation.Identified.
func (m Module) ID() string { return m.Name }

func (m *Module) SetLocation(path string) { m.Location = path }
func (m *Module) ClearLocation()          { m.Location = "" }

// LibraryPath resolves the library file of m: its explicit Location, or
// the platform file name under modsDir.
func (m Module) LibraryPath(modsDir string) string {
	if m.Location != "" {
		return m.Location
	}
	return filepath.Join(modsDir, LibraryFileName(m.Name))
}
