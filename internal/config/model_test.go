package config

import (
	"path/filepath"
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/mammoth/pkg/diagnostics"
	"github.com/zclconf/go-cty/cty"
)

func TestHostIdentifier_RoundTrip(t *testing.T) {
	f := func(port uint16, name string) bool {
		h := NewHost(port)
		h.SetHostname(name)
		return h.ID() == NewHostIdentifier(port, name) && h.Is(NewHostIdentifier(port, name))
	}
	require.NoError(t, quick.Check(f, nil))
}

func TestHostIdentifier_String(t *testing.T) {
	assert.Equal(t, "*:8080", NewHostIdentifier(8080, "").String())
	assert.Equal(t, "example.com:443", NewHostIdentifier(443, "example.com").String())
}

func TestHost_Helpers(t *testing.T) {
	h := NewHost(80)
	assert.Equal(t, NewBinding(80), h.Listen)
	assert.Empty(t, h.Hostname)

	h.SetHostname("localhost")
	assert.Equal(t, "localhost", h.Hostname)
	h.ClearHostname()
	assert.Empty(t, h.Hostname)

	h.SetStaticDir("./public")
	assert.Equal(t, "./public", h.StaticDir)
	h.ClearStaticDir()
	assert.Empty(t, h.StaticDir)

	h.SetListen(WithSecurity(443, "c.pem", "k.pem"))
	assert.Equal(t, uint16(443), h.ID().Port)

	assert.False(t, h.HasModule("print"))
	h.AddModule(NewModule("print"))
	h.AddModule(NewModule("static"))
	assert.True(t, h.HasModule("print"))
	h.RemoveModule("print")
	assert.False(t, h.HasModule("print"))
	assert.True(t, h.HasModule("static"))
}

func TestHost_RemoveModuleLeavesCopiesIntact(t *testing.T) {
	// Arrange
	f := &File{}
	h := NewHost(8080)
	h.AddModule(NewModule("a"))
	h.AddModule(NewModule("b"))
	f.AddHost(h)
	f.AddModule(NewModule("a"))
	f.AddModule(NewModule("b"))
	globals := f.Modules

	// Act
	edited := f.Hosts[0]
	edited.RemoveModule("a")
	f.RemoveModule("a")

	// Assert
	assert.Equal(t, []Module{NewModule("b")}, edited.Modules)
	assert.Equal(t, []Module{NewModule("a"), NewModule("b")}, f.Hosts[0].Modules)
	assert.Equal(t, []Module{NewModule("a"), NewModule("b")}, globals)
	assert.Equal(t, []Module{NewModule("b")}, f.Modules)
}

func TestFile_RemoveHostLeavesCopiesIntact(t *testing.T) {
	// Arrange
	f := &File{}
	f.AddHost(NewHost(80))
	f.AddHost(NewHost(81))
	snapshot := f.Hosts

	// Act
	f.RemoveHost(NewHostIdentifier(80, ""))

	// Assert
	require.Len(t, f.Hosts, 1)
	assert.Equal(t, uint16(81), f.Hosts[0].Listen.Port)
	assert.Equal(t, uint16(80), snapshot[0].Listen.Port)
	assert.Equal(t, uint16(81), snapshot[1].Listen.Port)
}

func TestModule_Constructors(t *testing.T) {
	m := NewModule("print")
	assert.True(t, m.Enabled)
	assert.True(t, m.Config.IsNull())
	assert.Equal(t, "print", m.ID())

	d := NewDisabledModule("print")
	assert.False(t, d.Enabled)

	cfg := cty.StringVal("test_error")
	withCfg := m.WithConfig(cfg)
	assert.True(t, withCfg.Config.RawEquals(cfg))
	assert.True(t, m.Config.IsNull(), "WithConfig must not mutate the receiver")
}

func TestModule_LibraryPath(t *testing.T) {
	m := NewModule("print")
	assert.Equal(t, filepath.Join("mods", "print"+LibraryExt), m.LibraryPath("mods"))

	m.SetLocation("/opt/print.so")
	assert.Equal(t, "/opt/print.so", m.LibraryPath("mods"))
	m.ClearLocation()
	assert.Equal(t, filepath.Join("mods", "print"+LibraryExt), m.LibraryPath("mods"))

	assert.Equal(t, ".dll", libraryExt("windows"))
	assert.Equal(t, ".so", libraryExt("linux"))
}

func TestMammoth_Severity(t *testing.T) {
	var m Mammoth
	assert.Equal(t, diagnostics.Error, m.Severity())
	m.SetLogSeverity(diagnostics.Debug)
	assert.Equal(t, diagnostics.Debug, m.Severity())
}

func TestFile_Helpers(t *testing.T) {
	f := &File{}
	id := NewHostIdentifier(8080, "")

	assert.False(t, f.HasHost(id))
	f.AddHost(NewHost(8080))
	assert.True(t, f.HasHost(id))
	assert.False(t, f.HasHost(NewHostIdentifier(8080, "localhost")))

	h, ok := f.Host(id)
	require.True(t, ok)
	h.AddModule(NewModule("print"))
	assert.True(t, f.DeclaresModules(), "modules on a host count as declared")

	f.RemoveHost(id)
	assert.False(t, f.HasHost(id))
	assert.False(t, f.DeclaresModules())

	f.AddModule(NewModule("print"))
	assert.True(t, f.HasModule("print"))
	f.RemoveModule("print")
	assert.False(t, f.HasModule("print"))
}

func TestFile_Merge(t *testing.T) {
	sev := diagnostics.Warning
	a := &File{Mammoth: Mammoth{ModsDir: "a", LogFile: "a.log"}, Hosts: []Host{NewHost(80)}}
	b := &File{
		Mammoth:     Mammoth{ModsDir: "b", LogSeverity: &sev},
		Hosts:       []Host{NewHost(81)},
		Modules:     []Module{NewModule("print")},
		Environment: cty.ObjectVal(map[string]cty.Value{"stage": cty.StringVal("dev")}),
	}

	a.Merge(b)
	a.Merge(nil)

	assert.Equal(t, "b", a.Mammoth.ModsDir)
	assert.Equal(t, "a.log", a.Mammoth.LogFile)
	assert.Equal(t, diagnostics.Warning, a.Mammoth.Severity())
	require.Len(t, a.Hosts, 2)
	assert.Equal(t, uint16(81), a.Hosts[1].Listen.Port)
	assert.True(t, a.HasModule("print"))
	assert.False(t, a.Environment.IsNull())
}
