package config

import (
	"fmt"
	"strconv"
)

// Host is one virtual host: a binding, an optional hostname and serving
// directory, and the modules enabled for it.
type Host struct {
	// Hostname is empty when the host answers for any name.
	Hostname  string
	Listen    Binding
	StaticDir string
	Modules   []Module
}

// HostIdentifier is the identity of a Host. Two hosts with the same port
// and hostname collide.
type HostIdentifier struct {
	Port     uint16
	Hostname string
}

// NewHostIdentifier builds an identifier. An empty hostname stands for
// "any name".
func NewHostIdentifier(port uint16, hostname string) HostIdentifier {
	return HostIdentifier{Port: port, Hostname: hostname}
}

func (id HostIdentifier) String() string {
	name := id.Hostname
	if name == "" {
		name = "*"
	}
	return name + ":" + strconv.Itoa(int(id.Port))
}

// NewHost returns a host listening insecurely on port.
func NewHost(port uint16) Host {
	return Host{Listen: NewBinding(port)}
}

// ID implements validation.Identified.
func (h Host) ID() HostIdentifier {
	return NewHostIdentifier(h.Listen.Port, h.Hostname)
}

// Is reports whether h has identity id.
func (h Host) Is(id HostIdentifier) bool {
	return h.ID() == id
}

func (h *Host) SetHostname(name string)  { h.Hostname = name }
func (h *Host) ClearHostname()           { h.Hostname = "" }
func (h *Host) SetListen(b Binding)      { h.Listen = b }
func (h *Host) SetStaticDir(path string) { h.StaticDir = path }
func (h *Host) ClearStaticDir()          { h.StaticDir = "" }

// HasModule reports whether h declares a module called name.
func (h Host) HasModule(name string) bool {
	return indexModule(h.Modules, name) >= 0
}

// AddModule appends m to the host's modules.
func (h *Host) AddModule(m Module) {
	h.Modules = append(h.Modules, m)
}

// RemoveModule drops every module called name.
func (h *Host) RemoveModule(name string) {
	h.Modules = removeModule(h.Modules, name)
}

func (h Host) describe() string {
	return fmt.Sprintf("host %s", h.ID())
}

func indexModule(mods []Module, name string) int {
	for i, m := range mods {
		if m.Name == name {
			return i
		}
	}
	return -1
}

// removeModule returns a new slice; copies of a Host share the old one.
func removeModule(mods []Module, name string) []Module {
	out := make([]Module, 0, len(mods))
	for _, m := range mods {
		if m.Name != name {
			out = append(out, m)
		}
	}
	return out
}
