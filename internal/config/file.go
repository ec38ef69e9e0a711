package config

import (
	"github.com/zclconf/go-cty/cty"
)

// File is the whole configuration document.
type File struct {
	Mammoth Mammoth
	Hosts   []Host
	// Modules are the global modules, loaded once for the whole process.
	Modules []Module
	// Environment is passed through untouched. It is cty.NilVal when unset.
	Environment cty.Value
}

// HasHost reports whether a host with identity id is declared.
func (f *File) HasHost(id HostIdentifier) bool {
	_, ok := f.Host(id)
	return ok
}

// Host returns the host with identity id.
func (f *File) Host(id HostIdentifier) (*Host, bool) {
	for i := range f.Hosts {
		if f.Hosts[i].Is(id) {
			return &f.Hosts[i], true
		}
	}
	return nil, false
}

// AddHost appends h.
func (f *File) AddHost(h Host) {
	f.Hosts = append(f.Hosts, h)
}

// RemoveHost drops every host with identity id.
func (f *File) RemoveHost(id HostIdentifier) {
	out := make([]Host, 0, len(f.Hosts))
	for _, h := range f.Hosts {
		if !h.Is(id) {
			out = append(out, h)
		}
	}
	f.Hosts = out
}

// HasModule reports whether a global module called name is declared.
func (f *File) HasModule(name string) bool {
	return indexModule(f.Modules, name) >= 0
}

// AddModule appends a global module.
func (f *File) AddModule(m Module) {
	f.Modules = append(f.Modules, m)
}

// RemoveModule drops every global module called name.
func (f *File) RemoveModule(name string) {
	f.Modules = removeModule(f.Modules, name)
}

// DeclaresModules reports whether any module is declared, globally or on
// any host.
func (f *File) DeclaresModules() bool {
	if len(f.Modules) > 0 {
		return true
	}
	for _, h := range f.Hosts {
		if len(h.Modules) > 0 {
			return true
		}
	}
	return false
}

// Merge folds other into f. Hosts and modules are appended in order, so
// duplicates across files are still caught by validation. Mammoth settings
// and the environment from other win when set.
func (f *File) Merge(other *File) {
	if other == nil {
		return
	}
	if other.Mammoth.ModsDir != "" {
		f.Mammoth.ModsDir = other.Mammoth.ModsDir
	}
	if other.Mammoth.LogFile != "" {
		f.Mammoth.LogFile = other.Mammoth.LogFile
	}
	if other.Mammoth.LogSeverity != nil {
		f.Mammoth.LogSeverity = other.Mammoth.LogSeverity
	}
	f.Hosts = append(f.Hosts, other.Hosts...)
	f.Modules = append(f.Modules, other.Modules...)
	if !other.Environment.IsNull() {
		f.Environment = other.Environment
	}
}
