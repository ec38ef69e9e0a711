package loader

import (
	"fmt"
	"plugin"
	"sync/atomic"
)

// Handle is an opened native library.
type Handle interface {
	Lookup(symbol string) (any, error)
}

// Opener opens a native library at a canonical path.
type Opener interface {
	Open(path string) (Handle, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(path string) (Handle, error)

// Open calls f(path).
func (f OpenerFunc) Open(path string) (Handle, error) { return f(path) }

// PluginOpener opens Go plugins built with -buildmode=plugin.
type PluginOpener struct{}

// Open implements Opener.
func (PluginOpener) Open(path string) (Handle, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, err
	}
	return pluginHandle{p: p}, nil
}

type pluginHandle struct {
	p *plugin.Plugin
}

func (h pluginHandle) Lookup(symbol string) (any, error) {
	return h.p.Lookup(symbol)
}

// Library is a library opened by a Set.
type Library struct {
	// Path is the canonical path the library was opened from.
	Path   string
	handle Handle
	refs   atomic.Int64
}

// Lookup resolves an exported symbol.
func (l *Library) Lookup(symbol string) (any, error) {
	sym, err := l.handle.Lookup(symbol)
	if err != nil {
		return nil, fmt.Errorf("looking up %s in %s: %w", symbol, l.Path, err)
	}
	return sym, nil
}

// Refs returns how many references to l are outstanding.
func (l *Library) Refs() int64 {
	return l.refs.Load()
}

func (l *Library) acquire() *Library {
	l.refs.Add(1)
	return l
}

func (l *Library) release() {
	l.refs.Add(-1)
}
