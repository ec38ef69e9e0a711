package testutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vk/mammoth/internal/loader"
	"github.com/vk/mammoth/pkg/diagnostics"
	"github.com/vk/mammoth/pkg/mammoth"
	"github.com/zclconf/go-cty/cty"
)

// FakeModule is a module instance produced by a FakeLibrary. It rejects the
// configuration string "test_error" during validation.
type FakeModule struct {
	mammoth.Base
	Name    string
	Config  cty.Value
	journal *Journal
}

// NewFakeModule returns a module instance recording into j.
func NewFakeModule(name string, cfg cty.Value, j *Journal) *FakeModule {
	return &FakeModule{Name: name, Config: cfg, journal: j}
}

func (m *FakeModule) OnLoad() {
	m.journal.Record("%s:load", m.Name)
	m.Log(diagnostics.Information, m.Name+" loaded")
}

func (m *FakeModule) OnValidation(logger diagnostics.Logger) error {
	m.journal.Record("%s:validate", m.Name)
	if !m.Config.IsNull() && m.Config.Type().Equals(cty.String) && m.Config.AsString() == "test_error" {
		logger.Log(diagnostics.Error, "test_error requested")
		return errors.New("test_error requested")
	}
	return nil
}

func (m *FakeModule) OnShutdown() {
	m.journal.Record("%s:shutdown", m.Name)
}

// FakeLibrary stands in for an opened module library.
type FakeLibrary struct {
	Symbols map[string]any
}

// NewFakeLibrary returns a library exporting the full module ABI. The
// constructed modules are named name and record into j.
func NewFakeLibrary(name, version string, j *Journal) *FakeLibrary {
	return &FakeLibrary{Symbols: map[string]any{
		mammoth.VersionSymbol: func() string { return version },
		mammoth.ConstructSymbol: func(cfg cty.Value) (mammoth.Interface, error) {
			j.Record("%s:construct", name)
			return NewFakeModule(name, cfg, j), nil
		},
		mammoth.DestroySymbol: func(i mammoth.Interface) {
			j.Record("%s:destroy", i.(*FakeModule).Name)
		},
	}}
}

// Lookup implements loader.Handle.
func (l *FakeLibrary) Lookup(symbol string) (any, error) {
	sym, ok := l.Symbols[symbol]
	if !ok {
		return nil, fmt.Errorf("symbol %s not found", symbol)
	}
	return sym, nil
}

// FakeOpener serves FakeLibraries by file name and counts how often each
// path was opened.
type FakeOpener struct {
	// Delay slows every open down, to widen race windows in tests.
	Delay time.Duration

	mu    sync.Mutex
	libs  map[string]*FakeLibrary
	opens map[string]int
}

// NewFakeOpener returns an opener without libraries.
func NewFakeOpener() *FakeOpener {
	return &FakeOpener{
		libs:  make(map[string]*FakeLibrary),
		opens: make(map[string]int),
	}
}

// Register serves lib for any path whose base name is fileName.
func (o *FakeOpener) Register(fileName string, lib *FakeLibrary) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.libs[fileName] = lib
}

// Open implements loader.Opener.
func (o *FakeOpener) Open(path string) (loader.Handle, error) {
	if o.Delay > 0 {
		time.Sleep(o.Delay)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.opens[path]++
	lib, ok := o.libs[filepath.Base(path)]
	if !ok {
		return nil, fmt.Errorf("%s: not a module library", path)
	}
	return lib, nil
}

// Opens returns how many times path was opened.
func (o *FakeOpener) Opens(path string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.opens[path]
}

// TotalOpens returns the number of opens across all paths.
func (o *FakeOpener) TotalOpens() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for _, c := range o.opens {
		n += c
	}
	return n
}

// WriteLibraryFile creates an empty file standing in for a module library
// and returns its path.
func WriteLibraryFile(t *testing.T, dir, fileName string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0755))
	path := filepath.Join(dir, fileName)
	require.NoError(t, os.WriteFile(path, nil, 0644))
	return path
}
