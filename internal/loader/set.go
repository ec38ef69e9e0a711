package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/vk/mammoth/internal/config"
	"github.com/vk/mammoth/pkg/diagnostics"
	"github.com/vk/mammoth/pkg/mammoth"
	"golang.org/x/sync/singleflight"
)

// GlobalScope is the scope of modules declared outside any host.
const GlobalScope = "global"

// Loaded is a registered module instance.
type Loaded struct {
	Scope    string
	Name     string
	Version  string
	Library  *Library
	Instance mammoth.Interface
	LoadedAt time.Time

	destroy mammoth.DestroyFunc
}

// Set owns the libraries and module instances of one host process.
type Set struct {
	dir         string
	requirement string
	opener      Opener
	logger      *slog.Logger
	metrics     *Metrics
	sink        diagnostics.Logger

	mu        sync.Mutex
	libraries map[string]*Library
	modules   []*Loaded
	group     singleflight.Group
}

// Option configures a Set.
type Option func(*Set)

// WithOpener replaces the Go plugin opener.
func WithOpener(o Opener) Option {
	return func(s *Set) { s.opener = o }
}

// WithRequirement replaces mammoth.Compatibility as the accepted version
// range.
func WithRequirement(r string) Option {
	return func(s *Set) { s.requirement = r }
}

// WithLogger sets the logger used for loader messages and handed to
// modules.
func WithLogger(l *slog.Logger) Option {
	return func(s *Set) { s.logger = l }
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *Metrics) Option {
	return func(s *Set) { s.metrics = m }
}

// WithDiagnostics tees everything loaded modules log into sink, next to
// the slog logger.
func WithDiagnostics(sink diagnostics.Logger) Option {
	return func(s *Set) { s.sink = sink }
}

// NewSet returns an empty Set resolving bare module names under dir.
func NewSet(dir string, opts ...Option) *Set {
	s := &Set{
		dir:         dir,
		requirement: mammoth.Compatibility,
		opener:      PluginOpener{},
		logger:      slog.Default(),
		libraries:   make(map[string]*Library),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Requirement returns the accepted module version range.
func (s *Set) Requirement() string { return s.requirement }

// LibPath returns the platform library path for a module name under the
// default directory.
func (s *Set) LibPath(name string) string {
	return filepath.Join(s.dir, config.LibraryFileName(name))
}

// Load returns the library at path, opening it only if no library with the
// same canonical path is held yet. Concurrent calls for one path share a
// single open.
func (s *Set) Load(path string) (*Library, error) {
	canonical, err := canonicalize(path)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	lib, ok := s.libraries[canonical]
	s.mu.Unlock()
	if ok {
		s.logger.Debug("Library served from cache.", "path", canonical)
		if s.metrics != nil {
			s.metrics.LibraryCacheHit.Inc()
		}
		return lib.acquire(), nil
	}

	v, err, _ := s.group.Do(canonical, func() (any, error) {
		s.mu.Lock()
		lib, ok := s.libraries[canonical]
		s.mu.Unlock()
		if ok {
			return lib, nil
		}

		s.logger.Debug("Opening library.", "path", canonical)
		handle, err := s.opener.Open(canonical)
		if err != nil {
			return nil, diagnostics.NewError(diagnostics.ErrLibrary, canonical, err)
		}
		lib = &Library{Path: canonical, handle: handle}

		s.mu.Lock()
		s.libraries[canonical] = lib
		s.mu.Unlock()
		if s.metrics != nil {
			s.metrics.LibrariesOpened.Inc()
		}
		return lib, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Library).acquire(), nil
}

// Libraries returns the opened libraries keyed by canonical path.
func (s *Set) Libraries() map[string]*Library {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]*Library, len(s.libraries))
	for k, v := range s.libraries {
		out[k] = v
	}
	return out
}

func canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", diagnostics.NewError(diagnostics.ErrIO, path, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", diagnostics.NewError(diagnostics.ErrFileNotFound, path, err)
		}
		return "", diagnostics.NewError(diagnostics.ErrIO, path, err)
	}
	return resolved, nil
}

// ResolvePath returns the library path of m: its explicit location or
// LibPath(m.Name).
func (s *Set) ResolvePath(m config.Module) string {
	if m.Location != "" {
		return m.Location
	}
	return s.LibPath(m.Name)
}

// LoadModule loads, constructs and registers m under scope. The instance
// receives the host logger (if it wants one) and OnLoad before it is
// registered.
func (s *Set) LoadModule(ctx context.Context, scope string, m config.Module) (*Loaded, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !m.Enabled {
		return nil, fmt.Errorf("module %q is disabled", m.Name)
	}
	if _, ok := s.Module(scope, m.Name); ok {
		return nil, diagnostics.NewError(diagnostics.ErrDuplicateItem, scope+"/"+m.Name, nil)
	}

	start := time.Now()
	logger := s.logger.With("module", m.Name, "scope", scope)
	loaded, err := s.construct(m)
	if err != nil {
		s.recordFailure(err)
		return nil, fmt.Errorf("loading module %q: %w", m.Name, err)
	}
	loaded.Scope = scope

	if aware, ok := loaded.Instance.(mammoth.LoggerAware); ok {
		aware.RegisterLogger(s.moduleLogger(scope, m.Name))
	}
	if err := guard(m.Name, "OnLoad", loaded.Instance.OnLoad); err != nil {
		s.dispose(loaded)
		s.recordFailure(err)
		return nil, err
	}

	s.mu.Lock()
	for _, existing := range s.modules {
		if existing.Scope == scope && existing.Name == m.Name {
			s.mu.Unlock()
			s.dispose(loaded)
			return nil, diagnostics.NewError(diagnostics.ErrDuplicateItem, scope+"/"+m.Name, nil)
		}
	}
	loaded.LoadedAt = time.Now()
	s.modules = append(s.modules, loaded)
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.ModulesLoaded.WithLabelValues(m.Name).Inc()
		s.metrics.ModulesActive.Inc()
		s.metrics.LoadDuration.Observe(time.Since(start).Seconds())
	}
	logger.Info("Module loaded.", "version", loaded.Version, "library", loaded.Library.Path)
	return loaded, nil
}

func (s *Set) moduleLogger(scope, name string) diagnostics.Logger {
	var l diagnostics.Logger = diagnostics.NewSlogLogger(s.logger, "module", name, "scope", scope)
	if s.sink != nil {
		l = diagnostics.Multi{l, s.sink}
	}
	return diagnostics.NewShared(l)
}

// Probe implements config.Prober. It performs the same handshake as
// LoadModule, runs the instance's validation hook with logger and then
// destroys the instance without calling OnLoad or OnShutdown.
func (s *Set) Probe(logger diagnostics.Logger, m config.Module, path string) error {
	if m.Location == "" {
		m.Location = path
	}
	probe, err := s.construct(m)
	if err != nil {
		diagnostics.Logf(logger, diagnostics.Critical, "Module %q cannot be loaded: %v", m.Name, err)
		return err
	}
	defer s.dispose(probe)

	if aware, ok := probe.Instance.(mammoth.LoggerAware); ok {
		aware.RegisterLogger(logger)
	}
	var validationErr error
	if err := guard(m.Name, "OnValidation", func() { validationErr = probe.Instance.OnValidation(logger) }); err != nil {
		logger.Log(diagnostics.Critical, err.Error())
		return err
	}
	if validationErr != nil {
		diagnostics.Logf(logger, diagnostics.Critical, "Module %q rejected its configuration: %v", m.Name, validationErr)
		return fmt.Errorf("module %q validation: %w", m.Name, validationErr)
	}
	return nil
}

// construct runs the library handshake for m and returns an unregistered
// instance that holds one library reference.
func (s *Set) construct(m config.Module) (*Loaded, error) {
	lib, err := s.Load(s.ResolvePath(m))
	if err != nil {
		return nil, err
	}

	loaded, err := s.handshake(lib, m)
	if err != nil {
		lib.release()
		return nil, err
	}
	return loaded, nil
}

func (s *Set) handshake(lib *Library, m config.Module) (*Loaded, error) {
	versionSym, err := lib.Lookup(mammoth.VersionSymbol)
	if err != nil {
		return nil, diagnostics.NewError(diagnostics.ErrMissingSymbol, mammoth.VersionSymbol, err)
	}
	versionFn, ok := asVersionFunc(versionSym)
	if !ok {
		return nil, diagnostics.NewError(diagnostics.ErrMissingSymbol, mammoth.VersionSymbol,
			fmt.Errorf("unexpected type %T", versionSym))
	}

	var version string
	if err := guard(m.Name, mammoth.VersionSymbol, func() { version = versionFn() }); err != nil {
		return nil, err
	}
	if err := mammoth.CheckVersion(version, s.requirement); err != nil {
		var ve *diagnostics.VersionError
		if errors.As(err, &ve) {
			ve.Module = m.Name
		}
		return nil, err
	}

	constructSym, err := lib.Lookup(mammoth.ConstructSymbol)
	if err != nil {
		return nil, diagnostics.NewError(diagnostics.ErrMissingSymbol, mammoth.ConstructSymbol, err)
	}
	constructFn, ok := asConstructFunc(constructSym)
	if !ok {
		return nil, diagnostics.NewError(diagnostics.ErrMissingSymbol, mammoth.ConstructSymbol,
			fmt.Errorf("unexpected type %T", constructSym))
	}

	var destroy mammoth.DestroyFunc
	if destroySym, err := lib.Lookup(mammoth.DestroySymbol); err == nil {
		if destroy, ok = asDestroyFunc(destroySym); !ok {
			return nil, diagnostics.NewError(diagnostics.ErrMissingSymbol, mammoth.DestroySymbol,
				fmt.Errorf("unexpected type %T", destroySym))
		}
	}

	var (
		instance     mammoth.Interface
		constructErr error
	)
	if err := guard(m.Name, mammoth.ConstructSymbol, func() { instance, constructErr = constructFn(m.Config) }); err != nil {
		return nil, err
	}
	if constructErr != nil {
		return nil, diagnostics.NewError(diagnostics.ErrConstruction, m.Name, constructErr)
	}
	if instance == nil {
		return nil, diagnostics.NewError(diagnostics.ErrConstruction, m.Name, errors.New("constructor returned no instance"))
	}

	return &Loaded{
		Name:     m.Name,
		Version:  version,
		Library:  lib,
		Instance: instance,
		destroy:  destroy,
	}, nil
}

// dispose destroys an instance and drops its library reference.
func (s *Set) dispose(l *Loaded) {
	if l.destroy != nil {
		if err := guard(l.Name, mammoth.DestroySymbol, func() { l.destroy(l.Instance) }); err != nil {
			s.logger.Error("Module destructor failed.", "module", l.Name, "error", err)
		}
	}
	l.Library.release()
}

func (s *Set) recordFailure(err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.LoadFailures.WithLabelValues(string(diagnostics.KindOf(err))).Inc()
}

// Module returns the instance registered as name under scope.
func (s *Set) Module(scope, name string) (*Loaded, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.modules {
		if l.Scope == scope && l.Name == name {
			return l, true
		}
	}
	return nil, false
}

// Modules returns the registered instances in registration order.
func (s *Set) Modules() []*Loaded {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Loaded, len(s.modules))
	copy(out, s.modules)
	return out
}

// Shutdown calls OnShutdown on every registered instance in reverse
// registration order, then destroys it. Panicking hooks are collected and
// returned; the remaining modules are still shut down.
func (s *Set) Shutdown() error {
	s.mu.Lock()
	mods := s.modules
	s.modules = nil
	s.mu.Unlock()

	var errs []error
	for i := len(mods) - 1; i >= 0; i-- {
		l := mods[i]
		s.logger.Debug("Shutting down module.", "module", l.Name, "scope", l.Scope)
		if err := guard(l.Name, "OnShutdown", l.Instance.OnShutdown); err != nil {
			errs = append(errs, err)
		}
		s.dispose(l)
		if s.metrics != nil {
			s.metrics.ModulesActive.Dec()
		}
	}
	return errors.Join(errs...)
}
