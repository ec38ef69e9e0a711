package loader_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/mammoth/internal/config"
	"github.com/vk/mammoth/internal/loader"
	"github.com/vk/mammoth/internal/testutil"
	"github.com/vk/mammoth/pkg/diagnostics"
	"github.com/vk/mammoth/pkg/mammoth"
	"github.com/zclconf/go-cty/cty"
)

type fixture struct {
	dir     string
	opener  *testutil.FakeOpener
	journal *testutil.Journal
	metrics *loader.Metrics
	set     *loader.Set
}

func newFixture(t *testing.T, opts ...loader.Option) *fixture {
	t.Helper()
	f := &fixture{
		dir:     t.TempDir(),
		opener:  testutil.NewFakeOpener(),
		journal: &testutil.Journal{},
		metrics: loader.NewMetrics(prometheus.NewRegistry()),
	}
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	opts = append([]loader.Option{
		loader.WithOpener(f.opener),
		loader.WithLogger(quiet),
		loader.WithMetrics(f.metrics),
	}, opts...)
	f.set = loader.NewSet(f.dir, opts...)
	return f
}

// library writes a library file for name and serves lib for it.
func (f *fixture) library(t *testing.T, name string, lib *testutil.FakeLibrary) string {
	t.Helper()
	fileName := config.LibraryFileName(name)
	f.opener.Register(fileName, lib)
	return testutil.WriteLibraryFile(t, f.dir, fileName)
}

func canonical(t *testing.T, path string) string {
	t.Helper()
	resolved, err := filepath.EvalSymlinks(path)
	require.NoError(t, err)
	return resolved
}

func TestSet_LibPath(t *testing.T) {
	s := loader.NewSet("/srv/mods")
	assert.Equal(t, filepath.Join("/srv/mods", "print"+config.LibraryExt), s.LibPath("print"))
	assert.Equal(t, mammoth.Compatibility, s.Requirement())
}

func TestSet_LoadIsMemoizedByCanonicalPath(t *testing.T) {
	// --- Arrange ---
	f := newFixture(t)
	path := f.library(t, "print", testutil.NewFakeLibrary("print", mammoth.Version, f.journal))
	link := filepath.Join(t.TempDir(), "alias.so")
	require.NoError(t, os.Symlink(path, link))

	// --- Act ---
	first, err := f.set.Load(path)
	require.NoError(t, err)
	second, err := f.set.Load(filepath.Join(f.dir, ".", config.LibraryFileName("print")))
	require.NoError(t, err)
	third, err := f.set.Load(link)
	require.NoError(t, err)

	// --- Assert ---
	assert.Same(t, first, second)
	assert.Same(t, first, third)
	assert.Equal(t, 1, f.opener.TotalOpens())
	assert.Equal(t, int64(3), first.Refs())
	assert.Equal(t, canonical(t, path), first.Path)
	assert.Len(t, f.set.Libraries(), 1)
	assert.Equal(t, 1.0, promtest.ToFloat64(f.metrics.LibrariesOpened))
	assert.Equal(t, 2.0, promtest.ToFloat64(f.metrics.LibraryCacheHit))
}

func TestSet_ConcurrentLoadOpensOnce(t *testing.T) {
	f := newFixture(t)
	f.opener.Delay = 20 * time.Millisecond
	path := f.library(t, "print", testutil.NewFakeLibrary("print", mammoth.Version, f.journal))

	var wg sync.WaitGroup
	libs := make([]*loader.Library, 16)
	errs := make([]error, 16)
	for i := range libs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			libs[i], errs[i] = f.set.Load(path)
		}(i)
	}
	wg.Wait()

	for i := range libs {
		require.NoError(t, errs[i])
		assert.Same(t, libs[0], libs[i])
	}
	assert.Equal(t, 1, f.opener.Opens(canonical(t, path)))
	assert.Equal(t, int64(16), libs[0].Refs())
}

func TestSet_LoadFailures(t *testing.T) {
	f := newFixture(t)

	_, err := f.set.Load(filepath.Join(f.dir, "absent.so"))
	require.ErrorIs(t, err, diagnostics.ErrFileNotFound)

	junk := testutil.WriteLibraryFile(t, f.dir, "junk.so")
	_, err = f.set.Load(junk)
	require.ErrorIs(t, err, diagnostics.ErrLibrary)
	assert.Empty(t, f.set.Libraries(), "failed opens are not cached")
}

func TestSet_LoadModule(t *testing.T) {
	// --- Arrange ---
	f := newFixture(t)
	f.library(t, "print", testutil.NewFakeLibrary("print", "0.1.3", f.journal))
	cfg := cty.ObjectVal(map[string]cty.Value{"greeting": cty.StringVal("hi")})

	// --- Act ---
	loaded, err := f.set.LoadModule(context.Background(), loader.GlobalScope, config.NewModule("print").WithConfig(cfg))

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, "print", loaded.Name)
	assert.Equal(t, "0.1.3", loaded.Version)
	assert.Equal(t, loader.GlobalScope, loaded.Scope)
	assert.False(t, loaded.LoadedAt.IsZero())

	mod := loaded.Instance.(*testutil.FakeModule)
	assert.True(t, mod.Config.RawEquals(cfg), "the constructor receives the module config")
	if diff := cmp.Diff([]string{"print:construct", "print:load"}, f.journal.Entries()); diff != "" {
		t.Errorf("lifecycle mismatch (-want +got):\n%s", diff)
	}

	got, ok := f.set.Module(loader.GlobalScope, "print")
	require.True(t, ok)
	assert.Same(t, loaded, got)
	assert.Len(t, f.set.Modules(), 1)
	assert.Equal(t, 1.0, promtest.ToFloat64(f.metrics.ModulesLoaded.WithLabelValues("print")))
	assert.Equal(t, 1.0, promtest.ToFloat64(f.metrics.ModulesActive))
}

func TestSet_LoadModule_SharedLibraryOpenedOnce(t *testing.T) {
	f := newFixture(t)
	path := f.library(t, "print", testutil.NewFakeLibrary("print", mammoth.Version, f.journal))

	a := config.NewModule("print")
	b := config.NewModule("echo")
	b.SetLocation(path)

	la, err := f.set.LoadModule(context.Background(), loader.GlobalScope, a)
	require.NoError(t, err)
	lb, err := f.set.LoadModule(context.Background(), loader.GlobalScope, b)
	require.NoError(t, err)

	assert.Same(t, la.Library, lb.Library)
	assert.Equal(t, 1, f.opener.TotalOpens())
	assert.Equal(t, int64(2), la.Library.Refs())
}

func TestSet_LoadModule_IncompatibleVersion(t *testing.T) {
	f := newFixture(t)
	f.library(t, "print", testutil.NewFakeLibrary("print", "1.4.0", f.journal))

	_, err := f.set.LoadModule(context.Background(), loader.GlobalScope, config.NewModule("print"))

	require.ErrorIs(t, err, diagnostics.ErrInvalidModuleVersion)
	var ve *diagnostics.VersionError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "print", ve.Module)
	assert.Equal(t, "1.4.0", ve.Found)
	assert.Equal(t, mammoth.Compatibility, ve.Required)
	assert.Empty(t, f.journal.Entries(), "an incompatible module is never constructed")
	assert.Empty(t, f.set.Modules())
	assert.Equal(t, 1.0, promtest.ToFloat64(f.metrics.LoadFailures.WithLabelValues(string(diagnostics.ErrInvalidModuleVersion))))
}

func TestSet_LoadModule_CustomRequirement(t *testing.T) {
	f := newFixture(t, loader.WithRequirement("^1.0.0"))
	f.library(t, "print", testutil.NewFakeLibrary("print", "1.4.0", f.journal))

	_, err := f.set.LoadModule(context.Background(), loader.GlobalScope, config.NewModule("print"))

	require.NoError(t, err)
}

func TestSet_LoadModule_SymbolProblems(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(lib *testutil.FakeLibrary)
		kind   diagnostics.Kind
	}{
		{
			name:   "missing version",
			mutate: func(lib *testutil.FakeLibrary) { delete(lib.Symbols, mammoth.VersionSymbol) },
			kind:   diagnostics.ErrMissingSymbol,
		},
		{
			name:   "missing constructor",
			mutate: func(lib *testutil.FakeLibrary) { delete(lib.Symbols, mammoth.ConstructSymbol) },
			kind:   diagnostics.ErrMissingSymbol,
		},
		{
			name:   "wrong version type",
			mutate: func(lib *testutil.FakeLibrary) { lib.Symbols[mammoth.VersionSymbol] = func() int { return 1 } },
			kind:   diagnostics.ErrMissingSymbol,
		},
		{
			name: "constructor panics",
			mutate: func(lib *testutil.FakeLibrary) {
				lib.Symbols[mammoth.ConstructSymbol] = func(cty.Value) (mammoth.Interface, error) { panic("boom") }
			},
			kind: diagnostics.ErrConstruction,
		},
		{
			name: "constructor fails",
			mutate: func(lib *testutil.FakeLibrary) {
				lib.Symbols[mammoth.ConstructSymbol] = func(cty.Value) (mammoth.Interface, error) { return nil, errors.New("bad config") }
			},
			kind: diagnostics.ErrConstruction,
		},
		{
			name: "constructor returns nothing",
			mutate: func(lib *testutil.FakeLibrary) {
				lib.Symbols[mammoth.ConstructSymbol] = func(cty.Value) (mammoth.Interface, error) { return nil, nil }
			},
			kind: diagnostics.ErrConstruction,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			lib := testutil.NewFakeLibrary("print", mammoth.Version, f.journal)
			tc.mutate(lib)
			f.library(t, "print", lib)

			_, err := f.set.LoadModule(context.Background(), loader.GlobalScope, config.NewModule("print"))

			require.ErrorIs(t, err, tc.kind)
			assert.Empty(t, f.set.Modules())
			for _, l := range f.set.Libraries() {
				assert.Zero(t, l.Refs(), "a failed load releases its library reference")
			}
		})
	}
}

func TestSet_LoadModule_VariableSymbols(t *testing.T) {
	f := newFixture(t)
	lib := testutil.NewFakeLibrary("print", mammoth.Version, f.journal)
	version := lib.Symbols[mammoth.VersionSymbol].(func() string)
	construct := lib.Symbols[mammoth.ConstructSymbol].(func(cty.Value) (mammoth.Interface, error))
	lib.Symbols[mammoth.VersionSymbol] = &version
	lib.Symbols[mammoth.ConstructSymbol] = &construct
	f.library(t, "print", lib)

	_, err := f.set.LoadModule(context.Background(), loader.GlobalScope, config.NewModule("print"))

	require.NoError(t, err)
}

func TestSet_LoadModule_Scopes(t *testing.T) {
	f := newFixture(t)
	f.library(t, "print", testutil.NewFakeLibrary("print", mammoth.Version, f.journal))
	ctx := context.Background()

	_, err := f.set.LoadModule(ctx, loader.GlobalScope, config.NewModule("print"))
	require.NoError(t, err)
	_, err = f.set.LoadModule(ctx, "*:8080", config.NewModule("print"))
	require.NoError(t, err)

	_, err = f.set.LoadModule(ctx, "*:8080", config.NewModule("print"))
	require.ErrorIs(t, err, diagnostics.ErrDuplicateItem)

	_, err = f.set.LoadModule(ctx, loader.GlobalScope, config.NewDisabledModule("other"))
	require.Error(t, err)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = f.set.LoadModule(cancelled, "*:9090", config.NewModule("print"))
	require.ErrorIs(t, err, context.Canceled)

	assert.Len(t, f.set.Modules(), 2)
}

func TestSet_Shutdown(t *testing.T) {
	// --- Arrange ---
	f := newFixture(t)
	f.library(t, "alpha", testutil.NewFakeLibrary("alpha", mammoth.Version, f.journal))
	f.library(t, "beta", testutil.NewFakeLibrary("beta", mammoth.Version, f.journal))
	ctx := context.Background()
	alpha, err := f.set.LoadModule(ctx, loader.GlobalScope, config.NewModule("alpha"))
	require.NoError(t, err)
	_, err = f.set.LoadModule(ctx, loader.GlobalScope, config.NewModule("beta"))
	require.NoError(t, err)

	// --- Act ---
	require.NoError(t, f.set.Shutdown())

	// --- Assert ---
	want := []string{
		"alpha:construct", "alpha:load",
		"beta:construct", "beta:load",
		"beta:shutdown", "beta:destroy",
		"alpha:shutdown", "alpha:destroy",
	}
	if diff := cmp.Diff(want, f.journal.Entries()); diff != "" {
		t.Errorf("lifecycle mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, f.set.Modules())
	assert.Zero(t, alpha.Library.Refs())
	assert.Equal(t, 0.0, promtest.ToFloat64(f.metrics.ModulesActive))
}

func TestSet_ModulesReceiveLogger(t *testing.T) {
	f := newFixture(t)
	f.library(t, "print", testutil.NewFakeLibrary("print", mammoth.Version, f.journal))
	buf := &testutil.SafeBuffer{}
	f.set = loader.NewSet(f.dir,
		loader.WithOpener(f.opener),
		loader.WithLogger(slog.New(slog.NewTextHandler(buf, nil))),
	)

	_, err := f.set.LoadModule(context.Background(), loader.GlobalScope, config.NewModule("print"))

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "msg=\"print loaded\"")
	assert.Contains(t, buf.String(), "module=print")
}

func TestSet_ModuleLogsReachDiagnosticsSink(t *testing.T) {
	f := newFixture(t)
	f.library(t, "print", testutil.NewFakeLibrary("print", mammoth.Version, f.journal))
	var sink diagnostics.EventLog
	f.set = loader.NewSet(f.dir,
		loader.WithOpener(f.opener),
		loader.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		loader.WithDiagnostics(&sink),
	)

	_, err := f.set.LoadModule(context.Background(), loader.GlobalScope, config.NewModule("print"))

	require.NoError(t, err)
	events := sink.Events()
	require.Len(t, events, 1)
	assert.Equal(t, diagnostics.Information, events[0].Severity)
	assert.Equal(t, "print loaded", events[0].Description)
}

func TestSet_Probe(t *testing.T) {
	f := newFixture(t)
	path := f.library(t, "print", testutil.NewFakeLibrary("print", mammoth.Version, f.journal))

	t.Run("accepts valid config", func(t *testing.T) {
		var log diagnostics.EventLog
		err := f.set.Probe(&log, config.NewModule("print"), path)
		require.NoError(t, err)
	})

	t.Run("rejects test_error", func(t *testing.T) {
		var log diagnostics.EventLog
		m := config.NewModule("print").WithConfig(cty.StringVal("test_error"))

		err := f.set.Probe(&log, m, path)

		require.Error(t, err)
		assert.Equal(t, diagnostics.ErrUnknown, diagnostics.KindOf(err))
		assert.Equal(t, 1, log.Count(diagnostics.Critical))
	})

	t.Run("reports version mismatch", func(t *testing.T) {
		other := f.library(t, "old", testutil.NewFakeLibrary("old", "0.0.1", f.journal))
		var log diagnostics.EventLog

		err := f.set.Probe(&log, config.NewModule("old"), other)

		require.ErrorIs(t, err, diagnostics.ErrInvalidModuleVersion)
		assert.Equal(t, 1, log.Count(diagnostics.Critical))
	})

	for _, entry := range f.journal.Entries() {
		assert.NotContains(t, entry, ":load", "probing never calls OnLoad")
		assert.NotContains(t, entry, ":shutdown", "probing never calls OnShutdown")
	}
	assert.Contains(t, f.journal.Entries(), "print:destroy")
	assert.Empty(t, f.set.Modules())
	for _, l := range f.set.Libraries() {
		assert.Zero(t, l.Refs())
	}
}
