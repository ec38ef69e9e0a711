package testutil

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/mammoth/internal/app"
	"github.com/vk/mammoth/internal/config"
	"github.com/vk/mammoth/internal/hcl_adapter"
	"github.com/vk/mammoth/internal/yaml_adapter"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// ConfigLoader returns the loader used by the mammoth binary.
func ConfigLoader() config.Loader {
	yml := yaml_adapter.NewLoader()
	return config.ByExtension{
		".hcl":  hcl_adapter.NewLoader(),
		".yaml": yml,
		".yml":  yml,
	}
}

// Harness describes one integration run.
type Harness struct {
	// Files are written relative to a temporary root. A "mods/" prefix is
	// conventional for library placeholders.
	Files map[string]string
	// Libraries maps library file names (e.g. "print.so") to the fake
	// library served for them. A placeholder file is written to mods/ for
	// each entry.
	Libraries map[string]*FakeLibrary
	// ConfigPath is relative to the root. It defaults to the root itself.
	ConfigPath string
	// Configure adjusts the app configuration before the run.
	Configure func(cfg *app.Config)
}

// HarnessResult holds the outcomes of an integration test run.
type HarnessResult struct {
	Root      string
	LogOutput string
	Err       error
	App       *app.App
	Opener    *FakeOpener
}

// RunIntegrationTest provides a standardized harness for running integration tests
// using a default background context.
func RunIntegrationTest(t *testing.T, h Harness) *HarnessResult {
	t.Helper()
	return RunIntegrationTestWithContext(context.Background(), t, h)
}

// RunIntegrationTestWithContext writes the harness files, starts the App
// with a FakeOpener and stops it again as soon as it reports ready. The
// returned error is whatever Run returned, or the NewApp error.
func RunIntegrationTestWithContext(ctx context.Context, t *testing.T, h Harness) *HarnessResult {
	t.Helper()

	root := t.TempDir()
	for name, content := range h.Files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}

	opener := NewFakeOpener()
	for fileName, lib := range h.Libraries {
		WriteLibraryFile(t, filepath.Join(root, "mods"), fileName)
		opener.Register(fileName, lib)
	}

	// Relative paths in the fixtures resolve against root.
	t.Chdir(root)

	cfg := &app.Config{
		ConfigPath: h.ConfigPath,
		LogLevel:   "debug",
		LogFormat:  "text",
	}
	if cfg.ConfigPath == "" {
		cfg.ConfigPath = root
	}
	if h.Configure != nil {
		h.Configure(cfg)
	}

	logBuffer := &SafeBuffer{}
	t.Cleanup(func() {
		if os.Getenv("MAMMOTH_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
		}
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	result := &HarnessResult{Root: root, Opener: opener}
	testApp, err := app.NewApp(logBuffer, cfg, ConfigLoader(), app.WithOpener(opener), app.WithOnReady(cancel))
	if err != nil {
		result.Err = err
		result.LogOutput = logBuffer.String()
		return result
	}

	result.App = testApp
	result.Err = testApp.Run(ctx)
	result.LogOutput = logBuffer.String()
	return result
}
