package integration_tests

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/mammoth/internal/app"
	"github.com/vk/mammoth/internal/testutil"
	"github.com/vk/mammoth/pkg/diagnostics"
	"github.com/vk/mammoth/pkg/mammoth"
	"github.com/zclconf/go-cty/cty"
)

// TestErrorHandling_ConfigurationIsRejected validates that the host refuses
// to start on configurations that fail validation, and that nothing is
// loaded in that case.
func TestErrorHandling_ConfigurationIsRejected(t *testing.T) {
	testCases := []struct {
		name     string
		hcl      string
		wantKind diagnostics.Kind
		wantLog  string
	}{
		{
			name:     "no host",
			hcl:      `mammoth {}`,
			wantKind: diagnostics.ErrNoHost,
			wantLog:  "No host specified.",
		},
		{
			name: "module without mods_dir",
			hcl: `
				host {
					listen = 8080
				}
				mod "print" {}
			`,
			wantKind: diagnostics.ErrNoModsDir,
		},
		{
			name: "duplicate hosts",
			hcl: `
				host {
					listen = 8080
				}
				host {
					listen = 8080
				}
			`,
			wantKind: diagnostics.ErrDuplicateItem,
			wantLog:  "Duplicate item *:8080.",
		},
		{
			name: "module rejects its configuration",
			hcl: `
				mammoth {
					mods_dir = "mods"
				}
				host {
					listen = 8080
				}
				mod "print" {
					config = "test_error"
				}
			`,
			wantKind: diagnostics.ErrUnknown,
			wantLog:  "rejected its configuration",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// --- Arrange ---
			journal := &testutil.Journal{}
			lib := testutil.NewFakeLibrary("print", mammoth.Version, journal)

			// --- Act ---
			result := testutil.RunIntegrationTest(t, testutil.Harness{
				Files:     map[string]string{"mammoth.hcl": tc.hcl},
				Libraries: map[string]*testutil.FakeLibrary{"print.so": lib},
			})

			// --- Assert ---
			require.Error(t, result.Err)
			assert.Equal(t, tc.wantKind, diagnostics.KindOf(result.Err))
			if tc.wantLog != "" {
				testutil.AssertLogged(t, result, tc.wantLog)
			}
			assert.NotContains(t, journal.Entries(), "print:load")
		})
	}
}

// TestErrorHandling_IncompatibleModule validates that a module built against
// another major SDK version is refused with both versions reported.
func TestErrorHandling_IncompatibleModule(t *testing.T) {
	// --- Arrange ---
	files := map[string]string{
		"mammoth.hcl": `
			mammoth {
				mods_dir = "mods"
			}
			host {
				listen = 8080
			}
			mod "legacy" {}
		`,
	}
	lib := testutil.NewFakeLibrary("legacy", "1.4.0", &testutil.Journal{})

	// --- Act ---
	result := testutil.RunIntegrationTest(t, testutil.Harness{
		Files:     files,
		Libraries: map[string]*testutil.FakeLibrary{"legacy.so": lib},
	})

	// --- Assert ---
	require.Error(t, result.Err)
	require.ErrorIs(t, result.Err, diagnostics.ErrInvalidModuleVersion)

	var ve *diagnostics.VersionError
	require.ErrorAs(t, result.Err, &ve)
	assert.Equal(t, "1.4.0", ve.Found)
	assert.Equal(t, mammoth.Compatibility, ve.Required)
}

// TestErrorHandling_ContinueOnModuleError validates that a module failing at
// load time is skipped when the host is told to continue.
func TestErrorHandling_ContinueOnModuleError(t *testing.T) {
	// --- Arrange ---
	journal := &testutil.Journal{}
	broken := testutil.NewFakeLibrary("broken", mammoth.Version, journal)
	// The probe succeeds, the second construction fails.
	calls := 0
	broken.Symbols[mammoth.ConstructSymbol] = func(cfg cty.Value) (mammoth.Interface, error) {
		calls++
		if calls > 1 {
			return nil, errors.New("out of resources")
		}
		return testutil.NewFakeModule("broken", cfg, journal), nil
	}
	files := map[string]string{
		"mammoth.hcl": `
			mammoth {
				mods_dir = "mods"
			}
			host {
				listen = 8080
			}
			mod "broken" {}
			mod "print" {}
		`,
	}

	// --- Act ---
	result := testutil.RunIntegrationTest(t, testutil.Harness{
		Files: files,
		Libraries: map[string]*testutil.FakeLibrary{
			"broken.so": broken,
			"print.so":  testutil.NewFakeLibrary("print", mammoth.Version, journal),
		},
		Configure: func(cfg *app.Config) { cfg.ContinueOnModuleError = true },
	})

	// --- Assert ---
	require.NoError(t, result.Err)
	testutil.AssertModuleLoaded(t, result, "global", "print")
	testutil.AssertLogged(t, result, "Module failed to load, continuing.", "out of resources")
}
