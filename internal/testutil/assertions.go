package testutil

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// AssertModuleLoaded checks the log output within a HarnessResult to confirm
// that a module was loaded under scope.
func AssertModuleLoaded(t *testing.T, result *HarnessResult, scope, name string) {
	t.Helper()

	for _, line := range strings.Split(result.LogOutput, "\n") {
		if strings.Contains(line, `msg="Module loaded."`) &&
			strings.Contains(line, fmt.Sprintf("module=%s ", name)) &&
			strings.Contains(line, fmt.Sprintf("scope=%s ", scope)) {
			return
		}
	}
	require.Fail(t, "module not loaded", "expected module '%s' in scope '%s' to be loaded", name, scope)
}

// AssertLogged fails unless the log output contains every fragment.
func AssertLogged(t *testing.T, result *HarnessResult, fragments ...string) {
	t.Helper()
	for _, f := range fragments {
		require.Contains(t, result.LogOutput, f)
	}
}
