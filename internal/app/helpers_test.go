package app

import (
	"bytes"
	"os"
	"testing"

	"github.com/vk/arterialgo/internal/hcl"
	"github.com/vk/arterialgo/internal/testutil"
)

// setupAppTest creates a new app instance for system testing.
func setupAppTest(t *testing.T, cfg *Config) (*App, *bytes.Buffer, *testutil.SafeBuffer) {
	t.Helper()

	out := &bytes.Buffer{}
	logBuffer := &testutil.SafeBuffer{}
	cfg.LogLevel = "debug"
	testApp := NewApp(out, logBuffer, cfg, hcl.NewLoader())

	t.Cleanup(func() {
		if os.Getenv("ARTERIAL_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
		}
	})

	return testApp, out, logBuffer
}

// savingDataDir is the fixture tree with persistence turned on.
func savingDataDir(t *testing.T) string {
	t.Helper()
	return testutil.WriteFiles(t, map[string]string{
		"settings.hcl": `
input_signal { frequency = 1.2 }

debugger {
  enabled            = true
  debug_for_index    = [1, 2]
  debugger_port_list = ["Pi", "-Fi"]
}

simulation {
  time_step       = 0.001
  simulation_time = 0.1
}

output { save_results = true }
`,
		"segments.hcl": testutil.SegmentsHCL,
	})
}
