package testutil

import "testing"

// SettingsHCL is a short, fully specified settings file.
const SettingsHCL = `
initial_conditions {
  int_fi = 0
  int_po = 80
}

input_signal {
  frequency = 1.2
  amplitude = 40
  baseline  = 80
  waveform  = "sine"
}

debugger {
  enabled            = true
  debug_for_index    = [2]
  debugger_port_list = ["Pi", "-Fi"]
}

simulation {
  time_step       = 0.001
  simulation_time = 0.2
  report          = false
  block           = false
}

output {
  save_results = false
}
`

// SettingsJSON mirrors SettingsHCL in JSON syntax.
const SettingsJSON = `{
  "initial_conditions": {"int_fi": 0, "int_po": 80},
  "input_signal": {"frequency": 1.2, "amplitude": 40, "baseline": 80, "waveform": "sine"},
  "debugger": {"enabled": true, "debug_for_index": [2], "debugger_port_list": ["Pi", "-Fi"]},
  "simulation": {"time_step": 0.001, "simulation_time": 0.2, "report": false, "block": false},
  "output": {"save_results": false}
}`

// SegmentsHCL is a bifurcating three-vessel tree in row form.
const SegmentsHCL = `
segments = [
  ["ascending aorta", 1, 1000, 10, 100, null, "viscoelastic", [2, 3]],
  ["left branch", 2, 1000, 10, 100, 1, "viscoelastic", []],
  ["right branch", 3, 1000, 10, 100, 1, "viscoelastic", [], false],
]
`

// SegmentsJSON mirrors SegmentsHCL in JSON syntax.
const SegmentsJSON = `{
  "segments": [
    ["ascending aorta", 1, 1000, 10, 100, null, "viscoelastic", [2, 3]],
    ["left branch", 2, 1000, 10, 100, 1, "viscoelastic", []],
    ["right branch", 3, 1000, 10, 100, 1, "viscoelastic", [], false]
  ]
}`

// SegmentBlocksHCL is a two-vessel chain in block form.
const SegmentBlocksHCL = `
segment "ascending aorta" {
  index       = 1
  rs          = 1000
  l           = 10
  c           = 100
  type        = "viscoelastic"
  connections = [2]
}

segment "descending aorta" {
  index = 2
  rs    = 1000
  l     = 10
  c     = 100
  rp    = 1
  debug = true
}
`

// DataDir writes the HCL settings and segment fixtures into a temporary
// data directory.
func DataDir(t *testing.T) string {
	t.Helper()
	return WriteFiles(t, map[string]string{
		"settings.hcl": SettingsHCL,
		"segments.hcl": SegmentsHCL,
	})
}
