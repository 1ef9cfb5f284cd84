package config

import (
	"slices"

	"github.com/zclconf/go-cty/cty"
)

// Model is the unified representation of one simulation's configuration.
type Model struct {
	Settings Settings
	// Segments keeps the declaration order of the records.
	Segments []*SegmentSpec
}

// SegmentSpec is one arterial vessel record.
type SegmentSpec struct {
	Name  string  `json:"name" validate:"required"`
	Index int     `json:"index" validate:"min=1"`
	Rs    float64 `json:"rs"`
	L     float64 `json:"l" validate:"ne=0"`
	C     float64 `json:"c" validate:"ne=0"`
	// Rp is nil when the vessel has no peripheral resistance.
	Rp   *float64 `json:"rp,omitempty" validate:"omitempty,ne=0"`
	Type string   `json:"type"`
	// Connections is the declared child list exactly as written. It is
	// resolved into a topology by the network assembler, which owns the
	// error reporting for malformed values.
	Connections cty.Value `json:"-" validate:"-"`
	// Debug overrides the global debugger selection for this vessel.
	Debug *bool `json:"debug,omitempty"`
}

// Children builds a connection list value from child indices.
func Children(indices ...int) cty.Value {
	if len(indices) == 0 {
		return cty.EmptyTupleVal
	}
	vals := make([]cty.Value, len(indices))
	for i, idx := range indices {
		vals[i] = cty.NumberIntVal(int64(idx))
	}
	return cty.TupleVal(vals)
}

// Settings holds the global, read-only parameters of a run.
type Settings struct {
	InitialConditions InitialConditions `json:"initial_conditions" yaml:"initial_conditions"`
	InputSignal       InputSignal       `json:"input_signal" yaml:"input_signal"`
	Debugger          Debugger          `json:"debugger" yaml:"debugger"`
	Simulation        Simulation        `json:"simulation" yaml:"simulation"`
	Output            Output            `json:"output" yaml:"output"`
}

// InitialConditions are the physical initial flow and distal pressure
// applied to every segment. They are Fi and Po themselves, not raw integrator
// states: the int_fi and int_po debug taps read L*Fi and C*Po, so with the
// defaults the int_po tap starts at C*80, not 80.
type InitialConditions struct {
	IntFi float64 `json:"int_fi" yaml:"int_fi"`
	IntPo float64 `json:"int_po" yaml:"int_po"`
}

// InputSignal describes the pulsatile inlet pressure.
type InputSignal struct {
	Frequency float64 `json:"frequency" yaml:"frequency" validate:"gt=0"`
	Amplitude float64 `json:"amplitude" yaml:"amplitude"`
	Baseline  float64 `json:"baseline" yaml:"baseline"`
	Waveform  string  `json:"waveform,omitempty" yaml:"waveform,omitempty" validate:"omitempty,oneof=sine square triangle"`
}

// Debugger selects the instrumented segments and their taps.
type Debugger struct {
	Enabled       bool     `json:"enabled" yaml:"enabled"`
	DebugForIndex []int    `json:"debug_for_index" yaml:"debug_for_index" validate:"dive,min=1"`
	PortList      []string `json:"debugger_port_list" yaml:"debugger_port_list"`
}

// Simulation controls the time integration.
type Simulation struct {
	TimeStep       float64 `json:"time_step" yaml:"time_step" validate:"gt=0"`
	SimulationTime float64 `json:"simulation_time" yaml:"simulation_time" validate:"gtfield=TimeStep"`
	Report         bool    `json:"report" yaml:"report"`
	Block          bool    `json:"block" yaml:"block"`
}

// Output controls result persistence.
type Output struct {
	SaveResults bool   `json:"save_results" yaml:"save_results"`
	Database    string `json:"database,omitempty" yaml:"database,omitempty" validate:"required_if=SaveResults true"`
}

// DefaultSettings returns the settings used for anything a settings file
// leaves out.
func DefaultSettings() Settings {
	return Settings{
		InitialConditions: InitialConditions{IntFi: 0, IntPo: 80},
		InputSignal:       InputSignal{Frequency: 1, Amplitude: 40, Baseline: 80, Waveform: "sine"},
		Simulation:        Simulation{TimeStep: 0.001, SimulationTime: 5},
		Output:            Output{Database: "output/results.db"},
	}
}

// Clone returns a deep copy of the settings.
func (s Settings) Clone() Settings {
	out := s
	out.Debugger.DebugForIndex = slices.Clone(s.Debugger.DebugForIndex)
	out.Debugger.PortList = slices.Clone(s.Debugger.PortList)
	return out
}

// WithFrequency returns a copy of the settings driven at a different inlet
// frequency.
func (s Settings) WithFrequency(hz float64) Settings {
	out := s.Clone()
	out.InputSignal.Frequency = hz
	return out
}
