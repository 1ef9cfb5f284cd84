package config

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func validSegment() *SegmentSpec {
	return &SegmentSpec{Name: "aorta", Index: 1, Rs: 10, L: 1, C: 2, Connections: Children(2, 3)}
}

func TestDefaultSettings_AreValid(t *testing.T) {
	s := DefaultSettings()
	require.NoError(t, s.Validate())
	assert.Equal(t, 80.0, s.InitialConditions.IntPo)
	assert.Equal(t, "sine", s.InputSignal.Waveform)
}

func TestSettings_Validate(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(*Settings)
		wantErr string
	}{
		{
			name:    "non-positive frequency",
			mutate:  func(s *Settings) { s.InputSignal.Frequency = 0 },
			wantErr: "input_signal.frequency: must be greater than 0",
		},
		{
			name:    "unknown waveform",
			mutate:  func(s *Settings) { s.InputSignal.Waveform = "sawtooth" },
			wantErr: "input_signal.waveform: must be one of [sine square triangle], got sawtooth",
		},
		{
			name:    "simulation shorter than a step",
			mutate:  func(s *Settings) { s.Simulation.SimulationTime = 0.0001 },
			wantErr: "simulation.simulation_time: must be greater than TimeStep",
		},
		{
			name:    "zero debug index",
			mutate:  func(s *Settings) { s.Debugger.DebugForIndex = []int{1, 0} },
			wantErr: "debugger.debug_for_index[1]: must be at least 1",
		},
		{
			name: "saving without a database",
			mutate: func(s *Settings) {
				s.Output.SaveResults = true
				s.Output.Database = ""
			},
			wantErr: "output.database: field is required when SaveResults is true",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := DefaultSettings()
			tc.mutate(&s)
			err := s.Validate()
			require.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestSegmentSpec_Validate(t *testing.T) {
	zero := 0.0
	testCases := map[string]func(*SegmentSpec){
		"missing name":    func(s *SegmentSpec) { s.Name = "" },
		"zero index":      func(s *SegmentSpec) { s.Index = 0 },
		"zero inductance": func(s *SegmentSpec) { s.L = 0 },
		"zero compliance": func(s *SegmentSpec) { s.C = 0 },
		"zero peripheral": func(s *SegmentSpec) { s.Rp = &zero },
	}
	for name, mutate := range testCases {
		t.Run(name, func(t *testing.T) {
			s := validSegment()
			mutate(s)
			assert.ErrorIs(t, s.Validate(), ErrInvalidConfig)
		})
	}

	t.Run("connections are not validated here", func(t *testing.T) {
		s := validSegment()
		s.Connections = cty.StringVal("not a list")
		assert.NoError(t, s.Validate())
	})
}

func TestModel_Validate(t *testing.T) {
	m := &Model{Settings: DefaultSettings()}
	assert.ErrorIs(t, m.Validate(), ErrInvalidConfig, "a model without segments is invalid")

	m.Segments = []*SegmentSpec{validSegment()}
	assert.NoError(t, m.Validate())

	m.Segments = append(m.Segments, nil)
	assert.ErrorIs(t, m.Validate(), ErrInvalidConfig)
}

func TestSettings_WithFrequencyDoesNotMutate(t *testing.T) {
	base := DefaultSettings()
	base.Debugger.DebugForIndex = []int{1, 2}

	changed := base.WithFrequency(2.5)
	changed.Debugger.DebugForIndex[0] = 9

	assert.Equal(t, 1.0, base.InputSignal.Frequency)
	assert.Equal(t, 2.5, changed.InputSignal.Frequency)
	assert.Equal(t, []int{1, 2}, base.Debugger.DebugForIndex)
}

func TestSettings_CloneIsDeep(t *testing.T) {
	base := DefaultSettings()
	base.Debugger.PortList = []string{"Pi"}
	clone := base.Clone()
	if diff := cmp.Diff(base, clone); diff != "" {
		t.Errorf("Clone() mismatch (-want +got):\n%s", diff)
	}
	clone.Debugger.PortList[0] = "Fo"
	assert.Equal(t, "Pi", base.Debugger.PortList[0])
}

func TestChildren(t *testing.T) {
	assert.True(t, Children().RawEquals(cty.EmptyTupleVal))
	v := Children(2, 3)
	require.True(t, v.Type().IsTupleType())
	assert.Equal(t, 2, v.LengthInt())
	assert.True(t, v.Index(cty.NumberIntVal(1)).RawEquals(cty.NumberIntVal(3)))
}

func TestMissingInputFileError(t *testing.T) {
	err := error(&MissingInputFileError{Path: "data/settings.json"})
	assert.ErrorIs(t, err, ErrMissingInputFile)
	assert.EqualError(t, err, "missing input file: data/settings.json")
}
