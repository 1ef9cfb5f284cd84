package hcl

import (
	"github.com/hashicorp/hcl/v2"
)

// settingsFile is the decoding schema of a settings file. Every field is
// optional; anything left out keeps its default.
type settingsFile struct {
	InitialConditions *initialConditionsBlock `hcl:"initial_conditions,block"`
	InputSignal       *inputSignalBlock       `hcl:"input_signal,block"`
	Debugger          *debuggerBlock          `hcl:"debugger,block"`
	Simulation        *simulationBlock        `hcl:"simulation,block"`
	Output            *outputBlock            `hcl:"output,block"`
}

type initialConditionsBlock struct {
	IntFi *float64 `hcl:"int_fi,optional"`
	IntPo *float64 `hcl:"int_po,optional"`
}

type inputSignalBlock struct {
	Frequency *float64 `hcl:"frequency,optional"`
	Amplitude *float64 `hcl:"amplitude,optional"`
	Baseline  *float64 `hcl:"baseline,optional"`
	Waveform  *string  `hcl:"waveform,optional"`
}

type debuggerBlock struct {
	Enabled       *bool    `hcl:"enabled,optional"`
	DebugForIndex []int    `hcl:"debug_for_index,optional"`
	PortList      []string `hcl:"debugger_port_list,optional"`
}

type simulationBlock struct {
	TimeStep       *float64 `hcl:"time_step,optional"`
	SimulationTime *float64 `hcl:"simulation_time,optional"`
	Report         *bool    `hcl:"report,optional"`
	Block          *bool    `hcl:"block,optional"`
}

type outputBlock struct {
	SaveResults *bool   `hcl:"save_results,optional"`
	Database    *string `hcl:"database,optional"`
}

// segmentsFile is the decoding schema of a segments file. Records come either
// as rows of a `segments` tuple or as labelled `segment` blocks; rows are
// read first.
type segmentsFile struct {
	Rows   hcl.Expression  `hcl:"segments,optional"`
	Blocks []*segmentBlock `hcl:"segment,block"`
}

type segmentBlock struct {
	Name        string         `hcl:"name,label"`
	Index       int            `hcl:"index"`
	Rs          float64        `hcl:"rs"`
	L           float64        `hcl:"l"`
	C           float64        `hcl:"c"`
	Rp          *float64       `hcl:"rp,optional"`
	Type        string         `hcl:"type,optional"`
	Connections hcl.Expression `hcl:"connections,optional"`
	Debug       *bool          `hcl:"debug,optional"`
}
