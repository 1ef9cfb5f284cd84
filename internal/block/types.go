package block

import "fmt"

// Kind identifies the behaviour of a block.
type Kind int

const (
	KindInPort Kind = iota
	KindOutPort
	KindGain
	KindSum
	KindIntegrator
	KindClip
	KindConstant
	KindWaveform
	KindFunction
	KindSink
	KindSubsystem
)

var kindNames = map[Kind]string{
	KindInPort:     "INPORT",
	KindOutPort:    "OUTPORT",
	KindGain:       "GAIN",
	KindSum:        "SUM",
	KindIntegrator: "INTEGRATOR",
	KindClip:       "CLIP",
	KindConstant:   "CONSTANT",
	KindWaveform:   "WAVEFORM",
	KindFunction:   "FUNCTION",
	KindSink:       "SINK",
	KindSubsystem:  "SUBSYSTEM",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Feedthrough reports whether the block's output depends algebraically on its
// inputs at the same instant. Integrators and sources break algebraic chains.
func (k Kind) Feedthrough() bool {
	switch k {
	case KindGain, KindSum, KindClip, KindFunction, KindSink:
		return true
	default:
		return false
	}
}

// Block is a single vertex of a Diagram. Blocks are created through the
// Diagram constructors and are only meaningful inside the Diagram that owns them.
type Block struct {
	// ID is the creation order of the block within its Diagram.
	ID int
	// Name is unique within the owning Diagram.
	Name string
	Kind Kind

	nIn  int
	nOut int

	// Gain is the multiplier of a GAIN block.
	Gain float64
	// Signs holds one '+' or '-' per input of a SUM block.
	Signs string
	// X0 is the initial state of an INTEGRATOR block.
	X0 float64
	// Min and Max bound a CLIP block.
	Min, Max float64
	// Value is the output of a CONSTANT block.
	Value float64
	// Shape and Frequency parameterise a WAVEFORM block.
	Shape     Shape
	Frequency float64
	// Fn is applied by a FUNCTION block.
	Fn func(float64) float64
	// Inner is the wrapped diagram of a SUBSYSTEM block.
	Inner *Diagram

	owner *Diagram
}

// NumInputs returns the input arity of the block.
func (b *Block) NumInputs() int { return b.nIn }

// NumOutputs returns the output arity of the block.
func (b *Block) NumOutputs() int { return b.nOut }

// In returns the i-th input port of the block.
func (b *Block) In(i int) Port { return Port{Block: b, Index: i, Input: true} }

// Out returns the i-th output port of the block.
func (b *Block) Out(i int) Port { return Port{Block: b, Index: i} }

func (b *Block) String() string {
	return fmt.Sprintf("%s@%s", b.Name, b.Kind)
}

// Port addresses one input or output slot of a block.
type Port struct {
	Block *Block
	Index int
	Input bool
}

func (p Port) String() string {
	if p.Block == nil {
		return "<nil>"
	}
	dir := "out"
	if p.Input {
		dir = "in"
	}
	return fmt.Sprintf("%s.%s[%d]", p.Block.Name, dir, p.Index)
}

// Wire is a directed connection from an output port to an input port.
type Wire struct {
	From Port
	To   Port
}

func (w Wire) String() string {
	return fmt.Sprintf("%s -> %s", w.From, w.To)
}
