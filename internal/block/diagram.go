package block

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidPort is returned when a wire references a port outside the
	// block's arity, the wrong direction, or a block of another diagram.
	ErrInvalidPort = errors.New("invalid port")
	// ErrInputDriven is returned when an input port already has a driver.
	ErrInputDriven = errors.New("input port already driven")
	// ErrUnconnectedInput is returned by Validate for any undriven input.
	ErrUnconnectedInput = errors.New("unconnected input port")
)

// Diagram is a collection of blocks and the wires between them.
type Diagram struct {
	Name string

	blocks  []*Block
	byName  map[string]*Block
	wires   []Wire
	drivers map[Port]Port

	inport  *Block
	outport *Block
}

// New creates an empty diagram.
func New(name string) *Diagram {
	return &Diagram{
		Name:    name,
		byName:  make(map[string]*Block),
		drivers: make(map[Port]Port),
	}
}

// add registers a block. Block names are unique per diagram; a clash is a
// programming error in the caller, so it panics.
func (d *Diagram) add(b *Block) *Block {
	if _, exists := d.byName[b.Name]; exists {
		panic(fmt.Sprintf("block: duplicate block name %q in diagram %q", b.Name, d.Name))
	}
	b.ID = len(d.blocks)
	b.owner = d
	d.blocks = append(d.blocks, b)
	d.byName[b.Name] = b
	return b
}

// InPort creates the diagram's input relay with n outputs. Each output
// carries the matching input of the Subsystem wrapping this diagram.
func (d *Diagram) InPort(n int, name string) *Block {
	if d.inport != nil {
		panic(fmt.Sprintf("block: diagram %q already has an inport", d.Name))
	}
	d.inport = d.add(&Block{Name: name, Kind: KindInPort, nOut: n})
	return d.inport
}

// OutPort creates the diagram's output relay with n inputs.
func (d *Diagram) OutPort(n int, name string) *Block {
	if d.outport != nil {
		panic(fmt.Sprintf("block: diagram %q already has an outport", d.Name))
	}
	d.outport = d.add(&Block{Name: name, Kind: KindOutPort, nIn: n})
	return d.outport
}

// Gain creates a block computing k*u.
func (d *Diagram) Gain(k float64, name string) *Block {
	return d.add(&Block{Name: name, Kind: KindGain, nIn: 1, nOut: 1, Gain: k})
}

// Sum creates a summing junction. Each character of signs is '+' or '-' and
// sets the sign applied to the matching input.
func (d *Diagram) Sum(signs string, name string) *Block {
	if signs == "" || strings.Trim(signs, "+-") != "" {
		panic(fmt.Sprintf("block: invalid sum signs %q for %q", signs, name))
	}
	return d.add(&Block{Name: name, Kind: KindSum, nIn: len(signs), nOut: 1, Signs: signs})
}

// Integrator creates a continuous-time integrator with initial state x0.
func (d *Diagram) Integrator(x0 float64, name string) *Block {
	return d.add(&Block{Name: name, Kind: KindIntegrator, nIn: 1, nOut: 1, X0: x0})
}

// Clip creates a block limiting its input to the closed interval [min, max].
func (d *Diagram) Clip(min, max float64, name string) *Block {
	return d.add(&Block{Name: name, Kind: KindClip, nIn: 1, nOut: 1, Min: min, Max: max})
}

// Constant creates a source emitting v for all time.
func (d *Diagram) Constant(v float64, name string) *Block {
	return d.add(&Block{Name: name, Kind: KindConstant, nOut: 1, Value: v})
}

// Waveform creates a periodic source.
func (d *Diagram) Waveform(shape Shape, frequency float64, name string) *Block {
	return d.add(&Block{Name: name, Kind: KindWaveform, nOut: 1, Shape: shape, Frequency: frequency})
}

// Function creates a block applying fn to its input.
func (d *Diagram) Function(fn func(float64) float64, name string) *Block {
	return d.add(&Block{Name: name, Kind: KindFunction, nIn: 1, nOut: 1, Fn: fn})
}

// Sink creates a named observation point that records its input.
func (d *Diagram) Sink(name string) *Block {
	return d.add(&Block{Name: name, Kind: KindSink, nIn: 1})
}

// Subsystem wraps inner as an opaque block whose inputs and outputs are the
// inner diagram's InPort outputs and OutPort inputs.
func (d *Diagram) Subsystem(inner *Diagram, name string) (*Block, error) {
	if inner == nil {
		return nil, fmt.Errorf("subsystem %q: nil diagram", name)
	}
	if inner == d {
		return nil, fmt.Errorf("subsystem %q: diagram cannot contain itself", name)
	}
	b := &Block{Name: name, Kind: KindSubsystem, Inner: inner}
	if inner.inport != nil {
		b.nIn = inner.inport.nOut
	}
	if inner.outport != nil {
		b.nOut = inner.outport.nIn
	}
	return d.add(b), nil
}

// Connect wires the output port from to every input port in to.
func (d *Diagram) Connect(from Port, to ...Port) error {
	if err := d.checkPort(from, false); err != nil {
		return err
	}
	for _, dst := range to {
		if err := d.checkPort(dst, true); err != nil {
			return err
		}
		if prev, driven := d.drivers[dst]; driven {
			return fmt.Errorf("%w: %s is driven by %s, cannot also connect %s", ErrInputDriven, dst, prev, from)
		}
		d.drivers[dst] = from
		d.wires = append(d.wires, Wire{From: from, To: dst})
	}
	return nil
}

func (d *Diagram) checkPort(p Port, input bool) error {
	if p.Block == nil {
		return fmt.Errorf("%w: nil block", ErrInvalidPort)
	}
	if p.Block.owner != d {
		return fmt.Errorf("%w: block %q does not belong to diagram %q", ErrInvalidPort, p.Block.Name, d.Name)
	}
	if p.Input != input {
		want := "output"
		if input {
			want = "input"
		}
		return fmt.Errorf("%w: %s is not an %s port", ErrInvalidPort, p, want)
	}
	limit := p.Block.nOut
	if input {
		limit = p.Block.nIn
	}
	if p.Index < 0 || p.Index >= limit {
		return fmt.Errorf("%w: %s out of range, block %q has %d", ErrInvalidPort, p, p.Block.Name, limit)
	}
	return nil
}

// Driver returns the output port feeding the given input port.
func (d *Diagram) Driver(to Port) (Port, bool) {
	p, ok := d.drivers[to]
	return p, ok
}

// Block looks a block up by name.
func (d *Diagram) Block(name string) (*Block, bool) {
	b, ok := d.byName[name]
	return b, ok
}

// Blocks returns the blocks in creation order.
func (d *Diagram) Blocks() []*Block {
	out := make([]*Block, len(d.blocks))
	copy(out, d.blocks)
	return out
}

// Wires returns the wires in creation order.
func (d *Diagram) Wires() []Wire {
	out := make([]Wire, len(d.wires))
	copy(out, d.wires)
	return out
}

// InPortBlock returns the diagram's input relay, if any.
func (d *Diagram) InPortBlock() *Block { return d.inport }

// OutPortBlock returns the diagram's output relay, if any.
func (d *Diagram) OutPortBlock() *Block { return d.outport }

// Validate checks that every input port of every block is driven, descending
// into subsystems.
func (d *Diagram) Validate() error {
	var missing []string
	for _, b := range d.blocks {
		for i := 0; i < b.nIn; i++ {
			if _, ok := d.drivers[b.In(i)]; !ok {
				missing = append(missing, b.In(i).String())
			}
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("diagram %q: %w: %s", d.Name, ErrUnconnectedInput, strings.Join(missing, ", "))
	}
	for _, b := range d.blocks {
		if b.Kind == KindSubsystem {
			if err := b.Inner.Validate(); err != nil {
				return fmt.Errorf("subsystem %q: %w", b.Name, err)
			}
		}
	}
	return nil
}
