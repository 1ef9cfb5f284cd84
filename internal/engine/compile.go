package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vk/arterialgo/internal/block"
	"github.com/vk/arterialgo/internal/ctxlog"
)

// ErrAlgebraicLoop is returned when direct-feedthrough blocks form a cycle.
var ErrAlgebraicLoop = errors.New("algebraic loop")

// node is one primitive block instance of the flattened program.
type node struct {
	block *block.Block
	path  string
	// inputs holds, per input port, the index of the node producing it.
	inputs []int
}

// frame is one diagram instance during flattening.
type frame struct {
	d        *block.Diagram
	path     string
	parent   *frame
	owner    *block.Block
	nodes    map[*block.Block]int
	children map[*block.Block]*frame
}

// Program is a compiled, flattened diagram ready to be integrated.
type Program struct {
	nodes []node
	// order lists the feedthrough nodes in evaluation order.
	order []int
	// states lists the integrator nodes; position is the state index.
	states []int
	// sinks lists the sink nodes in creation order.
	sinks []int
}

// Compile flattens the diagram and prepares the evaluation order.
func Compile(ctx context.Context, d *block.Diagram) (*Program, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Compile: flattening diagram.", "diagram", d.Name)

	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("compile %q: %w", d.Name, err)
	}

	p := &Program{}
	root := p.instantiate(d, "", nil, nil)

	if err := p.resolveInputs(root); err != nil {
		return nil, fmt.Errorf("compile %q: %w", d.Name, err)
	}
	if err := p.sortFeedthrough(); err != nil {
		return nil, fmt.Errorf("compile %q: %w", d.Name, err)
	}

	logger.Debug("Compile: program ready.",
		"nodes", len(p.nodes), "states", len(p.states), "sinks", len(p.sinks))
	return p, nil
}

// instantiate creates nodes for every primitive block of d and recurses into
// subsystems. Relays (inports, outports, subsystem blocks) produce no nodes.
func (p *Program) instantiate(d *block.Diagram, path string, parent *frame, owner *block.Block) *frame {
	f := &frame{
		d:        d,
		path:     path,
		parent:   parent,
		owner:    owner,
		nodes:    make(map[*block.Block]int),
		children: make(map[*block.Block]*frame),
	}
	for _, b := range d.Blocks() {
		switch b.Kind {
		case block.KindInPort, block.KindOutPort:
			continue
		case block.KindSubsystem:
			f.children[b] = p.instantiate(b.Inner, joinPath(path, b.Name), f, b)
			continue
		}
		idx := len(p.nodes)
		p.nodes = append(p.nodes, node{
			block:  b,
			path:   joinPath(path, b.Name),
			inputs: make([]int, b.NumInputs()),
		})
		f.nodes[b] = idx
		switch b.Kind {
		case block.KindIntegrator:
			p.states = append(p.states, idx)
		case block.KindSink:
			p.sinks = append(p.sinks, idx)
		}
	}
	return f
}

func (p *Program) resolveInputs(f *frame) error {
	for b, idx := range f.nodes {
		for i := 0; i < b.NumInputs(); i++ {
			drv, ok := f.d.Driver(b.In(i))
			if !ok {
				return fmt.Errorf("%s: %w", b.In(i), block.ErrUnconnectedInput)
			}
			src, err := p.resolve(f, drv, 0)
			if err != nil {
				return fmt.Errorf("%s: %w", joinPath(f.path, b.In(i).String()), err)
			}
			p.nodes[idx].inputs[i] = src
		}
	}
	for _, child := range f.children {
		if err := p.resolveInputs(child); err != nil {
			return err
		}
	}
	return nil
}

// resolve follows an output port through subsystem and port relays until it
// reaches a primitive block.
func (p *Program) resolve(f *frame, port block.Port, depth int) (int, error) {
	if depth > len(p.nodes)+64 {
		return 0, fmt.Errorf("relay loop at %s", port)
	}
	switch port.Block.Kind {
	case block.KindSubsystem:
		child := f.children[port.Block]
		out := child.d.OutPortBlock()
		if out == nil {
			return 0, fmt.Errorf("subsystem %q has no outport", port.Block.Name)
		}
		drv, ok := child.d.Driver(out.In(port.Index))
		if !ok {
			return 0, fmt.Errorf("%s: %w", out.In(port.Index), block.ErrUnconnectedInput)
		}
		return p.resolve(child, drv, depth+1)
	case block.KindInPort:
		if f.parent == nil {
			return 0, fmt.Errorf("inport %q of top-level diagram has no source", port.Block.Name)
		}
		drv, ok := f.parent.d.Driver(f.owner.In(port.Index))
		if !ok {
			return 0, fmt.Errorf("%s: %w", f.owner.In(port.Index), block.ErrUnconnectedInput)
		}
		return p.resolve(f.parent, drv, depth+1)
	default:
		idx, ok := f.nodes[port.Block]
		if !ok {
			return 0, fmt.Errorf("block %q not found in %q", port.Block.Name, f.d.Name)
		}
		return idx, nil
	}
}

// sortFeedthrough orders the feedthrough nodes depth-first so each one follows
// the feedthrough nodes it reads from.
func (p *Program) sortFeedthrough() error {
	visiting := make(map[int]bool)
	visited := make(map[int]bool)

	var visit func(idx int) error
	visit = func(idx int) error {
		visiting[idx] = true
		for _, src := range p.nodes[idx].inputs {
			if !p.nodes[src].block.Kind.Feedthrough() {
				continue
			}
			if visiting[src] {
				return fmt.Errorf("%w involving %q", ErrAlgebraicLoop, p.nodes[src].path)
			}
			if !visited[src] {
				if err := visit(src); err != nil {
					return err
				}
			}
		}
		delete(visiting, idx)
		visited[idx] = true
		p.order = append(p.order, idx)
		return nil
	}

	for idx := range p.nodes {
		if !p.nodes[idx].block.Kind.Feedthrough() || visited[idx] {
			continue
		}
		if err := visit(idx); err != nil {
			return err
		}
	}
	return nil
}

// NumStates returns the number of integrator states.
func (p *Program) NumStates() int { return len(p.states) }

// NumNodes returns the number of primitive blocks in the program.
func (p *Program) NumNodes() int { return len(p.nodes) }

// Sinks returns the paths of the recorded sinks in creation order.
func (p *Program) Sinks() []string {
	out := make([]string, len(p.sinks))
	for i, idx := range p.sinks {
		out[i] = p.nodes[idx].path
	}
	return out
}

func joinPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return strings.Join([]string{prefix, name}, "/")
}
