package network

import (
	"fmt"
	"math/big"

	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// TopologyKind tags the shape of a segment's downstream connections.
type TopologyKind int

const (
	// Terminal vessels return no flow; their Fo is held at zero.
	Terminal TopologyKind = iota
	// Direct vessels feed exactly one child.
	Direct
	// Bifurcation vessels split into two or more children whose inflows are
	// summed into the parent's outflow.
	Bifurcation
)

func (k TopologyKind) String() string {
	switch k {
	case Terminal:
		return "terminal"
	case Direct:
		return "direct"
	case Bifurcation:
		return "bifurcation"
	default:
		return fmt.Sprintf("TopologyKind(%d)", int(k))
	}
}

// MarshalText renders the kind by name in reports.
func (k TopologyKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Topology is the resolved downstream shape of one segment.
type Topology struct {
	Kind TopologyKind
	// Children holds the child indices in declaration order; empty for
	// Terminal, one entry for Direct.
	Children []int
}

// ResolveTopology turns a declared connections value into a Topology. A null
// or absent value means no children. Only ordered collections (lists and
// tuples) of positive whole numbers are accepted.
func ResolveTopology(index int, raw cty.Value) (Topology, error) {
	if raw.IsNull() {
		return Topology{Kind: Terminal}, nil
	}
	invalid := func(format string, args ...any) (Topology, error) {
		return Topology{}, &InvalidConnectionError{
			Index:  index,
			Raw:    renderRaw(raw),
			Reason: fmt.Sprintf(format, args...),
		}
	}
	if !raw.IsWhollyKnown() {
		return invalid("value is not known")
	}

	ty := raw.Type()
	if !ty.IsListType() && !ty.IsTupleType() {
		return invalid("expected a list of segment indices, got %s", ty.FriendlyName())
	}

	children := make([]int, 0, raw.LengthInt())
	for it := raw.ElementIterator(); it.Next(); {
		pos, v := it.Element()
		i, _ := pos.AsBigFloat().Int64()
		if v.IsNull() {
			return invalid("element %d is null", i)
		}
		if v.Type() != cty.Number {
			return invalid("element %d is a %s, not a number", i, v.Type().FriendlyName())
		}
		child, ok := wholeNumber(v.AsBigFloat())
		if !ok || child < 1 {
			return invalid("element %d is not a positive whole number", i)
		}
		children = append(children, child)
	}

	switch len(children) {
	case 0:
		return Topology{Kind: Terminal}, nil
	case 1:
		return Topology{Kind: Direct, Children: children}, nil
	default:
		return Topology{Kind: Bifurcation, Children: children}, nil
	}
}

func wholeNumber(f *big.Float) (int, bool) {
	if !f.IsInt() {
		return 0, false
	}
	n, acc := f.Int64()
	if acc != big.Exact || n > int64(^uint32(0)>>1) {
		return 0, false
	}
	return int(n), true
}

// renderRaw formats a cty value for error messages.
func renderRaw(v cty.Value) string {
	if v.IsWhollyKnown() {
		if b, err := ctyjson.Marshal(v, v.Type()); err == nil {
			return string(b)
		}
	}
	return v.GoString()
}
