package network

import (
	"context"
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/vk/arterialgo/internal/config"
	"github.com/vk/arterialgo/internal/segment"
)

// randomTree turns draws in [0, 1) into a tree: segment i+2 hangs off one of
// the segments declared before it.
func randomTree(draws []float64) []*config.SegmentSpec {
	children := make(map[int][]int)
	for i, d := range draws {
		idx := i + 2
		parent := 1 + int(d*float64(idx-1))
		if parent >= idx {
			parent = idx - 1
		}
		children[parent] = append(children[parent], idx)
	}
	specs := make([]*config.SegmentSpec, 0, len(draws)+1)
	for idx := 1; idx <= len(draws)+1; idx++ {
		specs = append(specs, vessel(fmt.Sprintf("v%d", idx), idx, children[idx]...))
	}
	return specs
}

func TestNetworkInvariants(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)
	draws := gen.SliceOf(gen.Float64Range(0, 0.999))

	properties.Property("random trees assemble", prop.ForAll(
		func(d []float64) bool {
			_, err := NewAssembler(config.DefaultSettings()).Assemble(context.Background(), randomTree(d))
			return err == nil
		},
		draws,
	))

	properties.Property("root has one output, every other segment two", prop.ForAll(
		func(d []float64) bool {
			net, err := NewAssembler(config.DefaultSettings()).Assemble(context.Background(), randomTree(d))
			if err != nil {
				return false
			}
			for idx, seg := range net.Segments {
				want := 2
				if idx == segment.RootIndex {
					want = 1
				}
				if seg.Block.NumOutputs() != want {
					return false
				}
			}
			return true
		},
		draws,
	))

	properties.Property("junctions sum exactly their children in declared order", prop.ForAll(
		func(d []float64) bool {
			net, err := NewAssembler(config.DefaultSettings()).Assemble(context.Background(), randomTree(d))
			if err != nil {
				return false
			}
			bifurcations := 0
			for _, seg := range net.Segments {
				if seg.Topology.Kind == Bifurcation {
					bifurcations++
				}
			}
			if bifurcations != len(net.Junctions) {
				return false
			}
			for _, j := range net.Junctions {
				if j.Block.NumInputs() != len(j.Children) {
					return false
				}
				for slot, idx := range j.Children {
					from, ok := net.Diagram.Driver(j.Block.In(slot))
					if !ok || from != net.Segments[idx].Block.Out(segment.OutFi) {
						return false
					}
				}
			}
			return true
		},
		draws,
	))

	properties.Property("every leaf has a zero outflow source", prop.ForAll(
		func(d []float64) bool {
			net, err := NewAssembler(config.DefaultSettings()).Assemble(context.Background(), randomTree(d))
			if err != nil {
				return false
			}
			leaves := 0
			for _, seg := range net.Segments {
				if len(seg.Topology.Children) == 0 {
					leaves++
				}
			}
			return leaves == len(net.EdgesOf(EdgeTerminal))
		},
		draws,
	))

	properties.TestingRun(t)
}
