// Package debugtap defines the internal signals of an arterial segment that
// can be exposed as extra output ports, decides which segments carry them, and
// rebuilds the per-segment debug database from recorded probe series.
package debugtap

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Names of the internal segment signals that can be tapped.
const (
	PortPi    = "Pi"
	PortFo    = "Fo"
	PortRsFi  = "-Rs*Fi"
	PortNegFi = "-Fi"
	PortNegPo = "-Po"
	PortIntFi = "int_fi"
	PortIntPo = "int_po"
)

var vocabulary = []string{PortPi, PortFo, PortRsFi, PortNegFi, PortNegPo, PortIntFi, PortIntPo}

// ErrUnknownDebugPort is the sentinel wrapped by UnknownPortError.
var ErrUnknownDebugPort = errors.New("unknown debug port")

// UnknownPortError reports a requested tap name outside the vocabulary.
// Segment is zero when the name was rejected from the configured port list
// rather than for one segment.
type UnknownPortError struct {
	Segment   int
	Name      string
	Available []string
}

func (e *UnknownPortError) Error() string {
	msg := fmt.Sprintf("unknown debug port %q, available options: %s", e.Name, strings.Join(e.Available, ", "))
	if e.Segment == 0 {
		return msg
	}
	return fmt.Sprintf("segment %d: %s", e.Segment, msg)
}

func (e *UnknownPortError) Unwrap() error { return ErrUnknownDebugPort }

// Vocabulary returns the tappable signal names in their canonical order.
func Vocabulary() []string {
	return slices.Clone(vocabulary)
}

// Known reports whether name is a tappable signal.
func Known(name string) bool {
	return slices.Contains(vocabulary, name)
}

// Validate checks every requested port name for the given segment.
func Validate(segment int, ports []string) error {
	for _, name := range ports {
		if !Known(name) {
			return &UnknownPortError{Segment: segment, Name: name, Available: Vocabulary()}
		}
	}
	return nil
}

// Config selects which segments are instrumented and with which taps.
type Config struct {
	Enabled  bool
	ForIndex []int
	Ports    []string
}

// Instrumented reports whether the segment with the given index carries taps.
// A per-segment override, when set, wins over the global selection.
func (c Config) Instrumented(index int, override *bool) bool {
	if len(c.Ports) == 0 {
		return false
	}
	if override != nil {
		return *override
	}
	return c.Enabled && slices.Contains(c.ForIndex, index)
}

// TapsFor returns the ordered tap names for the segment, or nil.
func (c Config) TapsFor(index int, override *bool) []string {
	if !c.Instrumented(index, override) {
		return nil
	}
	return slices.Clone(c.Ports)
}
