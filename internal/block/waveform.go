package block

import (
	"fmt"
	"math"
)

// Shape selects the periodic function emitted by a WAVEFORM block.
type Shape string

const (
	ShapeSine     Shape = "sine"
	ShapeSquare   Shape = "square"
	ShapeTriangle Shape = "triangle"
)

// ParseShape converts a configuration string into a Shape. The empty string
// selects the sine wave.
func ParseShape(s string) (Shape, error) {
	switch Shape(s) {
	case "", ShapeSine:
		return ShapeSine, nil
	case ShapeSquare, ShapeTriangle:
		return Shape(s), nil
	default:
		return "", fmt.Errorf("unknown waveform %q: must be one of %q, %q or %q", s, ShapeSine, ShapeSquare, ShapeTriangle)
	}
}

// Eval returns the unit-amplitude value of the wave at time t for the given
// frequency in Hz. All shapes span [-1, 1].
func (s Shape) Eval(t, frequency float64) float64 {
	phase := t * frequency
	phase -= math.Floor(phase)
	switch s {
	case ShapeSquare:
		if phase < 0.5 {
			return 1
		}
		return -1
	case ShapeTriangle:
		if phase < 0.5 {
			return 4*phase - 1
		}
		return 3 - 4*phase
	default:
		return math.Sin(2 * math.Pi * phase)
	}
}
