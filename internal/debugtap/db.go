package debugtap

import (
	"fmt"
	"maps"
	"slices"
)

// Probe records, at assembly time, which sink observes which tap of which
// segment. It replaces any recovery of identity from generated port names.
type Probe struct {
	Segment int    `json:"segment" yaml:"segment"`
	Port    string `json:"port" yaml:"port"`
	Sink    string `json:"sink" yaml:"sink"`
	Output  int    `json:"output" yaml:"output"`
}

// SinkName is the deterministic name of the sink observing a tap.
func SinkName(segment int, port string) string {
	return fmt.Sprintf("debug_%d_%s", segment, port)
}

// DB maps segment index to tap name to the recorded series.
type DB map[int]map[string][]float64

// BuildDB groups the recorded sink series by segment and tap using the probe
// records. A probe without a recorded series is an error.
func BuildDB(probes []Probe, series map[string][]float64) (DB, error) {
	db := make(DB)
	for _, p := range probes {
		values, ok := series[p.Sink]
		if !ok {
			return nil, fmt.Errorf("no series recorded for probe %q (segment %d, port %q)", p.Sink, p.Segment, p.Port)
		}
		ports, ok := db[p.Segment]
		if !ok {
			ports = make(map[string][]float64)
			db[p.Segment] = ports
		}
		ports[p.Port] = values
	}
	return db, nil
}

// Segments returns the instrumented segment indices in ascending order.
func (db DB) Segments() []int {
	return slices.Sorted(maps.Keys(db))
}

// Stats summarises one series.
type Stats struct {
	Min  float64 `json:"min" yaml:"min"`
	Max  float64 `json:"max" yaml:"max"`
	Mean float64 `json:"mean" yaml:"mean"`
	Last float64 `json:"last" yaml:"last"`
}

// Summarize computes Stats for a series. An empty series yields zero Stats.
func Summarize(values []float64) Stats {
	if len(values) == 0 {
		return Stats{}
	}
	s := Stats{Min: values[0], Max: values[0], Last: values[len(values)-1]}
	var sum float64
	for _, v := range values {
		s.Min = min(s.Min, v)
		s.Max = max(s.Max, v)
		sum += v
	}
	s.Mean = sum / float64(len(values))
	return s
}

// Summary reduces the whole database to per-tap statistics.
func (db DB) Summary() map[int]map[string]Stats {
	out := make(map[int]map[string]Stats, len(db))
	for seg, ports := range db {
		out[seg] = make(map[string]Stats, len(ports))
		for port, values := range ports {
			out[seg][port] = Summarize(values)
		}
	}
	return out
}
