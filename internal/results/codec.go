package results

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/golang/snappy"
)

// encodeSeries packs values as little-endian float64s and compresses them.
func encodeSeries(values []float64) []byte {
	raw := make([]byte, 8*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint64(raw[8*i:], math.Float64bits(v))
	}
	return snappy.Encode(nil, raw)
}

// decodeSeries reverses encodeSeries.
func decodeSeries(blob []byte) ([]float64, error) {
	raw, err := snappy.Decode(nil, blob)
	if err != nil {
		return nil, fmt.Errorf("decompress series: %w", err)
	}
	if len(raw)%8 != 0 {
		return nil, fmt.Errorf("corrupt series: %d bytes is not a multiple of 8", len(raw))
	}
	values := make([]float64, len(raw)/8)
	for i := range values {
		values[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw[8*i:]))
	}
	return values, nil
}
