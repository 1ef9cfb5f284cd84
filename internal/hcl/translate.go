// This file translates the decoded HCL schema structs into the
// format-agnostic configuration model defined in the config package.

package hcl

import (
	"context"
	"fmt"
	"reflect"

	"github.com/vk/arterialgo/internal/config"
	"github.com/vk/arterialgo/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Positions of the fields of a segment row:
// (name, index, rs, l, c, rp_or_null, type, connections[, debug]).
const (
	rowName = iota
	rowIndex
	rowRs
	rowL
	rowC
	rowRp
	rowType
	rowConnections
	rowDebug
)

const (
	rowMinFields = rowConnections + 1
	rowMaxFields = rowDebug + 1
)

// translateSettings overlays the decoded file onto the default settings.
func translateSettings(f *settingsFile) config.Settings {
	s := config.DefaultSettings()
	if b := f.InitialConditions; b != nil {
		set(&s.InitialConditions.IntFi, b.IntFi)
		set(&s.InitialConditions.IntPo, b.IntPo)
	}
	if b := f.InputSignal; b != nil {
		set(&s.InputSignal.Frequency, b.Frequency)
		set(&s.InputSignal.Amplitude, b.Amplitude)
		set(&s.InputSignal.Baseline, b.Baseline)
		set(&s.InputSignal.Waveform, b.Waveform)
	}
	if b := f.Debugger; b != nil {
		set(&s.Debugger.Enabled, b.Enabled)
		if b.DebugForIndex != nil {
			s.Debugger.DebugForIndex = b.DebugForIndex
		}
		if b.PortList != nil {
			s.Debugger.PortList = b.PortList
		}
	}
	if b := f.Simulation; b != nil {
		set(&s.Simulation.TimeStep, b.TimeStep)
		set(&s.Simulation.SimulationTime, b.SimulationTime)
		set(&s.Simulation.Report, b.Report)
		set(&s.Simulation.Block, b.Block)
	}
	if b := f.Output; b != nil {
		set(&s.Output.SaveResults, b.SaveResults)
		set(&s.Output.Database, b.Database)
	}
	return s
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// translateBlock converts a `segment` block into a segment record.
func translateBlock(b *segmentBlock) (*config.SegmentSpec, error) {
	connections := cty.NullVal(cty.DynamicPseudoType)
	if b.Connections != nil {
		val, diags := b.Connections.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("segment %q: connections: %w", b.Name, diags)
		}
		connections = val
	}
	return &config.SegmentSpec{
		Name:        b.Name,
		Index:       b.Index,
		Rs:          b.Rs,
		L:           b.L,
		C:           b.C,
		Rp:          b.Rp,
		Type:        b.Type,
		Connections: connections,
		Debug:       b.Debug,
	}, nil
}

// translateRows converts the `segments` tuple into segment records.
func translateRows(ctx context.Context, rows cty.Value) ([]*config.SegmentSpec, error) {
	if rows.IsNull() {
		return nil, nil
	}
	if !rows.IsWhollyKnown() {
		return nil, fmt.Errorf("%w: segments: value is not known", config.ErrInvalidConfig)
	}
	ty := rows.Type()
	if !ty.IsTupleType() && !ty.IsListType() {
		return nil, fmt.Errorf("%w: segments: expected a list of rows, got %s", config.ErrInvalidConfig, ty.FriendlyName())
	}

	specs := make([]*config.SegmentSpec, 0, rows.LengthInt())
	for i, row := range rows.AsValueSlice() {
		spec, err := translateRow(ctx, row)
		if err != nil {
			return nil, fmt.Errorf("%w: segments[%d]: %w", config.ErrInvalidConfig, i, err)
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func translateRow(ctx context.Context, row cty.Value) (*config.SegmentSpec, error) {
	ty := row.Type()
	if row.IsNull() || (!ty.IsTupleType() && !ty.IsListType()) {
		return nil, fmt.Errorf("expected a row, got %s", ty.FriendlyName())
	}
	fields := row.AsValueSlice()
	if len(fields) < rowMinFields || len(fields) > rowMaxFields {
		return nil, fmt.Errorf("expected %d or %d fields, got %d", rowMinFields, rowMaxFields, len(fields))
	}

	spec := &config.SegmentSpec{Connections: fields[rowConnections]}
	required := []struct {
		name   string
		pos    int
		target any
	}{
		{"name", rowName, &spec.Name},
		{"index", rowIndex, &spec.Index},
		{"rs", rowRs, &spec.Rs},
		{"l", rowL, &spec.L},
		{"c", rowC, &spec.C},
	}
	for _, f := range required {
		if err := decode(ctx, fields[f.pos], f.target); err != nil {
			return nil, fmt.Errorf("%s: %w", f.name, err)
		}
	}

	if v := fields[rowRp]; !v.IsNull() {
		var rp float64
		if err := decode(ctx, v, &rp); err != nil {
			return nil, fmt.Errorf("rp: %w", err)
		}
		spec.Rp = &rp
	}
	if v := fields[rowType]; !v.IsNull() {
		if err := decode(ctx, v, &spec.Type); err != nil {
			return nil, fmt.Errorf("type: %w", err)
		}
	}
	if len(fields) > rowDebug && !fields[rowDebug].IsNull() {
		var debug bool
		if err := decode(ctx, fields[rowDebug], &debug); err != nil {
			return nil, fmt.Errorf("debug: %w", err)
		}
		spec.Debug = &debug
	}
	return spec, nil
}

// decode handles the conversion and decoding of a cty.Value into a Go pointer.
func decode(ctx context.Context, val cty.Value, goVal any) error {
	logger := ctxlog.FromContext(ctx)
	valPtr := reflect.ValueOf(goVal)
	if valPtr.Kind() != reflect.Ptr {
		return fmt.Errorf("target for decoding must be a pointer, got %T", goVal)
	}

	impliedType, err := gocty.ImpliedType(valPtr.Elem().Interface())
	if err != nil {
		return fmt.Errorf("cannot imply type of %s: %w", valPtr.Elem().Type(), err)
	}

	convertedVal, err := convert.Convert(val, impliedType)
	if err != nil {
		return fmt.Errorf("cannot convert %s to required type %s: %w", val.Type().FriendlyName(), impliedType.FriendlyName(), err)
	}
	if !val.Type().Equals(convertedVal.Type()) {
		logger.Debug("Implicitly converted value type.",
			"from", val.Type().FriendlyName(),
			"to", convertedVal.Type().FriendlyName(),
		)
	}

	return gocty.FromCtyValue(convertedVal, goVal)
}
