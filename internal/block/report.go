package block

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
)

// Report writes a listing of all blocks and wires of the diagram, descending
// into subsystems after the top-level listing.
func (d *Diagram) Report(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "diagram %s: %d blocks, %d wires\n", d.Name, len(d.blocks), len(d.wires))
	fmt.Fprintln(tw, "ID\tNAME\tKIND\tIN\tOUT\tPARAMS")
	for _, b := range d.blocks {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%s\n", b.ID, b.Name, b.Kind, b.nIn, b.nOut, b.params())
	}
	fmt.Fprintln(tw, "\nFROM\tTO")
	for _, wire := range d.wires {
		fmt.Fprintf(tw, "%s\t%s\n", wire.From, wire.To)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	for _, b := range d.blocks {
		if b.Kind != KindSubsystem {
			continue
		}
		fmt.Fprintln(w)
		if err := b.Inner.Report(w); err != nil {
			return err
		}
	}
	return nil
}

// params renders the kind-specific parameters of a block for reports.
func (b *Block) params() string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'g', 6, 64) }
	switch b.Kind {
	case KindGain:
		return "k=" + f(b.Gain)
	case KindSum:
		return "signs=" + b.Signs
	case KindIntegrator:
		return "x0=" + f(b.X0)
	case KindClip:
		return fmt.Sprintf("min=%s max=%s", f(b.Min), f(b.Max))
	case KindConstant:
		return "value=" + f(b.Value)
	case KindWaveform:
		return fmt.Sprintf("shape=%s freq=%s", b.Shape, f(b.Frequency))
	case KindSubsystem:
		return "diagram=" + b.Inner.Name
	default:
		return ""
	}
}
