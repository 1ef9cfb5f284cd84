package app

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/vk/arterialgo/internal/debugtap"
	"github.com/vk/arterialgo/internal/results"
	"github.com/vk/arterialgo/internal/sweep"
	"gopkg.in/yaml.v3"
)

// Output formats accepted by DebugDB and Runs.
const (
	FormatTable = "table"
	FormatYAML  = "yaml"
	FormatJSON  = "json"
)

type debugReport struct {
	Run      string                            `json:"run" yaml:"run"`
	ID       string                            `json:"id" yaml:"id"`
	Segments map[int]map[string]debugtap.Stats `json:"segments" yaml:"segments"`
}

func encode(w io.Writer, format string, v any) error {
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

func writeDebugTable(w io.Writer, summary map[int]map[string]debugtap.Stats) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SEGMENT\tPORT\tMIN\tMAX\tMEAN\tLAST")
	for _, seg := range slices.Sorted(maps.Keys(summary)) {
		ports := summary[seg]
		for _, port := range slices.Sorted(maps.Keys(ports)) {
			s := ports[port]
			fmt.Fprintf(tw, "%d\t%s\t%.6g\t%.6g\t%.6g\t%.6g\n", seg, port, s.Min, s.Max, s.Mean, s.Last)
		}
	}
	return tw.Flush()
}

func writeRunsTable(w io.Writer, runs []results.Summary) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tLABEL\tCREATED\tFREQUENCY\tSAMPLES\tSERIES")
	for _, r := range runs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%g\t%d\t%d\n",
			r.Seq, r.Label, r.CreatedAt.Format("2006-01-02 15:04:05"), r.Frequency, r.Samples, r.Series)
	}
	return tw.Flush()
}

func writeSweepTable(w io.Writer, outcomes []*sweep.Outcome, labels []string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FREQUENCY\tSAMPLES\tPROBES\tELAPSED\tRUN")
	for i, out := range outcomes {
		label := labels[i]
		if label == "" {
			label = "-"
		}
		fmt.Fprintf(tw, "%g\t%d\t%d\t%s\t%s\n",
			out.Frequency, len(out.Result.Time), len(out.Network.Probes), out.Elapsed.Round(time.Microsecond), label)
	}
	return tw.Flush()
}
