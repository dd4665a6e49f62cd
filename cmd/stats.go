package cmd

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/AnyUserName/imgtool/internal/report"
)

var statsTop int

var statsCmd = &cobra.Command{
	Use:   "stats <report.json>",
	Short: "Display statistics for a run report",
	Args:  cobra.ExactArgs(1),
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().IntVar(&statsTop, "top", 10, "number of largest savings to list")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	r, err := report.ReadJSON(args[0])
	if err != nil {
		return err
	}
	printStats(cmd.OutOrStdout(), r)
	return nil
}

func printStats(w io.Writer, r *report.Report) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  Report version:   %d\n", r.Version)
	fmt.Fprintf(w, "  Generated:        %s\n", r.GeneratedAt)
	switch r.Operation {
	case report.OpCompress:
		fmt.Fprintf(w, "  Operation:        compress (quality %.0f)\n", r.Quality*100)
	case report.OpConvert:
		fmt.Fprintf(w, "  Operation:        convert to %s\n", r.Target)
	default:
		fmt.Fprintf(w, "  Operation:        %s\n", r.Operation)
	}
	if r.RunInfo != nil {
		fmt.Fprintf(w, "  Workers:          %d\n", r.RunInfo.Workers)
		fmt.Fprintf(w, "  Encoders:         %s\n", r.RunInfo.Encoders)
	}
	fmt.Fprintln(w)

	s := r.Stats
	fmt.Fprintf(w, "  Files:            %d (completed %d, failed %d, pending %d)\n",
		s.TotalFiles, s.Completed, s.Failed, s.Pending)
	fmt.Fprintf(w, "  Input size:       %s\n", humanize.IBytes(uint64(s.TotalInputBytes)))
	fmt.Fprintf(w, "  Output size:      %s\n", humanize.IBytes(uint64(s.TotalOutputBytes)))
	if s.TotalInputBytes > 0 {
		ratio := float64(s.TotalOutputBytes) / float64(s.TotalInputBytes) * 100
		fmt.Fprintf(w, "  Compression:      %.1f%% of original\n", ratio)
	}
	fmt.Fprintln(w)

	// Per-format breakdown.
	type formatStat struct {
		count    int
		bytes    int64
		fallback int
	}
	formats := map[string]formatStat{}
	for _, e := range r.Entries {
		if e.Status != "completed" || e.ProcessedSize == nil {
			continue
		}
		fs := formats[e.OutputFormat]
		fs.count++
		fs.bytes += *e.ProcessedSize
		if e.Fallback {
			fs.fallback++
		}
		formats[e.OutputFormat] = fs
	}
	if len(formats) > 0 {
		names := make([]string, 0, len(formats))
		for f := range formats {
			names = append(names, f)
		}
		sort.Strings(names)
		fmt.Fprintln(w, "  Format breakdown:")
		for _, f := range names {
			fs := formats[f]
			line := fmt.Sprintf("    %-6s  %4d files  %s", f, fs.count, humanize.IBytes(uint64(fs.bytes)))
			if fs.fallback > 0 {
				line += fmt.Sprintf("  (%d under another extension)", fs.fallback)
			}
			fmt.Fprintln(w, line)
		}
		fmt.Fprintln(w)
	}

	// Largest savings.
	type saving struct {
		name  string
		saved int64
	}
	var savings []saving
	for _, e := range r.Entries {
		if e.Status == "completed" && e.ProcessedSize != nil {
			savings = append(savings, saving{filepath.Base(e.Source), e.OriginalSize - *e.ProcessedSize})
		}
	}
	sort.Slice(savings, func(i, j int) bool { return savings[i].saved > savings[j].saved })
	n := min(statsTop, len(savings))
	if n > 0 {
		fmt.Fprintf(w, "  Top %d savings:\n", n)
		for _, sv := range savings[:n] {
			sign := ""
			amount := sv.saved
			if amount < 0 {
				sign, amount = "+", -amount
			}
			fmt.Fprintf(w, "    %-40s %s%s\n", truncKey(sv.name, 40), sign, humanize.IBytes(uint64(amount)))
		}
		fmt.Fprintln(w)
	}

	// Failures.
	var failures []string
	for _, e := range r.Entries {
		if e.Status == "failed" {
			failures = append(failures, fmt.Sprintf("%s: %s", filepath.Base(e.Source), e.Error))
		}
	}
	if len(failures) > 0 {
		fmt.Fprintf(w, "  Failures (%d):\n", len(failures))
		for _, f := range failures {
			fmt.Fprintf(w, "    ⚠ %s\n", f)
		}
		fmt.Fprintln(w)
	}
}
