package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/AnyUserName/imgtool/internal/codec"
	"github.com/AnyUserName/imgtool/internal/engine"
	"github.com/AnyUserName/imgtool/internal/report"
	"github.com/AnyUserName/imgtool/internal/settings"
	"github.com/AnyUserName/imgtool/internal/source"
)

// outputFlags are the flags shared by compress and convert.
type outputFlags struct {
	outDir     string
	replace    bool
	workers    int
	recursive  bool
	reportPath string
	strict     bool
	noExternal bool
}

func addOutputFlags(cmd *cobra.Command, f *outputFlags) {
	cmd.Flags().StringVarP(&f.outDir, "out-dir", "o", "", "write outputs into this directory")
	cmd.Flags().BoolVar(&f.replace, "replace", true, "replace original files (overrides settings)")
	cmd.Flags().IntVarP(&f.workers, "workers", "w", 0, "files processed at once (0 = settings)")
	cmd.Flags().BoolVarP(&f.recursive, "recursive", "r", false, "descend into subdirectories")
	cmd.Flags().StringVar(&f.reportPath, "report", "", "write a JSON report of the run to this path")
	cmd.Flags().BoolVar(&f.strict, "strict", false, "exit non-zero if any file failed")
	cmd.Flags().BoolVar(&f.noExternal, "no-external", false, "do not use external encoders (cwebp)")
}

// apply overrides settings with the flags the user set.
func (f *outputFlags) apply(cmd *cobra.Command, s *settings.Settings) error {
	if cmd.Flags().Changed("replace") {
		s.ReplaceOriginalFiles = f.replace
	}
	if f.outDir != "" {
		dir, err := settings.ExpandPath(f.outDir)
		if err != nil {
			return fmt.Errorf("resolve output dir: %w", err)
		}
		s.UseCustomOutput = true
		s.CustomOutputPath = dir
	}
	if f.workers < 0 {
		return errors.New("--workers must not be negative")
	}
	if f.workers > 0 {
		s.Workers = f.workers
	}
	return nil
}

// batch is one compress or convert invocation.
type batch struct {
	op    string
	flags *outputFlags
	s     *settings.Settings
	log   *slog.Logger
	// start launches the run on the engine.
	start func(ctx context.Context, eng *engine.Engine, sess *engine.Session) (<-chan engine.Update, error)
	// describe fills in the operation-specific report header.
	describe func(r *report.Report)
}

func (b *batch) run(cmd *cobra.Command, args []string) error {
	started := time.Now()

	candidates, errs := source.Collect(args, b.flags.recursive)
	for _, err := range errs {
		b.log.Warn("skipping argument", "error", err)
	}
	if len(candidates) == 0 {
		return errors.New("no image files found")
	}

	eng := engine.New(engine.Options{
		Registry:           codec.NewRegistry(codec.WithExternalEncoders(!b.flags.noExternal)),
		Logger:             b.log,
		Workers:            b.s.Workers,
		FileTimeout:        b.s.FileTimeout(),
		LegacyWebPFallback: b.s.LegacyWebPFallback,
	})
	b.log.Debug("encoders", "available", eng.Registry().String())

	sess := engine.NewSession(b.log)
	entries := make([]engine.Entry, len(candidates))
	for i, c := range candidates {
		entries[i] = engine.Entry{Path: c.Path, Size: c.Size}
	}
	sess.SubmitEntries(entries)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	updates, err := b.start(ctx, eng, sess)
	if err != nil {
		return err
	}

	bar := b.progress(sess.Len())
	for u := range updates {
		if bar == nil {
			continue
		}
		switch u.Record.Status {
		case engine.StatusProcessing:
			bar.Describe(truncKey(filepath.Base(u.Record.SourcePath), 30))
		case engine.StatusCompleted, engine.StatusFailed:
			bar.Add(1)
		}
	}
	if bar != nil {
		bar.Finish()
	}

	records := sess.Records()
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, renderTable(
		[]string{"File", "Status", "Original", "Output", "Saved", "Note"},
		resultRows(records),
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
		isTerminal(out),
	))
	printSummary(cmd, records, time.Since(started))

	if ctx.Err() != nil {
		b.log.Warn("interrupted", "pending", countStatus(records, engine.StatusPending))
	}

	if b.flags.reportPath != "" {
		if err := b.writeReport(eng, records); err != nil {
			return err
		}
	}

	if failed := countStatus(records, engine.StatusFailed); b.flags.strict && failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(records))
	}
	return nil
}

// progress returns a progress bar on terminals, nil otherwise.
func (b *batch) progress(total int) *progressbar.ProgressBar {
	if !isTerminal(os.Stderr) {
		return nil
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription(b.op),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionClearOnFinish(),
	)
}

func (b *batch) writeReport(eng *engine.Engine, records []engine.Record) error {
	r := report.New(b.op)
	b.describe(r)
	r.RunInfo = &report.RunInfo{Workers: b.s.Workers, Encoders: eng.Registry().String()}
	for _, rec := range records {
		if err := r.Add(rec); err != nil {
			b.log.Warn("report entry", "source", rec.SourcePath, "error", err)
		}
	}
	if err := report.WriteJSON(r, b.flags.reportPath); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	b.log.Info("report written", "path", b.flags.reportPath)
	return nil
}

func resultRows(records []engine.Record) [][]string {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		row := []string{
			truncKey(filepath.Base(r.SourcePath), 40),
			r.Status.String(),
			humanize.IBytes(uint64(r.OriginalSize)),
			"",
			"",
			"",
		}
		switch r.Status {
		case engine.StatusCompleted:
			row[3] = humanize.IBytes(uint64(*r.ProcessedSize))
			if pct, ok := r.Ratio(); ok {
				row[4] = fmt.Sprintf("%.1f%%", pct)
			}
			if r.Fallback {
				row[5] = string(r.OutputFormat) + " bytes"
			}
		case engine.StatusFailed:
			row[5] = r.Error
		}
		rows = append(rows, row)
	}
	return rows
}

func printSummary(cmd *cobra.Command, records []engine.Record, elapsed time.Duration) {
	var in, out int64
	for _, r := range records {
		if r.Status == engine.StatusCompleted {
			in += r.OriginalSize
			out += *r.ProcessedSize
		}
	}
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "\n  Completed: %d  Failed: %d  Pending: %d\n",
		countStatus(records, engine.StatusCompleted),
		countStatus(records, engine.StatusFailed),
		countStatus(records, engine.StatusPending))
	if in > 0 {
		fmt.Fprintf(w, "  Size:      %s → %s (%.1f%% of original)\n",
			humanize.IBytes(uint64(in)), humanize.IBytes(uint64(out)), float64(out)/float64(in)*100)
	}
	fmt.Fprintf(w, "  Time:      %s\n\n", elapsed.Round(time.Millisecond))
}

func countStatus(records []engine.Record, s engine.Status) int {
	n := 0
	for _, r := range records {
		if r.Status == s {
			n++
		}
	}
	return n
}

// truncKey shortens s to at most max runes, keeping its tail.
func truncKey(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return "..." + string(r[len(r)-max+3:])
}
