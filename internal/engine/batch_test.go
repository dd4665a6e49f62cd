package engine

import (
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/AnyUserName/imgtool/internal/codec"
)

func TestSession_SubmitDedupes(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.png")
	writePNG(t, a)

	s := NewSession(nil)
	first := s.Submit([]string{a})
	if len(first) != 1 || first[0].Status != StatusPending || first[0].ID == "" {
		t.Fatalf("first submit: %+v", first)
	}
	if first[0].OriginalSize <= 0 {
		t.Errorf("size not recorded: %d", first[0].OriginalSize)
	}

	again := s.Submit([]string{a, filepath.Join(dir, ".", "a.png")})
	if len(again) != 0 || s.Len() != 1 {
		t.Errorf("duplicate accepted: added %d, len %d", len(again), s.Len())
	}
}

func TestSession_SubmitSkipsUnreadable(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.png")
	writePNG(t, a)

	s := NewSession(nil)
	added := s.Submit([]string{filepath.Join(dir, "missing.png"), dir, a})
	if len(added) != 1 || added[0].SourcePath != a {
		t.Fatalf("got %+v, want only a.png", added)
	}
}

func TestSession_ResetAndClear(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.png")
	writePNG(t, a)

	s := NewSession(nil)
	s.Submit([]string{a})
	drain(mustRun(t)(testEngine(1).RunCompression(context.Background(), s, 0.8, OutputPolicy{AppendSuffix: true, Suffix: "-c"})))

	recs := s.Records()
	if recs[0].Status != StatusCompleted {
		t.Fatalf("status: got %s", recs[0].Status)
	}
	if n := s.Reset(); n != 1 {
		t.Errorf("Reset: got %d", n)
	}
	r, _ := s.Get(recs[0].ID)
	if r.Status != StatusPending || r.ProcessedSize != nil || r.OutputPath != "" {
		t.Errorf("after reset: %+v", r)
	}

	s.Clear()
	if s.Len() != 0 {
		t.Errorf("Clear left %d records", s.Len())
	}
	if _, ok := s.Get(recs[0].ID); ok {
		t.Error("cleared record still retrievable")
	}
}

// mustRun fails the test if starting a run failed, otherwise it returns the
// update channel.
func mustRun(t *testing.T) func(<-chan Update, error) <-chan Update {
	return func(ch <-chan Update, err error) <-chan Update {
		t.Helper()
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		return ch
	}
}

func TestRunCompression_FailureIsolation(t *testing.T) {
	for _, workers := range []int{1, 4} {
		t.Run(map[int]string{1: "sequential", 4: "parallel"}[workers], func(t *testing.T) {
			dir := t.TempDir()
			a := filepath.Join(dir, "a.png")
			b := filepath.Join(dir, "b.png")
			c := filepath.Join(dir, "c.jpg")
			writePNG(t, a)
			writeFile(t, b, "corrupt")
			writeJPEG(t, c)

			s := NewSession(nil)
			s.Submit([]string{a, b, c})
			updates := drain(mustRun(t)(testEngine(workers).RunCompression(context.Background(), s, 0.8,
				OutputPolicy{AppendSuffix: true, Suffix: "-compressed"})))

			if len(updates) != 6 {
				t.Errorf("updates: got %d, want 6", len(updates))
			}
			want := []Status{StatusCompleted, StatusFailed, StatusCompleted}
			for i, r := range s.Records() {
				if r.Status != want[i] {
					t.Errorf("%s: got %s, want %s", filepath.Base(r.SourcePath), r.Status, want[i])
				}
				if (r.ProcessedSize != nil) != (r.Status == StatusCompleted) {
					t.Errorf("%s: processed size %v with status %s", filepath.Base(r.SourcePath), r.ProcessedSize, r.Status)
				}
				if (r.Error != "") != (r.Status == StatusFailed) {
					t.Errorf("%s: error %q with status %s", filepath.Base(r.SourcePath), r.Error, r.Status)
				}
			}
			if failed := s.Records()[1]; !strings.Contains(failed.Error, "invalid or corrupted image file") {
				t.Errorf("error message: %q", failed.Error)
			}
		})
	}
}

func TestRunCompression_UpdateOrder(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for _, name := range []string{"1.png", "2.png", "3.png"} {
		p := filepath.Join(dir, name)
		writePNG(t, p)
		paths = append(paths, p)
	}

	s := NewSession(nil)
	s.Submit(paths)
	updates := drain(mustRun(t)(testEngine(1).RunCompression(context.Background(), s, 0.5,
		OutputPolicy{AppendSuffix: true, Suffix: "-c"})))

	for i, u := range updates {
		wantStatus := StatusProcessing
		if i%2 == 1 {
			wantStatus = StatusCompleted
		}
		if u.Index != i/2 || u.Total != 3 || u.Record.Status != wantStatus {
			t.Errorf("update %d: index %d total %d status %s", i, u.Index, u.Total, u.Record.Status)
		}
		if u.Record.SourcePath != paths[i/2] {
			t.Errorf("update %d: source %s", i, u.Record.SourcePath)
		}
	}
}

func TestRunCompression_UnsupportedLeavesNoOutput(t *testing.T) {
	dir := t.TempDir()
	gif := filepath.Join(dir, "anim.gif")
	writeFile(t, gif, "GIF89a")

	s := NewSession(nil)
	s.Submit([]string{gif})
	drain(mustRun(t)(testEngine(1).RunCompression(context.Background(), s, 0.8, OutputPolicy{ReplaceOriginal: true})))

	r := s.Records()[0]
	if r.Status != StatusFailed || !strings.Contains(r.Error, "unsupported image format") {
		t.Errorf("got %s %q", r.Status, r.Error)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("unexpected files: %v", entries)
	}
	data, _ := os.ReadFile(gif)
	if string(data) != "GIF89a" {
		t.Error("source modified")
	}
}

func TestRunCompression_SkipsTerminalRecords(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.png")
	writePNG(t, a)

	e := testEngine(1)
	s := NewSession(nil)
	s.Submit([]string{a})
	policy := OutputPolicy{AppendSuffix: true, Suffix: "-c"}
	drain(mustRun(t)(e.RunCompression(context.Background(), s, 0.8, policy)))

	second := drain(mustRun(t)(e.RunCompression(context.Background(), s, 0.8, policy)))
	if len(second) != 0 {
		t.Errorf("completed record processed again: %d updates", len(second))
	}
}

func TestRunCompression_Cancelled(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for _, name := range []string{"a.png", "b.png"} {
		p := filepath.Join(dir, name)
		writePNG(t, p)
		paths = append(paths, p)
	}

	s := NewSession(nil)
	s.Submit(paths)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	updates := drain(mustRun(t)(testEngine(1).RunCompression(ctx, s, 0.8, OutputPolicy{AppendSuffix: true, Suffix: "-c"})))
	if len(updates) != 0 {
		t.Errorf("cancelled run produced %d updates", len(updates))
	}
	for _, r := range s.Records() {
		if r.Status != StatusPending {
			t.Errorf("%s: got %s, want pending", filepath.Base(r.SourcePath), r.Status)
		}
	}
}

func TestRunCompression_CancelMidRun(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for _, name := range []string{"a.png", "b.png", "c.png"} {
		p := filepath.Join(dir, name)
		writePNG(t, p)
		paths = append(paths, p)
	}

	s := NewSession(nil)
	s.Submit(paths)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := mustRun(t)(testEngine(1).RunCompression(ctx, s, 0.8, OutputPolicy{AppendSuffix: true, Suffix: "-c"}))
	for u := range ch {
		if u.Record.Status == StatusProcessing && u.Index == 0 {
			cancel()
		}
	}

	for _, r := range s.Records() {
		if r.Status == StatusProcessing {
			t.Errorf("%s left processing", filepath.Base(r.SourcePath))
		}
	}
	if r := s.Records()[0]; r.Status != StatusCompleted {
		t.Errorf("in-flight file: got %s, want completed", r.Status)
	}
}

func TestRunCompression_InvalidQuality(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.png")
	writePNG(t, a)

	s := NewSession(nil)
	s.Submit([]string{a})
	if _, err := testEngine(1).RunCompression(context.Background(), s, 0.95, OutputPolicy{}); !errors.Is(err, ErrInvalidQuality) {
		t.Fatalf("got %v, want ErrInvalidQuality", err)
	}
	if r := s.Records()[0]; r.Status != StatusPending {
		t.Errorf("record touched: %s", r.Status)
	}
}

func TestRunConversion_OutputCollision(t *testing.T) {
	dir := t.TempDir()
	pngPath := filepath.Join(dir, "a.png")
	jpg := filepath.Join(dir, "a.jpeg")
	writePNG(t, pngPath)
	writeJPEG(t, jpg)

	s := NewSession(nil)
	s.Submit([]string{pngPath, jpg})
	drain(mustRun(t)(testEngine(1).RunConversion(context.Background(), s, codec.JPEG, OutputPolicy{})))

	recs := s.Records()
	if recs[0].Status != StatusCompleted || recs[0].OutputPath != filepath.Join(dir, "a.jpg") {
		t.Errorf("first: %+v", recs[0])
	}
	if recs[1].Status != StatusFailed || !strings.Contains(recs[1].Error, "already used") {
		t.Errorf("second: %s %q", recs[1].Status, recs[1].Error)
	}
}

func TestRunConversion_OutputOnOtherSource(t *testing.T) {
	dir := t.TempDir()
	pngPath := filepath.Join(dir, "a.png")
	jpg := filepath.Join(dir, "a.jpg")
	// Different sizes tell the two originals apart after the run.
	small := image.NewNRGBA(image.Rect(0, 0, 10, 10))
	f, err := os.Create(pngPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, small); err != nil {
		t.Fatal(err)
	}
	f.Close()
	writeJPEG(t, jpg)

	s := NewSession(nil)
	s.Submit([]string{pngPath, jpg})
	drain(mustRun(t)(testEngine(1).RunConversion(context.Background(), s, codec.JPEG, OutputPolicy{})))

	recs := s.Records()
	if recs[0].Status != StatusFailed || !strings.Contains(recs[0].Error, "already used") {
		t.Errorf("a.png: %s %q", recs[0].Status, recs[0].Error)
	}
	if recs[1].Status != StatusCompleted {
		t.Errorf("a.jpg: %s %q", recs[1].Status, recs[1].Error)
	}

	img, err := codec.Decode(jpg)
	if err != nil {
		t.Fatalf("decode a.jpg: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 48 || b.Dy() != 32 {
		t.Errorf("a.jpg holds a %dx%d image, want the original 48x32", b.Dx(), b.Dy())
	}
	if _, err := os.Stat(pngPath); err != nil {
		t.Errorf("a.png: %v", err)
	}
}

func TestRunConversion_UnsupportedTarget(t *testing.T) {
	s := NewSession(nil)
	if _, err := testEngine(1).RunConversion(context.Background(), s, codec.BMP, OutputPolicy{}); !errors.Is(err, codec.ErrUnsupportedFormat) {
		t.Fatalf("got %v", err)
	}
}

func TestRecord_Metrics(t *testing.T) {
	size := int64(250)
	r := Record{OriginalSize: 1000, ProcessedSize: &size}
	if d, ok := r.SizeDelta(); !ok || d != 750 {
		t.Errorf("SizeDelta: %d %v", d, ok)
	}
	if pct, ok := r.Ratio(); !ok || pct != 75 {
		t.Errorf("Ratio: %g %v", pct, ok)
	}
	if _, ok := (Record{OriginalSize: 0, ProcessedSize: &size}).Ratio(); ok {
		t.Error("ratio defined for empty original")
	}
	if _, ok := (Record{OriginalSize: 10}).SizeDelta(); ok {
		t.Error("delta defined without processed size")
	}
}

func TestRecord_Transitions(t *testing.T) {
	var r Record
	if err := r.complete(Result{}); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("pending → completed: %v", err)
	}
	if err := r.begin(); err != nil {
		t.Fatal(err)
	}
	if err := r.begin(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("processing → processing: %v", err)
	}
	if err := r.fail(errors.New("boom")); err != nil || r.Error != "boom" {
		t.Fatalf("fail: %v %q", err, r.Error)
	}
	if err := r.begin(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("failed → processing without reset: %v", err)
	}
}
