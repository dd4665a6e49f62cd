package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/AnyUserName/imgtool/internal/codec"
	"github.com/AnyUserName/imgtool/internal/engine"
)

func completed(t *testing.T, dir, name string, original int64, content string) engine.Record {
	t.Helper()
	out := filepath.Join(dir, name)
	if err := os.WriteFile(out, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	size := int64(len(content))
	return engine.Record{
		ID:            "id-" + name,
		SourcePath:    filepath.Join(dir, "src-"+name),
		OriginalSize:  original,
		Status:        engine.StatusCompleted,
		ProcessedSize: &size,
		OutputPath:    out,
		OutputFormat:  codec.JPEG,
	}
}

func sampleReport(t *testing.T, dir string) *Report {
	t.Helper()
	r := New(OpCompress)
	r.Quality = 0.8
	r.RunInfo = &RunInfo{Workers: 2, Encoders: "encoders: jpeg (imaging)"}

	recs := []engine.Record{
		completed(t, dir, "a.jpg", 1000, "compressed-a"),
		{ID: "id-b", SourcePath: filepath.Join(dir, "b.gif"), OriginalSize: 50, Status: engine.StatusFailed, Error: "unsupported image format"},
		{ID: "id-c", SourcePath: filepath.Join(dir, "c.png"), OriginalSize: 70, Status: engine.StatusPending},
	}
	for _, rec := range recs {
		if err := r.Add(rec); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	return r
}

func TestReportRoundtrip(t *testing.T) {
	dir := t.TempDir()
	r := sampleReport(t, dir)

	path := filepath.Join(dir, "report.json")
	if err := WriteJSON(r, path); err != nil {
		t.Fatalf("write: %v", err)
	}
	r2, err := ReadJSON(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	if r2.Version != SupportedVersion || r2.Operation != OpCompress || r2.Quality != 0.8 {
		t.Errorf("header: %+v", r2)
	}
	if r2.RunInfo == nil || r2.RunInfo.Workers != 2 {
		t.Error("run_info not preserved")
	}
	if len(r2.Entries) != 3 {
		t.Fatalf("entries: got %d", len(r2.Entries))
	}
	a := r2.Entries[0]
	if a.Status != "completed" || a.ProcessedSize == nil || *a.ProcessedSize != 12 || len(a.Hash) != HashLen {
		t.Errorf("completed entry: %+v", a)
	}
	if b := r2.Entries[1]; b.Output != "" || b.Hash != "" || b.Error == "" {
		t.Errorf("failed entry: %+v", b)
	}

	want := Stats{TotalFiles: 3, Completed: 1, Failed: 1, Pending: 1, TotalInputBytes: 1000, TotalOutputBytes: 12, SavedBytes: 988}
	if r2.Stats != want {
		t.Errorf("stats: got %+v, want %+v", r2.Stats, want)
	}
	if errs := Validate(r2); len(errs) != 0 {
		t.Errorf("validate: %v", errs)
	}
}

func TestValidateDetectsChangedOutputs(t *testing.T) {
	dir := t.TempDir()
	r := New(OpConvert)
	r.Target = "jpeg"
	for _, rec := range []engine.Record{
		completed(t, dir, "gone.jpg", 100, "xxxx"),
		completed(t, dir, "resized.jpg", 100, "xxxx"),
		completed(t, dir, "edited.jpg", 100, "xxxx"),
	} {
		if err := r.Add(rec); err != nil {
			t.Fatal(err)
		}
	}
	r.ComputeStats()

	os.Remove(filepath.Join(dir, "gone.jpg"))
	os.WriteFile(filepath.Join(dir, "resized.jpg"), []byte("xxxxxxxx"), 0o644)
	os.WriteFile(filepath.Join(dir, "edited.jpg"), []byte("yyyy"), 0o644)

	errs := Validate(r)
	joined := strings.Join(errs, "\n")
	for _, want := range []string{"output not found", "size mismatch", "output changed"} {
		if !strings.Contains(joined, want) {
			t.Errorf("missing %q in:\n%s", want, joined)
		}
	}
}

func TestValidateStatsAndStatus(t *testing.T) {
	r := New(OpCompress)
	r.Entries = append(r.Entries,
		Entry{ID: "1", Source: "/a.png", Status: "failed"},
		Entry{ID: "1", Source: "/b.png", Status: "exploded"},
	)
	r.Stats.TotalFiles = 7

	joined := strings.Join(Validate(r), "\n")
	for _, want := range []string{"failed without error", "duplicate id", "unknown status", "stats mismatch"} {
		if !strings.Contains(joined, want) {
			t.Errorf("missing %q in:\n%s", want, joined)
		}
	}
}

func TestAddMissingOutput(t *testing.T) {
	size := int64(3)
	rec := engine.Record{
		ID:            "x",
		SourcePath:    "a.png",
		Status:        engine.StatusCompleted,
		ProcessedSize: &size,
		OutputPath:    filepath.Join(t.TempDir(), "missing.png"),
	}
	if err := New(OpCompress).Add(rec); err == nil {
		t.Error("expected error hashing a missing output")
	}
}

func TestReportIgnoresUnknownFields(t *testing.T) {
	// Simulate a future report with extra fields.
	raw := `{
		"version": 1,
		"generated_at": "2025-01-01T00:00:00Z",
		"operation": "convert",
		"target": "webp",
		"future_field": "should be ignored",
		"run_info": { "workers": 8, "encoders": "", "new_flag": true },
		"entries": [],
		"stats": { "total_files": 0, "new_stat": 42 }
	}`

	var r Report
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		t.Fatalf("unmarshal with unknown fields: %v", err)
	}
	if r.Target != "webp" || r.RunInfo == nil || r.RunInfo.Workers != 8 {
		t.Errorf("not parsed correctly: %+v", r)
	}
	if errs := Validate(&r); len(errs) != 0 {
		t.Errorf("validate: %v", errs)
	}
}
