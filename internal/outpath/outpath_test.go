package outpath

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestResolve(t *testing.T) {
	custom := t.TempDir()
	cases := []struct {
		name   string
		source string
		suffix string
		newExt string
		policy Policy
		want   string
	}{
		{"suffix keeps extension", "/a/b/photo.heic", "-compressed", "", Policy{}, "/a/b/photo-compressed.heic"},
		{"conversion new extension", "/a/b/photo.png", "", "jpg", Policy{}, "/a/b/photo.jpg"},
		{"extension case preserved", "/a/b/IMG_1.JPG", "-small", "", Policy{}, "/a/b/IMG_1-small.JPG"},
		{"dotted new extension", "/a/b/photo.png", "", ".webp", Policy{}, "/a/b/photo.webp"},
		{"custom dir", "/a/b/photo.heic", "-compressed", "", Policy{UseCustomOutput: true, CustomOutputDir: custom}, filepath.Join(custom, "photo-compressed.heic")},
		{"custom dir disabled", "/a/b/photo.png", "", "jpg", Policy{CustomOutputDir: custom}, "/a/b/photo.jpg"},
		{"custom dir blank", "/a/b/photo.png", "", "jpg", Policy{UseCustomOutput: true, CustomOutputDir: "  "}, "/a/b/photo.jpg"},
		{"replace does not move", "/a/b/photo.png", "", "", Policy{ReplaceOriginal: true}, "/a/b/photo.png"},
		{"custom wins over replace", "/a/b/photo.png", "", "", Policy{ReplaceOriginal: true, UseCustomOutput: true, CustomOutputDir: custom}, filepath.Join(custom, "photo.png")},
	}

	r := NewResolver()
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			plan, err := r.Resolve(c.source, c.suffix, c.newExt, c.policy)
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if plan.Path != c.want {
				t.Errorf("got %q, want %q", plan.Path, c.want)
			}
		})
	}
}

func TestResolve_ReplacementModes(t *testing.T) {
	r := NewResolver()
	custom := t.TempDir()

	plan, _ := r.Resolve("/a/photo.png", "", "", Policy{ReplaceOriginal: true})
	if !plan.Replace || plan.RemoveSource {
		t.Errorf("in-place replace: got %+v", plan)
	}

	plan, _ = r.Resolve("/a/photo.png", "", "", Policy{ReplaceOriginal: true, UseCustomOutput: true, CustomOutputDir: custom})
	if plan.Replace || !plan.RemoveSource {
		t.Errorf("replace into custom dir: got %+v", plan)
	}

	plan, _ = r.Resolve("/a/photo.png", "-x", "", Policy{ReplaceOriginal: true})
	if plan.Replace || plan.RemoveSource {
		t.Errorf("suffix disables replacement: got %+v", plan)
	}

	plan, _ = r.Resolve("/a/photo.png", "", "jpg", Policy{ReplaceOriginal: true})
	if plan.Replace || plan.RemoveSource {
		t.Errorf("new extension disables replacement: got %+v", plan)
	}
}

func TestResolve_DoesNotTouchSource(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "photo.png")
	if err := os.WriteFile(src, []byte("original"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewResolver().Resolve(src, "", "", Policy{ReplaceOriginal: true}); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(src); err != nil {
		t.Errorf("source removed by Resolve: %v", err)
	}
}

func TestResolve_UnusableCustomDir(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	p := Policy{UseCustomOutput: true, CustomOutputDir: filepath.Join(blocker, "out")}

	_, err := NewResolver().Resolve("/a/photo.png", "", "", p)
	if !errors.Is(err, ErrOutputDir) {
		t.Fatalf("got %v, want ErrOutputDir", err)
	}
}

func TestResolve_CreatesCustomDir(t *testing.T) {
	out := filepath.Join(t.TempDir(), "nested", "out")
	p := Policy{UseCustomOutput: true, CustomOutputDir: out}
	if _, err := NewResolver().Resolve("/a/photo.png", "", "", p); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	entries, err := os.ReadDir(out)
	if err != nil {
		t.Fatalf("custom dir not created: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("probe file left behind: %v", entries)
	}
}

func TestWriteAtomic_ReplacesAndCleansUp(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "photo.jpg")
	if err := os.WriteFile(path, []byte("old"), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := WriteAtomic(path, []byte("new contents")); err != nil {
		t.Fatalf("WriteAtomic: %v", err)
	}
	got, _ := os.ReadFile(path)
	if string(got) != "new contents" {
		t.Errorf("contents: got %q", got)
	}
	info, _ := os.Stat(path)
	if info.Mode().Perm() != 0o600 {
		t.Errorf("mode: got %v, want 0600", info.Mode().Perm())
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("temp files left: %v", entries)
	}
}

func TestWriteAtomic_FailureKeepsDestination(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "missing-dir", "photo.jpg")
	if err := WriteAtomic(path, []byte("data")); err == nil {
		t.Fatal("expected error writing into missing directory")
	}
}

func TestLock_Serializes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "photo.jpg")
	unlock, err := Lock(context.Background(), path)
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if _, err := Lock(ctx, path); err == nil {
		t.Error("second lock acquired while first held")
	}

	unlock()
	unlock2, err := Lock(context.Background(), path)
	if err != nil {
		t.Fatalf("Lock after unlock: %v", err)
	}
	unlock2()
}

func TestClaims(t *testing.T) {
	c := NewClaims()
	if err := c.Claim("/out/a.jpg", "/in/a.png"); err != nil {
		t.Fatalf("first claim: %v", err)
	}
	if err := c.Claim("/out/a.jpg", "/in/a.png"); err != nil {
		t.Errorf("re-claim by owner: %v", err)
	}
	if err := c.Claim("/out/./a.jpg", "/in/a.jpeg"); !errors.Is(err, ErrClaimed) {
		t.Errorf("second source: got %v, want ErrClaimed", err)
	}
	if owner, ok := c.Owner("/out/a.jpg"); !ok || owner != "/in/a.png" {
		t.Errorf("owner: got %q, %v", owner, ok)
	}
}
