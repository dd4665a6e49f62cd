package settings

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/AnyUserName/imgtool/internal/codec"
	"github.com/AnyUserName/imgtool/internal/outpath"
)

//go:embed sample_settings.toml
var sampleSettings string

// Logging contains configuration for log output.
type Logging struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"`
}

// Settings holds every persisted imgtool preference.
type Settings struct {
	ReplaceOriginalFiles bool    `toml:"replace_original_files" yaml:"replace_original_files"`
	UseCustomOutput      bool    `toml:"use_custom_output" yaml:"use_custom_output"`
	CustomOutputPath     string  `toml:"custom_output_path" yaml:"custom_output_path"`
	AddFileSuffix        bool    `toml:"add_file_suffix" yaml:"add_file_suffix"`
	FileSuffix           string  `toml:"file_suffix" yaml:"file_suffix"`
	CompressionQuality   float64 `toml:"compression_quality" yaml:"compression_quality"`
	ConversionFormat     string  `toml:"conversion_format" yaml:"conversion_format"`
	Workers              int     `toml:"workers" yaml:"workers"`
	LegacyWebPFallback   bool    `toml:"legacy_webp_fallback" yaml:"legacy_webp_fallback"`
	FileTimeoutSeconds   int     `toml:"file_timeout_seconds" yaml:"file_timeout_seconds"`
	Logging              Logging `toml:"logging" yaml:"logging"`
}

const (
	defaultDir      = "~/.config/imgtool"
	defaultFileName = "settings.toml"
)

// DefaultPath returns the absolute path of the default settings file.
func DefaultPath() (string, error) {
	return expandPath(filepath.Join(defaultDir, defaultFileName))
}

// Load reads the settings file at path, or the default location when path
// is empty. A missing file yields the defaults. It returns the settings, the
// resolved path and whether the file existed.
func Load(path string) (*Settings, string, bool, error) {
	s := Default()

	resolved, exists, err := resolvePath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		data, err := os.ReadFile(resolved)
		if err != nil {
			return nil, "", false, fmt.Errorf("read settings: %w", err)
		}
		if err := unmarshal(resolved, data, &s); err != nil {
			return nil, "", false, fmt.Errorf("parse settings %s: %w", filepath.Base(resolved), err)
		}
	}

	if err := s.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := s.Validate(); err != nil {
		return nil, "", false, err
	}
	return &s, resolved, exists, nil
}

// Save writes s to path in the format its extension selects. Concurrent
// writers are serialized through a lock file next to path.
func Save(ctx context.Context, path string, s *Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	data, err := marshal(path, s)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create settings directory: %w", err)
	}

	fl := flock.New(path + ".lock")
	ok, err := fl.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil {
		return fmt.Errorf("lock settings: %w", err)
	}
	if !ok {
		return errors.New("lock settings: not acquired")
	}
	defer fl.Unlock()

	if err := outpath.WriteAtomic(path, data); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}

// CreateSample writes the commented sample settings file to path.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create settings directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleSettings), 0o644); err != nil {
		return fmt.Errorf("write sample settings: %w", err)
	}
	return nil
}

// Policy returns the output placement rules.
func (s *Settings) Policy() outpath.Policy {
	return outpath.Policy{
		ReplaceOriginal: s.ReplaceOriginalFiles,
		UseCustomOutput: s.UseCustomOutput,
		CustomOutputDir: s.CustomOutputPath,
		AppendSuffix:    s.AddFileSuffix,
		Suffix:          s.FileSuffix,
	}
}

// Target returns the default conversion format.
func (s *Settings) Target() codec.Format {
	f, err := codec.ParseTarget(s.ConversionFormat)
	if err != nil {
		return codec.JPEG
	}
	return f
}

// FileTimeout returns the per-file encode limit, zero for none.
func (s *Settings) FileTimeout() time.Duration {
	return time.Duration(s.FileTimeoutSeconds) * time.Second
}

// Encode renders s in the format the extension of path selects.
func Encode(path string, s *Settings) ([]byte, error) {
	return marshal(path, s)
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

func unmarshal(path string, data []byte, s *Settings) error {
	if isYAML(path) {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(s); err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		return nil
	}
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(s)
}

func marshal(path string, s *Settings) ([]byte, error) {
	if isYAML(path) {
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(s); err != nil {
			return nil, fmt.Errorf("encode settings: %w", err)
		}
		enc.Close()
		return buf.Bytes(), nil
	}
	data, err := toml.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode settings: %w", err)
	}
	return data, nil
}

func resolvePath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		return statFile(expanded)
	}

	dir, err := expandPath(defaultDir)
	if err != nil {
		return "", false, err
	}
	for _, name := range []string{defaultFileName, "settings.yaml", "settings.yml"} {
		p := filepath.Join(dir, name)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, true, nil
		}
	}
	return filepath.Join(dir, defaultFileName), false, nil
}

func statFile(path string) (string, bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return path, false, nil
		}
		return "", false, fmt.Errorf("stat settings: %w", err)
	}
	if info.IsDir() {
		return "", false, fmt.Errorf("settings path %s is a directory", path)
	}
	return path, true, nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath applies the settings path rules (tilde expansion, absolute
// path) to a user-supplied path.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}
