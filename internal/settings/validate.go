package settings

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/AnyUserName/imgtool/internal/codec"
)

// Validate ensures the settings are usable.
func (s *Settings) Validate() error {
	if err := s.validateOutput(); err != nil {
		return err
	}
	if err := s.validateQuality(); err != nil {
		return err
	}
	if _, err := codec.ParseTarget(s.ConversionFormat); err != nil {
		return fmt.Errorf("conversion_format: %w", err)
	}
	if s.Workers < 1 {
		return errors.New("workers must be at least 1")
	}
	if s.FileTimeoutSeconds < 0 {
		return errors.New("file_timeout_seconds must be zero or positive")
	}
	return s.validateLogging()
}

func (s *Settings) validateOutput() error {
	if s.UseCustomOutput && strings.TrimSpace(s.CustomOutputPath) == "" {
		return errors.New("custom_output_path must be set when use_custom_output is enabled")
	}
	if strings.ContainsAny(s.FileSuffix, `/\`) {
		return fmt.Errorf("file_suffix %q must not contain path separators", s.FileSuffix)
	}
	return nil
}

func (s *Settings) validateQuality() error {
	q := s.CompressionQuality * 10
	if q < 1-1e-6 || q > 9+1e-6 || math.Abs(q-math.Round(q)) > 1e-6 {
		return fmt.Errorf("compression_quality must be one of 0.1 .. 0.9, got %g", s.CompressionQuality)
	}
	return nil
}

func (s *Settings) validateLogging() error {
	switch s.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", s.Logging.Level)
	}
	switch s.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", s.Logging.Format)
	}
	return nil
}
