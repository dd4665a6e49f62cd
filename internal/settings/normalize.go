package settings

import (
	"fmt"
	"math"
	"strings"
)

func (s *Settings) normalize() error {
	var err error
	s.CustomOutputPath = strings.TrimSpace(s.CustomOutputPath)
	if s.CustomOutputPath, err = expandPath(s.CustomOutputPath); err != nil {
		return fmt.Errorf("custom_output_path: %w", err)
	}

	s.ConversionFormat = strings.ToLower(strings.TrimSpace(s.ConversionFormat))
	if s.ConversionFormat == "" {
		s.ConversionFormat = defaultConversionFormat
	}
	if s.ConversionFormat == "jpg" {
		s.ConversionFormat = "jpeg"
	}

	// Snap near-grid values such as 0.30000000000000004 onto the 0.1 grid.
	if r := math.Round(s.CompressionQuality * 10); math.Abs(s.CompressionQuality*10-r) < 1e-6 {
		s.CompressionQuality = r / 10
	}

	if s.Workers == 0 {
		s.Workers = defaultWorkers
	}

	s.normalizeLogging()
	return nil
}

func (s *Settings) normalizeLogging() {
	s.Logging.Level = strings.ToLower(strings.TrimSpace(s.Logging.Level))
	if s.Logging.Level == "" {
		s.Logging.Level = defaultLogLevel
	}
	if s.Logging.Level == "warning" {
		s.Logging.Level = "warn"
	}
	s.Logging.Format = strings.ToLower(strings.TrimSpace(s.Logging.Format))
	if s.Logging.Format == "" {
		s.Logging.Format = defaultLogFormat
	}
}
