package cmd

import (
	"fmt"
	"log/slog"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/AnyUserName/imgtool/internal/logging"
	"github.com/AnyUserName/imgtool/internal/settings"
)

var (
	version    = "0.1.0"
	configPath string
	verbose    bool
	logFormat  string
)

var rootCmd = &cobra.Command{
	Use:   "imgtool",
	Short: "Compress and convert image files in place or into a folder",
	Long: `imgtool re-encodes JPEG, PNG, TIFF, WebP, BMP and HEIC files at a chosen
quality, or converts them to JPEG, PNG or WebP.

Outputs replace the originals, get a suffix, or go to a separate folder,
as configured in ~/.config/imgtool/settings.toml or by flags. One bad file
never stops a batch.`,
	Version:      version,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "settings file (default ~/.config/imgtool/settings.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: text or json (overrides settings)")
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"imgtool %s (%s/%s, %s)\n",
		version, runtime.GOOS, runtime.GOARCH, runtime.Version(),
	))
}

// loadEnv loads the settings file and builds the logger from it and the
// global flags.
func loadEnv() (*settings.Settings, *slog.Logger, error) {
	s, _, _, err := settings.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	opts := logging.Options{Level: s.Logging.Level, Format: s.Logging.Format}
	if verbose {
		opts.Level = "debug"
	}
	if logFormat != "" {
		opts.Format = logFormat
	}
	log, err := logging.New(opts)
	if err != nil {
		return nil, nil, err
	}
	return s, log, nil
}
