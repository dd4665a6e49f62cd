package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AnyUserName/imgtool/internal/settings"
)

var settingsInitForce bool

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or edit the settings file",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, path, exists, err := settings.Load(configPath)
		if err != nil {
			return err
		}
		data, err := settings.Encode(path, s)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if exists {
			fmt.Fprintf(out, "# %s\n", path)
		} else {
			fmt.Fprintf(out, "# %s (not found, showing defaults)\n", path)
		}
		_, err = out.Write(data)
		return err
	},
}

var settingsInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a commented sample settings file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		path, err := settingsPath()
		if err != nil {
			return err
		}
		if _, err := os.Stat(path); err == nil && !settingsInitForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		if err := settings.CreateSample(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
		return nil
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change one setting and save the file",
	Example: `  imgtool settings set add_file_suffix true
  imgtool settings set custom_output_path ~/Pictures/compressed`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, path, _, err := settings.Load(configPath)
		if err != nil {
			return err
		}
		if err := setKey(s, args[0], args[1]); err != nil {
			return err
		}
		if err := settings.Save(cmd.Context(), path, s); err != nil {
			return err
		}
		// Reload so the saved file passes the same checks as a hand-edited one.
		if _, _, _, err := settings.Load(path); err != nil {
			return fmt.Errorf("saved settings do not load: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", args[0], args[1])
		return nil
	},
}

func init() {
	settingsInitCmd.Flags().BoolVar(&settingsInitForce, "force", false, "overwrite an existing file")
	// Values such as "-compressed" are arguments, not flags.
	settingsSetCmd.Flags().SetInterspersed(false)
	settingsCmd.AddCommand(settingsShowCmd, settingsInitCmd, settingsSetCmd)
	rootCmd.AddCommand(settingsCmd)
}

func settingsPath() (string, error) {
	if configPath != "" {
		return settings.ExpandPath(configPath)
	}
	return settings.DefaultPath()
}

func setKey(s *settings.Settings, key, value string) error {
	parseBool := func() (bool, error) {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return false, fmt.Errorf("%s: want true or false, got %q", key, value)
		}
		return b, nil
	}
	parseInt := func() (int, error) {
		n, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("%s: want an integer, got %q", key, value)
		}
		return n, nil
	}

	var err error
	switch strings.ToLower(key) {
	case "replace_original_files":
		s.ReplaceOriginalFiles, err = parseBool()
	case "use_custom_output":
		s.UseCustomOutput, err = parseBool()
	case "custom_output_path":
		s.CustomOutputPath, err = settings.ExpandPath(value)
	case "add_file_suffix":
		s.AddFileSuffix, err = parseBool()
	case "file_suffix":
		s.FileSuffix = value
	case "compression_quality":
		s.CompressionQuality, err = strconv.ParseFloat(value, 64)
	case "conversion_format":
		s.ConversionFormat = strings.ToLower(value)
	case "workers":
		s.Workers, err = parseInt()
	case "legacy_webp_fallback":
		s.LegacyWebPFallback, err = parseBool()
	case "file_timeout_seconds":
		s.FileTimeoutSeconds, err = parseInt()
	case "logging.level":
		s.Logging.Level = strings.ToLower(value)
	case "logging.format":
		s.Logging.Format = strings.ToLower(value)
	default:
		return fmt.Errorf("unknown setting %q", key)
	}
	return err
}
