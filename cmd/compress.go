package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AnyUserName/imgtool/internal/engine"
	"github.com/AnyUserName/imgtool/internal/profile"
	"github.com/AnyUserName/imgtool/internal/report"
)

var (
	compressFlags   outputFlags
	compressQuality int
	compressPreset  string
	compressSuffix  string
)

var compressCmd = &cobra.Command{
	Use:   "compress <file_or_dir>...",
	Short: "Re-encode images in their own format at a lower quality",
	Long: `Re-encodes each image in its own format. JPEG uses the quality directly,
PNG trades quality for compression effort (output stays lossless), TIFF
switches from PackBits to LZW above quality 70, WebP is re-encoded as WebP.
BMP and HEIC files are written as JPEG data under their original name.

Quality is 10-90 in steps of 10.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCompress,
}

func init() {
	compressCmd.Flags().IntVarP(&compressQuality, "quality", "q", 0, "quality 10-90 (0 = preset or settings)")
	compressCmd.Flags().StringVarP(&compressPreset, "preset", "p", "", "quality preset: "+strings.Join(profile.Names(), ", "))
	compressCmd.Flags().StringVar(&compressSuffix, "suffix", "", "append this suffix to output names (\"\" turns suffixes off)")
	addOutputFlags(compressCmd, &compressFlags)
	rootCmd.AddCommand(compressCmd)
}

func runCompress(cmd *cobra.Command, args []string) error {
	s, log, err := loadEnv()
	if err != nil {
		return err
	}
	if err := compressFlags.apply(cmd, s); err != nil {
		return err
	}

	quality := s.CompressionQuality
	if compressPreset != "" {
		p, ok := profile.Get(compressPreset)
		if !ok {
			return fmt.Errorf("unknown preset %q (available: %s)", compressPreset, strings.Join(profile.Names(), ", "))
		}
		quality = p.Quality
		if p.Suffix != "" {
			s.AddFileSuffix = true
			s.FileSuffix = p.Suffix
		}
	}
	if compressQuality != 0 {
		quality = float64(compressQuality) / 100
	}
	if err := engine.ValidateQuality(quality); err != nil {
		return err
	}
	if cmd.Flags().Changed("suffix") {
		s.AddFileSuffix = compressSuffix != ""
		s.FileSuffix = compressSuffix
	}

	policy := s.Policy()
	log.Debug("compress", "quality", quality, "replace", policy.ReplaceOriginal,
		"out_dir", policy.CustomOutputDir, "suffix", policy.FileSuffix())

	b := &batch{
		op:    report.OpCompress,
		flags: &compressFlags,
		s:     s,
		log:   log,
		start: func(ctx context.Context, eng *engine.Engine, sess *engine.Session) (<-chan engine.Update, error) {
			return eng.RunCompression(ctx, sess, quality, policy)
		},
		describe: func(r *report.Report) { r.Quality = quality },
	}
	return b.run(cmd, args)
}
