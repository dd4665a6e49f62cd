package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/AnyUserName/imgtool/internal/codec"
	"github.com/AnyUserName/imgtool/internal/engine"
	"github.com/AnyUserName/imgtool/internal/report"
)

var (
	convertFlags  outputFlags
	convertTarget string
)

var convertCmd = &cobra.Command{
	Use:   "convert <file_or_dir>...",
	Short: "Convert images to JPEG, PNG or WebP",
	Long: `Writes each image as the target format with the matching extension
(jpg, png, webp) next to the source or into --out-dir. JPEG output uses a
fixed quality of 90. Sources are never removed by a conversion.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().StringVarP(&convertTarget, "to", "t", "", "target format: jpeg, png or webp (default from settings)")
	addOutputFlags(convertCmd, &convertFlags)
	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	s, log, err := loadEnv()
	if err != nil {
		return err
	}
	if err := convertFlags.apply(cmd, s); err != nil {
		return err
	}

	target := s.Target()
	if convertTarget != "" {
		if target, err = codec.ParseTarget(convertTarget); err != nil {
			return err
		}
	}

	policy := s.Policy()
	log.Debug("convert", "target", target, "out_dir", policy.CustomOutputDir)

	b := &batch{
		op:    report.OpConvert,
		flags: &convertFlags,
		s:     s,
		log:   log,
		start: func(ctx context.Context, eng *engine.Engine, sess *engine.Session) (<-chan engine.Update, error) {
			return eng.RunConversion(ctx, sess, target, policy)
		},
		describe: func(r *report.Report) { r.Target = string(target) },
	}
	return b.run(cmd, args)
}
