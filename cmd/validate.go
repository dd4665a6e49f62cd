package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AnyUserName/imgtool/internal/report"
)

var validateCmd = &cobra.Command{
	Use:   "validate <report.json>",
	Short: "Check a run report against the files on disk",
	Long: `Checks that every completed output listed in the report still exists
with the recorded size and content hash, and that the report is
internally consistent.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	r, err := report.ReadJSON(args[0])
	if err != nil {
		return err
	}

	errs := report.Validate(r)
	out := cmd.OutOrStdout()
	if len(errs) == 0 {
		fmt.Fprintf(out, "✓ report valid (%d entries)\n", len(r.Entries))
		return nil
	}

	fmt.Fprintf(out, "✗ report invalid (%d errors):\n", len(errs))
	for _, e := range errs {
		fmt.Fprintf(out, "  - %s\n", e)
	}
	return fmt.Errorf("validation failed with %d errors", len(errs))
}
