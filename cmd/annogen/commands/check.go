package commands

import (
	"github.com/spf13/cobra"

	"github.com/teranos/annogen/errors"
)

// CheckCmd verifies generated artifacts without touching them
var CheckCmd = &cobra.Command{
	Use:   "check [header|directory]...",
	Short: "Verify that generated artifacts are up to date",
	Long: `Generate every selected header into a temporary directory and compare the
result with the output directory. Nothing in the output directory is written.

The command fails when generation fails or any artifact is missing or differs,
which makes it suitable for CI.

Examples:
  annogen check              # Check the working directory
  annogen check Source --json`,
	RunE: runCheck,
}

func init() {
	addProcessFlags(CheckCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	_, m, rep, err := setupRun(cmd, args)
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	res, err := m.Check(ctx)
	if err != nil {
		return err
	}
	rep.Report(res.Result)
	rep.ReportCheck(res)

	if err := resultError(res.Result); err != nil {
		return err
	}
	if !res.UpToDate() {
		return errors.WithHint(
			errors.Newf("%d generated files are out of date", len(res.OutOfDate)),
			"run annogen generate")
	}
	return nil
}
