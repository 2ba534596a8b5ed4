package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teranos/annogen/am"
	"github.com/teranos/annogen/errors"
	"github.com/teranos/annogen/manager"
)

// GenerateCmd runs generation once
var GenerateCmd = &cobra.Command{
	Use:   "generate [header|directory]...",
	Short: "Generate artifacts for annotated headers",
	Long: `Parse annotated C++ headers and write their generated artifacts.

Directories are scanned for files with a configured extension; files are
processed as given. Without arguments the configured directories, or the
working directory, are scanned. Files whose artifacts are newer than the
header are skipped unless --force is set.

Examples:
  annogen generate                     # Scan the working directory
  annogen generate Source -o Generated # Scan Source, write into Generated
  annogen generate Light.hpp --force   # Regenerate one header
  annogen generate -n 2 -j 8           # Two passes per file on eight workers`,
	RunE: runGenerate,
}

func init() {
	addProcessFlags(GenerateCmd)
	GenerateCmd.Flags().Bool("force", false, "Regenerate files whose artifacts are up to date")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	_, m, rep, err := setupRun(cmd, args)
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	res, err := m.Run(ctx)
	if err != nil {
		return err
	}
	rep.Report(res)
	return resultError(res)
}

// setupRun loads the configuration with args applied and builds a manager
// reporting to the terminal or as JSON.
func setupRun(cmd *cobra.Command, args []string) (*am.Config, *manager.Manager, reporter, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := withPaths(cfg, args); err != nil {
		return nil, nil, nil, err
	}
	m, err := newManager(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	jsonOutput, _ := cmd.Flags().GetBool("json")
	rep := newReporter(jsonOutput, cmd.OutOrStdout(), cfg.Log.Verbosity)
	m.SetProgress(rep)
	return cfg, m, rep, nil
}

// resultError turns a failed run into the command's error.
func resultError(res manager.Result) error {
	if res.Success {
		return nil
	}
	return errors.WithHint(
		errors.Newf("generation failed for %d of %d files", len(res.Failed), len(res.ParsedFiles)),
		"run with -v for per-entity diagnostics")
}

// signalContext returns a context cancelled on interrupt or termination.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
