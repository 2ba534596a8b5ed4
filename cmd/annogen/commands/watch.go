package commands

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/teranos/annogen/am"
	"github.com/teranos/annogen/logger"
	"github.com/teranos/annogen/manager"
	"github.com/teranos/annogen/watch"
)

// WatchCmd regenerates headers as they change
var WatchCmd = &cobra.Command{
	Use:   "watch [header|directory]...",
	Short: "Regenerate artifacts whenever a header changes",
	Long: `Run one full generation, then watch the selected headers and regenerate the
ones that change. Bursts of writes are debounced into a single run.

Editing the project annogen.toml restarts the watcher with the new
configuration. Stop with Ctrl-C.

Examples:
  annogen watch Source
  annogen watch --debounce 500`,
	RunE: runWatch,
}

func init() {
	addProcessFlags(WatchCmd)
	WatchCmd.Flags().Bool("force", false, "Regenerate every file on the initial run")
	WatchCmd.Flags().Int("debounce", int(watch.DefaultDebounce/time.Millisecond), "Milliseconds to wait for a burst of writes to settle")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	for {
		restart, err := watchSession(ctx, cmd, args)
		if err != nil || !restart {
			return err
		}
		logger.Logger.Infow("Configuration changed, restarting watcher")
		am.Reset()
	}
}

// watchSession runs until ctx is done or the project configuration changes.
// It reports whether the caller should start a new session.
func watchSession(ctx context.Context, cmd *cobra.Command, args []string) (bool, error) {
	cfg, m, rep, err := setupRun(cmd, args)
	if err != nil {
		return false, err
	}

	res, err := m.Run(ctx)
	if err != nil {
		return false, err
	}
	rep.Report(res)

	debounce := time.Duration(cfg.Process.DebounceMS) * time.Millisecond
	w, err := watch.New(m, watch.OptionsFrom(m.Options(), debounce), logger.Logger)
	if err != nil {
		return false, err
	}
	w.OnResult(func(res manager.Result) {
		rep.Report(res)
		rep.EmitComplete(res.Summary())
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var restart atomic.Bool
	if path := am.FindProjectConfig("."); path != "" {
		cw, err := am.NewConfigWatcher(path, func() (*am.Config, error) {
			am.Reset()
			return loadConfig(cmd)
		}, logger.Logger)
		if err != nil {
			w.Close()
			return false, err
		}
		cw.OnReload(func(*am.Config) error {
			restart.Store(true)
			cancel()
			return nil
		})
		cw.Start()
		defer cw.Stop()
	}

	rep.EmitStage("watch", "Watching for changes")
	logger.Logger.Infow("Watching", "directories", w.Watched())
	if err := w.Run(ctx); err != nil {
		return false, err
	}
	return restart.Load(), nil
}
