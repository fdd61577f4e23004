package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dshills/appprofile/internal/appprofile/notify"
	"github.com/dshills/appprofile/internal/appprofile/watcher"
	"github.com/dshills/appprofile/internal/logging"
)

func newWatchCommand(a *app) *cobra.Command {
	var debounce time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Report changes to the configuration files until interrupted",
		Long: `Watch the search path and the global file. Each time a file changes
the configuration is reloaded and a summary is printed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.watch(ctx, debounce)
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", 250*time.Millisecond, "quiet period before a change is reported")
	return cmd
}

func (a *app) watch(ctx context.Context, debounce time.Duration) error {
	w, err := watcher.New(
		watcher.WithDebounce(debounce),
		watcher.WithLogger(logging.Component(a.logger, "watcher")),
	)
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.TrackConfig(a.config()); err != nil {
		a.logger.Warn("some search path entries cannot be watched", zap.Error(err))
	}
	a.printSummary()

	sub := a.sess.Notifier().Subscribe(func(ch notify.Change) {
		if ch.Type == notify.ChangeReload {
			a.printSummary()
		}
	})
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events():
			if !ok {
				return nil
			}
			fmt.Fprintf(a.out, "%s %s %s\n", ev.Timestamp.Format(time.TimeOnly), ev.Op, ev.Path)
			res := a.sess.Reload()
			for _, e := range res.Errors {
				fmt.Fprintf(a.errOut, "warning: %v\n", e.Err)
			}
			// A directory entry may have appeared.
			if err := w.TrackConfig(a.config()); err != nil {
				a.logger.Debug("retrack", zap.Error(err))
			}
		case err, ok := <-w.Errors():
			if !ok {
				return nil
			}
			fmt.Fprintf(a.errOut, "warning: %v\n", err)
		}
	}
}

func (a *app) printSummary() {
	cfg := a.config()
	state := "enabled"
	if !cfg.Enabled() {
		state = "disabled"
	}
	fmt.Fprintf(a.out, "%d rules, %d profiles in %d files, profiles %s\n",
		cfg.RuleCount(), len(cfg.ProfileNames()), len(cfg.SourceFilenames()), state)
}
