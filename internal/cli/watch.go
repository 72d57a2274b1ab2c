package cli

import (
	"context"
	"log/slog"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/hupe1980/pollbuild/internal/config"
	"github.com/hupe1980/pollbuild/internal/logging"
	"github.com/hupe1980/pollbuild/internal/watch"
)

// runWatch expands the arguments into a watch set and polls it until ctx
// is cancelled.
func runWatch(ctx context.Context, cmd *cobra.Command, args []string) error {
	cfg := config.FromContext(ctx)
	logger := logging.FromContext(ctx)
	fsys := afero.NewOsFs()

	paths, err := watch.ExpandPaths(fsys, args)
	if err != nil {
		return usageError(err)
	}

	policy, err := watch.ParseMissingPolicy(cfg.OnMissing)
	if err != nil {
		return usageError(err)
	}

	trigger := watch.NewCommandTrigger(cfg.Command)
	trigger.Dir = cfg.Dir
	trigger.Timeout = cfg.BuildTimeout
	trigger.Stdout = cmd.OutOrStdout()
	trigger.Stderr = cmd.ErrOrStderr()

	if cfg.NoColor {
		trigger.Env = append(trigger.Env, "NO_COLOR=1")
	}

	w, err := watch.New(watch.Options{
		Paths:     paths,
		Interval:  cfg.Interval,
		OnMissing: policy,
		Separator: cfg.Separator,
		Fs:        fsys,
		Out:       cmd.OutOrStdout(),
		Logger:    logger,
	}, trigger)
	if err != nil {
		return usageError(err)
	}

	logger.Debug("watch set resolved",
		slog.Any("paths", paths),
		slog.String("command", cfg.Command),
	)

	if err := w.Run(ctx); err != nil {
		return &ExitError{Code: 1, Err: err}
	}

	return nil
}
