// Package cli implements the cobra command tree for pollbuild.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hupe1980/pollbuild/internal/config"
	"github.com/hupe1980/pollbuild/internal/logging"
)

// ExitError wraps an error with a specific process exit code.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}

	return fmt.Sprintf("exit code %d", e.Code)
}

func (e *ExitError) Unwrap() error { return e.Err }

// usageError marks err as a bad invocation (exit code 2).
func usageError(err error) error {
	return &ExitError{Code: 2, Err: err}
}

// Execute builds the command tree, runs it until it finishes or the process
// receives SIGINT/SIGTERM, and returns the exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
}

// execute runs the command tree with args and maps the outcome to an exit
// code. Errors are reported on stderr; usage errors are followed by the
// usage line of the command that failed.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := NewRootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	cmd, err := root.ExecuteContextC(ctx)
	if err == nil {
		return 0
	}

	fmt.Fprintf(stderr, "Error: %v\n", err)

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		if exitErr.Code == 2 && cmd != nil {
			fmt.Fprintf(stderr, "Usage: %s\n", cmd.UseLine())
		}

		return exitErr.Code
	}

	return 1
}

// NewRootCommand constructs the top-level cobra.Command with all
// subcommands attached. The root command itself runs the watcher.
func NewRootCommand() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "pollbuild [flags] FILE...",
		Short: "Run a build command whenever watched files change",
		Long: `pollbuild polls the modification times of the given files and runs a
build command whenever the newest of them changes.

Only the newest modification time across all files is tracked, so touching
any watched file triggers a rebuild. The first poll always builds. Build
output is passed through unchanged and its exit status is only logged.

Arguments containing glob characters are expanded by pollbuild itself, so
quoted patterns work even where the shell does not expand them.`,
		Example: `  pollbuild *.rst
  pollbuild -c "make latexpdf" -i 1s index.rst conf.py
  pollbuild --on-missing skip 'docs/*.rst'`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) == 0 {
				return usageError(errors.New("at least one file to watch is required"))
			}

			return nil
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd, cfgFile)
			if err != nil {
				return usageError(err)
			}

			logger := logging.SetupWithWriter(cfg, cmd.ErrOrStderr())

			ctx := cmd.Context()
			ctx = config.NewContext(ctx, cfg)
			ctx = logging.NewContext(ctx, logger)
			cmd.SetContext(ctx)

			logger.Debug("configuration loaded",
				slog.String("configFile", cfg.ConfigFile),
				slog.String("logLevel", cfg.LogLevel),
				slog.String("logFormat", cfg.LogFormat),
			)

			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context(), cmd, args)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: .pollbuild.yaml)")
	pf.String("log-level", config.LogLevelInfo, "log level: debug, info, warn, error")
	pf.String("log-format", config.LogFormatText, "log format: text, json")
	pf.Bool("no-color", false, "export NO_COLOR=1 to the build command")
	pf.BoolP("quiet", "q", false, "suppress non-essential output")

	// Watcher flags are persistent so that "config" reports them too.
	pf.StringP("command", "c", config.DefaultCommand, "build command, run through the shell")
	pf.DurationP("interval", "i", config.DefaultInterval, "poll interval")
	pf.String("on-missing", config.OnMissingFail, "unreadable file policy: fail, skip")
	pf.String("separator", config.DefaultSeparator, "line printed before each build (empty to disable)")
	pf.String("dir", "", "working directory of the build command")
	pf.Duration("build-timeout", time.Duration(0), "kill a build running longer than this (0 disables)")

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err)
	})

	cmd.AddCommand(
		newVersionCommand(),
		newConfigCommand(),
		newCompletionCommand(),
	)

	return cmd
}
