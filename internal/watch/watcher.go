package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// ErrNoPaths is returned when the watch set is empty.
var ErrNoPaths = errors.New("no paths to watch")

// MissingPolicy decides how a path that cannot be stat'ed is treated.
type MissingPolicy string

const (
	// MissingFail aborts the watcher on the first unreadable path.
	MissingFail MissingPolicy = "fail"
	// MissingSkip ignores the path for the current cycle and logs a warning.
	MissingSkip MissingPolicy = "skip"
)

// ParseMissingPolicy converts s into a MissingPolicy. The empty string
// selects MissingFail.
func ParseMissingPolicy(s string) (MissingPolicy, error) {
	switch MissingPolicy(s) {
	case "", MissingFail:
		return MissingFail, nil
	case MissingSkip:
		return MissingSkip, nil
	default:
		return "", fmt.Errorf("unknown missing-file policy %q", s)
	}
}

// Options configures a Watcher.
type Options struct {
	// Paths is the watch set. It is copied by New and never changes afterwards.
	Paths []string

	// Interval is the pause between two polls.
	Interval time.Duration

	// OnMissing selects the policy for paths that cannot be stat'ed.
	OnMissing MissingPolicy

	// Separator is written as its own line to Out before every build.
	// An empty separator prints nothing.
	Separator string

	// Fs is queried for modification times.
	Fs afero.Fs

	// Out receives the separator line.
	Out io.Writer

	// Logger is used for structured diagnostics.
	Logger *slog.Logger
}

// DefaultOptions returns the options pollbuild runs with when nothing is
// configured, minus the watch set.
func DefaultOptions() Options {
	return Options{
		Interval:  3 * time.Second,
		OnMissing: MissingFail,
		Separator: strings.Repeat("-", 58),
		Fs:        afero.NewOsFs(),
		Out:       os.Stdout,
		Logger:    slog.Default(),
	}
}

// Snapshot is the result of a single scan over the watch set.
type Snapshot struct {
	// Max is the newest modification time among the observed paths.
	Max time.Time
	// Newest is the path that carries Max.
	Newest string
	// Observed counts the paths that were stat'ed successfully.
	Observed int
	// Missing lists the paths skipped under MissingSkip.
	Missing []string
}

// Watcher polls a watch set and runs a Trigger whenever the newest
// modification time differs from the one seen at the previous build.
//
// A Watcher is not safe for concurrent use; Run and Check must be called
// from a single goroutine.
type Watcher struct {
	opts     Options
	trigger  Trigger
	lastSeen time.Time
}

// New validates opts, fills unset fields from DefaultOptions and returns a
// Watcher that fires trigger on changes.
func New(opts Options, trigger Trigger) (*Watcher, error) {
	if len(opts.Paths) == 0 {
		return nil, ErrNoPaths
	}

	if trigger == nil {
		return nil, errors.New("build trigger must not be nil")
	}

	if t, ok := trigger.(*CommandTrigger); ok && t == nil {
		return nil, errors.New("build trigger must not be nil")
	}

	if opts.Interval < 0 {
		return nil, fmt.Errorf("invalid interval %s: must be positive", opts.Interval)
	}

	policy, err := ParseMissingPolicy(string(opts.OnMissing))
	if err != nil {
		return nil, err
	}

	d := DefaultOptions()

	opts.Paths = slices.Clone(opts.Paths)
	opts.OnMissing = policy

	if opts.Interval == 0 {
		opts.Interval = d.Interval
	}

	if opts.Fs == nil {
		opts.Fs = d.Fs
	}

	if opts.Out == nil {
		opts.Out = d.Out
	}

	if opts.Logger == nil {
		opts.Logger = d.Logger
	}

	return &Watcher{opts: opts, trigger: trigger}, nil
}

// Paths returns a copy of the watch set.
func (w *Watcher) Paths() []string { return slices.Clone(w.opts.Paths) }

// LastSeen returns the newest modification time recorded at the last
// build. The zero time means no build has happened yet.
func (w *Watcher) LastSeen() time.Time { return w.lastSeen }

// Scan stats every path in the watch set and returns the newest
// modification time.
func (w *Watcher) Scan() (Snapshot, error) {
	var snap Snapshot

	for _, p := range w.opts.Paths {
		info, err := w.opts.Fs.Stat(p)
		if err != nil {
			if w.opts.OnMissing == MissingSkip {
				w.opts.Logger.Warn("skipping unreadable path",
					slog.String("path", p),
					slog.String("error", err.Error()),
				)

				snap.Missing = append(snap.Missing, p)

				continue
			}

			return Snapshot{}, fmt.Errorf("reading modification time: %w", err)
		}

		snap.Observed++

		if mt := info.ModTime(); snap.Observed == 1 || mt.After(snap.Max) {
			snap.Max = mt
			snap.Newest = p
		}
	}

	return snap, nil
}

// Check performs one poll cycle without sleeping. It reports whether a
// build was triggered. Build failures are logged and swallowed; only scan
// errors are returned.
func (w *Watcher) Check(ctx context.Context) (bool, error) {
	snap, err := w.Scan()
	if err != nil {
		return false, err
	}

	if snap.Observed == 0 {
		w.opts.Logger.Warn("no watched path could be read, skipping cycle",
			slog.Int("paths", len(w.opts.Paths)),
		)

		return false, nil
	}

	// Any difference counts, including a max that moved backwards.
	if snap.Max.Equal(w.lastSeen) {
		return false, nil
	}

	w.opts.Logger.Debug("change detected",
		slog.String("newest", snap.Newest),
		slog.Time("mtime", snap.Max),
		slog.Time("previous", w.lastSeen),
	)

	if w.opts.Separator != "" {
		fmt.Fprintln(w.opts.Out, w.opts.Separator)
	}

	start := time.Now()

	if buildErr := w.trigger.Build(ctx); buildErr != nil {
		w.opts.Logger.Warn("build failed",
			slog.String("error", buildErr.Error()),
			slog.Duration("took", time.Since(start)),
		)
	} else {
		w.opts.Logger.Debug("build finished", slog.Duration("took", time.Since(start)))
	}

	w.lastSeen = snap.Max

	return true, nil
}

// Run polls until ctx is cancelled, returning nil in that case. The first
// cycle always builds because nothing has been seen yet. A scan error
// stops the loop and is returned.
func (w *Watcher) Run(ctx context.Context) error {
	w.opts.Logger.Info("watching",
		slog.Int("paths", len(w.opts.Paths)),
		slog.Duration("interval", w.opts.Interval),
		slog.String("onMissing", string(w.opts.OnMissing)),
	)

	for {
		if ctx.Err() != nil {
			return nil
		}

		if _, err := w.Check(ctx); err != nil {
			return err
		}

		timer := time.NewTimer(w.opts.Interval)

		select {
		case <-ctx.Done():
			timer.Stop()
			w.opts.Logger.Debug("watcher stopped")

			return nil
		case <-timer.C:
		}
	}
}
