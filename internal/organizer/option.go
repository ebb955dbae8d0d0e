package organizer

import (
	"log/slog"
	"path/filepath"
	"time"
)

// Option is a functional option for configuring an Organizer.
type Option func(*Organizer)

// WithInterval sets the pause between cycles. Non-positive values keep the
// default.
func WithInterval(d time.Duration) Option {
	return func(o *Organizer) {
		if d > 0 {
			o.interval = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Organizer) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithReporter adds a reporter. Reporters are called in the order given.
func WithReporter(r Reporter) Option {
	return func(o *Organizer) {
		if r != nil {
			o.reporters = append(o.reporters, r)
		}
	}
}

// WithExclude keeps the given files in place when they sit in a watch
// target. Relative paths are resolved against the working directory.
func WithExclude(paths ...string) Option {
	return func(o *Organizer) {
		for _, p := range paths {
			if p == "" {
				continue
			}
			if abs, err := filepath.Abs(p); err == nil {
				o.exclude[abs] = struct{}{}
			}
		}
	}
}
