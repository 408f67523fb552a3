// Package cleanup sweeps expired sessions on an interval.
package cleanup

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

const DefaultInterval = time.Hour

// Purger is satisfied by *session.Service.
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

type Worker struct {
	sessions Purger
	interval time.Duration
	logger   *slog.Logger
}

type Option func(*Worker)

// WithInterval overrides the sweep interval when greater than zero.
func WithInterval(d time.Duration) Option {
	return func(w *Worker) {
		if d > 0 {
			w.interval = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

func New(sessions Purger, opts ...Option) (*Worker, error) {
	if sessions == nil {
		return nil, errors.New("session purger is required")
	}
	w := &Worker{
		sessions: sessions,
		interval: DefaultInterval,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	return w, nil
}

// Start sweeps once immediately, then on every tick until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	w.sweep(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.sweep(ctx)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (w *Worker) sweep(ctx context.Context) {
	if _, err := w.RunOnce(ctx); err != nil && ctx.Err() == nil {
		w.logger.ErrorContext(ctx, "session cleanup failed", "error", err)
	}
}

// RunOnce deletes every expired session and reports how many went.
func (w *Worker) RunOnce(ctx context.Context) (int64, error) {
	n, err := w.sessions.PurgeExpired(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		w.logger.InfoContext(ctx, "expired sessions purged", "count", n)
	}
	return n, nil
}
