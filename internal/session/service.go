package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Merchously/iRun/internal"
	"github.com/Merchously/iRun/internal/metrics"
)

type Service struct {
	repo     Repository
	lifetime time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

type Option func(*Service)

// WithLifetime overrides the session lifetime when greater than zero.
func WithLifetime(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.lifetime = d
		}
	}
}

// WithClock replaces the time source, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(repo Repository, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		repo:     repo,
		lifetime: Lifetime,
		now:      time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *Service) Lifetime() time.Duration {
	return s.lifetime
}

// clock truncates to microseconds so values round-trip through Postgres unchanged.
func (s *Service) clock() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func (s *Service) Create(ctx context.Context, userID string) (*Session, error) {
	token, err := NewToken()
	if err != nil {
		return nil, fmt.Errorf("generate session token: %w", err)
	}

	sess := &Session{
		ID:        token,
		UserID:    userID,
		ExpiresAt: s.clock().Add(s.lifetime),
	}
	if err := s.repo.Create(ctx, ToDataModel(sess)); err != nil {
		s.logger.ErrorContext(ctx, "failed to create session", "user_id", userID, "error", err)
		return nil, fmt.Errorf("create session: %w", err)
	}

	metrics.SessionsCreated.Inc()
	s.logger.DebugContext(ctx, "session created", "user_id", userID, "expires_at", sess.ExpiresAt)
	return sess, nil
}

// Validate returns the live session for token, renewing it when less than half of the
// lifetime remains. Missing or expired tokens yield internal.ErrUnauthenticated.
func (s *Service) Validate(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, internal.ErrUnauthenticated
	}

	row, err := s.repo.GetByID(ctx, token)
	if errors.Is(err, ErrNotFound) {
		return nil, internal.ErrUnauthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	sess := FromDataModel(row)

	now := s.clock()
	if sess.ExpiresAt.Before(now) {
		if err := s.repo.DeleteIfExpired(ctx, token, now); err != nil {
			s.logger.WarnContext(ctx, "failed to purge expired session", "user_id", sess.UserID, "error", err)
		} else {
			metrics.SessionsPurged.WithLabelValues("expired").Inc()
		}
		return nil, internal.ErrUnauthenticated
	}

	if sess.ExpiresAt.Sub(now) >= s.lifetime/2 {
		return sess, nil
	}

	renewed := now.Add(s.lifetime)
	changed, err := s.repo.ExtendExpiry(ctx, token, renewed)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to renew session", "user_id", sess.UserID, "error", err)
		return sess, nil
	}
	if changed {
		metrics.SessionsRenewed.Inc()
		sess.ExpiresAt = renewed
		return sess, nil
	}

	// A concurrent validation already moved expiry further, or the session was revoked.
	row, err = s.repo.GetByID(ctx, token)
	if errors.Is(err, ErrNotFound) {
		return nil, internal.ErrUnauthenticated
	}
	if err != nil {
		return sess, nil
	}
	return FromDataModel(row), nil
}

func (s *Service) Invalidate(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.repo.Delete(ctx, token); err != nil {
		return fmt.Errorf("invalidate session: %w", err)
	}
	metrics.SessionsPurged.WithLabelValues("logout").Inc()
	return nil
}

// PurgeExpired deletes every expired session and returns how many were removed.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteExpired(ctx, s.clock())
	if err != nil {
		return 0, fmt.Errorf("purge expired sessions: %w", err)
	}
	metrics.SessionsPurged.WithLabelValues("sweep").Add(float64(n))
	return n, nil
}
