package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	sessionDatamodel "github.com/Merchously/iRun/internal/core/datamodel/session"
)

// Lifetime is the default absolute session lifetime; renewal kicks in below half of it.
const Lifetime = 30 * 24 * time.Hour

const tokenBytes = 32

// ErrNotFound is returned by repositories when no row matches the token.
var ErrNotFound = errors.New("session not found")

type Session struct {
	ID        string    `json:"-"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Repository persists sessions. ExtendExpiry must only ever move expiry forward and
// reports whether the row changed. DeleteIfExpired must leave a concurrently renewed row alone.
type Repository interface {
	Create(ctx context.Context, s *sessionDatamodel.Session) error
	GetByID(ctx context.Context, id string) (*sessionDatamodel.Session, error)
	ExtendExpiry(ctx context.Context, id string, expiresAt time.Time) (bool, error)
	DeleteIfExpired(ctx context.Context, id string, now time.Time) error
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// NewToken returns 256 random bits, hex encoded.
func NewToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func ToDataModel(s *Session) *sessionDatamodel.Session {
	return &sessionDatamodel.Session{
		ID:        s.ID,
		UserID:    s.UserID,
		ExpiresAt: s.ExpiresAt,
	}
}

func FromDataModel(s *sessionDatamodel.Session) *Session {
	return &Session{
		ID:        s.ID,
		UserID:    s.UserID,
		ExpiresAt: s.ExpiresAt,
	}
}
