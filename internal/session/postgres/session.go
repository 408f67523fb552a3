package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	sessionDatamodel "github.com/Merchously/iRun/internal/core/datamodel/session"
	"github.com/Merchously/iRun/internal/session"
	"github.com/jmoiron/sqlx"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, s *sessionDatamodel.Session) error {
	const query = `INSERT INTO sessions (id, user_id, expires_at) VALUES (:id, :user_id, :expires_at)`
	_, err := r.db.NamedExecContext(ctx, query, s)
	return err
}

func (r *Repository) GetByID(ctx context.Context, id string) (*sessionDatamodel.Session, error) {
	var row sessionDatamodel.Session
	err := r.db.GetContext(ctx, &row, `SELECT id, user_id, expires_at FROM sessions WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// ExtendExpiry only moves expiry forward, so racing renewals can never shorten a session.
func (r *Repository) ExtendExpiry(ctx context.Context, id string, expiresAt time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET expires_at = $1 WHERE id = $2 AND expires_at < $1`,
		expiresAt, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *Repository) DeleteIfExpired(ctx context.Context, id string, now time.Time) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1 AND expires_at < $2`, id, now)
	return err
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return err
}

func (r *Repository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < $1`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
