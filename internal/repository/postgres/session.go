package postgres

import (
	"context"
	"database/sql"

	"hrops/internal/domain"
	"hrops/pkg/errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type SessionRepository struct {
	db *sqlx.DB
}

func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(ctx context.Context, s *domain.Session) error {
	query := `
		INSERT INTO sessions (
			id, user_id, refresh_token, access_jti, device_id, ip_address,
			user_agent, revoked, expires_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.ExecContext(ctx, query,
		s.ID, s.UserID, s.RefreshToken, s.AccessJTI, s.DeviceID,
		s.IPAddress, s.UserAgent, s.Revoked, s.ExpiresAt, s.CreatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "failed to create session")
	}

	return nil
}

func (r *SessionRepository) FindByRefreshToken(ctx context.Context, token string) (*domain.Session, error) {
	query := `
		SELECT id, user_id, refresh_token, access_jti, device_id, ip_address,
		       user_agent, revoked, expires_at, created_at
		FROM sessions
		WHERE refresh_token = $1
	`

	var s domain.Session
	err := r.db.GetContext(ctx, &s, query, token)
	if err == sql.ErrNoRows {
		return nil, errors.ErrSessionNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find session")
	}

	return &s, nil
}

func (r *SessionRepository) Revoke(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `UPDATE sessions SET revoked = TRUE WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "failed to revoke session")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.ErrSessionNotFound
	}

	return nil
}

// RevokeAllForUser ends every session for an employee, used when an
// admin rejects or removes their device.
func (r *SessionRepository) RevokeAllForUser(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET revoked = TRUE WHERE user_id = $1 AND revoked = FALSE`, userID)
	if err != nil {
		return errors.Wrap(err, "failed to revoke user sessions")
	}

	return nil
}
