// Package postgres implements the persistence layer over sqlx.
package postgres

import (
	"context"
	"database/sql"
	"time"

	"hrops/internal/domain"
	"hrops/pkg/errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `
	id, company_id, manager_id, email, password_hash, first_name, last_name,
	role, totp_secret, is_totp_enabled, is_active, last_login, created_at, updated_at`

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT` + userColumns + ` FROM users WHERE email = $1`

	var user domain.User
	err := r.db.GetContext(ctx, &user, query, email)
	if err == sql.ErrNoRows {
		return nil, errors.ErrUserNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find user by email")
	}

	return &user, nil
}

func (r *UserRepository) FindUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `SELECT` + userColumns + ` FROM users WHERE id = $1`

	var user domain.User
	err := r.db.GetContext(ctx, &user, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.ErrUserNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find user by id")
	}

	return &user, nil
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (
			id, company_id, manager_id, email, password_hash, first_name, last_name,
			role, totp_secret, is_totp_enabled, is_active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.CompanyID, user.ManagerID, user.Email, user.PasswordHash,
		user.FirstName, user.LastName, user.Role, user.TOTPSecret,
		user.IsTOTPEnabled, user.IsActive, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "failed to create user")
	}

	return nil
}

func (r *UserRepository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `UPDATE users SET last_login = $2, updated_at = $2 WHERE id = $1`

	_, err := r.db.ExecContext(ctx, query, id, at)
	if err != nil {
		return errors.Wrap(err, "failed to update last login")
	}

	return nil
}
