package postgres

import (
	"context"
	"database/sql"

	"hrops/internal/domain"
	"hrops/pkg/errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type CompanyRepository struct {
	db *sqlx.DB
}

func NewCompanyRepository(db *sqlx.DB) *CompanyRepository {
	return &CompanyRepository{db: db}
}

func (r *CompanyRepository) FindCompany(ctx context.Context, id uuid.UUID) (*domain.Company, error) {
	query := `
		SELECT id, name, max_device_limit, created_at, updated_at
		FROM companies
		WHERE id = $1
	`

	var company domain.Company
	err := r.db.GetContext(ctx, &company, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.ErrCompanyNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find company")
	}

	return &company, nil
}

func (r *CompanyRepository) UpdateDeviceLimit(ctx context.Context, id uuid.UUID, limit int) error {
	query := `UPDATE companies SET max_device_limit = $2, updated_at = now() WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id, limit)
	if err != nil {
		return errors.Wrap(err, "failed to update device limit")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.ErrCompanyNotFound
	}

	return nil
}
