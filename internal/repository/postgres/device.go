package postgres

import (
	"context"
	"database/sql"
	stderrors "errors"

	"hrops/internal/device"
	"hrops/internal/domain"
	"hrops/pkg/errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// DeviceRepository persists device records. It implements device.Registry.
type DeviceRepository struct {
	db *sqlx.DB
}

func NewDeviceRepository(db *sqlx.DB) *DeviceRepository {
	return &DeviceRepository{db: db}
}

const deviceColumns = `
	id, user_id, device_id, status, device_info, browser, os, device_type,
	model, user_agent, ip_address, location, last_login, created_at, updated_at`

func (r *DeviceRepository) FindDevice(ctx context.Context, userID uuid.UUID, deviceID string) (*domain.DeviceRecord, error) {
	query := `SELECT` + deviceColumns + ` FROM user_devices WHERE user_id = $1 AND device_id = $2`

	var rec domain.DeviceRecord
	err := r.db.GetContext(ctx, &rec, query, userID, deviceID)
	if err == sql.ErrNoRows {
		return nil, errors.ErrDeviceNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find device")
	}

	return &rec, nil
}

func (r *DeviceRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.DeviceRecord, error) {
	query := `SELECT` + deviceColumns + ` FROM user_devices WHERE id = $1`

	var rec domain.DeviceRecord
	err := r.db.GetContext(ctx, &rec, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.ErrDeviceNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find device by id")
	}

	return &rec, nil
}

// CountDevices counts records of every status; pending and rejected
// devices hold a quota slot until an admin removes them.
func (r *DeviceRepository) CountDevices(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM user_devices WHERE user_id = $1`, userID)
	if err != nil {
		return 0, errors.Wrap(err, "failed to count devices")
	}

	return count, nil
}

// InsertPending registers a new device awaiting approval. A unique
// violation on (user_id, device_id) maps to ErrDeviceExists so a
// concurrent first login degrades to the pending branch.
func (r *DeviceRepository) InsertPending(ctx context.Context, rec *domain.DeviceRecord) error {
	query := `
		INSERT INTO user_devices (
			id, user_id, device_id, status, device_info, browser, os, device_type,
			model, user_agent, ip_address, location, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)
	`
	rec.Status = domain.DeviceStatusPending

	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.UserID, rec.DeviceID, rec.Status, rec.DeviceInfo,
		rec.Browser, rec.OS, rec.DeviceType, rec.Model, rec.UserAgent,
		rec.IPAddress, rec.Location, rec.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if stderrors.As(err, &pqErr) && pqErr.Code == "23505" {
			return errors.ErrDeviceExists
		}
		return errors.Wrap(err, "failed to insert pending device")
	}

	return nil
}

// TouchApproved refreshes login metadata on an approved record. The
// status column is deliberately absent from the SET list, and the WHERE
// clause keeps a racing status change from being overwritten.
func (r *DeviceRepository) TouchApproved(ctx context.Context, id uuid.UUID, upd device.TouchUpdate) error {
	query := `
		UPDATE user_devices SET
			last_login  = $2,
			ip_address  = $3,
			browser     = COALESCE($4, browser),
			os          = COALESCE($5, os),
			device_type = COALESCE($6, device_type),
			model       = COALESCE($7, model),
			user_agent  = COALESCE($8, user_agent),
			location    = COALESCE(NULLIF($9, ''), location),
			updated_at  = $2
		WHERE id = $1 AND status = 'approved'
	`

	var location string
	if upd.Location != nil {
		location = *upd.Location
	}

	res, err := r.db.ExecContext(ctx, query,
		id, upd.LastLogin, upd.IPAddress,
		upd.Browser, upd.OS, upd.DeviceType, upd.Model, upd.UserAgent,
		location,
	)
	if err != nil {
		return errors.Wrap(err, "failed to touch approved device")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.ErrDeviceNotFound
	}

	return nil
}

func (r *DeviceRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.DeviceStatus) error {
	query := `UPDATE user_devices SET status = $2, updated_at = now() WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id, status)
	if err != nil {
		return errors.Wrap(err, "failed to update device status")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.ErrDeviceNotFound
	}

	return nil
}

func (r *DeviceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM user_devices WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "failed to delete device")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.ErrDeviceNotFound
	}

	return nil
}

func (r *DeviceRepository) ListByCompany(ctx context.Context, companyID uuid.UUID) ([]*domain.DeviceRecord, error) {
	query := `
		SELECT d.id, d.user_id, d.device_id, d.status, d.device_info, d.browser,
		       d.os, d.device_type, d.model, d.user_agent, d.ip_address,
		       d.location, d.last_login, d.created_at, d.updated_at
		FROM user_devices d
		JOIN users u ON u.id = d.user_id
		WHERE u.company_id = $1
		ORDER BY d.created_at DESC
	`

	var records []*domain.DeviceRecord
	if err := r.db.SelectContext(ctx, &records, query, companyID); err != nil {
		return nil, errors.Wrap(err, "failed to list company devices")
	}

	return records, nil
}
