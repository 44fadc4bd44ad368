// Package device owns the trusted-device registry: the (employee, device)
// records the login gate consults and the quota policy applied to them.
package device

import (
	"context"
	"time"

	"hrops/internal/domain"

	"github.com/google/uuid"
)

// TouchUpdate is the partial update applied to an approved device on a
// successful login. It never carries a status; the registry must not
// change one through this path.
type TouchUpdate struct {
	LastLogin  time.Time
	IPAddress  string
	Browser    *string
	OS         *string
	DeviceType *string
	Model      *string
	UserAgent  *string
	// Location is only written when non-empty; a blank value keeps
	// whatever is stored.
	Location *string
}

// Registry is the persistence contract for device records.
//
// FindDevice and FindByID return errors.ErrDeviceNotFound for missing
// records. InsertPending returns errors.ErrDeviceExists when the
// (user_id, device_id) uniqueness constraint rejects the row.
type Registry interface {
	FindDevice(ctx context.Context, userID uuid.UUID, deviceID string) (*domain.DeviceRecord, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.DeviceRecord, error)
	CountDevices(ctx context.Context, userID uuid.UUID) (int, error)
	InsertPending(ctx context.Context, rec *domain.DeviceRecord) error
	TouchApproved(ctx context.Context, id uuid.UUID, upd TouchUpdate) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.DeviceStatus) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByCompany(ctx context.Context, companyID uuid.UUID) ([]*domain.DeviceRecord, error)
}
