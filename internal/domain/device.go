package domain

import (
	"time"

	"github.com/google/uuid"
)

// DeviceStatus is the approval state of a registered device. The values
// are stored verbatim and are part of the storage contract.
type DeviceStatus string

const (
	DeviceStatusPending  DeviceStatus = "pending"
	DeviceStatusApproved DeviceStatus = "approved"
	DeviceStatusRejected DeviceStatus = "rejected"
)

// DeviceRecord ties an employee to a browser fingerprint. At most one
// record exists per (UserID, DeviceID); the database enforces this.
//
// The login gate only ever inserts records as pending and refreshes
// metadata on approved ones. Status transitions happen on the admin
// management surface.
type DeviceRecord struct {
	ID         uuid.UUID    `json:"id" db:"id"`
	UserID     uuid.UUID    `json:"user_id" db:"user_id"`
	DeviceID   string       `json:"device_id" db:"device_id"`
	Status     DeviceStatus `json:"status" db:"status"`
	DeviceInfo string       `json:"device_info" db:"device_info"`
	Browser    *string      `json:"browser,omitempty" db:"browser"`
	OS         *string      `json:"os,omitempty" db:"os"`
	DeviceType *string      `json:"device_type,omitempty" db:"device_type"`
	Model      *string      `json:"model,omitempty" db:"model"`
	UserAgent  *string      `json:"user_agent,omitempty" db:"user_agent"`
	IPAddress  string       `json:"ip_address" db:"ip_address"`
	Location   *string      `json:"location,omitempty" db:"location"`
	LastLogin  *time.Time   `json:"last_login,omitempty" db:"last_login"`
	CreatedAt  time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at" db:"updated_at"`
}
