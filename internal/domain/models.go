// Package domain holds the core data model shared across services.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies the access level of an employee account.
type Role string

const (
	RoleEmployee   Role = "employee"
	RoleAdmin      Role = "admin"
	RoleSuperadmin Role = "superadmin"
)

// User is an employee account belonging to a company.
type User struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	CompanyID     uuid.UUID  `json:"company_id" db:"company_id"`
	ManagerID     *uuid.UUID `json:"manager_id,omitempty" db:"manager_id"`
	Email         string     `json:"email" db:"email"`
	PasswordHash  string     `json:"-" db:"password_hash"`
	FirstName     string     `json:"first_name" db:"first_name"`
	LastName      string     `json:"last_name" db:"last_name"`
	Role          Role       `json:"role" db:"role"`
	TOTPSecret    *string    `json:"-" db:"totp_secret"`
	IsTOTPEnabled bool       `json:"is_totp_enabled" db:"is_totp_enabled"`
	IsActive      bool       `json:"is_active" db:"is_active"`
	LastLogin     *time.Time `json:"last_login,omitempty" db:"last_login"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// FullName returns the display name used in notifications.
func (u *User) FullName() string {
	if u.FirstName == "" {
		return u.Email
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// Company is a tenant. MaxDeviceLimit caps how many devices an employee
// may register; zero means "use the default".
type Company struct {
	ID             uuid.UUID `json:"id" db:"id"`
	Name           string    `json:"name" db:"name"`
	MaxDeviceLimit int       `json:"max_device_limit" db:"max_device_limit"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// Session is a server-side login session backed by a refresh token.
// Revoking the session also blacklists the paired access token JTI.
type Session struct {
	ID           uuid.UUID `json:"id" db:"id"`
	UserID       uuid.UUID `json:"user_id" db:"user_id"`
	RefreshToken string    `json:"-" db:"refresh_token"`
	AccessJTI    string    `json:"-" db:"access_jti"`
	DeviceID     *string   `json:"device_id,omitempty" db:"device_id"`
	IPAddress    string    `json:"ip_address" db:"ip_address"`
	UserAgent    string    `json:"user_agent" db:"user_agent"`
	Revoked      bool      `json:"revoked" db:"revoked"`
	ExpiresAt    time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Notification is a persisted message for an in-app inbox. Delivery to
// side channels (email, websocket) is best-effort and not recorded here.
type Notification struct {
	ID          uuid.UUID `json:"id" db:"id"`
	RecipientID uuid.UUID `json:"recipient_id" db:"recipient_id"`
	CompanyID   uuid.UUID `json:"company_id" db:"company_id"`
	Title       string    `json:"title" db:"title"`
	Message     string    `json:"message" db:"message"`
	TypeID      int       `json:"type_id" db:"type_id"`
	ActionURL   string    `json:"action_url" db:"action_url"`
	IsRead      bool      `json:"is_read" db:"is_read"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
