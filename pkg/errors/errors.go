// Package errors provides common, reusable error values and helpers.
package errors

import (
	"errors"
	"fmt"
)

// Common errors
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserInactive       = errors.New("user account is inactive")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidTOTPCode    = errors.New("invalid verification code")
	ErrCompanyNotFound    = errors.New("company not found")
	ErrDeviceNotFound     = errors.New("device not found")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionRevoked     = errors.New("session revoked")

	// ErrDeviceExists is returned when an insert loses the race against a
	// concurrent first login from the same device. The login gate treats it
	// as "already pending", not as a failure.
	ErrDeviceExists = errors.New("device already registered")
)

// Device gate errors. The messages are rendered verbatim in the login UI
// and must not be reworded.
var (
	ErrDeviceNew = errors.New("New device detected. Your device has been registered and is pending approval. " +
		"Please wait for an administrator to approve your device before logging in.")
	ErrDevicePending = errors.New("Your device is pending approval. " +
		"Please wait for an administrator to approve your device before logging in.")
	ErrDeviceRejected = errors.New("This device has been rejected. Please contact your administrator.")
)

// DeviceLimitError is returned when registering a new device would exceed
// the company's device quota. It carries the effective limit so the
// message can name it.
type DeviceLimitError struct {
	Limit int
}

func (e *DeviceLimitError) Error() string {
	return fmt.Sprintf("Device limit reached (%d). Please ask your admin to remove an old device.", e.Limit)
}

// IsDeviceBlocked reports whether err is one of the device gate outcomes
// whose message must surface verbatim to the caller.
func IsDeviceBlocked(err error) bool {
	var limitErr *DeviceLimitError
	return errors.Is(err, ErrDeviceNew) ||
		errors.Is(err, ErrDevicePending) ||
		errors.Is(err, ErrDeviceRejected) ||
		errors.As(err, &limitErr)
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
