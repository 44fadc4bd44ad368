// Package auth implements credential verification and the device trust
// gate that decides whether a login may complete.
package auth

import (
	"context"
	stderrors "errors"
	"time"

	"hrops/internal/device"
	"hrops/internal/domain"
	"hrops/pkg/errors"
	"hrops/pkg/logger"

	"github.com/google/uuid"
	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/bcrypt"
)

// UserRepository is the user persistence contract consumed by the gate.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

// SessionStore persists login sessions.
type SessionStore interface {
	Create(ctx context.Context, s *domain.Session) error
	FindByRefreshToken(ctx context.Context, token string) (*domain.Session, error)
	Revoke(ctx context.Context, id uuid.UUID) error
}

// TokenBlacklist invalidates issued access tokens by JTI.
type TokenBlacklist interface {
	RevokeJTI(ctx context.Context, jti string, ttl time.Duration) error
}

// PolicyResolver answers the company device quota.
type PolicyResolver interface {
	MaxDeviceLimit(ctx context.Context, companyID uuid.UUID) (int, error)
}

// Notifier delivers best-effort supervisor notifications.
type Notifier interface {
	Notify(ctx context.Context, recipientID, companyID uuid.UUID, eventType string, data map[string]interface{}) error
}

// DeviceContext carries the client-supplied device identity and
// request metadata for one login attempt.
type DeviceContext struct {
	DeviceID   string `json:"device_id" validate:"omitempty,fingerprint"`
	DeviceInfo string `json:"device_info"`
	Browser    string `json:"browser"`
	OS         string `json:"os"`
	DeviceType string `json:"device_type"`
	Model      string `json:"model"`
	Location   string `json:"location"`
	UserAgent  string `json:"-"`
	IPAddress  string `json:"-"`
}

// LoginRequest captures credentials for password login.
type LoginRequest struct {
	Email    string        `json:"email" validate:"required,email"`
	Password string        `json:"password" validate:"required"`
	TOTPCode string        `json:"totp_code"`
	Device   DeviceContext `json:"device"`
}

// TokenResponse is returned on successful login with issued tokens.
type TokenResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresAt    time.Time    `json:"expires_at"`
	User         *domain.User `json:"user"`
}

// Service orchestrates the login flow: credentials first, then the
// device gate, with the session torn down on any blocked branch.
type Service struct {
	users     UserRepository
	sessions  SessionStore
	blacklist TokenBlacklist
	registry  device.Registry
	policy    PolicyResolver
	notifier  Notifier
	tokens    *TokenIssuer
	logger    logger.Logger
}

func NewService(
	users UserRepository,
	sessions SessionStore,
	blacklist TokenBlacklist,
	registry device.Registry,
	policy PolicyResolver,
	notifier Notifier,
	tokens *TokenIssuer,
	log logger.Logger,
) *Service {
	return &Service{
		users:     users,
		sessions:  sessions,
		blacklist: blacklist,
		registry:  registry,
		policy:    policy,
		notifier:  notifier,
		tokens:    tokens,
		logger:    log,
	}
}

// Login authenticates the employee and runs the device gate. Device
// writes and notifications only happen after the credentials check out.
func (s *Service) Login(ctx context.Context, req *LoginRequest) (*TokenResponse, error) {
	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if stderrors.Is(err, errors.ErrUserNotFound) {
			return nil, errors.ErrInvalidCredentials
		}
		return nil, err
	}

	if !user.IsActive {
		return nil, errors.ErrUserInactive
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return nil, errors.ErrInvalidCredentials
	}

	if user.IsTOTPEnabled && user.TOTPSecret != nil {
		if !totp.Validate(req.TOTPCode, *user.TOTPSecret) {
			return nil, errors.ErrInvalidTOTPCode
		}
	}

	return s.completeLogin(ctx, user, req.Device)
}

// completeLogin establishes the session and applies the device gate.
// OAuth logins join here after identity verification.
func (s *Service) completeLogin(ctx context.Context, user *domain.User, dev DeviceContext) (*TokenResponse, error) {
	session, resp, err := s.establishSession(ctx, user, dev)
	if err != nil {
		return nil, err
	}

	if err := s.gateDevice(ctx, user, dev); err != nil {
		// A blocked device must never leave an authenticated session
		// behind, whatever the branch.
		s.teardownSession(ctx, session)
		return nil, err
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID, time.Now()); err != nil {
		s.logger.Warn("Failed to update user last login", logger.Fields{
			"user_id": user.ID,
			"error":   err.Error(),
		})
	}

	return resp, nil
}

// gateDevice runs the trusted-device state machine. A nil return means
// the login may complete.
func (s *Service) gateDevice(ctx context.Context, user *domain.User, dev DeviceContext) error {
	if dev.DeviceID == "" || dev.DeviceInfo == "" {
		// Clients that send no device identity skip gating entirely.
		// Kept for pre-enrollment and non-browser clients.
		s.logger.Debug("Device gating skipped: no device identity supplied", logger.Fields{
			"user_id": user.ID,
		})
		return nil
	}

	limit, err := s.policy.MaxDeviceLimit(ctx, user.CompanyID)
	if err != nil {
		return err
	}

	rec, err := s.registry.FindDevice(ctx, user.ID, dev.DeviceID)
	switch {
	case err == nil:
		return s.gateKnownDevice(ctx, rec, dev)
	case stderrors.Is(err, errors.ErrDeviceNotFound):
		return s.registerNewDevice(ctx, user, dev, limit)
	default:
		return err
	}
}

func (s *Service) gateKnownDevice(ctx context.Context, rec *domain.DeviceRecord, dev DeviceContext) error {
	switch rec.Status {
	case domain.DeviceStatusApproved:
		upd := device.TouchUpdate{
			LastLogin:  time.Now(),
			IPAddress:  dev.IPAddress,
			Browser:    optional(dev.Browser),
			OS:         optional(dev.OS),
			DeviceType: optional(dev.DeviceType),
			Model:      optional(dev.Model),
			UserAgent:  optional(dev.UserAgent),
			Location:   optional(dev.Location),
		}
		if err := s.registry.TouchApproved(ctx, rec.ID, upd); err != nil {
			return err
		}
		return nil

	case domain.DeviceStatusPending:
		return errors.ErrDevicePending

	case domain.DeviceStatusRejected:
		return errors.ErrDeviceRejected

	default:
		return errors.Wrap(errors.ErrDeviceNotFound, "unexpected device status "+string(rec.Status))
	}
}

func (s *Service) registerNewDevice(ctx context.Context, user *domain.User, dev DeviceContext, limit int) error {
	count, err := s.registry.CountDevices(ctx, user.ID)
	if err != nil {
		return err
	}

	if device.OverLimit(count, limit) {
		return &errors.DeviceLimitError{Limit: limit}
	}

	now := time.Now()
	rec := &domain.DeviceRecord{
		ID:         uuid.New(),
		UserID:     user.ID,
		DeviceID:   dev.DeviceID,
		Status:     domain.DeviceStatusPending,
		DeviceInfo: dev.DeviceInfo,
		Browser:    optional(dev.Browser),
		OS:         optional(dev.OS),
		DeviceType: optional(dev.DeviceType),
		Model:      optional(dev.Model),
		UserAgent:  optional(dev.UserAgent),
		IPAddress:  dev.IPAddress,
		Location:   optional(dev.Location),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.registry.InsertPending(ctx, rec); err != nil {
		if stderrors.Is(err, errors.ErrDeviceExists) {
			// A concurrent attempt from the same device won the insert
			// race and already triggered the notification.
			return errors.ErrDeviceNew
		}
		return err
	}

	s.notifySupervisor(ctx, user, rec)

	return errors.ErrDeviceNew
}

// notifySupervisor asks the employee's manager to review the device.
// Delivery is fire-and-forget; failures are logged, never surfaced.
func (s *Service) notifySupervisor(ctx context.Context, user *domain.User, rec *domain.DeviceRecord) {
	if s.notifier == nil {
		return
	}
	if user.ManagerID == nil {
		s.logger.Debug("No supervisor to notify for pending device", logger.Fields{
			"user_id": user.ID,
		})
		return
	}

	data := map[string]interface{}{
		"requester_name": user.FullName(),
		"device_info":    rec.DeviceInfo,
	}
	if rec.Location != nil {
		data["location"] = *rec.Location
	}

	if err := s.notifier.Notify(ctx, *user.ManagerID, user.CompanyID, "DEVICE_PENDING_APPROVAL", data); err != nil {
		s.logger.Warn("Supervisor notification failed", logger.Fields{
			"user_id":    user.ID,
			"manager_id": *user.ManagerID,
			"error":      err.Error(),
		})
	}
}

func (s *Service) teardownSession(ctx context.Context, session *domain.Session) {
	if err := s.sessions.Revoke(ctx, session.ID); err != nil {
		s.logger.Error("Failed to revoke session after blocked device", logger.Fields{
			"session_id": session.ID,
			"error":      err.Error(),
		})
	}
	if err := s.blacklist.RevokeJTI(ctx, session.AccessJTI, s.tokens.AccessExpiry()); err != nil {
		s.logger.Error("Failed to blacklist access token after blocked device", logger.Fields{
			"session_id": session.ID,
			"error":      err.Error(),
		})
	}
}

// Logout revokes the session identified by the refresh token.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	session, err := s.sessions.FindByRefreshToken(ctx, refreshToken)
	if err != nil {
		return err
	}

	if err := s.sessions.Revoke(ctx, session.ID); err != nil {
		return err
	}
	return s.blacklist.RevokeJTI(ctx, session.AccessJTI, s.tokens.AccessExpiry())
}

// Refresh rotates a session: the old refresh token is revoked and a new
// token pair is issued. The device gate does not re-run here; a device
// decision takes effect at the next full login or via admin revocation.
func (s *Service) Refresh(ctx context.Context, refreshToken string, dev DeviceContext) (*TokenResponse, error) {
	session, err := s.sessions.FindByRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	if session.Revoked {
		return nil, errors.ErrSessionRevoked
	}
	if time.Now().After(session.ExpiresAt) {
		return nil, errors.ErrSessionRevoked
	}
	if session.DeviceID != nil && dev.DeviceID != "" && *session.DeviceID != dev.DeviceID {
		return nil, errors.ErrInvalidCredentials
	}

	if err := s.sessions.Revoke(ctx, session.ID); err != nil {
		return nil, err
	}

	user, err := s.users.FindUserByID(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, errors.ErrUserInactive
	}

	_, resp, err := s.establishSession(ctx, user, dev)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *Service) establishSession(ctx context.Context, user *domain.User, dev DeviceContext) (*domain.Session, *TokenResponse, error) {
	issued, err := s.tokens.Issue(user)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to issue tokens")
	}

	now := time.Now()
	session := &domain.Session{
		ID:           uuid.New(),
		UserID:       user.ID,
		RefreshToken: issued.RefreshToken,
		AccessJTI:    issued.JTI,
		DeviceID:     optional(dev.DeviceID),
		IPAddress:    dev.IPAddress,
		UserAgent:    dev.UserAgent,
		ExpiresAt:    now.Add(s.tokens.RefreshExpiry()),
		CreatedAt:    now,
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, nil, errors.Wrap(err, "failed to persist session")
	}

	return session, &TokenResponse{
		AccessToken:  issued.AccessToken,
		RefreshToken: issued.RefreshToken,
		ExpiresAt:    issued.ExpiresAt,
		User:         user,
	}, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
