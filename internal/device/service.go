package device

import (
	"context"

	"hrops/internal/domain"
	"hrops/pkg/errors"
	"hrops/pkg/logger"

	"github.com/google/uuid"
)

// UserStore resolves device owners for notification routing.
type UserStore interface {
	FindUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// Notifier delivers best-effort messages about device decisions.
type Notifier interface {
	Notify(ctx context.Context, recipientID, companyID uuid.UUID, eventType string, data map[string]interface{}) error
}

// SessionRevoker ends an employee's live sessions when their device
// loses trust.
type SessionRevoker interface {
	RevokeAllForUser(ctx context.Context, userID uuid.UUID) error
}

// Service is the administrative management surface over the registry:
// approve, reject, remove, list. The login gate never calls these.
type Service struct {
	registry Registry
	users    UserStore
	notifier Notifier
	sessions SessionRevoker
	logger   logger.Logger
}

func NewService(registry Registry, users UserStore, notifier Notifier, sessions SessionRevoker, log logger.Logger) *Service {
	return &Service{
		registry: registry,
		users:    users,
		notifier: notifier,
		sessions: sessions,
		logger:   log,
	}
}

// Approve marks a device as trusted so its owner can log in from it.
func (s *Service) Approve(ctx context.Context, id uuid.UUID) error {
	_, err := s.transition(ctx, id, domain.DeviceStatusApproved, "DEVICE_APPROVED")
	return err
}

// Reject blocks the device and ends the owner's live sessions. The
// owner keeps the record against their quota until an admin removes it.
func (s *Service) Reject(ctx context.Context, id uuid.UUID) error {
	rec, err := s.transition(ctx, id, domain.DeviceStatusRejected, "DEVICE_REJECTED")
	if err != nil {
		return err
	}

	s.revokeSessions(ctx, rec.UserID)
	return nil
}

// revokeSessions is best-effort: the rejection already stands, and the
// device gate will block the next full login regardless.
func (s *Service) revokeSessions(ctx context.Context, userID uuid.UUID) {
	if s.sessions == nil {
		return
	}
	if err := s.sessions.RevokeAllForUser(ctx, userID); err != nil {
		s.logger.Warn("Failed to revoke sessions for rejected device owner", logger.Fields{
			"user_id": userID,
			"error":   err.Error(),
		})
	}
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, status domain.DeviceStatus, event string) (*domain.DeviceRecord, error) {
	rec, err := s.registry.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.registry.UpdateStatus(ctx, id, status); err != nil {
		return nil, errors.Wrap(err, "failed to update device status")
	}

	s.logger.Info("Device status changed", logger.Fields{
		"device_record_id": id,
		"user_id":          rec.UserID,
		"status":           string(status),
	})

	if s.notifier != nil {
		owner, err := s.users.FindUserByID(ctx, rec.UserID)
		if err != nil {
			s.logger.Warn("Device owner lookup failed, skipping notification", logger.Fields{
				"user_id": rec.UserID,
				"error":   err.Error(),
			})
			return rec, nil
		}
		if err := s.notifier.Notify(ctx, owner.ID, owner.CompanyID, event, map[string]interface{}{
			"device_info": rec.DeviceInfo,
		}); err != nil {
			s.logger.Warn("Device decision notification failed", logger.Fields{
				"user_id": owner.ID,
				"error":   err.Error(),
			})
		}
	}

	return rec, nil
}

// Remove deletes the record, freeing a quota slot for the employee.
func (s *Service) Remove(ctx context.Context, id uuid.UUID) error {
	if _, err := s.registry.FindByID(ctx, id); err != nil {
		return err
	}
	return s.registry.Delete(ctx, id)
}

// ListByCompany returns every device record for a tenant's employees.
func (s *Service) ListByCompany(ctx context.Context, companyID uuid.UUID) ([]*domain.DeviceRecord, error) {
	return s.registry.ListByCompany(ctx, companyID)
}
