package postgres

import (
	"context"

	"hrops/internal/domain"
	"hrops/pkg/errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type NotificationRepository struct {
	db *sqlx.DB
}

func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	query := `
		INSERT INTO notifications (
			id, recipient_id, company_id, title, message, type_id, action_url,
			is_read, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		n.ID, n.RecipientID, n.CompanyID, n.Title, n.Message,
		n.TypeID, n.ActionURL, n.IsRead, n.CreatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "failed to create notification")
	}

	return nil
}

func (r *NotificationRepository) ListByRecipient(ctx context.Context, recipientID uuid.UUID, limit, offset int) ([]*domain.Notification, error) {
	query := `
		SELECT id, recipient_id, company_id, title, message, type_id, action_url,
		       is_read, created_at
		FROM notifications
		WHERE recipient_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	var rows []*domain.Notification
	if err := r.db.SelectContext(ctx, &rows, query, recipientID, limit, offset); err != nil {
		return nil, errors.Wrap(err, "failed to list notifications")
	}

	return rows, nil
}

func (r *NotificationRepository) MarkRead(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `UPDATE notifications SET is_read = TRUE WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "failed to mark notification read")
	}

	return nil
}
