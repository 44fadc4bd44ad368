// Package notification implements the asynchronous notification dispatcher.
//
// Dispatch is fire-and-forget: Notify enqueues onto an in-process queue
// consumed by a worker goroutine, so delivery can never block a login
// response, and delivery failures are logged rather than surfaced.
package notification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"hrops/internal/domain"
	"hrops/pkg/geo"
	"hrops/pkg/logger"

	"github.com/google/uuid"
)

// Event types understood by the dispatcher.
const (
	EventDevicePendingApproval = "DEVICE_PENDING_APPROVAL"
	EventDeviceApproved        = "DEVICE_APPROVED"
	EventDeviceRejected        = "DEVICE_REJECTED"
)

// Notification type ids stored with each row; the frontend keys icons
// and routing off these.
const (
	TypeGeneral = 1
	TypeDevice  = 2
)

// Repository persists notifications for the in-app inbox.
type Repository interface {
	Create(ctx context.Context, n *domain.Notification) error
}

// UserDirectory resolves recipients for email delivery.
type UserDirectory interface {
	FindUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// Mailer is the email side channel.
type Mailer interface {
	Enabled() bool
	Send(to, subject, body string) error
}

// Broadcaster pushes events to connected admin dashboards.
type Broadcaster interface {
	Broadcast(companyID uuid.UUID, payload interface{})
}

type job struct {
	notification *domain.Notification
	location     string
}

// Dispatcher builds, persists, and fans out notifications.
type Dispatcher struct {
	repo     Repository
	users    UserDirectory
	mailer   Mailer
	hub      Broadcaster
	geocoder geo.ReverseGeocoder
	logger   logger.Logger

	queue chan job
	wg    sync.WaitGroup
	once  sync.Once
}

const queueDepth = 256

func NewDispatcher(repo Repository, users UserDirectory, mailer Mailer, hub Broadcaster, geocoder geo.ReverseGeocoder, log logger.Logger) *Dispatcher {
	return &Dispatcher{
		repo:     repo,
		users:    users,
		mailer:   mailer,
		hub:      hub,
		geocoder: geocoder,
		logger:   log,
		queue:    make(chan job, queueDepth),
	}
}

// Start launches the delivery worker.
func (d *Dispatcher) Start() {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for j := range d.queue {
			d.deliver(j)
		}
	}()
}

// Stop drains the queue and waits for in-flight deliveries.
func (d *Dispatcher) Stop() {
	d.once.Do(func() { close(d.queue) })
	d.wg.Wait()
}

// Notify builds a notification for the event and enqueues it. It never
// blocks: when the queue is full the notification is dropped with a log
// line, which the callers treat the same as any delivery failure.
func (d *Dispatcher) Notify(ctx context.Context, recipientID, companyID uuid.UUID, eventType string, data map[string]interface{}) error {
	title, message, actionURL := composeMessage(eventType, data)

	n := &domain.Notification{
		ID:          uuid.New(),
		RecipientID: recipientID,
		CompanyID:   companyID,
		Title:       title,
		Message:     message,
		TypeID:      typeIDFor(eventType),
		ActionURL:   actionURL,
		CreatedAt:   time.Now(),
	}

	location, _ := data["location"].(string)

	select {
	case d.queue <- job{notification: n, location: location}:
		return nil
	default:
		d.logger.Error("Notification queue full, dropping", logger.Fields{
			"recipient_id": recipientID,
			"event":        eventType,
		})
		return fmt.Errorf("notification queue full")
	}
}

func typeIDFor(eventType string) int {
	switch eventType {
	case EventDevicePendingApproval, EventDeviceApproved, EventDeviceRejected:
		return TypeDevice
	default:
		return TypeGeneral
	}
}

func composeMessage(eventType string, data map[string]interface{}) (title, message, actionURL string) {
	switch eventType {
	case EventDevicePendingApproval:
		requester := data["requester_name"]
		deviceInfo := data["device_info"]
		title = "Device Approval Required"
		message = fmt.Sprintf("%v is requesting approval for a new device (%v).", requester, deviceInfo)
		actionURL = "/admin/devices"

	case EventDeviceApproved:
		title = "Device Approved"
		message = fmt.Sprintf("Your device (%v) has been approved. You can now log in from it.", data["device_info"])
		actionURL = "/profile/devices"

	case EventDeviceRejected:
		title = "Device Rejected"
		message = fmt.Sprintf("Your device (%v) has been rejected. Please contact your administrator.", data["device_info"])
		actionURL = "/profile/devices"

	default:
		title = "Notification"
		message = fmt.Sprintf("Event: %s", eventType)
	}
	return title, message, actionURL
}

// deliver runs on the worker goroutine with its own timeout so a slow
// sink cannot back up into request handling.
func (d *Dispatcher) deliver(j job) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	n := j.notification

	// Annotate with a place name when the login carried coordinates.
	// Best-effort; raw coordinates are an acceptable fallback.
	if j.location != "" {
		if place := geo.Describe(ctx, d.geocoder, j.location); place != j.location {
			n.Message = fmt.Sprintf("%s Login location: %s.", n.Message, place)
		} else {
			n.Message = fmt.Sprintf("%s Login location: %s.", n.Message, j.location)
		}
	}

	if err := d.repo.Create(ctx, n); err != nil {
		d.logger.Error("Failed to persist notification", logger.Fields{
			"notification_id": n.ID,
			"recipient_id":    n.RecipientID,
			"error":           err.Error(),
		})
		// Fall through: the side channels may still reach the recipient.
	}

	if d.hub != nil {
		d.hub.Broadcast(n.CompanyID, n)
	}

	d.sendEmail(ctx, n)

	d.logger.Info("Notification dispatched", logger.Fields{
		"notification_id": n.ID,
		"recipient_id":    n.RecipientID,
		"type_id":         n.TypeID,
		"title":           n.Title,
	})
}

func (d *Dispatcher) sendEmail(ctx context.Context, n *domain.Notification) {
	if d.mailer == nil || !d.mailer.Enabled() {
		return
	}

	recipient, err := d.users.FindUserByID(ctx, n.RecipientID)
	if err != nil {
		d.logger.Warn("Recipient lookup failed, skipping email", logger.Fields{
			"recipient_id": n.RecipientID,
			"error":        err.Error(),
		})
		return
	}

	if err := d.mailer.Send(recipient.Email, n.Title, n.Message); err != nil {
		d.logger.Warn("Notification email failed", logger.Fields{
			"recipient_id": n.RecipientID,
			"error":        err.Error(),
		})
	}
}
