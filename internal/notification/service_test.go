package notification

import (
	"context"
	"sync"
	"testing"

	"hrops/internal/domain"
	"hrops/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepository struct {
	mu      sync.Mutex
	created []*domain.Notification
	err     error
}

func (r *fakeRepository) Create(ctx context.Context, n *domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.created = append(r.created, n)
	return nil
}

func (r *fakeRepository) all() []*domain.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Notification, len(r.created))
	copy(out, r.created)
	return out
}

type fakeDirectory struct {
	users map[uuid.UUID]*domain.User
}

func (d *fakeDirectory) FindUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	if u, ok := d.users[id]; ok {
		return u, nil
	}
	return nil, assert.AnError
}

type fakeMailer struct {
	mu      sync.Mutex
	enabled bool
	sent    []string
	err     error
}

func (m *fakeMailer) Enabled() bool { return m.enabled }

func (m *fakeMailer) Send(to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, to)
	return nil
}

type fakeHub struct {
	mu     sync.Mutex
	events []uuid.UUID
}

func (h *fakeHub) Broadcast(companyID uuid.UUID, payload interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, companyID)
}

func TestNotify_PendingApproval(t *testing.T) {
	repo := &fakeRepository{}
	manager := &domain.User{ID: uuid.New(), Email: "manager@example.com"}
	dir := &fakeDirectory{users: map[uuid.UUID]*domain.User{manager.ID: manager}}
	mail := &fakeMailer{enabled: true}
	hub := &fakeHub{}

	d := NewDispatcher(repo, dir, mail, hub, nil, logger.NewNop())
	d.Start()

	companyID := uuid.New()
	err := d.Notify(context.Background(), manager.ID, companyID, EventDevicePendingApproval, map[string]interface{}{
		"requester_name": "Jordan Reyes",
		"device_info":    "Chrome on macOS",
	})
	require.NoError(t, err)

	d.Stop()

	created := repo.all()
	require.Len(t, created, 1)
	n := created[0]
	assert.Equal(t, manager.ID, n.RecipientID)
	assert.Equal(t, companyID, n.CompanyID)
	assert.Equal(t, "Device Approval Required", n.Title)
	assert.Equal(t, "Jordan Reyes is requesting approval for a new device (Chrome on macOS).", n.Message)
	assert.Equal(t, TypeDevice, n.TypeID)
	assert.Equal(t, "/admin/devices", n.ActionURL)

	assert.Equal(t, []uuid.UUID{companyID}, hub.events)
	assert.Equal(t, []string{"manager@example.com"}, mail.sent)
}

func TestNotify_DeviceDecisionMessages(t *testing.T) {
	repo := &fakeRepository{}
	d := NewDispatcher(repo, &fakeDirectory{}, nil, nil, nil, logger.NewNop())
	d.Start()

	recipient := uuid.New()
	company := uuid.New()
	data := map[string]interface{}{"device_info": "Firefox on Linux"}

	require.NoError(t, d.Notify(context.Background(), recipient, company, EventDeviceApproved, data))
	require.NoError(t, d.Notify(context.Background(), recipient, company, EventDeviceRejected, data))
	d.Stop()

	created := repo.all()
	require.Len(t, created, 2)
	assert.Equal(t, "Your device (Firefox on Linux) has been approved. You can now log in from it.", created[0].Message)
	assert.Equal(t, "Your device (Firefox on Linux) has been rejected. Please contact your administrator.", created[1].Message)
	assert.Equal(t, "/profile/devices", created[0].ActionURL)
}

func TestNotify_PersistFailureStillBroadcasts(t *testing.T) {
	repo := &fakeRepository{err: assert.AnError}
	hub := &fakeHub{}
	d := NewDispatcher(repo, &fakeDirectory{}, nil, hub, nil, logger.NewNop())
	d.Start()

	companyID := uuid.New()
	require.NoError(t, d.Notify(context.Background(), uuid.New(), companyID, EventDeviceApproved,
		map[string]interface{}{"device_info": "x"}))
	d.Stop()

	// A dead inbox write must not silence the dashboard channel.
	assert.Equal(t, []uuid.UUID{companyID}, hub.events)
}

func TestNotify_QueueFull(t *testing.T) {
	repo := &fakeRepository{}
	d := NewDispatcher(repo, &fakeDirectory{}, nil, nil, nil, logger.NewNop())
	// Worker never started: the queue fills and Notify must not block.

	var err error
	for i := 0; i < queueDepth+1; i++ {
		err = d.Notify(context.Background(), uuid.New(), uuid.New(), EventDeviceApproved, nil)
	}
	assert.Error(t, err)
}

func TestNotify_UnknownEventFallsBack(t *testing.T) {
	repo := &fakeRepository{}
	d := NewDispatcher(repo, &fakeDirectory{}, nil, nil, nil, logger.NewNop())
	d.Start()

	require.NoError(t, d.Notify(context.Background(), uuid.New(), uuid.New(), "SOMETHING_ELSE", nil))
	d.Stop()

	created := repo.all()
	require.Len(t, created, 1)
	assert.Equal(t, TypeGeneral, created[0].TypeID)
}

func TestNotify_EmailFailureSwallowed(t *testing.T) {
	repo := &fakeRepository{}
	recipient := &domain.User{ID: uuid.New(), Email: "x@example.com"}
	dir := &fakeDirectory{users: map[uuid.UUID]*domain.User{recipient.ID: recipient}}
	mail := &fakeMailer{enabled: true, err: assert.AnError}

	d := NewDispatcher(repo, dir, mail, nil, nil, logger.NewNop())
	d.Start()

	require.NoError(t, d.Notify(context.Background(), recipient.ID, uuid.New(), EventDeviceApproved,
		map[string]interface{}{"device_info": "x"}))
	d.Stop()

	// The inbox row is the source of truth; email is advisory.
	assert.Len(t, repo.all(), 1)
}
