package verification

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dev-analyshd/main-albash-sub001/internal/audit"
	"github.com/dev-analyshd/main-albash-sub001/internal/common/database"
	"github.com/dev-analyshd/main-albash-sub001/internal/common/events"
	"github.com/dev-analyshd/main-albash-sub001/internal/lifecycle"
)

type memoryStore struct {
	apps     map[string]*Application
	profiles map[string]*ProfileStatus
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		apps:     make(map[string]*Application),
		profiles: make(map[string]*ProfileStatus),
	}
}

func (m *memoryStore) CreateApplication(_ context.Context, app *Application) error {
	cp := *app
	m.apps[app.ID] = &cp
	return nil
}

func (m *memoryStore) GetApplication(_ context.Context, tenantID, appID string) (*Application, error) {
	app, ok := m.apps[appID]
	if !ok || app.TenantID != tenantID {
		return nil, database.ErrNotFound
	}
	cp := *app
	return &cp, nil
}

func (m *memoryStore) LatestApplication(_ context.Context, tenantID, userID, kind string) (*Application, error) {
	var latest *Application
	for _, app := range m.apps {
		if app.TenantID != tenantID || app.UserID != userID || app.Kind != kind {
			continue
		}
		if latest == nil || app.SubmittedAt.After(latest.SubmittedAt) {
			latest = app
		}
	}
	if latest == nil {
		return nil, database.ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

func (m *memoryStore) UpdateApplication(_ context.Context, app *Application) error {
	if _, ok := m.apps[app.ID]; !ok {
		return database.ErrNotFound
	}
	cp := *app
	m.apps[app.ID] = &cp
	return nil
}

func (m *memoryStore) ListApplications(_ context.Context, tenantID string, filter ListFilter) ([]*Application, int, error) {
	var out []*Application
	for _, app := range m.apps {
		if app.TenantID != tenantID {
			continue
		}
		if filter.Status != "" && string(app.Status) != filter.Status {
			continue
		}
		if filter.Kind != "" && app.Kind != filter.Kind {
			continue
		}
		if filter.UserID != "" && app.UserID != filter.UserID {
			continue
		}
		cp := *app
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (m *memoryStore) GetProfileStatus(_ context.Context, tenantID, userID string) (*ProfileStatus, error) {
	ps, ok := m.profiles[tenantID+"/"+userID]
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := *ps
	return &cp, nil
}

func (m *memoryStore) UpsertProfileStatus(_ context.Context, status *ProfileStatus) error {
	cp := *status
	m.profiles[status.TenantID+"/"+status.UserID] = &cp
	return nil
}

type memoryAudit struct {
	entries []*audit.Entry
}

func (m *memoryAudit) Append(_ context.Context, entry *audit.Entry) error {
	m.entries = append(m.entries, entry)
	return nil
}

func (m *memoryAudit) ListByEntity(_ context.Context, tenantID, entityType, entityID string, limit, offset int) ([]*audit.Entry, int64, error) {
	var out []*audit.Entry
	for _, e := range m.entries {
		if e.TenantID == tenantID && e.EntityType == entityType && e.EntityID == entityID {
			out = append(out, e)
		}
	}
	return out, int64(len(out)), nil
}

func (m *memoryAudit) ListByActor(_ context.Context, tenantID, actorID string, limit, offset int) ([]*audit.Entry, int64, error) {
	var out []*audit.Entry
	for _, e := range m.entries {
		if e.TenantID == tenantID && e.ActorID == actorID {
			out = append(out, e)
		}
	}
	return out, int64(len(out)), nil
}

type memoryPublisher struct {
	published []*events.Envelope
}

func (m *memoryPublisher) Publish(_ context.Context, _ string, env *events.Envelope) error {
	m.published = append(m.published, env)
	return nil
}

func newTestService(t *testing.T) (*Service, *memoryStore, *memoryAudit, *memoryPublisher) {
	t.Helper()
	store := newMemoryStore()
	auditor := &memoryAudit{}
	publisher := &memoryPublisher{}
	policy := Policy{RejectionCooldown: 30 * 24 * time.Hour}
	svc := NewService(store, auditor, publisher, policy, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return svc, store, auditor, publisher
}

func TestServiceSubmit(t *testing.T) {
	svc, _, auditor, publisher := newTestService(t)
	ctx := context.Background()

	app, err := svc.Submit(ctx, "tenant-1", "user-1", KindSeller, map[string]string{"shop_name": "Analog Corner"})
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatePending, app.Status)

	ps, err := svc.ProfileStatus(ctx, "tenant-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatePending, ps.Status)

	assert.Len(t, auditor.entries, 1)
	require.Len(t, publisher.published, 1)
	assert.Equal(t, events.EventApplicationSubmitted, publisher.published[0].Type)
}

func TestServiceSubmitRejectsUnknownKind(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	_, err := svc.Submit(context.Background(), "tenant-1", "user-1", "landlord", nil)
	assert.Error(t, err)
}

func TestServiceSubmitBlocksOpenApplication(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Submit(ctx, "tenant-1", "user-1", KindSeller, nil)
	require.NoError(t, err)

	_, err = svc.Submit(ctx, "tenant-1", "user-1", KindSeller, nil)
	assert.Error(t, err, "a second open application of the same kind is rejected")

	// A different kind is independent.
	_, err = svc.Submit(ctx, "tenant-1", "user-1", KindMentor, nil)
	assert.NoError(t, err)
}

func TestServiceSubmitBlocksApprovedApplication(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	app, err := svc.Submit(ctx, "tenant-1", "user-1", KindSeller, nil)
	require.NoError(t, err)
	_, err = svc.Approve(ctx, "tenant-1", app.ID, "admin-1", "ok")
	require.NoError(t, err)

	_, err = svc.Submit(ctx, "tenant-1", "user-1", KindSeller, nil)
	assert.Error(t, err, "an approved seller cannot apply as a seller again")
}

func TestServiceSubmitCooldownAfterRejection(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	ctx := context.Background()

	app, err := svc.Submit(ctx, "tenant-1", "user-1", KindSeller, nil)
	require.NoError(t, err)
	_, err = svc.Reject(ctx, "tenant-1", app.ID, "admin-1", "incomplete documents")
	require.NoError(t, err)

	_, err = svc.Submit(ctx, "tenant-1", "user-1", KindSeller, nil)
	require.Error(t, err)

	var cooldown *ErrCooldownActive
	require.ErrorAs(t, err, &cooldown)
	assert.True(t, cooldown.RetryAfter.After(time.Now()))

	// Age the rejection past the window and reapply.
	decided := time.Now().UTC().Add(-31 * 24 * time.Hour)
	store.apps[app.ID].DecidedAt = &decided

	_, err = svc.Submit(ctx, "tenant-1", "user-1", KindSeller, nil)
	assert.NoError(t, err)
}

func TestServiceReviewFlow(t *testing.T) {
	svc, _, _, publisher := newTestService(t)
	ctx := context.Background()

	app, err := svc.Submit(ctx, "tenant-1", "user-1", KindSeller, nil)
	require.NoError(t, err)

	app, err = svc.StartReview(ctx, "tenant-1", app.ID, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StateInReview, app.Status)
	assert.Equal(t, "admin-1", app.ReviewerID)

	app, err = svc.RequestChanges(ctx, "tenant-1", app.ID, "admin-1", "add a utility bill")
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StateNeedsUpdate, app.Status)

	app, err = svc.Resubmit(ctx, "tenant-1", app.ID, "user-1", map[string]string{"utility_bill": "doc-9"})
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatePending, app.Status)

	app, err = svc.Approve(ctx, "tenant-1", app.ID, "admin-1", "all documents valid")
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StateApproved, app.Status)
	require.NotNil(t, app.DecidedAt)

	ps, err := svc.ProfileStatus(ctx, "tenant-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StateVerified, ps.Status)

	var types []events.Type
	for _, env := range publisher.published {
		types = append(types, env.Type)
	}
	assert.Equal(t, []events.Type{
		events.EventApplicationSubmitted,
		events.EventApplicationInReview,
		events.EventApplicationNeedsFixes,
		events.EventApplicationSubmitted,
		events.EventApplicationApproved,
	}, types)
}

func TestServiceResubmitByWrongUser(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	app, err := svc.Submit(ctx, "tenant-1", "user-1", KindSeller, nil)
	require.NoError(t, err)
	_, err = svc.RequestChanges(ctx, "tenant-1", app.ID, "admin-1", "fix name")
	require.NoError(t, err)

	_, err = svc.Resubmit(ctx, "tenant-1", app.ID, "user-2", nil)
	assert.Error(t, err)
}

func TestServiceApproveTwiceConflicts(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	app, err := svc.Submit(ctx, "tenant-1", "user-1", KindSeller, nil)
	require.NoError(t, err)
	_, err = svc.Approve(ctx, "tenant-1", app.ID, "admin-1", "ok")
	require.NoError(t, err)

	_, err = svc.Approve(ctx, "tenant-1", app.ID, "admin-1", "ok again")
	require.Error(t, err)
	assert.ErrorIs(t, err, lifecycle.ErrInvalidTransition)
}

func TestServiceSuspendAndReinstate(t *testing.T) {
	svc, _, auditor, _ := newTestService(t)
	ctx := context.Background()

	app, err := svc.Submit(ctx, "tenant-1", "user-1", KindSeller, nil)
	require.NoError(t, err)
	_, err = svc.Approve(ctx, "tenant-1", app.ID, "admin-1", "ok")
	require.NoError(t, err)

	ps, err := svc.Suspend(ctx, "tenant-1", "user-1", "admin-2", "chargebacks")
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StateSuspended, ps.Status)

	// Suspending an already suspended profile is a conflict.
	_, err = svc.Suspend(ctx, "tenant-1", "user-1", "admin-2", "again")
	assert.ErrorIs(t, err, lifecycle.ErrInvalidTransition)

	ps, err = svc.Reinstate(ctx, "tenant-1", "user-1", "admin-2", "resolved")
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StateVerified, ps.Status)

	entries, _, err := auditor.ListByEntity(ctx, "tenant-1", "profile", "user-1", 10, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "suspend and reinstate are both audited")
}

func TestServiceSuspendUnverifiedProfile(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	_, err := svc.Suspend(context.Background(), "tenant-1", "ghost", "admin-1", "spam")
	assert.ErrorIs(t, err, lifecycle.ErrInvalidTransition)
}

func TestServiceProfileStatusDefaultsToUnverified(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	ps, err := svc.ProfileStatus(context.Background(), "tenant-1", "nobody")
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StateUnverified, ps.Status)
}
