package swaps

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
	"github.com/dev-analyshd/main-albash-sub001/internal/common/money"
	"github.com/dev-analyshd/main-albash-sub001/internal/lifecycle"
)

type memoryStore struct {
	swaps map[string]*Swap
}

func newMemoryStore() *memoryStore {
	return &memoryStore{swaps: make(map[string]*Swap)}
}

func (m *memoryStore) Create(_ context.Context, sw *Swap) error {
	for _, existing := range m.swaps {
		if existing.TenantID == sw.TenantID && existing.IdempotencyKey == sw.IdempotencyKey {
			return database.ErrAlreadyExists
		}
	}
	cp := *sw
	m.swaps[sw.ID] = &cp
	return nil
}

func (m *memoryStore) Get(_ context.Context, tenantID, swapID string) (*Swap, error) {
	sw, ok := m.swaps[swapID]
	if !ok || sw.TenantID != tenantID {
		return nil, database.ErrNotFound
	}
	cp := *sw
	return &cp, nil
}

func (m *memoryStore) GetByIdempotencyKey(_ context.Context, tenantID, key string) (*Swap, error) {
	for _, sw := range m.swaps {
		if sw.TenantID == tenantID && sw.IdempotencyKey == key {
			cp := *sw
			return &cp, nil
		}
	}
	return nil, database.ErrNotFound
}

func (m *memoryStore) Update(_ context.Context, sw *Swap) error {
	if _, ok := m.swaps[sw.ID]; !ok {
		return database.ErrNotFound
	}
	cp := *sw
	m.swaps[sw.ID] = &cp
	return nil
}

func (m *memoryStore) List(_ context.Context, tenantID string, filter ListFilter) ([]*Swap, int, error) {
	var out []*Swap
	for _, sw := range m.swaps {
		if sw.TenantID != tenantID {
			continue
		}
		if filter.Status != "" && string(sw.Status) != filter.Status {
			continue
		}
		if filter.UserID != "" && sw.ProposerID != filter.UserID && sw.ResponderID != filter.UserID {
			continue
		}
		cp := *sw
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (m *memoryStore) ListPendingExpired(_ context.Context, now time.Time, limit int) ([]*Swap, error) {
	var out []*Swap
	for _, sw := range m.swaps {
		if sw.Status == lifecycle.SwapPending && !sw.ExpiresAt.After(now) && len(out) < limit {
			cp := *sw
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memoryStore) ListDisputedBefore(_ context.Context, cutoff time.Time, limit int) ([]*Swap, error) {
	var out []*Swap
	for _, sw := range m.swaps {
		if sw.Status == lifecycle.SwapDisputed && sw.DisputedAt != nil && !sw.DisputedAt.After(cutoff) && len(out) < limit {
			cp := *sw
			out = append(out, &cp)
		}
	}
	return out, nil
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

func (m *memoryPublisher) types() []events.Type {
	out := make([]events.Type, len(m.published))
	for i, env := range m.published {
		out[i] = env.Type
	}
	return out
}

func newTestService(t *testing.T) (*Service, *memoryStore, *memoryAudit, *memoryPublisher) {
	t.Helper()
	store := newMemoryStore()
	auditor := &memoryAudit{}
	publisher := &memoryPublisher{}
	policy := Policy{
		PendingTTL:         7 * 24 * time.Hour,
		DisputeRefundAfter: 7 * 24 * time.Hour,
		SweepBatchSize:     100,
	}
	svc := NewService(store, auditor, publisher, policy, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return svc, store, auditor, publisher
}

func propose(t *testing.T, svc *Service, key string) *Swap {
	t.Helper()
	sw, err := svc.Propose(context.Background(), ProposeRequest{
		TenantID:           "tenant-1",
		ProposerID:         "alice",
		ResponderID:        "bob",
		OfferedListingID:   "listing-a",
		RequestedListingID: "listing-b",
		CashTopUp:          money.New(50_000, money.NGN),
		IdempotencyKey:     key,
	})
	require.NoError(t, err)
	return sw
}

func TestServiceProposeIsIdempotent(t *testing.T) {
	svc, _, auditor, publisher := newTestService(t)

	first := propose(t, svc, "key-1")
	second := propose(t, svc, "key-1")

	assert.Equal(t, first.ID, second.ID, "replay returns the original swap")
	assert.Len(t, auditor.entries, 1, "replay records no second audit entry")
	assert.Equal(t, []events.Type{events.EventSwapProposed}, publisher.types())

	third := propose(t, svc, "key-2")
	assert.NotEqual(t, first.ID, third.ID)
}

func TestServiceAcceptAndComplete(t *testing.T) {
	svc, _, auditor, publisher := newTestService(t)
	ctx := context.Background()

	sw := propose(t, svc, "key-1")

	sw, err := svc.Accept(ctx, "tenant-1", sw.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, lifecycle.SwapAccepted, sw.Status)

	sw, err = svc.Confirm(ctx, "tenant-1", sw.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, lifecycle.SwapAccepted, sw.Status)
	assert.True(t, sw.ProposerConfirmed)

	sw, err = svc.Confirm(ctx, "tenant-1", sw.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, lifecycle.SwapCompleted, sw.Status)

	assert.Equal(t, []events.Type{
		events.EventSwapProposed,
		events.EventSwapAccepted,
		events.EventSwapCompleted,
	}, publisher.types())

	// propose, accept, confirm, complete
	entries, _, err := auditor.ListByEntity(ctx, "tenant-1", "swap", sw.ID, 10, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 4)
}

func TestServiceAcceptByWrongUser(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	sw := propose(t, svc, "key-1")

	_, err := svc.Accept(context.Background(), "tenant-1", sw.ID, "alice")
	assert.ErrorIs(t, err, ErrNotParticipant)

	got, err := svc.Get(context.Background(), "tenant-1", sw.ID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.SwapPending, got.Status, "failed action leaves state untouched")
}

func TestServiceDisputeOnCompletedSwapConflicts(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	sw := propose(t, svc, "key-1")
	_, err := svc.Accept(ctx, "tenant-1", sw.ID, "bob")
	require.NoError(t, err)
	_, err = svc.Confirm(ctx, "tenant-1", sw.ID, "alice")
	require.NoError(t, err)
	_, err = svc.Confirm(ctx, "tenant-1", sw.ID, "bob")
	require.NoError(t, err)

	_, err = svc.Dispute(ctx, "tenant-1", sw.ID, "alice", "regret")
	require.Error(t, err)
	assert.ErrorIs(t, err, lifecycle.ErrInvalidTransition)

	var terr *lifecycle.TransitionError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, lifecycle.SwapCompleted, terr.State)
}

func TestServiceResolveRefund(t *testing.T) {
	svc, _, _, publisher := newTestService(t)
	ctx := context.Background()

	sw := propose(t, svc, "key-1")
	_, err := svc.Accept(ctx, "tenant-1", sw.ID, "bob")
	require.NoError(t, err)
	_, err = svc.Dispute(ctx, "tenant-1", sw.ID, "alice", "item damaged")
	require.NoError(t, err)

	sw, err = svc.Resolve(ctx, "tenant-1", sw.ID, "admin-1", "refund approved", true)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.SwapRefunded, sw.Status)
	assert.Equal(t, "admin-1", sw.ResolvedBy)
	assert.Contains(t, publisher.types(), events.EventSwapRefunded)
}

func TestServiceExpirePendingSweep(t *testing.T) {
	svc, store, _, publisher := newTestService(t)
	ctx := context.Background()

	stale := propose(t, svc, "key-stale")
	fresh := propose(t, svc, "key-fresh")

	// Push one proposal past its deadline.
	sw := store.swaps[stale.ID]
	sw.ExpiresAt = time.Now().UTC().Add(-time.Hour)

	n, err := svc.ExpirePending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := svc.Get(ctx, "tenant-1", stale.ID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.SwapExpired, got.Status)

	got, err = svc.Get(ctx, "tenant-1", fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.SwapPending, got.Status)

	assert.Contains(t, publisher.types(), events.EventSwapExpired)
}

func TestServiceAutoRefundDisputesSweep(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	ctx := context.Background()

	sw := propose(t, svc, "key-1")
	_, err := svc.Accept(ctx, "tenant-1", sw.ID, "bob")
	require.NoError(t, err)
	_, err = svc.Dispute(ctx, "tenant-1", sw.ID, "alice", "never arrived")
	require.NoError(t, err)

	// Age the dispute past the refund window.
	aged := time.Now().UTC().Add(-8 * 24 * time.Hour)
	store.swaps[sw.ID].DisputedAt = &aged

	n, err := svc.AutoRefundDisputes(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := svc.Get(ctx, "tenant-1", sw.ID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.SwapRefunded, got.Status)
	assert.NotEmpty(t, got.ResolutionNote)
}

func TestServiceAutoRefundLeavesRecentDisputes(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	sw := propose(t, svc, "key-1")
	_, err := svc.Accept(ctx, "tenant-1", sw.ID, "bob")
	require.NoError(t, err)
	_, err = svc.Dispute(ctx, "tenant-1", sw.ID, "alice", "never arrived")
	require.NoError(t, err)

	n, err := svc.AutoRefundDisputes(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	got, err := svc.Get(ctx, "tenant-1", sw.ID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.SwapDisputed, got.Status)
}
