package swaps

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/dev-analyshd/main-albash-sub001/internal/audit"
	"github.com/dev-analyshd/main-albash-sub001/internal/common/database"
	"github.com/dev-analyshd/main-albash-sub001/internal/common/events"
	"github.com/dev-analyshd/main-albash-sub001/internal/common/money"
)

// Policy holds the operational deadlines for the swap center.
type Policy struct {
	// PendingTTL is how long a proposal waits for a response before
	// the expiry sweep closes it.
	PendingTTL time.Duration `envconfig:"SWAP_PENDING_TTL" default:"168h"`
	// DisputeRefundAfter is how long a dispute may sit unresolved
	// before the sweep refunds it automatically.
	DisputeRefundAfter time.Duration `envconfig:"SWAP_DISPUTE_REFUND_AFTER" default:"168h"`
	// SweepBatchSize bounds how many swaps a single sweep touches.
	SweepBatchSize int `envconfig:"SWAP_SWEEP_BATCH_SIZE" default:"100"`
}

// Service manages the swap lifecycle.
type Service struct {
	store     Store
	auditor   audit.Store
	publisher events.Publisher
	policy    Policy
	logger    *slog.Logger
}

// NewService creates a new swaps service.
func NewService(store Store, auditor audit.Store, publisher events.Publisher, policy Policy, logger *slog.Logger) *Service {
	return &Service{
		store:     store,
		auditor:   auditor,
		publisher: publisher,
		policy:    policy,
		logger:    logger,
	}
}

// ProposeRequest is the request to open a swap proposal.
type ProposeRequest struct {
	TenantID           string
	ProposerID         string
	ResponderID        string
	OfferedListingID   string
	RequestedListingID string
	CashTopUp          money.Money
	IdempotencyKey     string
}

// Propose creates a pending swap. Replaying the same idempotency key
// returns the swap created by the first call.
func (s *Service) Propose(ctx context.Context, req ProposeRequest) (*Swap, error) {
	if existing, err := s.store.GetByIdempotencyKey(ctx, req.TenantID, req.IdempotencyKey); err == nil {
		return existing, nil
	} else if !database.IsNotFound(err) {
		return nil, fmt.Errorf("idempotency lookup: %w", err)
	}

	sw, err := NewSwap(
		ulid.Make().String(),
		req.TenantID,
		req.ProposerID,
		req.ResponderID,
		req.OfferedListingID,
		req.RequestedListingID,
		req.CashTopUp,
		req.IdempotencyKey,
		s.policy.PendingTTL,
	)
	if err != nil {
		return nil, err
	}

	if err := s.store.Create(ctx, sw); err != nil {
		// Lost a race on the idempotency key; return the winner.
		if err == database.ErrAlreadyExists {
			return s.store.GetByIdempotencyKey(ctx, req.TenantID, req.IdempotencyKey)
		}
		return nil, fmt.Errorf("store swap: %w", err)
	}

	s.record(ctx, sw, req.ProposerID, "swap.propose", "", "")
	s.publish(ctx, events.EventSwapProposed, sw, "")

	s.logger.Info("swap proposed",
		"swap_id", sw.ID,
		"proposer_id", sw.ProposerID,
		"responder_id", sw.ResponderID,
	)

	return sw, nil
}

// Get returns a swap by ID.
func (s *Service) Get(ctx context.Context, tenantID, swapID string) (*Swap, error) {
	return s.store.Get(ctx, tenantID, swapID)
}

// List returns a tenant's swaps with the total matching count.
func (s *Service) List(ctx context.Context, tenantID string, filter ListFilter) ([]*Swap, int, error) {
	return s.store.List(ctx, tenantID, filter)
}

// Accept marks a pending swap accepted by the responder.
func (s *Service) Accept(ctx context.Context, tenantID, swapID, userID string) (*Swap, error) {
	return s.transition(ctx, tenantID, swapID, userID, "swap.accept", events.EventSwapAccepted, "",
		func(sw *Swap) error { return sw.Accept(userID) })
}

// Reject marks a pending swap rejected by the responder.
func (s *Service) Reject(ctx context.Context, tenantID, swapID, userID string) (*Swap, error) {
	return s.transition(ctx, tenantID, swapID, userID, "swap.reject", events.EventSwapRejected, "",
		func(sw *Swap) error { return sw.Reject(userID) })
}

// Cancel withdraws a pending proposal. Only the proposer may cancel.
func (s *Service) Cancel(ctx context.Context, tenantID, swapID, userID string) (*Swap, error) {
	return s.transition(ctx, tenantID, swapID, userID, "swap.cancel", events.EventSwapCancelled, "",
		func(sw *Swap) error { return sw.Cancel(userID) })
}

// Confirm records one side's completion confirmation. When both sides
// have confirmed the swap completes.
func (s *Service) Confirm(ctx context.Context, tenantID, swapID, userID string) (*Swap, error) {
	sw, err := s.store.Get(ctx, tenantID, swapID)
	if err != nil {
		return nil, err
	}

	before := sw.Status
	if err := sw.Confirm(userID); err != nil {
		return nil, err
	}

	if err := s.store.Update(ctx, sw); err != nil {
		return nil, fmt.Errorf("update swap: %w", err)
	}

	if sw.Status != before {
		s.record(ctx, sw, userID, "swap.complete", string(before), "")
		s.publish(ctx, events.EventSwapCompleted, sw, "")
		s.logger.Info("swap completed", "swap_id", sw.ID)
	} else {
		s.record(ctx, sw, userID, "swap.confirm", string(before), "")
	}

	return sw, nil
}

// Dispute flags an accepted swap for admin review.
func (s *Service) Dispute(ctx context.Context, tenantID, swapID, userID, reason string) (*Swap, error) {
	return s.transition(ctx, tenantID, swapID, userID, "swap.dispute", events.EventSwapDisputed, reason,
		func(sw *Swap) error { return sw.Dispute(userID, reason) })
}

// Resolve closes a disputed swap by admin decision. refund=false
// upholds the trade (completed); refund=true unwinds it (refunded).
func (s *Service) Resolve(ctx context.Context, tenantID, swapID, adminID, note string, refund bool) (*Swap, error) {
	eventType := events.EventSwapResolved
	if refund {
		eventType = events.EventSwapRefunded
	}
	return s.transition(ctx, tenantID, swapID, adminID, "swap.resolve", eventType, note,
		func(sw *Swap) error { return sw.Resolve(adminID, note, refund) })
}

// ExpirePending closes pending swaps whose response deadline passed.
// Intended to run on a timer.
func (s *Service) ExpirePending(ctx context.Context) (int, error) {
	stale, err := s.store.ListPendingExpired(ctx, time.Now().UTC(), s.policy.SweepBatchSize)
	if err != nil {
		return 0, fmt.Errorf("list expired swaps: %w", err)
	}

	var expired int
	for _, sw := range stale {
		before := sw.Status
		if err := sw.Expire(); err != nil {
			continue
		}
		if err := s.store.Update(ctx, sw); err != nil {
			s.logger.Error("failed to expire swap", "swap_id", sw.ID, "error", err)
			continue
		}
		s.record(ctx, sw, "system", "swap.expire", string(before), "response deadline passed")
		s.publish(ctx, events.EventSwapExpired, sw, "")
		expired++
	}

	if expired > 0 {
		s.logger.Info("expired pending swaps", "count", expired)
	}
	return expired, nil
}

// AutoRefundDisputes refunds disputes left unresolved past the policy
// window. Intended to run on a timer.
func (s *Service) AutoRefundDisputes(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-s.policy.DisputeRefundAfter)
	stale, err := s.store.ListDisputedBefore(ctx, cutoff, s.policy.SweepBatchSize)
	if err != nil {
		return 0, fmt.Errorf("list stale disputes: %w", err)
	}

	var refunded int
	for _, sw := range stale {
		before := sw.Status
		if err := sw.Refund("dispute unresolved past the refund window"); err != nil {
			continue
		}
		if err := s.store.Update(ctx, sw); err != nil {
			s.logger.Error("failed to refund disputed swap", "swap_id", sw.ID, "error", err)
			continue
		}
		s.record(ctx, sw, "system", "swap.refund", string(before), sw.ResolutionNote)
		s.publish(ctx, events.EventSwapRefunded, sw, sw.DisputeReason)
		refunded++
	}

	if refunded > 0 {
		s.logger.Info("auto-refunded stale disputes", "count", refunded)
	}
	return refunded, nil
}

// transition loads a swap, applies fn, persists it, and emits the
// audit row and event.
func (s *Service) transition(ctx context.Context, tenantID, swapID, actorID, action string, eventType events.Type, note string, fn func(*Swap) error) (*Swap, error) {
	sw, err := s.store.Get(ctx, tenantID, swapID)
	if err != nil {
		return nil, err
	}

	before := sw.Status
	if err := fn(sw); err != nil {
		return nil, err
	}

	if err := s.store.Update(ctx, sw); err != nil {
		return nil, fmt.Errorf("update swap: %w", err)
	}

	s.record(ctx, sw, actorID, action, string(before), note)
	s.publish(ctx, eventType, sw, note)

	s.logger.Info("swap transitioned",
		"swap_id", sw.ID,
		"from", before,
		"to", sw.Status,
		"actor_id", actorID,
	)

	return sw, nil
}

func (s *Service) record(ctx context.Context, sw *Swap, actorID, action, fromStatus, note string) {
	entry := audit.NewEntry(sw.TenantID, actorID, action, "swap", sw.ID, fromStatus, string(sw.Status), note)
	if err := s.auditor.Append(ctx, entry); err != nil {
		s.logger.Error("failed to append audit entry", "swap_id", sw.ID, "action", action, "error", err)
	}
}

func (s *Service) publish(ctx context.Context, eventType events.Type, sw *Swap, reason string) {
	data := events.SwapUpdateData{
		SwapID:      sw.ID,
		ProposerID:  sw.ProposerID,
		ResponderID: sw.ResponderID,
		Status:      string(sw.Status),
		Reason:      reason,
	}
	if env, err := events.NewEnvelope(eventType, sw.TenantID, sw.ID, data); err == nil {
		if err := s.publisher.Publish(ctx, events.SubjectSwapUpdate, env); err != nil {
			s.logger.Error("failed to publish swap event", "error", err, "type", eventType)
		}
	}
}
