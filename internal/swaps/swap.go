// Package swaps implements the peer-to-peer swap center: listing-for-
// listing trades with optional cash top-up and escrow-style status
// tracking. Status transitions are governed by the swap machine in the
// lifecycle package; no funds or items are held by this service.
package swaps

import (
	"errors"
	"fmt"
	"time"

	"github.com/dev-analyshd/main-albash-sub001/internal/common/money"
	"github.com/dev-analyshd/main-albash-sub001/internal/lifecycle"
)

// Swap represents a proposed trade between two users.
type Swap struct {
	ID                 string          `json:"id"`
	TenantID           string          `json:"tenant_id"`
	ProposerID         string          `json:"proposer_id"`
	ResponderID        string          `json:"responder_id"`
	OfferedListingID   string          `json:"offered_listing_id"`
	RequestedListingID string          `json:"requested_listing_id"`
	CashTopUp          money.Money     `json:"cash_top_up"`
	Status             lifecycle.State `json:"status"`
	IdempotencyKey     string          `json:"idempotency_key"`

	ProposerConfirmed  bool `json:"proposer_confirmed"`
	ResponderConfirmed bool `json:"responder_confirmed"`

	DisputeReason  string     `json:"dispute_reason,omitempty"`
	DisputedAt     *time.Time `json:"disputed_at,omitempty"`
	ResolutionNote string     `json:"resolution_note,omitempty"`
	ResolvedBy     string     `json:"resolved_by,omitempty"`

	AcceptedAt  *time.Time `json:"accepted_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	ExpiresAt   time.Time  `json:"expires_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ErrNotParticipant is returned when a user acts on a swap they are
// not part of.
var ErrNotParticipant = errors.New("user is not a participant in this swap")

// NewSwap creates a pending swap proposal.
func NewSwap(id, tenantID, proposerID, responderID, offeredListingID, requestedListingID string, cashTopUp money.Money, idempotencyKey string, ttl time.Duration) (*Swap, error) {
	if id == "" {
		return nil, errors.New("id is required")
	}
	if tenantID == "" {
		return nil, errors.New("tenant_id is required")
	}
	if proposerID == "" || responderID == "" {
		return nil, errors.New("proposer_id and responder_id are required")
	}
	if proposerID == responderID {
		return nil, errors.New("cannot propose a swap with yourself")
	}
	if offeredListingID == "" || requestedListingID == "" {
		return nil, errors.New("offered and requested listing IDs are required")
	}
	if cashTopUp.IsNegative() {
		return nil, errors.New("cash top-up cannot be negative")
	}
	if idempotencyKey == "" {
		return nil, errors.New("idempotency_key is required")
	}

	now := time.Now().UTC()
	return &Swap{
		ID:                 id,
		TenantID:           tenantID,
		ProposerID:         proposerID,
		ResponderID:        responderID,
		OfferedListingID:   offeredListingID,
		RequestedListingID: requestedListingID,
		CashTopUp:          cashTopUp,
		Status:             lifecycle.SwapPending,
		IdempotencyKey:     idempotencyKey,
		ExpiresAt:          now.Add(ttl),
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}

// apply runs an action through the swap machine and advances Status.
func (s *Swap) apply(action lifecycle.Action) error {
	next, err := lifecycle.SwapMachine.Transition(s.Status, action)
	if err != nil {
		return err
	}
	s.Status = next
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// Accept moves a pending swap to accepted. Only the responder accepts.
func (s *Swap) Accept(userID string) error {
	if userID != s.ResponderID {
		return fmt.Errorf("%w: only the responder can accept", ErrNotParticipant)
	}
	if err := s.apply(lifecycle.SwapActionAccept); err != nil {
		return err
	}
	now := time.Now().UTC()
	s.AcceptedAt = &now
	return nil
}

// Reject moves a pending swap to rejected. Only the responder rejects.
func (s *Swap) Reject(userID string) error {
	if userID != s.ResponderID {
		return fmt.Errorf("%w: only the responder can reject", ErrNotParticipant)
	}
	return s.apply(lifecycle.SwapActionReject)
}

// Cancel moves a pending swap to cancelled. Only the proposer cancels.
func (s *Swap) Cancel(userID string) error {
	if userID != s.ProposerID {
		return fmt.Errorf("%w: only the proposer can cancel", ErrNotParticipant)
	}
	return s.apply(lifecycle.SwapActionCancel)
}

// Expire moves a pending swap past its deadline to expired.
func (s *Swap) Expire() error {
	return s.apply(lifecycle.SwapActionExpire)
}

// Confirm records a participant's completion confirmation on an
// accepted swap. The second confirmation completes the swap; the
// caller must check Status afterwards.
func (s *Swap) Confirm(userID string) error {
	if s.Status != lifecycle.SwapAccepted {
		return &lifecycle.TransitionError{
			Machine: lifecycle.SwapMachine.Name(),
			State:   s.Status,
			Action:  lifecycle.SwapActionComplete,
		}
	}

	switch userID {
	case s.ProposerID:
		s.ProposerConfirmed = true
	case s.ResponderID:
		s.ResponderConfirmed = true
	default:
		return ErrNotParticipant
	}
	s.UpdatedAt = time.Now().UTC()

	if s.ProposerConfirmed && s.ResponderConfirmed {
		if err := s.apply(lifecycle.SwapActionComplete); err != nil {
			return err
		}
		now := time.Now().UTC()
		s.CompletedAt = &now
	}
	return nil
}

// Dispute moves an accepted swap to disputed.
func (s *Swap) Dispute(userID, reason string) error {
	if userID != s.ProposerID && userID != s.ResponderID {
		return ErrNotParticipant
	}
	if reason == "" {
		return errors.New("dispute reason is required")
	}
	if err := s.apply(lifecycle.SwapActionDispute); err != nil {
		return err
	}
	now := time.Now().UTC()
	s.DisputeReason = reason
	s.DisputedAt = &now
	return nil
}

// Resolve closes a dispute by admin decision: completed when the trade
// is upheld, refunded when it is unwound.
func (s *Swap) Resolve(adminID, note string, refund bool) error {
	action := lifecycle.SwapActionResolve
	if refund {
		action = lifecycle.SwapActionRefund
	}
	if err := s.apply(action); err != nil {
		return err
	}
	now := time.Now().UTC()
	s.ResolvedBy = adminID
	s.ResolutionNote = note
	if !refund {
		s.CompletedAt = &now
	}
	return nil
}

// Refund moves a stale dispute to refunded (automatic resolution).
func (s *Swap) Refund(note string) error {
	if err := s.apply(lifecycle.SwapActionRefund); err != nil {
		return err
	}
	s.ResolutionNote = note
	return nil
}

// IsTerminal reports whether the swap can change no further.
func (s *Swap) IsTerminal() bool {
	return lifecycle.SwapMachine.IsTerminal(s.Status)
}
