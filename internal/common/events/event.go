package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/oklog/ulid/v2"
)

// NATS subjects for marketplace events
const (
	SubjectSwapUpdate         = "marketplace.swaps.update"
	SubjectVerificationUpdate = "marketplace.verification.update"
	SubjectPaymentMethods     = "marketplace.payment_methods"
	SubjectAuditAppended      = "marketplace.audit.appended"
)

// Type identifies the type of marketplace event.
type Type string

const (
	// Swap events
	EventSwapProposed  Type = "swap.proposed"
	EventSwapAccepted  Type = "swap.accepted"
	EventSwapRejected  Type = "swap.rejected"
	EventSwapCancelled Type = "swap.cancelled"
	EventSwapCompleted Type = "swap.completed"
	EventSwapDisputed  Type = "swap.disputed"
	EventSwapResolved  Type = "swap.resolved"
	EventSwapRefunded  Type = "swap.refunded"
	EventSwapExpired   Type = "swap.expired"

	// Verification events
	EventApplicationSubmitted  Type = "verification.application.submitted"
	EventApplicationInReview   Type = "verification.application.in_review"
	EventApplicationApproved   Type = "verification.application.approved"
	EventApplicationRejected   Type = "verification.application.rejected"
	EventApplicationNeedsFixes Type = "verification.application.needs_update"
	EventProfileSuspended      Type = "verification.profile.suspended"
	EventProfileReinstated     Type = "verification.profile.reinstated"

	// Payment method events
	EventPaymentMethodAdded   Type = "payment_method.added"
	EventPaymentMethodRemoved Type = "payment_method.removed"
	EventPaymentMethodDefault Type = "payment_method.default_changed"
)

// Envelope wraps all events with common metadata.
type Envelope struct {
	ID            string          `json:"id"`
	Type          Type            `json:"type"`
	TenantID      string          `json:"tenant_id"`
	CorrelationID string          `json:"correlation_id"`
	Timestamp     time.Time       `json:"timestamp"`
	Data          json.RawMessage `json:"data"`
}

// NewEnvelope creates a new event envelope.
func NewEnvelope(eventType Type, tenantID, correlationID string, data any) (*Envelope, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Envelope{
		ID:            ulid.Make().String(),
		Type:          eventType,
		TenantID:      tenantID,
		CorrelationID: correlationID,
		Timestamp:     time.Now().UTC(),
		Data:          jsonData,
	}, nil
}

// DecodeData decodes the event data into a struct
func (e *Envelope) DecodeData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// Publisher publishes event envelopes to a message broker.
type Publisher interface {
	Publish(ctx context.Context, subject string, env *Envelope) error
}

// SwapUpdateData is the payload for swap.* events.
type SwapUpdateData struct {
	SwapID      string `json:"swap_id"`
	ProposerID  string `json:"proposer_id"`
	ResponderID string `json:"responder_id"`
	Status      string `json:"status"`
	Reason      string `json:"reason,omitempty"`
}

// VerificationUpdateData is the payload for verification.* events.
type VerificationUpdateData struct {
	ApplicationID string `json:"application_id,omitempty"`
	UserID        string `json:"user_id"`
	Kind          string `json:"kind,omitempty"`
	Status        string `json:"status"`
	ReviewerID    string `json:"reviewer_id,omitempty"`
}

// PaymentMethodData is the payload for payment_method.* events.
type PaymentMethodData struct {
	MethodID string `json:"method_id"`
	UserID   string `json:"user_id"`
	Kind     string `json:"kind"`
	LastFour string `json:"last_four,omitempty"`
}
