// Package audit provides the append-only log of moderation and status
// decisions. Entries are immutable history rows; correcting a mistake
// means appending a new entry, never rewriting an old one.
package audit

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
)

// Entry is a single audit log row.
type Entry struct {
	ID         string    `json:"id"`
	TenantID   string    `json:"tenant_id"`
	ActorID    string    `json:"actor_id"`
	Action     string    `json:"action"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	FromStatus string    `json:"from_status,omitempty"`
	ToStatus   string    `json:"to_status,omitempty"`
	Note       string    `json:"note,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewEntry creates an audit entry for a status change.
func NewEntry(tenantID, actorID, action, entityType, entityID, fromStatus, toStatus, note string) *Entry {
	return &Entry{
		ID:         ulid.Make().String(),
		TenantID:   tenantID,
		ActorID:    actorID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		FromStatus: fromStatus,
		ToStatus:   toStatus,
		Note:       note,
		CreatedAt:  time.Now().UTC(),
	}
}

// Store persists audit entries.
type Store interface {
	Append(ctx context.Context, entry *Entry) error
	ListByEntity(ctx context.Context, tenantID, entityType, entityID string, limit, offset int) ([]*Entry, int64, error)
	ListByActor(ctx context.Context, tenantID, actorID string, limit, offset int) ([]*Entry, int64, error)
}
