package audit

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/dev-analyshd/main-albash-sub001/internal/common/database"
)

// PostgresStore implements Store using PostgreSQL.
type PostgresStore struct {
	db *database.DB
}

// NewPostgresStore creates a new audit store.
func NewPostgresStore(db *database.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Append inserts an audit entry.
func (s *PostgresStore) Append(ctx context.Context, entry *Entry) error {
	query := `
		INSERT INTO audit_log (
			id, tenant_id, actor_id, action, entity_type, entity_id,
			from_status, to_status, note, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := s.db.Exec(ctx, query,
		entry.ID, entry.TenantID, entry.ActorID, entry.Action,
		entry.EntityType, entry.EntityID,
		entry.FromStatus, entry.ToStatus, entry.Note, entry.CreatedAt,
	)
	return err
}

// ListByEntity returns entries for one entity, newest first.
func (s *PostgresStore) ListByEntity(ctx context.Context, tenantID, entityType, entityID string, limit, offset int) ([]*Entry, int64, error) {
	query := `
		SELECT id, tenant_id, actor_id, action, entity_type, entity_id,
			   from_status, to_status, note, created_at,
			   COUNT(*) OVER() AS total
		FROM audit_log
		WHERE tenant_id = $1 AND entity_type = $2 AND entity_id = $3
		ORDER BY created_at DESC
		LIMIT $4 OFFSET $5
	`

	rows, err := s.db.Query(ctx, query, tenantID, entityType, entityID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	return scanEntries(rows)
}

// ListByActor returns entries recorded by one actor, newest first.
func (s *PostgresStore) ListByActor(ctx context.Context, tenantID, actorID string, limit, offset int) ([]*Entry, int64, error) {
	query := `
		SELECT id, tenant_id, actor_id, action, entity_type, entity_id,
			   from_status, to_status, note, created_at,
			   COUNT(*) OVER() AS total
		FROM audit_log
		WHERE tenant_id = $1 AND actor_id = $2
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`

	rows, err := s.db.Query(ctx, query, tenantID, actorID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	return scanEntries(rows)
}

func scanEntries(rows pgx.Rows) ([]*Entry, int64, error) {
	var entries []*Entry
	var total int64

	for rows.Next() {
		var e Entry
		if err := rows.Scan(
			&e.ID, &e.TenantID, &e.ActorID, &e.Action,
			&e.EntityType, &e.EntityID,
			&e.FromStatus, &e.ToStatus, &e.Note, &e.CreatedAt,
			&total,
		); err != nil {
			return nil, 0, fmt.Errorf("scanning audit entry: %w", err)
		}
		entries = append(entries, &e)
	}
	return entries, total, rows.Err()
}
