package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dev-analyshd/main-albash-sub001/internal/common/database"
)

// MethodStore persists payment method descriptors.
type MethodStore interface {
	Create(ctx context.Context, m *MethodDescriptor) error
	Get(ctx context.Context, tenantID, methodID string) (*MethodDescriptor, error)
	ListByUser(ctx context.Context, tenantID, userID string) ([]*MethodDescriptor, error)
	SetDefault(ctx context.Context, tenantID, userID, methodID string) error
	Delete(ctx context.Context, tenantID, methodID string) error
}

// PostgresMethodStore implements MethodStore using PostgreSQL.
type PostgresMethodStore struct {
	db *database.DB
}

// NewPostgresMethodStore creates a new store.
func NewPostgresMethodStore(db *database.DB) *PostgresMethodStore {
	return &PostgresMethodStore{db: db}
}

const methodColumns = `id, tenant_id, user_id, kind, label, last_four, is_default, metadata, created_at, updated_at`

// Create inserts a new payment method.
func (s *PostgresMethodStore) Create(ctx context.Context, m *MethodDescriptor) error {
	query := `
		INSERT INTO payment_methods (` + methodColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	metadata, _ := json.Marshal(m.Metadata)

	_, err := s.db.Exec(ctx, query,
		m.ID, m.TenantID, m.UserID, m.Kind, m.Label, m.LastFour,
		m.IsDefault, metadata, m.CreatedAt, m.UpdatedAt,
	)
	return err
}

// Get retrieves a payment method by ID.
func (s *PostgresMethodStore) Get(ctx context.Context, tenantID, methodID string) (*MethodDescriptor, error) {
	query := `SELECT ` + methodColumns + ` FROM payment_methods WHERE tenant_id = $1 AND id = $2`
	return scanMethod(s.db.QueryRow(ctx, query, tenantID, methodID))
}

// ListByUser returns all payment methods for a user, default first.
func (s *PostgresMethodStore) ListByUser(ctx context.Context, tenantID, userID string) ([]*MethodDescriptor, error) {
	query := `
		SELECT ` + methodColumns + `
		FROM payment_methods
		WHERE tenant_id = $1 AND user_id = $2
		ORDER BY is_default DESC, created_at DESC
	`

	rows, err := s.db.Query(ctx, query, tenantID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var methods []*MethodDescriptor
	for rows.Next() {
		m, err := scanMethod(rows)
		if err != nil {
			return nil, err
		}
		methods = append(methods, m)
	}
	return methods, rows.Err()
}

// SetDefault marks one method as the user's default, clearing any
// previous default in the same transaction.
func (s *PostgresMethodStore) SetDefault(ctx context.Context, tenantID, userID, methodID string) error {
	return s.db.WithTx(ctx, func(tx pgx.Tx) error {
		now := time.Now().UTC()

		if _, err := tx.Exec(ctx,
			`UPDATE payment_methods SET is_default = FALSE, updated_at = $3
			 WHERE tenant_id = $1 AND user_id = $2 AND is_default`,
			tenantID, userID, now,
		); err != nil {
			return fmt.Errorf("clearing default: %w", err)
		}

		tag, err := tx.Exec(ctx,
			`UPDATE payment_methods SET is_default = TRUE, updated_at = $4
			 WHERE tenant_id = $1 AND user_id = $2 AND id = $3`,
			tenantID, userID, methodID, now,
		)
		if err != nil {
			return fmt.Errorf("setting default: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return database.ErrNotFound
		}
		return nil
	})
}

// Delete removes a payment method.
func (s *PostgresMethodStore) Delete(ctx context.Context, tenantID, methodID string) error {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM payment_methods WHERE tenant_id = $1 AND id = $2`,
		tenantID, methodID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return database.ErrNotFound
	}
	return nil
}

func scanMethod(row pgx.Row) (*MethodDescriptor, error) {
	var m MethodDescriptor
	var metadata []byte

	err := row.Scan(
		&m.ID, &m.TenantID, &m.UserID, &m.Kind, &m.Label, &m.LastFour,
		&m.IsDefault, &metadata, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, database.ErrNotFound
		}
		return nil, err
	}

	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &m.Metadata); err != nil {
			return nil, fmt.Errorf("decoding metadata: %w", err)
		}
	}
	return &m, nil
}
