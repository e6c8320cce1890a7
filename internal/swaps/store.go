package swaps

import (
	"context"
	"database/sql"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dev-analyshd/main-albash-sub001/internal/common/database"
	"github.com/dev-analyshd/main-albash-sub001/internal/common/money"
)

// ListFilter narrows swap listings.
type ListFilter struct {
	Status string
	UserID string
	Limit  int
	Offset int
}

// Store persists swaps.
type Store interface {
	Create(ctx context.Context, s *Swap) error
	Get(ctx context.Context, tenantID, swapID string) (*Swap, error)
	GetByIdempotencyKey(ctx context.Context, tenantID, key string) (*Swap, error)
	Update(ctx context.Context, s *Swap) error
	List(ctx context.Context, tenantID string, filter ListFilter) ([]*Swap, int, error)
	ListPendingExpired(ctx context.Context, now time.Time, limit int) ([]*Swap, error)
	ListDisputedBefore(ctx context.Context, cutoff time.Time, limit int) ([]*Swap, error)
}

// PostgresStore implements Store using PostgreSQL.
type PostgresStore struct {
	db *database.DB
}

// NewPostgresStore creates a new store.
func NewPostgresStore(db *database.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const swapColumns = `id, tenant_id, proposer_id, responder_id, offered_listing_id, requested_listing_id,
	cash_top_up_minor, currency, status, idempotency_key, proposer_confirmed, responder_confirmed,
	dispute_reason, disputed_at, resolution_note, resolved_by, accepted_at, completed_at,
	expires_at, created_at, updated_at`

// Create inserts a new swap.
func (s *PostgresStore) Create(ctx context.Context, sw *Swap) error {
	query := `
		INSERT INTO swaps (` + swapColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
	`

	_, err := s.db.Exec(ctx, query,
		sw.ID, sw.TenantID, sw.ProposerID, sw.ResponderID,
		sw.OfferedListingID, sw.RequestedListingID,
		sw.CashTopUp.AmountMinor, sw.CashTopUp.Currency,
		sw.Status, sw.IdempotencyKey,
		sw.ProposerConfirmed, sw.ResponderConfirmed,
		nullString(sw.DisputeReason), sw.DisputedAt,
		nullString(sw.ResolutionNote), nullString(sw.ResolvedBy),
		sw.AcceptedAt, sw.CompletedAt,
		sw.ExpiresAt, sw.CreatedAt, sw.UpdatedAt,
	)
	if err != nil && database.IsUniqueViolation(err) {
		return database.ErrAlreadyExists
	}
	return err
}

// Get retrieves a swap by ID.
func (s *PostgresStore) Get(ctx context.Context, tenantID, swapID string) (*Swap, error) {
	query := `SELECT ` + swapColumns + ` FROM swaps WHERE tenant_id = $1 AND id = $2`
	return scanSwap(s.db.QueryRow(ctx, query, tenantID, swapID))
}

// GetByIdempotencyKey retrieves the swap created with a given key.
func (s *PostgresStore) GetByIdempotencyKey(ctx context.Context, tenantID, key string) (*Swap, error) {
	query := `SELECT ` + swapColumns + ` FROM swaps WHERE tenant_id = $1 AND idempotency_key = $2`
	return scanSwap(s.db.QueryRow(ctx, query, tenantID, key))
}

// Update persists the mutable fields of a swap.
func (s *PostgresStore) Update(ctx context.Context, sw *Swap) error {
	query := `
		UPDATE swaps SET
			status = $3,
			proposer_confirmed = $4,
			responder_confirmed = $5,
			dispute_reason = $6,
			disputed_at = $7,
			resolution_note = $8,
			resolved_by = $9,
			accepted_at = $10,
			completed_at = $11,
			updated_at = $12
		WHERE tenant_id = $1 AND id = $2
	`

	tag, err := s.db.Exec(ctx, query,
		sw.TenantID, sw.ID,
		sw.Status,
		sw.ProposerConfirmed, sw.ResponderConfirmed,
		nullString(sw.DisputeReason), sw.DisputedAt,
		nullString(sw.ResolutionNote), nullString(sw.ResolvedBy),
		sw.AcceptedAt, sw.CompletedAt, sw.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return database.ErrNotFound
	}
	return nil
}

// List returns swaps for a tenant with optional status and participant
// filters, newest first, plus the total matching count.
func (s *PostgresStore) List(ctx context.Context, tenantID string, filter ListFilter) ([]*Swap, int, error) {
	query := `
		SELECT ` + swapColumns + `, COUNT(*) OVER() AS total
		FROM swaps
		WHERE tenant_id = $1
		  AND ($2 = '' OR status = $2)
		  AND ($3 = '' OR proposer_id = $3 OR responder_id = $3)
		ORDER BY created_at DESC
		LIMIT $4 OFFSET $5
	`

	rows, err := s.db.Query(ctx, query, tenantID, filter.Status, filter.UserID, filter.Limit, filter.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	return scanSwapsWithTotal(rows)
}

// ListPendingExpired returns pending swaps whose deadline has passed.
func (s *PostgresStore) ListPendingExpired(ctx context.Context, now time.Time, limit int) ([]*Swap, error) {
	query := `
		SELECT ` + swapColumns + `
		FROM swaps
		WHERE status = 'pending' AND expires_at <= $1
		ORDER BY expires_at
		LIMIT $2
	`
	return s.queryMany(ctx, query, now, limit)
}

// ListDisputedBefore returns swaps disputed at or before the cutoff.
func (s *PostgresStore) ListDisputedBefore(ctx context.Context, cutoff time.Time, limit int) ([]*Swap, error) {
	query := `
		SELECT ` + swapColumns + `
		FROM swaps
		WHERE status = 'disputed' AND disputed_at <= $1
		ORDER BY disputed_at
		LIMIT $2
	`
	return s.queryMany(ctx, query, cutoff, limit)
}

func (s *PostgresStore) queryMany(ctx context.Context, query string, args ...any) ([]*Swap, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var swaps []*Swap
	for rows.Next() {
		sw, err := scanSwapFields(rows, nil)
		if err != nil {
			return nil, err
		}
		swaps = append(swaps, sw)
	}
	return swaps, rows.Err()
}

func scanSwap(row pgx.Row) (*Swap, error) {
	sw, err := scanSwapFields(row, nil)
	if err == pgx.ErrNoRows {
		return nil, database.ErrNotFound
	}
	return sw, err
}

func scanSwapsWithTotal(rows pgx.Rows) ([]*Swap, int, error) {
	var swaps []*Swap
	var total int
	for rows.Next() {
		sw, err := scanSwapFields(rows, &total)
		if err != nil {
			return nil, 0, err
		}
		swaps = append(swaps, sw)
	}
	return swaps, total, rows.Err()
}

// scanSwapFields scans one row. When total is non-nil the query is
// expected to carry a trailing COUNT(*) OVER() column.
func scanSwapFields(row pgx.Row, total *int) (*Swap, error) {
	var sw Swap
	var amountMinor int64
	var currency string
	var disputeReason, resolutionNote, resolvedBy sql.NullString

	dest := []any{
		&sw.ID, &sw.TenantID, &sw.ProposerID, &sw.ResponderID,
		&sw.OfferedListingID, &sw.RequestedListingID,
		&amountMinor, &currency,
		&sw.Status, &sw.IdempotencyKey,
		&sw.ProposerConfirmed, &sw.ResponderConfirmed,
		&disputeReason, &sw.DisputedAt,
		&resolutionNote, &resolvedBy,
		&sw.AcceptedAt, &sw.CompletedAt,
		&sw.ExpiresAt, &sw.CreatedAt, &sw.UpdatedAt,
	}
	if total != nil {
		dest = append(dest, total)
	}

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	sw.CashTopUp = money.New(amountMinor, money.Currency(currency))
	sw.DisputeReason = disputeReason.String
	sw.ResolutionNote = resolutionNote.String
	sw.ResolvedBy = resolvedBy.String
	return &sw, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
