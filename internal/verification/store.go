package verification

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/dev-analyshd/main-albash-sub001/internal/common/database"
)

// ListFilter narrows application listings.
type ListFilter struct {
	Status string
	Kind   string
	UserID string
	Limit  int
	Offset int
}

// Store persists applications and profile statuses.
type Store interface {
	CreateApplication(ctx context.Context, app *Application) error
	GetApplication(ctx context.Context, tenantID, appID string) (*Application, error)
	// LatestApplication returns the newest application of a kind for a
	// user, by submission time.
	LatestApplication(ctx context.Context, tenantID, userID, kind string) (*Application, error)
	UpdateApplication(ctx context.Context, app *Application) error
	ListApplications(ctx context.Context, tenantID string, filter ListFilter) ([]*Application, int, error)

	GetProfileStatus(ctx context.Context, tenantID, userID string) (*ProfileStatus, error)
	UpsertProfileStatus(ctx context.Context, status *ProfileStatus) error
}

// PostgresStore implements Store using PostgreSQL.
type PostgresStore struct {
	db *database.DB
}

// NewPostgresStore creates a new store.
func NewPostgresStore(db *database.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const applicationColumns = `id, tenant_id, user_id, kind, payload, status, reviewer_id, review_note,
	submitted_at, decided_at, created_at, updated_at`

// CreateApplication inserts a new application.
func (s *PostgresStore) CreateApplication(ctx context.Context, app *Application) error {
	query := `
		INSERT INTO verification_applications (` + applicationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	payload, _ := json.Marshal(app.Payload)

	_, err := s.db.Exec(ctx, query,
		app.ID, app.TenantID, app.UserID, app.Kind, payload, app.Status,
		nullable(app.ReviewerID), nullable(app.ReviewNote),
		app.SubmittedAt, app.DecidedAt, app.CreatedAt, app.UpdatedAt,
	)
	return err
}

// GetApplication retrieves an application by ID.
func (s *PostgresStore) GetApplication(ctx context.Context, tenantID, appID string) (*Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM verification_applications WHERE tenant_id = $1 AND id = $2`
	return scanApplication(s.db.QueryRow(ctx, query, tenantID, appID))
}

// LatestApplication returns the most recently submitted application of
// a kind for a user.
func (s *PostgresStore) LatestApplication(ctx context.Context, tenantID, userID, kind string) (*Application, error) {
	query := `
		SELECT ` + applicationColumns + `
		FROM verification_applications
		WHERE tenant_id = $1 AND user_id = $2 AND kind = $3
		ORDER BY submitted_at DESC
		LIMIT 1
	`
	return scanApplication(s.db.QueryRow(ctx, query, tenantID, userID, kind))
}

// UpdateApplication persists the mutable fields of an application.
func (s *PostgresStore) UpdateApplication(ctx context.Context, app *Application) error {
	query := `
		UPDATE verification_applications SET
			payload = $3,
			status = $4,
			reviewer_id = $5,
			review_note = $6,
			submitted_at = $7,
			decided_at = $8,
			updated_at = $9
		WHERE tenant_id = $1 AND id = $2
	`

	payload, _ := json.Marshal(app.Payload)

	tag, err := s.db.Exec(ctx, query,
		app.TenantID, app.ID, payload, app.Status,
		nullable(app.ReviewerID), nullable(app.ReviewNote),
		app.SubmittedAt, app.DecidedAt, app.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return database.ErrNotFound
	}
	return nil
}

// ListApplications returns applications for a tenant, newest first,
// plus the total matching count.
func (s *PostgresStore) ListApplications(ctx context.Context, tenantID string, filter ListFilter) ([]*Application, int, error) {
	query := `
		SELECT ` + applicationColumns + `, COUNT(*) OVER() AS total
		FROM verification_applications
		WHERE tenant_id = $1
		  AND ($2 = '' OR status = $2)
		  AND ($3 = '' OR kind = $3)
		  AND ($4 = '' OR user_id = $4)
		ORDER BY submitted_at DESC
		LIMIT $5 OFFSET $6
	`

	rows, err := s.db.Query(ctx, query, tenantID, filter.Status, filter.Kind, filter.UserID, filter.Limit, filter.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var apps []*Application
	var total int
	for rows.Next() {
		app, err := scanApplicationFields(rows, &total)
		if err != nil {
			return nil, 0, err
		}
		apps = append(apps, app)
	}
	return apps, total, rows.Err()
}

// GetProfileStatus returns a user's current verification status.
func (s *PostgresStore) GetProfileStatus(ctx context.Context, tenantID, userID string) (*ProfileStatus, error) {
	query := `SELECT tenant_id, user_id, status, updated_at FROM verification_statuses WHERE tenant_id = $1 AND user_id = $2`

	var ps ProfileStatus
	err := s.db.QueryRow(ctx, query, tenantID, userID).Scan(&ps.TenantID, &ps.UserID, &ps.Status, &ps.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, database.ErrNotFound
		}
		return nil, err
	}
	return &ps, nil
}

// UpsertProfileStatus writes the single current status row for a user.
func (s *PostgresStore) UpsertProfileStatus(ctx context.Context, status *ProfileStatus) error {
	query := `
		INSERT INTO verification_statuses (tenant_id, user_id, status, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (tenant_id, user_id)
		DO UPDATE SET status = EXCLUDED.status, updated_at = EXCLUDED.updated_at
	`

	_, err := s.db.Exec(ctx, query, status.TenantID, status.UserID, status.Status, status.UpdatedAt)
	return err
}

func scanApplication(row pgx.Row) (*Application, error) {
	app, err := scanApplicationFields(row, nil)
	if err == pgx.ErrNoRows {
		return nil, database.ErrNotFound
	}
	return app, err
}

func scanApplicationFields(row pgx.Row, total *int) (*Application, error) {
	var app Application
	var payload []byte
	var reviewerID, reviewNote sql.NullString

	dest := []any{
		&app.ID, &app.TenantID, &app.UserID, &app.Kind, &payload, &app.Status,
		&reviewerID, &reviewNote,
		&app.SubmittedAt, &app.DecidedAt, &app.CreatedAt, &app.UpdatedAt,
	}
	if total != nil {
		dest = append(dest, total)
	}

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &app.Payload); err != nil {
			return nil, fmt.Errorf("decoding payload: %w", err)
		}
	}
	app.ReviewerID = reviewerID.String
	app.ReviewNote = reviewNote.String
	return &app, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
