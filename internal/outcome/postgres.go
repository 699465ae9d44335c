package outcome

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"time"
)

// PostgresStore implements the Store interface using PostgreSQL through
// database/sql. Either the lib/pq ("postgres") or the pgx stdlib ("pgx") driver
// may back the handle; the schema comes from the migrations directory.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL outcome store.
// It expects the database and schema to already exist (created via migrations).
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// Save stores or updates an outcome.
func (s *PostgresStore) Save(ctx context.Context, o *Outcome) error {
	if err := o.Validate(); err != nil {
		return err
	}
	now := time.Now().UTC()

	query := `
		INSERT INTO outcomes (
			profile_key, age, parity, late_initiator, education, has_insurance,
			ever_given_birth, marital_status, predicted_score, predicted_tier, scorer,
			components_received, components_tracked, care_gap, notes, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (profile_key, scorer) DO UPDATE SET
			predicted_score = EXCLUDED.predicted_score,
			predicted_tier = EXCLUDED.predicted_tier,
			components_received = EXCLUDED.components_received,
			components_tracked = EXCLUDED.components_tracked,
			care_gap = EXCLUDED.care_gap,
			notes = EXCLUDED.notes,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at
	`

	err := s.db.QueryRowContext(ctx, query,
		o.ProfileKey, o.Age, o.Parity, o.LateInitiator, string(o.Education), o.HasInsurance,
		o.EverGivenBirth, string(o.MaritalStatus), o.PredictedScore, string(o.PredictedTier), o.Scorer,
		o.ComponentsReceived, o.ComponentsTracked, o.CareGap, o.Notes, now, now,
	).Scan(&o.ID, &o.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert: %w", err)
	}

	o.UpdatedAt = now
	return nil
}

// Get retrieves an outcome by ID.
func (s *PostgresStore) Get(ctx context.Context, id int64) (*Outcome, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+outcomeColumns+" FROM outcomes WHERE id = $1", id)
	return scanOne(row, fmt.Sprint(id))
}

// Find retrieves the outcome for a profile key and scorer.
func (s *PostgresStore) Find(ctx context.Context, profileKey, scorer string) (*Outcome, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+outcomeColumns+" FROM outcomes WHERE profile_key = $1 AND scorer = $2 LIMIT 1",
		profileKey, scorer)
	return scanOne(row, profileKey)
}

// List returns outcomes with pagination.
func (s *PostgresStore) List(ctx context.Context, limit, offset int) ([]*Outcome, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+outcomeColumns+" FROM outcomes ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2",
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	return scanAll(rows)
}

// Count returns the total number of outcomes.
func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM outcomes").Scan(&count)
	return count, err
}

// Delete removes an outcome by ID.
func (s *PostgresStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM outcomes WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete: %w", err)
	}
	return checkAffected(res, id)
}

// ExportJSON exports all outcomes to a JSON writer.
func (s *PostgresStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	return exportJSON(ctx, s, writer)
}

// ImportJSON imports outcomes from a JSON reader.
func (s *PostgresStore) ImportJSON(ctx context.Context, reader io.Reader) (int, int, error) {
	return importJSON(ctx, s, reader)
}

// Ping checks the database is reachable.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the store and releases resources.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
