package outcome

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates a new SQLite outcome store.
// It creates the database file and schema if they don't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every pooled connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// createSchema creates the database tables and indexes.
func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS outcomes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		profile_key TEXT NOT NULL,
		age INTEGER NOT NULL,
		parity INTEGER NOT NULL,
		late_initiator INTEGER NOT NULL DEFAULT 0,
		education TEXT NOT NULL,
		has_insurance INTEGER NOT NULL DEFAULT 0,
		ever_given_birth INTEGER NOT NULL DEFAULT 0,
		marital_status TEXT NOT NULL,
		predicted_score REAL NOT NULL DEFAULT 0,
		predicted_tier TEXT NOT NULL DEFAULT '',
		scorer TEXT NOT NULL DEFAULT '',
		components_received INTEGER NOT NULL,
		components_tracked INTEGER NOT NULL,
		care_gap INTEGER NOT NULL DEFAULT 0,
		notes TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(profile_key, scorer)
	);

	CREATE INDEX IF NOT EXISTS idx_outcomes_created_at ON outcomes(created_at);
	CREATE INDEX IF NOT EXISTS idx_outcomes_care_gap ON outcomes(care_gap);
	`

	_, err := db.Exec(schema)
	return err
}

// Save stores or updates an outcome.
func (s *SQLiteStore) Save(ctx context.Context, o *Outcome) error {
	if err := o.Validate(); err != nil {
		return err
	}
	now := time.Now().UTC()

	var existingID int64
	var createdAt time.Time
	err := s.db.QueryRowContext(ctx,
		"SELECT id, created_at FROM outcomes WHERE profile_key = ? AND scorer = ?",
		o.ProfileKey, o.Scorer,
	).Scan(&existingID, &createdAt)

	if err == nil {
		o.ID = existingID
		o.CreatedAt = createdAt
		o.UpdatedAt = now

		_, err = s.db.ExecContext(ctx, `
			UPDATE outcomes SET
				predicted_score = ?,
				predicted_tier = ?,
				components_received = ?,
				components_tracked = ?,
				care_gap = ?,
				notes = ?,
				updated_at = ?
			WHERE id = ?
		`,
			o.PredictedScore,
			string(o.PredictedTier),
			o.ComponentsReceived,
			o.ComponentsTracked,
			o.CareGap,
			o.Notes,
			now,
			existingID,
		)
		if err != nil {
			return fmt.Errorf("failed to update: %w", err)
		}
		return nil
	}

	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to check existing: %w", err)
	}

	o.CreatedAt = now
	o.UpdatedAt = now

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO outcomes (
			profile_key, age, parity, late_initiator, education, has_insurance,
			ever_given_birth, marital_status, predicted_score, predicted_tier, scorer,
			components_received, components_tracked, care_gap, notes, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		o.ProfileKey, o.Age, o.Parity, o.LateInitiator, string(o.Education), o.HasInsurance,
		o.EverGivenBirth, string(o.MaritalStatus), o.PredictedScore, string(o.PredictedTier), o.Scorer,
		o.ComponentsReceived, o.ComponentsTracked, o.CareGap, o.Notes, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get insert ID: %w", err)
	}
	o.ID = id
	return nil
}

// Get retrieves an outcome by ID.
func (s *SQLiteStore) Get(ctx context.Context, id int64) (*Outcome, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+outcomeColumns+" FROM outcomes WHERE id = ?", id)
	return scanOne(row, fmt.Sprint(id))
}

// Find retrieves the outcome for a profile key and scorer.
func (s *SQLiteStore) Find(ctx context.Context, profileKey, scorer string) (*Outcome, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+outcomeColumns+" FROM outcomes WHERE profile_key = ? AND scorer = ? LIMIT 1",
		profileKey, scorer)
	return scanOne(row, profileKey)
}

// List returns outcomes with pagination.
func (s *SQLiteStore) List(ctx context.Context, limit, offset int) ([]*Outcome, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+outcomeColumns+" FROM outcomes ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	return scanAll(rows)
}

// Count returns the total number of outcomes.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM outcomes").Scan(&count)
	return count, err
}

// Delete removes an outcome by ID.
func (s *SQLiteStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM outcomes WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete: %w", err)
	}
	return checkAffected(res, id)
}

// ExportJSON exports all outcomes to a JSON writer.
func (s *SQLiteStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	return exportJSON(ctx, s, writer)
}

// ImportJSON imports outcomes from a JSON reader.
func (s *SQLiteStore) ImportJSON(ctx context.Context, reader io.Reader) (int, int, error) {
	return importJSON(ctx, s, reader)
}

// Ping checks the database file is usable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the store and releases resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
