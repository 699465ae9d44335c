package outcome

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/anc-caregap-server/internal/domain"
)

const outcomeColumns = `id, profile_key, age, parity, late_initiator, education, has_insurance,
	ever_given_birth, marital_status, predicted_score, predicted_tier, scorer,
	components_received, components_tracked, care_gap, notes, created_at, updated_at`

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanOutcome scans a row selected with outcomeColumns.
func scanOutcome(s scanner) (*Outcome, error) {
	o := &Outcome{}
	var education, marital, tier string

	err := s.Scan(
		&o.ID, &o.ProfileKey, &o.Age, &o.Parity, &o.LateInitiator, &education, &o.HasInsurance,
		&o.EverGivenBirth, &marital, &o.PredictedScore, &tier, &o.Scorer,
		&o.ComponentsReceived, &o.ComponentsTracked, &o.CareGap, &o.Notes, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	o.Education = domain.EducationLevel(education)
	o.MaritalStatus = domain.MaritalStatus(marital)
	o.PredictedTier = domain.RiskTier(tier)
	return o, nil
}

func scanOne(row *sql.Row, what string) (*Outcome, error) {
	o, err := scanOutcome(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("outcome %s: %w", what, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan: %w", err)
	}
	return o, nil
}

func scanAll(rows *sql.Rows) ([]*Outcome, error) {
	defer rows.Close()

	var result []*Outcome
	for rows.Next() {
		o, err := scanOutcome(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, o)
	}
	return result, rows.Err()
}

func checkAffected(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("outcome %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

// exportJSON writes every outcome in s using the Export envelope.
func exportJSON(ctx context.Context, s Store, writer io.Writer) error {
	all, err := s.List(ctx, maxExportLimit, 0)
	if err != nil {
		return fmt.Errorf("failed to list outcomes: %w", err)
	}
	if all == nil {
		all = []*Outcome{}
	}

	export := &Export{
		Version:    ExportVersion,
		ExportedAt: time.Now().UTC(),
		Count:      len(all),
		Outcomes:   all,
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

// importJSON saves every outcome not already present in s. The whole export is
// validated before anything is written, so an invalid record imports nothing.
func importJSON(ctx context.Context, s Store, reader io.Reader) (imported int, skipped int, err error) {
	var export Export
	if err := json.NewDecoder(reader).Decode(&export); err != nil {
		return 0, 0, fmt.Errorf("failed to decode JSON: %w: %w", domain.ErrInvalidInput, err)
	}

	for i, o := range export.Outcomes {
		if o == nil {
			continue
		}
		if err := o.Validate(); err != nil {
			return 0, 0, fmt.Errorf("invalid outcome at index %d: %w", i, err)
		}
	}

	for _, o := range export.Outcomes {
		if o == nil {
			skipped++
			continue
		}

		_, err := s.Find(ctx, o.ProfileKey, o.Scorer)
		if err == nil {
			skipped++
			continue
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return imported, skipped, fmt.Errorf("failed to check existing: %w", err)
		}

		o.ID = 0
		if err := s.Save(ctx, o); err != nil {
			return imported, skipped, fmt.Errorf("failed to save: %w", err)
		}
		imported++
	}

	return imported, skipped, nil
}
