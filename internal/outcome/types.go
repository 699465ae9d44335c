// Package outcome records observed ANC outcomes for previously scored profiles. The
// records grow a retraining set and let predicted tiers be compared with what
// actually happened.
package outcome

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/anc-caregap-server/internal/domain"
)

// Outcome is the observed ANC package completion for one profile and scorer.
type Outcome struct {
	ID                 int64                 `json:"id,omitempty"`
	ProfileKey         string                `json:"profile_key"`
	Age                int                   `json:"age"`
	Parity             int                   `json:"parity"`
	LateInitiator      bool                  `json:"late_initiator"`
	Education          domain.EducationLevel `json:"education"`
	HasInsurance       bool                  `json:"has_insurance"`
	EverGivenBirth     bool                  `json:"ever_given_birth"`
	MaritalStatus      domain.MaritalStatus  `json:"marital_status"`
	PredictedScore     float64               `json:"predicted_score"`
	PredictedTier      domain.RiskTier       `json:"predicted_tier"`
	Scorer             string                `json:"scorer"`
	ComponentsReceived int                   `json:"components_received"`
	ComponentsTracked  int                   `json:"components_tracked"`
	CareGap            bool                  `json:"care_gap"`
	Notes              string                `json:"notes,omitempty"`
	CreatedAt          time.Time             `json:"created_at"`
	UpdatedAt          time.Time             `json:"updated_at"`
}

// New builds an outcome for a profile and its assessment. The care gap flag is
// derived from the component counts.
func New(p domain.PatientProfile, a *domain.RiskAssessment, received, tracked int, notes string) *Outcome {
	o := &Outcome{
		ProfileKey:         p.Key(),
		Age:                p.Age,
		Parity:             p.Parity,
		LateInitiator:      p.LateInitiator,
		Education:          p.Education,
		HasInsurance:       p.HasInsurance,
		EverGivenBirth:     p.EverGivenBirth,
		MaritalStatus:      p.MaritalStatus,
		ComponentsReceived: received,
		ComponentsTracked:  tracked,
		CareGap:            domain.IsCareGap(received, tracked),
		Notes:              notes,
	}
	if a != nil {
		o.PredictedScore = a.Score
		o.PredictedTier = a.Tier
		o.Scorer = a.Scorer.Name + ":" + a.Scorer.Version
	}
	return o
}

// Profile reconstructs the patient profile the outcome was recorded for.
func (o *Outcome) Profile() domain.PatientProfile {
	return domain.PatientProfile{
		Age:            o.Age,
		Parity:         o.Parity,
		LateInitiator:  o.LateInitiator,
		Education:      o.Education,
		HasInsurance:   o.HasInsurance,
		EverGivenBirth: o.EverGivenBirth,
		MaritalStatus:  o.MaritalStatus,
	}
}

// Validate checks the profile and the component counts, and re-derives the
// profile key and the care gap flag so stored records stay consistent.
func (o *Outcome) Validate() error {
	if err := o.Profile().Validate(); err != nil {
		return err
	}
	if o.ComponentsTracked < 1 {
		return domain.NewValidationError("components_tracked", "must be at least 1", o.ComponentsTracked)
	}
	if o.ComponentsReceived < 0 || o.ComponentsReceived > o.ComponentsTracked {
		return domain.NewValidationError("components_received",
			fmt.Sprintf("must be between 0 and %d", o.ComponentsTracked), o.ComponentsReceived)
	}
	if o.PredictedScore < 0 || o.PredictedScore > 1 {
		return domain.NewValidationError("predicted_score", "must be between 0 and 1", o.PredictedScore)
	}
	if o.PredictedTier != "" && !o.PredictedTier.IsValid() {
		return domain.NewValidationError("predicted_tier", "unknown tier", o.PredictedTier)
	}
	o.ProfileKey = o.Profile().Key()
	o.CareGap = domain.IsCareGap(o.ComponentsReceived, o.ComponentsTracked)
	return nil
}

// Store defines the interface for outcome storage operations.
type Store interface {
	// Save stores or updates an outcome. An existing record with the same
	// profile key and scorer is updated in place.
	Save(ctx context.Context, o *Outcome) error

	// Get retrieves an outcome by ID; domain.ErrNotFound when absent.
	Get(ctx context.Context, id int64) (*Outcome, error)

	// Find retrieves the outcome for a profile key and scorer; domain.ErrNotFound when absent.
	Find(ctx context.Context, profileKey, scorer string) (*Outcome, error)

	// List returns outcomes, newest first, with pagination.
	List(ctx context.Context, limit, offset int) ([]*Outcome, error)

	// Count returns the total number of outcomes.
	Count(ctx context.Context) (int64, error)

	// Delete removes an outcome by ID; domain.ErrNotFound when absent.
	Delete(ctx context.Context, id int64) error

	// ExportJSON exports all outcomes to a JSON writer.
	ExportJSON(ctx context.Context, writer io.Writer) error

	// ImportJSON imports outcomes from a JSON reader. Records whose profile key
	// and scorer already exist are skipped.
	ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error)

	// Ping checks the backing database is reachable.
	Ping(ctx context.Context) error

	// Close closes the store and releases resources.
	Close() error
}

// Export represents the JSON export format.
type Export struct {
	Version    string     `json:"version"`
	ExportedAt time.Time  `json:"exported_at"`
	Count      int        `json:"count"`
	Outcomes   []*Outcome `json:"outcomes"`
}

// ExportVersion is written into every export.
const ExportVersion = "1.0"

// maxExportLimit is the maximum number of entries to export at once.
const maxExportLimit = 1000000
