package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/anc-caregap-server/internal/domain"
	"github.com/anc-caregap-server/internal/outcome"
)

// Default and maximum page sizes for outcome listings.
const (
	DefaultOutcomePageSize = 50
	MaxOutcomePageSize     = 500
)

// OutcomeService records observed outcomes against the assessment the active
// scorer produces for the same profile.
type OutcomeService struct {
	store       outcome.Store
	assessments *AssessmentService
	logger      *logrus.Logger
}

// OutcomePage is one page of a listing.
type OutcomePage struct {
	Outcomes []*outcome.Outcome `json:"outcomes"`
	Total    int64              `json:"total"`
	Limit    int                `json:"limit"`
	Offset   int                `json:"offset"`
}

// NewOutcomeService creates an outcome service.
func NewOutcomeService(store outcome.Store, assessments *AssessmentService, logger *logrus.Logger) *OutcomeService {
	return &OutcomeService{store: store, assessments: assessments, logger: logger}
}

// Record scores the profile, then saves the observed component counts with the
// prediction. Recording the same profile twice under one scorer updates the record.
func (s *OutcomeService) Record(ctx context.Context, p domain.PatientProfile, received, tracked int, notes string) (*outcome.Outcome, error) {
	a, err := s.assessments.Assess(ctx, p)
	if err != nil {
		return nil, err
	}

	o := outcome.New(p, a, received, tracked, notes)
	if err := s.store.Save(ctx, o); err != nil {
		return nil, storeError(err)
	}

	s.logger.WithFields(logrus.Fields{
		"outcome_id":     o.ID,
		"scorer":         o.Scorer,
		"predicted_tier": o.PredictedTier,
		"care_gap":       o.CareGap,
	}).Info("Care outcome recorded")
	return o, nil
}

// Get returns one outcome.
func (s *OutcomeService) Get(ctx context.Context, id int64) (*outcome.Outcome, error) {
	o, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, storeError(err)
	}
	return o, nil
}

// List returns a page of outcomes, newest first.
func (s *OutcomeService) List(ctx context.Context, limit, offset int) (*OutcomePage, error) {
	if limit <= 0 {
		limit = DefaultOutcomePageSize
	}
	if limit > MaxOutcomePageSize {
		limit = MaxOutcomePageSize
	}
	if offset < 0 {
		offset = 0
	}

	list, err := s.store.List(ctx, limit, offset)
	if err != nil {
		return nil, storeError(err)
	}
	total, err := s.store.Count(ctx)
	if err != nil {
		return nil, storeError(err)
	}
	if list == nil {
		list = []*outcome.Outcome{}
	}
	return &OutcomePage{Outcomes: list, Total: total, Limit: limit, Offset: offset}, nil
}

// Delete removes one outcome.
func (s *OutcomeService) Delete(ctx context.Context, id int64) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return storeError(err)
	}
	s.logger.WithField("outcome_id", id).Info("Care outcome deleted")
	return nil
}

// Export writes every outcome as JSON.
func (s *OutcomeService) Export(ctx context.Context, w io.Writer) error {
	if err := s.store.ExportJSON(ctx, w); err != nil {
		return storeError(err)
	}
	return nil
}

// Import reads an export and saves the outcomes not already stored.
func (s *OutcomeService) Import(ctx context.Context, r io.Reader) (imported, skipped int, err error) {
	imported, skipped, err = s.store.ImportJSON(ctx, r)
	if err != nil {
		se := storeError(err)
		if imported > 0 || skipped > 0 {
			se.Details = fmt.Sprintf("%s (imported %d, skipped %d before the failure)", se.Details, imported, skipped)
			s.logger.WithError(err).WithFields(logrus.Fields{
				"imported": imported,
				"skipped":  skipped,
			}).Warn("Care outcome import stopped partway")
		}
		return imported, skipped, se
	}
	s.logger.WithFields(logrus.Fields{
		"imported": imported,
		"skipped":  skipped,
	}).Info("Care outcomes imported")
	return imported, skipped, nil
}

// Health pings the store.
func (s *OutcomeService) Health(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func storeError(err error) *domain.ServiceError {
	if errors.Is(err, domain.ErrInvalidInput) {
		return domain.InvalidInput(err)
	}
	return domain.Storage(err)
}
