package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/anc-caregap-server/internal/domain"
	"github.com/anc-caregap-server/internal/metrics"
)

// AssessmentService runs the validate, score, tier, factors and recommendations
// flow shared by the HTTP API and the MCP tools.
type AssessmentService struct {
	scorer   domain.RiskScorer
	analyzer domain.FactorAnalyzer
	cache    AssessmentCache
	metrics  *metrics.Metrics
	logger   *logrus.Logger
	now      func() time.Time
	newID    func() string
}

// Option configures an AssessmentService.
type Option func(*AssessmentService)

// WithCache enables assessment caching. A nil cache disables it.
func WithCache(c AssessmentCache) Option {
	return func(s *AssessmentService) { s.cache = c }
}

// WithMetrics records assessments in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *AssessmentService) { s.metrics = m }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *AssessmentService) { s.now = now }
}

// NewAssessmentService creates the service over a scorer and the analyzer that
// explains its scores.
func NewAssessmentService(scorer domain.RiskScorer, analyzer domain.FactorAnalyzer, logger *logrus.Logger, opts ...Option) *AssessmentService {
	s := &AssessmentService{
		scorer:   scorer,
		analyzer: analyzer,
		logger:   logger,
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewAssessmentServiceFromScorers is NewAssessmentService over a factory result.
func NewAssessmentServiceFromScorers(sc *Scorers, logger *logrus.Logger, opts ...Option) *AssessmentService {
	return NewAssessmentService(sc.Scorer, sc.Analyzer, logger, opts...)
}

// ScorerInfo describes the active scorer.
func (s *AssessmentService) ScorerInfo() domain.ScorerInfo {
	lo, hi := s.scorer.Bounds()
	return domain.ScorerInfo{
		Name:    s.scorer.Name(),
		Version: s.scorer.Version(),
		Lower:   lo,
		Upper:   hi,
	}
}

// CacheHealth reports the state of the cache backend, nil when no cache is used.
func (s *AssessmentService) CacheHealth(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Health(ctx)
}

// Assess scores a profile. Errors are always *domain.ServiceError.
func (s *AssessmentService) Assess(ctx context.Context, p domain.PatientProfile) (*domain.RiskAssessment, error) {
	start := s.now()

	if err := p.Validate(); err != nil {
		return nil, s.fail(domain.InvalidInput(err), p)
	}

	key := CacheKey(p, s.scorer)
	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, key); ok {
			cached.ID = s.newID()
			cached.AssessedAt = start.UTC()
			s.metrics.ObserveAssessment(s.scorer.Name(), string(cached.Tier), s.now().Sub(start))
			s.logger.WithFields(logrus.Fields{
				"assessment_id": cached.ID,
				"tier":          cached.Tier,
			}).Debug("Assessment served from cache")
			return cached, nil
		}
	}

	score, err := s.scorer.Score(ctx, p)
	if err != nil {
		return nil, s.fail(asServiceError(err), p)
	}
	lo, hi := s.scorer.Bounds()
	if math.IsNaN(score) || score < lo || score > hi {
		return nil, s.fail(domain.Internal(
			fmt.Errorf("score %v outside scorer bounds [%g, %g]", score, lo, hi)), p)
	}

	a := s.build(p, score)
	a.ID = s.newID()
	a.AssessedAt = start.UTC()

	if s.cache != nil {
		stored := *a
		stored.ID = ""
		s.cache.Set(ctx, key, &stored)
	}

	elapsed := s.now().Sub(start)
	s.metrics.ObserveAssessment(s.scorer.Name(), string(a.Tier), elapsed)
	s.logger.WithFields(logrus.Fields{
		"assessment_id":      a.ID,
		"scorer":             s.scorer.Name(),
		"scorer_version":     s.scorer.Version(),
		"score":              a.Score,
		"tier":               a.Tier,
		"risk_factors":       len(a.RiskFactors),
		"protective_factors": len(a.ProtectiveFactors),
		"processing_time":    elapsed,
	}).Info("Care gap risk assessment completed")

	return a, nil
}

// DescribeFactors validates a profile and lists the factors behind its score
// without scoring it.
func (s *AssessmentService) DescribeFactors(p domain.PatientProfile) ([]domain.Factor, error) {
	if err := p.Validate(); err != nil {
		return nil, domain.InvalidInput(err)
	}
	return s.analyzer.Factors(p), nil
}

func (s *AssessmentService) build(p domain.PatientProfile, score float64) *domain.RiskAssessment {
	tier := domain.TierForScore(score)
	a := &domain.RiskAssessment{
		Score:             score,
		ScorePercent:      fmt.Sprintf("%.1f%%", score*100),
		Tier:              tier,
		TierLabel:         tier.Label(),
		Recommendations:   domain.RecommendationsFor(tier),
		RiskFactors:       []domain.Factor{},
		ProtectiveFactors: []domain.Factor{},
		Scorer:            s.ScorerInfo(),
	}

	for _, f := range s.analyzer.Factors(p) {
		if f.Direction == domain.PROTECTIVE {
			a.ProtectiveFactors = append(a.ProtectiveFactors, f)
		} else {
			a.RiskFactors = append(a.RiskFactors, f)
		}
	}

	if len(a.RiskFactors) == 0 {
		a.ContributingFactors = append(a.ContributingFactors, domain.NoRiskFactorsMessage)
	}
	for _, f := range a.RiskFactors {
		a.ContributingFactors = append(a.ContributingFactors, f.Display())
	}
	for _, f := range a.ProtectiveFactors {
		a.ContributingFactors = append(a.ContributingFactors, f.Display())
	}

	a.Summary = fmt.Sprintf("%s: estimated care gap probability %s (%d risk, %d protective factors)",
		tier.Label(), a.ScorePercent, len(a.RiskFactors), len(a.ProtectiveFactors))
	return a
}

func (s *AssessmentService) fail(se *domain.ServiceError, p domain.PatientProfile) *domain.ServiceError {
	s.metrics.ObserveError(se.Code)
	entry := s.logger.WithFields(logrus.Fields{
		"code":    se.Code,
		"details": se.Details,
	})
	if se.Code == domain.CodeInvalidInput {
		entry.Warn("Rejected patient profile")
	} else {
		entry.WithField("profile_key", p.Key()).Error("Care gap risk assessment failed")
	}
	return se
}

// asServiceError classifies a scorer failure.
func asServiceError(err error) *domain.ServiceError {
	var se *domain.ServiceError
	switch {
	case errors.As(err, &se):
		return se
	case errors.Is(err, domain.ErrArtifactUnavailable):
		return domain.ModelUnavailable(err)
	case errors.Is(err, domain.ErrInvalidInput):
		return domain.InvalidInput(err)
	default:
		return domain.Internal(err)
	}
}
