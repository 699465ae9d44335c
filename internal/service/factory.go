package service

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/anc-caregap-server/internal/domain"
	"github.com/anc-caregap-server/internal/encoder"
)

// Scorers bundles the configured scorer with the factor analyzer used for the
// factor list. The analyzer is always the heuristic table, so both strategies
// report the same factors for the same profile.
type Scorers struct {
	Scorer   domain.RiskScorer
	Analyzer domain.FactorAnalyzer
}

// NewScorers builds the scorer selected by cfg.Strategy.
func NewScorers(cfg domain.ScoringConfig, logger *logrus.Logger) (*Scorers, error) {
	heuristic, err := NewHeuristicScorer(cfg.Heuristic)
	if err != nil {
		return nil, err
	}

	switch cfg.Strategy {
	case "", domain.StrategyHeuristic:
		logger.WithFields(logrus.Fields{
			"strategy": domain.StrategyHeuristic,
			"version":  heuristic.Version(),
		}).Info("Using heuristic risk scorer")
		return &Scorers{Scorer: heuristic, Analyzer: heuristic}, nil

	case domain.StrategyModel:
		codes, err := encoder.FromConfig(cfg.SurveyCodes)
		if err != nil {
			return nil, err
		}
		ms, err := NewModelScorer(cfg.ModelPath, cfg.TransformerPath, encoder.New(codes))
		if err != nil {
			logger.WithError(err).WithFields(logrus.Fields{
				"model_path":       cfg.ModelPath,
				"transformer_path": cfg.TransformerPath,
			}).Error("Failed to load risk model")
			return nil, err
		}
		logger.WithFields(logrus.Fields{
			"strategy": domain.StrategyModel,
			"version":  ms.Version(),
		}).Info("Using trained risk model")
		return &Scorers{Scorer: ms, Analyzer: heuristic}, nil

	default:
		return nil, fmt.Errorf("unknown scoring strategy %q", cfg.Strategy)
	}
}
