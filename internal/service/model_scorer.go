package service

import (
	"context"
	"fmt"
	"math"

	"github.com/anc-caregap-server/internal/domain"
	"github.com/anc-caregap-server/internal/encoder"
	"github.com/anc-caregap-server/internal/model"
)

// ModelScorer scores profiles with the trained boosted-tree pipeline.
type ModelScorer struct {
	pipeline *model.Pipeline
	encoder  *encoder.Encoder
}

// NewModelScorer loads both artifacts. A missing or corrupt artifact yields a
// MODEL_UNAVAILABLE error and no scorer.
func NewModelScorer(modelPath, transformerPath string, enc *encoder.Encoder) (*ModelScorer, error) {
	p, err := model.Load(modelPath, transformerPath)
	if err != nil {
		return nil, domain.ModelUnavailable(err)
	}
	return NewModelScorerFromPipeline(p, enc), nil
}

// NewModelScorerFromPipeline wraps an already loaded pipeline.
func NewModelScorerFromPipeline(p *model.Pipeline, enc *encoder.Encoder) *ModelScorer {
	if enc == nil {
		enc = encoder.New(encoder.DefaultSurveyCodes())
	}
	return &ModelScorer{pipeline: p, encoder: enc}
}

// Name implements domain.RiskScorer
func (m *ModelScorer) Name() string { return domain.StrategyModel }

// Version is the trained model version.
func (m *ModelScorer) Version() string { return m.pipeline.Version() }

// Bounds implements domain.RiskScorer
func (m *ModelScorer) Bounds() (float64, float64) { return 0, 1 }

// Score implements domain.RiskScorer
func (m *ModelScorer) Score(ctx context.Context, p domain.PatientProfile) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	prob := m.pipeline.Predict(m.encoder.Encode(p).Record())
	if math.IsNaN(prob) || prob < 0 || prob > 1 {
		return 0, domain.Internal(fmt.Errorf("model produced invalid probability %v", prob))
	}
	return prob, nil
}
