package model

import (
	"fmt"
)

// Pipeline chains a Transformer and an Ensemble. It is immutable after construction
// and safe for concurrent use.
type Pipeline struct {
	transformer *Transformer
	ensemble    *Ensemble
}

// NewPipeline validates both parts and checks that the ensemble was trained on the
// transformer's output columns.
func NewPipeline(tr *Transformer, ens *Ensemble) (*Pipeline, error) {
	if tr == nil || ens == nil {
		return nil, fmt.Errorf("transformer and ensemble are required")
	}
	if err := tr.Validate(); err != nil {
		return nil, err
	}
	if err := ens.Validate(tr.Width()); err != nil {
		return nil, err
	}
	names := tr.OutputNames()
	if len(ens.Features) != len(names) {
		return nil, fmt.Errorf("model expects %d features, transformer produces %d", len(ens.Features), len(names))
	}
	for i := range names {
		if ens.Features[i] != names[i] {
			return nil, fmt.Errorf("feature %d is %q in the model but %q in the transformer", i, ens.Features[i], names[i])
		}
	}
	return &Pipeline{transformer: tr, ensemble: ens}, nil
}

// Predict returns the care gap probability for a raw feature record.
func (p *Pipeline) Predict(record map[string]float64) float64 {
	return Sigmoid(p.ensemble.Raw(p.transformer.Transform(record)))
}

// Version is the trained model version.
func (p *Pipeline) Version() string {
	return p.ensemble.ModelVersion
}

// Metadata returns the training metadata recorded in the model artifact.
func (p *Pipeline) Metadata() Metadata {
	return p.ensemble.Metadata
}

// Transformer exposes the fitted transformer for inspection.
func (p *Pipeline) Transformer() *Transformer {
	return p.transformer
}

// Ensemble exposes the tree ensemble for inspection.
func (p *Pipeline) Ensemble() *Ensemble {
	return p.ensemble
}
