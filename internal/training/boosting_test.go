package training

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anc-caregap-server/internal/model"
)

func TestBoostSeparatesClasses(t *testing.T) {
	var X [][]float64
	var y []float64
	for i := 0; i < 40; i++ {
		a, b := float64(i%2), float64((i/2)%2)
		X = append(X, []float64{a, b})
		label := 0.0
		if a == 1 && b == 1 {
			label = 1
		}
		y = append(y, label)
	}

	cfg := DefaultBoostConfig()
	cfg.Estimators = 30
	ens, err := Boost(X, y, cfg)
	require.NoError(t, err)
	require.Len(t, ens.Trees, 30)
	require.NoError(t, ens.Validate(2))

	assert.Greater(t, model.Sigmoid(ens.Raw([]float64{1, 1})), 0.5)
	assert.Less(t, model.Sigmoid(ens.Raw([]float64{0, 1})), 0.5)
	assert.Less(t, model.Sigmoid(ens.Raw([]float64{1, 0})), 0.5)
	assert.Less(t, model.Sigmoid(ens.Raw([]float64{0, 0})), 0.5)
}

func TestBoostIsDeterministic(t *testing.T) {
	X := [][]float64{{0}, {1}, {2}, {3}, {4}, {5}}
	y := []float64{0, 0, 1, 0, 1, 1}

	cfg := DefaultBoostConfig()
	cfg.Estimators = 5
	cfg.Subsample = 0.5

	a, err := Boost(X, y, cfg)
	require.NoError(t, err)
	b, err := Boost(X, y, cfg)
	require.NoError(t, err)
	assert.Equal(t, a.Trees, b.Trees)
}

func TestBoostRejectsSingleClass(t *testing.T) {
	_, err := Boost([][]float64{{0}, {1}}, []float64{1, 1}, DefaultBoostConfig())
	assert.Error(t, err)
}

func TestBoostConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *BoostConfig)
	}{
		{"no estimators", func(c *BoostConfig) { c.Estimators = 0 }},
		{"zero rate", func(c *BoostConfig) { c.LearningRate = 0 }},
		{"rate above one", func(c *BoostConfig) { c.LearningRate = 1.5 }},
		{"zero depth", func(c *BoostConfig) { c.MaxDepth = 0 }},
		{"zero leaf size", func(c *BoostConfig) { c.MinSamplesLeaf = 0 }},
		{"zero subsample", func(c *BoostConfig) { c.Subsample = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultBoostConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
	assert.NoError(t, DefaultBoostConfig().Validate())
}
