package training

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/anc-caregap-server/internal/model"
)

// BoostConfig controls the gradient boosting run.
type BoostConfig struct {
	Estimators     int
	LearningRate   float64
	MaxDepth       int
	MinSamplesLeaf int
	Subsample      float64
	Seed           int64
}

// DefaultBoostConfig matches the reference classifier: 100 depth-3 trees at rate 0.1.
func DefaultBoostConfig() BoostConfig {
	return BoostConfig{
		Estimators:     100,
		LearningRate:   0.1,
		MaxDepth:       3,
		MinSamplesLeaf: 1,
		Subsample:      1.0,
		Seed:           42,
	}
}

// Validate checks the hyperparameters.
func (c BoostConfig) Validate() error {
	switch {
	case c.Estimators < 1:
		return fmt.Errorf("estimators must be >= 1")
	case !(c.LearningRate > 0 && c.LearningRate <= 1):
		return fmt.Errorf("learning rate must be in (0, 1]")
	case c.MaxDepth < 1:
		return fmt.Errorf("max depth must be >= 1")
	case c.MinSamplesLeaf < 1:
		return fmt.Errorf("min samples per leaf must be >= 1")
	case !(c.Subsample > 0 && c.Subsample <= 1):
		return fmt.Errorf("subsample must be in (0, 1]")
	}
	return nil
}

// Boost fits a binary log-loss ensemble on transformed vectors X with 0/1 labels y.
// Trees are least-squares regression trees on the residuals; leaf values take one
// Newton step, sum(r) / sum(p(1-p)).
func Boost(X [][]float64, y []float64, cfg BoostConfig) (*model.Ensemble, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(X) == 0 || len(X) != len(y) {
		return nil, fmt.Errorf("need matching non-empty X and y, got %d and %d", len(X), len(y))
	}

	pos := 0.0
	for _, v := range y {
		pos += v
	}
	rate := pos / float64(len(y))
	if rate == 0 || rate == 1 {
		return nil, fmt.Errorf("labels contain a single class")
	}
	prior := math.Log(rate / (1 - rate))

	raw := make([]float64, len(y))
	for i := range raw {
		raw[i] = prior
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	ens := &model.Ensemble{
		FormatVersion: model.FormatVersion,
		Prior:         prior,
		LearningRate:  cfg.LearningRate,
	}

	resid := make([]float64, len(y))
	hess := make([]float64, len(y))
	for m := 0; m < cfg.Estimators; m++ {
		for i := range y {
			p := model.Sigmoid(raw[i])
			resid[i] = y[i] - p
			hess[i] = p * (1 - p)
		}

		b := &treeBuilder{X: X, resid: resid, hess: hess, cfg: cfg}
		b.grow(sampleRows(len(y), cfg.Subsample, rng), 0)
		tree := model.Tree{Nodes: b.nodes}
		ens.Trees = append(ens.Trees, tree)

		for i := range raw {
			raw[i] += cfg.LearningRate * tree.Predict(X[i])
		}
	}
	return ens, nil
}

func sampleRows(n int, fraction float64, rng *rand.Rand) []int {
	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}
	if fraction >= 1 {
		return rows
	}
	rng.Shuffle(n, func(i, j int) { rows[i], rows[j] = rows[j], rows[i] })
	k := int(math.Max(1, math.Round(fraction*float64(n))))
	rows = rows[:k]
	sort.Ints(rows)
	return rows
}

type treeBuilder struct {
	X     [][]float64
	resid []float64
	hess  []float64
	cfg   BoostConfig
	nodes []model.Node
}

// grow appends the subtree for rows and returns its root index. A parent is always
// appended before its children.
func (b *treeBuilder) grow(rows []int, depth int) int {
	idx := len(b.nodes)
	b.nodes = append(b.nodes, model.Node{})

	feature, threshold, ok := -1, 0.0, false
	if depth < b.cfg.MaxDepth && len(rows) >= 2*b.cfg.MinSamplesLeaf {
		feature, threshold, ok = b.bestSplit(rows)
	}
	if !ok {
		b.nodes[idx] = model.Node{Leaf: true, Value: b.leafValue(rows)}
		return idx
	}

	var left, right []int
	for _, r := range rows {
		if b.X[r][feature] <= threshold {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}
	l := b.grow(left, depth+1)
	rr := b.grow(right, depth+1)
	b.nodes[idx] = model.Node{Feature: feature, Threshold: threshold, Left: l, Right: rr}
	return idx
}

func (b *treeBuilder) leafValue(rows []int) float64 {
	num, den := 0.0, 0.0
	for _, r := range rows {
		num += b.resid[r]
		den += b.hess[r]
	}
	if den < 1e-12 {
		return 0
	}
	return num / den
}

// bestSplit finds the split that most reduces the residual sum of squares.
func (b *treeBuilder) bestSplit(rows []int) (int, float64, bool) {
	n := len(rows)
	total := 0.0
	for _, r := range rows {
		total += b.resid[r]
	}
	// Reduction in SSE equals sumL²/nL + sumR²/nR - total²/n.
	base := total * total / float64(n)
	bestGain, bestFeature, bestThreshold := 1e-12, -1, 0.0

	sorted := make([]int, n)
	width := len(b.X[rows[0]])
	for f := 0; f < width; f++ {
		copy(sorted, rows)
		sort.SliceStable(sorted, func(i, j int) bool { return b.X[sorted[i]][f] < b.X[sorted[j]][f] })

		sumL := 0.0
		for i := 0; i < n-1; i++ {
			sumL += b.resid[sorted[i]]
			nl := i + 1
			xi, xn := b.X[sorted[i]][f], b.X[sorted[i+1]][f]
			if xi == xn || nl < b.cfg.MinSamplesLeaf || n-nl < b.cfg.MinSamplesLeaf {
				continue
			}
			sumR := total - sumL
			gain := sumL*sumL/float64(nl) + sumR*sumR/float64(n-nl) - base
			if gain > bestGain {
				bestGain, bestFeature, bestThreshold = gain, f, (xi+xn)/2
			}
		}
	}
	return bestFeature, bestThreshold, bestFeature >= 0
}
