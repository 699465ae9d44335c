package model

import (
	"fmt"
	"math"
)

// Ensemble is a binary log-loss gradient-boosted tree model.
type Ensemble struct {
	FormatVersion int      `json:"format_version"`
	ModelVersion  string   `json:"model_version"`
	Prior         float64  `json:"prior"`
	LearningRate  float64  `json:"learning_rate"`
	Features      []string `json:"features"`
	Trees         []Tree   `json:"trees"`
	Metadata      Metadata `json:"metadata"`
}

// Validate checks the tree structure is well formed for a vector of the given width.
func (e *Ensemble) Validate(width int) error {
	if e.FormatVersion != FormatVersion {
		return fmt.Errorf("model format version %d, expected %d", e.FormatVersion, FormatVersion)
	}
	if e.ModelVersion == "" {
		return fmt.Errorf("model version is empty")
	}
	if !finite(e.Prior) || !finite(e.LearningRate) || e.LearningRate <= 0 {
		return fmt.Errorf("model prior or learning rate is invalid")
	}
	if len(e.Trees) == 0 {
		return fmt.Errorf("model has no trees")
	}
	for ti, tree := range e.Trees {
		if len(tree.Nodes) == 0 {
			return fmt.Errorf("tree %d has no nodes", ti)
		}
		for ni, n := range tree.Nodes {
			if n.Leaf {
				if !finite(n.Value) {
					return fmt.Errorf("tree %d node %d has invalid leaf value", ti, ni)
				}
				continue
			}
			if n.Feature < 0 || n.Feature >= width {
				return fmt.Errorf("tree %d node %d splits on feature %d outside [0,%d)", ti, ni, n.Feature, width)
			}
			if !finite(n.Threshold) {
				return fmt.Errorf("tree %d node %d has invalid threshold", ti, ni)
			}
			// Children always follow their parent, which rules out cycles.
			if n.Left <= ni || n.Right <= ni || n.Left >= len(tree.Nodes) || n.Right >= len(tree.Nodes) {
				return fmt.Errorf("tree %d node %d has invalid children", ti, ni)
			}
		}
	}
	return nil
}

// Raw returns the log-odds for a transformed vector.
func (e *Ensemble) Raw(x []float64) float64 {
	sum := 0.0
	for i := range e.Trees {
		sum += e.Trees[i].Predict(x)
	}
	return e.Prior + e.LearningRate*sum
}

// Predict walks the tree to a leaf value.
func (t *Tree) Predict(x []float64) float64 {
	i := 0
	for {
		n := t.Nodes[i]
		if n.Leaf {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// Sigmoid maps log-odds to a probability.
func Sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
