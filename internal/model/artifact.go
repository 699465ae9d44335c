// Package model loads, validates and evaluates the trained care gap pipeline: a fitted
// feature transformer followed by a gradient-boosted tree ensemble. Both parts are
// versioned JSON artifacts produced by the trainer.
package model

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/anc-caregap-server/internal/domain"
)

// FormatVersion is the artifact schema understood by this package.
const FormatVersion = 1

// Default artifact file names inside an artifact directory.
const (
	ModelFile       = "model.json"
	TransformerFile = "transformer.json"
)

// NumericColumn holds the fitted statistics of one numeric input.
type NumericColumn struct {
	Name   string  `json:"name"`
	Median float64 `json:"median"`
	Mean   float64 `json:"mean"`
	Scale  float64 `json:"scale"`
}

// CategoricalColumn holds the fitted statistics of one categorical input.
type CategoricalColumn struct {
	Name         string    `json:"name"`
	MostFrequent float64   `json:"most_frequent"`
	Categories   []float64 `json:"categories"`
}

// Node is one node of a regression tree. Samples with x[Feature] <= Threshold go Left.
type Node struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Value     float64 `json:"value"`
	Leaf      bool    `json:"leaf"`
}

// Tree is a flat array of nodes rooted at index 0.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Metadata describes how an ensemble was trained.
type Metadata struct {
	CreatedAt    string   `json:"created_at"`
	Rows         int      `json:"rows"`
	PositiveRate float64  `json:"positive_rate"`
	Components   []string `json:"components,omitempty"`
	Estimators   int      `json:"estimators"`
	MaxDepth     int      `json:"max_depth"`
	Seed         int64    `json:"seed"`
}

// Load reads and validates a transformer and an ensemble. Any failure is reported
// as domain.ErrArtifactUnavailable.
func Load(modelPath, transformerPath string) (*Pipeline, error) {
	var tr Transformer
	if err := readArtifact(transformerPath, &tr); err != nil {
		return nil, err
	}
	var ens Ensemble
	if err := readArtifact(modelPath, &ens); err != nil {
		return nil, err
	}
	p, err := NewPipeline(&tr, &ens)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrArtifactUnavailable, err)
	}
	return p, nil
}

// Save writes both artifacts into dir using the default file names.
func Save(dir string, tr *Transformer, ens *Ensemble) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create artifact directory: %w", err)
	}
	if err := writeArtifact(filepath.Join(dir, TransformerFile), tr); err != nil {
		return err
	}
	return writeArtifact(filepath.Join(dir, ModelFile), ens)
}

func readArtifact(path string, v interface{}) error {
	if path == "" {
		return fmt.Errorf("%w: artifact path is empty", domain.ErrArtifactUnavailable)
	}
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: failed to open artifact: %w", domain.ErrArtifactUnavailable, err)
	}
	defer file.Close()

	dec := json.NewDecoder(file)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: failed to decode %s: %w", domain.ErrArtifactUnavailable, filepath.Base(path), err)
	}
	return nil
}

func writeArtifact(path string, v interface{}) error {
	tmp := path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create artifact file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		file.Close()
		return fmt.Errorf("failed to encode artifact: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close artifact file: %w", err)
	}
	return os.Rename(tmp, path)
}
