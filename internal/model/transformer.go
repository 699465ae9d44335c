package model

import (
	"fmt"
	"math"
	"strconv"
)

// Transformer imputes, scales and one-hot encodes a raw feature record.
type Transformer struct {
	FormatVersion int                 `json:"format_version"`
	Numeric       []NumericColumn     `json:"numeric"`
	Categorical   []CategoricalColumn `json:"categorical"`
}

// Validate checks the fitted statistics are usable.
func (t *Transformer) Validate() error {
	if t.FormatVersion != FormatVersion {
		return fmt.Errorf("transformer format version %d, expected %d", t.FormatVersion, FormatVersion)
	}
	if len(t.Numeric)+len(t.Categorical) == 0 {
		return fmt.Errorf("transformer has no columns")
	}
	seen := make(map[string]bool)
	for _, c := range t.Numeric {
		if c.Name == "" || seen[c.Name] {
			return fmt.Errorf("numeric column %q is empty or duplicated", c.Name)
		}
		seen[c.Name] = true
		if !finite(c.Median) || !finite(c.Mean) || !finite(c.Scale) || c.Scale <= 0 {
			return fmt.Errorf("numeric column %s has invalid statistics", c.Name)
		}
	}
	for _, c := range t.Categorical {
		if c.Name == "" || seen[c.Name] {
			return fmt.Errorf("categorical column %q is empty or duplicated", c.Name)
		}
		seen[c.Name] = true
		if len(c.Categories) == 0 {
			return fmt.Errorf("categorical column %s has no categories", c.Name)
		}
		for i := 1; i < len(c.Categories); i++ {
			if !(c.Categories[i-1] < c.Categories[i]) {
				return fmt.Errorf("categorical column %s categories are not sorted and unique", c.Name)
			}
		}
		if !finite(c.MostFrequent) {
			return fmt.Errorf("categorical column %s has invalid most frequent value", c.Name)
		}
	}
	return nil
}

// OutputNames lists the transformed feature names in output order: numeric columns
// first, then one indicator per category named "<column>_<category>".
func (t *Transformer) OutputNames() []string {
	names := make([]string, 0, t.Width())
	for _, c := range t.Numeric {
		names = append(names, c.Name)
	}
	for _, c := range t.Categorical {
		for _, cat := range c.Categories {
			names = append(names, c.Name+"_"+strconv.FormatFloat(cat, 'g', -1, 64))
		}
	}
	return names
}

// Width is the length of a transformed vector.
func (t *Transformer) Width() int {
	n := len(t.Numeric)
	for _, c := range t.Categorical {
		n += len(c.Categories)
	}
	return n
}

// Transform maps a record to the model input vector. Missing or NaN inputs are
// imputed; categories never seen during fitting produce an all-zero block.
func (t *Transformer) Transform(record map[string]float64) []float64 {
	out := make([]float64, 0, t.Width())
	for _, c := range t.Numeric {
		v, ok := record[c.Name]
		if !ok || math.IsNaN(v) {
			v = c.Median
		}
		out = append(out, (v-c.Mean)/c.Scale)
	}
	for _, c := range t.Categorical {
		v, ok := record[c.Name]
		if !ok || math.IsNaN(v) {
			v = c.MostFrequent
		}
		for _, cat := range c.Categories {
			if v == cat {
				out = append(out, 1)
			} else {
				out = append(out, 0)
			}
		}
	}
	return out
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
