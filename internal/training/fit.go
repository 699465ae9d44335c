package training

import (
	"fmt"
	"math"
	"sort"

	"github.com/anc-caregap-server/internal/encoder"
	"github.com/anc-caregap-server/internal/model"
)

// FitTransformer computes imputation and scaling statistics over the records.
// Scaling statistics and categories are taken after imputation.
func FitTransformer(records []map[string]float64) (*model.Transformer, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("cannot fit transformer on zero rows")
	}
	tr := &model.Transformer{FormatVersion: model.FormatVersion}

	for _, col := range encoder.NumericColumns {
		observed := observedValues(records, col)
		if len(observed) == 0 {
			return nil, fmt.Errorf("column %s has no observed values", col)
		}
		med := median(observed)
		imputed := imputedValues(records, col, med)
		mean, std := meanStd(imputed)
		if std == 0 {
			std = 1
		}
		tr.Numeric = append(tr.Numeric, model.NumericColumn{Name: col, Median: med, Mean: mean, Scale: std})
	}

	for _, col := range encoder.CategoricalColumns {
		observed := observedValues(records, col)
		if len(observed) == 0 {
			return nil, fmt.Errorf("column %s has no observed values", col)
		}
		mode := mostFrequent(observed)
		tr.Categorical = append(tr.Categorical, model.CategoricalColumn{
			Name:         col,
			MostFrequent: mode,
			Categories:   uniqueSorted(imputedValues(records, col, mode)),
		})
	}
	return tr, nil
}

func observedValues(records []map[string]float64, col string) []float64 {
	out := make([]float64, 0, len(records))
	for _, r := range records {
		if v, ok := r[col]; ok && !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

func imputedValues(records []map[string]float64, col string, fill float64) []float64 {
	out := make([]float64, len(records))
	for i, r := range records {
		v, ok := r[col]
		if !ok || math.IsNaN(v) {
			v = fill
		}
		out[i] = v
	}
	return out
}

func median(xs []float64) float64 {
	s := append([]float64(nil), xs...)
	sort.Float64s(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}

// meanStd returns the mean and the population standard deviation.
func meanStd(xs []float64) (float64, float64) {
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))
	ss := 0.0
	for _, x := range xs {
		ss += (x - mean) * (x - mean)
	}
	return mean, math.Sqrt(ss / float64(len(xs)))
}

// mostFrequent breaks ties toward the smallest value.
func mostFrequent(xs []float64) float64 {
	counts := make(map[float64]int)
	for _, x := range xs {
		counts[x]++
	}
	best, bestCount := 0.0, -1
	for v, c := range counts {
		if c > bestCount || (c == bestCount && v < best) {
			best, bestCount = v, c
		}
	}
	return best
}

func uniqueSorted(xs []float64) []float64 {
	s := append([]float64(nil), xs...)
	sort.Float64s(s)
	out := s[:0]
	for i, v := range s {
		if i == 0 || v != s[i-1] {
			out = append(out, v)
		}
	}
	return out
}
