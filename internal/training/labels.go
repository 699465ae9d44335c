package training

import (
	"fmt"
	"math"

	"github.com/anc-caregap-server/internal/domain"
	"github.com/anc-caregap-server/internal/encoder"
)

// Derived columns.
const (
	ColCareGap = "CareGapScore"

	colGestationValue = "MN4AN"
	colGestationUnit  = "MN4AU"

	weeksPerMonth    = 4.345
	lateInitiationWk = 13
)

// component is one element of the recommended ANC package.
type component struct {
	name     string
	column   string
	received func(v float64) bool
}

func isOne(v float64) bool { return v == 1 }

var (
	bloodPressure   = component{"bp_checked", "MN6A", isOne}
	urineTest       = component{"urine_tested", "MN6B", isOne}
	bloodTest       = component{"blood_tested", "MN6C", isOne}
	tetanusAdequate = component{"tetanus_adequate", "MN9", func(v float64) bool { return v >= 2 }}
	tetanusAny      = component{"tetanus_any", "MN8", isOne}
	hivTest         = component{"hiv_tested", "HA14", isOne}
)

// trackedComponents returns the components whose columns exist in ds. Adequate
// tetanus coverage takes precedence over any tetanus dose.
func trackedComponents(ds *Dataset) []component {
	var out []component
	for _, c := range []component{bloodPressure, urineTest, bloodTest} {
		if ds.Has(c.column) {
			out = append(out, c)
		}
	}
	switch {
	case ds.Has(tetanusAdequate.column):
		out = append(out, tetanusAdequate)
	case ds.Has(tetanusAny.column):
		out = append(out, tetanusAny)
	}
	if ds.Has(hivTest.column) {
		out = append(out, hivTest)
	}
	return out
}

// Samples is the filtered training table: raw feature records and 0/1 labels.
type Samples struct {
	Records    []map[string]float64
	Labels     []float64
	Components []string
	Dropped    int
}

// PositiveRate is the share of care gap labels.
func (s *Samples) PositiveRate() float64 {
	if len(s.Labels) == 0 {
		return 0
	}
	sum := 0.0
	for _, y := range s.Labels {
		sum += y
	}
	return sum / float64(len(s.Labels))
}

// Prepare derives the care gap label and the late-initiator flag for every row and
// drops rows where either is missing. Precomputed CareGapScore or LateInitiator
// columns are used as they are.
func Prepare(ds *Dataset) (*Samples, error) {
	var tracked []component
	if !ds.Has(ColCareGap) {
		tracked = trackedComponents(ds)
		if len(tracked) == 0 {
			return nil, fmt.Errorf("dataset has neither %s nor any ANC component column", ColCareGap)
		}
	}

	s := &Samples{}
	for _, c := range tracked {
		s.Components = append(s.Components, c.name)
	}

	for i := 0; i < ds.Len(); i++ {
		label := ds.Value(i, ColCareGap)
		if tracked != nil {
			label = careGapLabel(ds, i, tracked)
		}
		late := ds.Value(i, encoder.ColLateInitiator)
		if !ds.Has(encoder.ColLateInitiator) {
			late = lateInitiator(ds.Value(i, colGestationValue), ds.Value(i, colGestationUnit))
		}
		if math.IsNaN(label) || math.IsNaN(late) {
			s.Dropped++
			continue
		}

		rec := make(map[string]float64, len(encoder.NumericColumns)+len(encoder.CategoricalColumns))
		for _, col := range encoder.NumericColumns {
			rec[col] = ds.Value(i, col)
		}
		for _, col := range encoder.CategoricalColumns {
			rec[col] = ds.Value(i, col)
		}
		rec[encoder.ColLateInitiator] = late

		s.Records = append(s.Records, rec)
		s.Labels = append(s.Labels, label)
	}

	if len(s.Records) == 0 {
		return nil, fmt.Errorf("no usable rows: all %d rows lack a label or late-initiator value", s.Dropped)
	}
	return s, nil
}

// careGapLabel counts received components; a missing answer counts as not received.
func careGapLabel(ds *Dataset, row int, tracked []component) float64 {
	received := 0
	for _, c := range tracked {
		if c.received(ds.Value(row, c.column)) {
			received++
		}
	}
	if domain.IsCareGap(received, len(tracked)) {
		return 1
	}
	return 0
}

// lateInitiator converts the gestational age at first visit to weeks (unit 1 = weeks,
// unit 2 = months) and flags visits after week 13. Other units are missing.
func lateInitiator(value, unit float64) float64 {
	var weeks float64
	switch unit {
	case 1:
		weeks = value
	case 2:
		weeks = value * weeksPerMonth
	default:
		return math.NaN()
	}
	if math.IsNaN(weeks) {
		return math.NaN()
	}
	if weeks > lateInitiationWk {
		return 1
	}
	return 0
}
