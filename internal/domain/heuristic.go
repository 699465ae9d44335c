package domain

import (
	"fmt"
	"math"
)

// Factor codes. Each code maps to exactly one term of the weighted sum.
const (
	FactorLateInitiation     = "late_initiation"
	FactorNoEducation        = "no_education"
	FactorPrimaryEducation   = "primary_education"
	FactorSecondaryEducation = "secondary_education"
	FactorHigherEducation    = "higher_education"
	FactorNoInsurance        = "no_insurance"
	FactorInsurance          = "insurance"
	FactorHighParity         = "high_parity"
	FactorNotInUnion         = "not_in_union"
	FactorCohabiting         = "cohabiting"
	FactorMarried            = "married"
	FactorYoungAge           = "young_age"
	FactorAdvancedAge        = "advanced_age"
	FactorOptimalAge         = "optimal_age"
	FactorFirstPregnancy     = "first_pregnancy"
)

// riskFactorCodes may carry non-negative deltas only and are the only codes a
// combination rule may require.
var riskFactorCodes = map[string]bool{
	FactorLateInitiation:   true,
	FactorNoEducation:      true,
	FactorPrimaryEducation: true,
	FactorNoInsurance:      true,
	FactorHighParity:       true,
	FactorNotInUnion:       true,
	FactorCohabiting:       true,
	FactorYoungAge:         true,
	FactorAdvancedAge:      true,
}

// IsRiskFactorCode reports whether code names a risk-increasing factor.
func IsRiskFactorCode(code string) bool {
	return riskFactorCodes[code]
}

// FactorLabels are the display labels of every factor code.
var FactorLabels = map[string]string{
	FactorLateInitiation:     "Late ANC initiation",
	FactorNoEducation:        "Lower education level",
	FactorPrimaryEducation:   "Lower education level",
	FactorSecondaryEducation: "Secondary education",
	FactorHigherEducation:    "Higher education",
	FactorNoInsurance:        "No health insurance",
	FactorInsurance:          "Health insurance coverage",
	FactorHighParity:         "High parity",
	FactorNotInUnion:         "Not in a union",
	FactorCohabiting:         "Living with partner without formal union",
	FactorMarried:            "Married status",
	FactorYoungAge:           "Young maternal age",
	FactorAdvancedAge:        "Advanced maternal age",
	FactorOptimalAge:         "Optimal age range",
	FactorFirstPregnancy:     "First pregnancy",
}

// CombinationRule adds Delta when every factor listed in Requires is present.
type CombinationRule struct {
	Name     string   `mapstructure:"name" json:"name"`
	Label    string   `mapstructure:"label" json:"label"`
	Requires []string `mapstructure:"requires" json:"requires"`
	Delta    float64  `mapstructure:"delta" json:"delta"`
}

// HeuristicWeights is the constant table of the weighted-sum scorer.
type HeuristicWeights struct {
	Preset string `mapstructure:"preset" json:"preset"`

	Base  float64 `mapstructure:"base" json:"base"`
	Lower float64 `mapstructure:"lower" json:"lower"`
	Upper float64 `mapstructure:"upper" json:"upper"`

	LateInitiation float64 `mapstructure:"late_initiation" json:"late_initiation"`

	NoEducation        float64 `mapstructure:"no_education" json:"no_education"`
	PrimaryEducation   float64 `mapstructure:"primary_education" json:"primary_education"`
	SecondaryEducation float64 `mapstructure:"secondary_education" json:"secondary_education"`
	HigherEducation    float64 `mapstructure:"higher_education" json:"higher_education"`

	NoInsurance float64 `mapstructure:"no_insurance" json:"no_insurance"`
	Insurance   float64 `mapstructure:"insurance" json:"insurance"`

	ParityThreshold int     `mapstructure:"parity_threshold" json:"parity_threshold"`
	ParityPerBirth  float64 `mapstructure:"parity_per_birth" json:"parity_per_birth"`

	NotInUnion float64 `mapstructure:"not_in_union" json:"not_in_union"`
	Cohabiting float64 `mapstructure:"cohabiting" json:"cohabiting"`
	Married    float64 `mapstructure:"married" json:"married"`

	YoungAgeBelow    int     `mapstructure:"young_age_below" json:"young_age_below"`
	YoungAge         float64 `mapstructure:"young_age" json:"young_age"`
	AdvancedAgeAbove int     `mapstructure:"advanced_age_above" json:"advanced_age_above"`
	AdvancedAge      float64 `mapstructure:"advanced_age" json:"advanced_age"`
	OptimalAge       float64 `mapstructure:"optimal_age" json:"optimal_age"`

	FirstPregnancy float64 `mapstructure:"first_pregnancy" json:"first_pregnancy"`

	Combinations []CombinationRule `mapstructure:"combinations" json:"combinations"`
}

// Heuristic presets
const (
	PresetBalanced = "balanced"
	PresetRiskOnly = "risk_only"
)

// BalancedWeights is the default table with both risk and protective factors.
func BalancedWeights() HeuristicWeights {
	return HeuristicWeights{
		Preset:             PresetBalanced,
		Base:               0.30,
		Lower:              0.05,
		Upper:              0.95,
		LateInitiation:     0.20,
		NoEducation:        0.15,
		PrimaryEducation:   0.08,
		SecondaryEducation: 0,
		HigherEducation:    -0.10,
		NoInsurance:        0.10,
		Insurance:          -0.05,
		ParityThreshold:    3,
		ParityPerBirth:     0.03,
		NotInUnion:         0.10,
		Cohabiting:         0.03,
		Married:            -0.05,
		YoungAgeBelow:      20,
		YoungAge:           0.10,
		AdvancedAgeAbove:   35,
		AdvancedAge:        0.08,
		OptimalAge:         -0.03,
		FirstPregnancy:     -0.02,
		Combinations: []CombinationRule{
			{
				Name:     "young_uneducated_uninsured",
				Label:    "Young, no formal education and uninsured",
				Requires: []string{FactorYoungAge, FactorNoEducation, FactorNoInsurance},
				Delta:    0.10,
			},
			{
				Name:     "late_without_partner",
				Label:    "Late initiation without a partner",
				Requires: []string{FactorLateInitiation, FactorNotInUnion},
				Delta:    0.05,
			},
		},
	}
}

// RiskOnlyWeights is the table without protective factors.
func RiskOnlyWeights() HeuristicWeights {
	w := BalancedWeights()
	w.Preset = PresetRiskOnly
	w.Base = 0.25
	w.Lower = 0.10
	w.Upper = 0.99
	w.HigherEducation = 0
	w.Insurance = 0
	w.Married = 0
	w.OptimalAge = 0
	w.FirstPregnancy = 0
	return w
}

// WeightsForPreset returns the named preset table.
func WeightsForPreset(name string) (HeuristicWeights, bool) {
	switch name {
	case "", PresetBalanced:
		return BalancedWeights(), true
	case PresetRiskOnly:
		return RiskOnlyWeights(), true
	default:
		return HeuristicWeights{}, false
	}
}

// Validate enforces bounds and sign conventions of the table.
func (w HeuristicWeights) Validate() error {
	if !finite(w.Base, w.Lower, w.Upper) {
		return NewValidationError("heuristic.bounds", "base and bounds must be finite", w.Base)
	}
	if w.Lower < 0 || w.Upper > 1 || w.Lower > w.Upper {
		return NewValidationError("heuristic.bounds",
			fmt.Sprintf("bounds [%g, %g] must be an ordered subinterval of [0,1]", w.Lower, w.Upper), w.Lower)
	}

	risk := map[string]float64{
		"late_initiation":   w.LateInitiation,
		"no_education":      w.NoEducation,
		"primary_education": w.PrimaryEducation,
		"no_insurance":      w.NoInsurance,
		"parity_per_birth":  w.ParityPerBirth,
		"not_in_union":      w.NotInUnion,
		"cohabiting":        w.Cohabiting,
		"young_age":         w.YoungAge,
		"advanced_age":      w.AdvancedAge,
	}
	for field, v := range risk {
		if !finite(v) || v < 0 {
			return NewValidationError("heuristic."+field, "risk delta must be >= 0", v)
		}
	}

	protective := map[string]float64{
		"higher_education": w.HigherEducation,
		"insurance":        w.Insurance,
		"married":          w.Married,
		"optimal_age":      w.OptimalAge,
		"first_pregnancy":  w.FirstPregnancy,
	}
	for field, v := range protective {
		if !finite(v) || v > 0 {
			return NewValidationError("heuristic."+field, "protective delta must be <= 0", v)
		}
	}

	if !finite(w.SecondaryEducation) {
		return NewValidationError("heuristic.secondary_education", "delta must be finite", w.SecondaryEducation)
	}
	if !(w.NoEducation >= w.PrimaryEducation && w.PrimaryEducation >= w.SecondaryEducation &&
		w.SecondaryEducation >= w.HigherEducation) {
		return NewValidationError("heuristic.education",
			"education deltas must not increase from no education to higher education", w.SecondaryEducation)
	}

	if w.ParityThreshold < MinParity || w.ParityThreshold > MaxParity {
		return NewValidationError("heuristic.parity_threshold",
			fmt.Sprintf("must be between %d and %d", MinParity, MaxParity), w.ParityThreshold)
	}
	if w.YoungAgeBelow > w.AdvancedAgeAbove {
		return NewValidationError("heuristic.young_age_below", "must not exceed advanced_age_above", w.YoungAgeBelow)
	}

	for i, c := range w.Combinations {
		field := fmt.Sprintf("heuristic.combinations[%d]", i)
		if c.Name == "" {
			return NewValidationError(field+".name", "is required", c.Name)
		}
		if !finite(c.Delta) || c.Delta < 0 {
			return NewValidationError(field+".delta", "combination delta must be >= 0", c.Delta)
		}
		if len(c.Requires) == 0 {
			return NewValidationError(field+".requires", "at least one factor is required", c.Requires)
		}
		for _, code := range c.Requires {
			if !IsRiskFactorCode(code) {
				return NewValidationError(field+".requires", "combinations may only require risk factors", code)
			}
		}
	}
	return nil
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
