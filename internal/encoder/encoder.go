// Package encoder maps a patient profile onto the survey-coded feature record the
// trained model expects.
package encoder

import (
	"fmt"
	"strings"

	"github.com/anc-caregap-server/internal/domain"
)

// Survey instrument column names.
const (
	ColMaternalAge   = "WB4"
	ColParity        = "CM11"
	ColLateInitiator = "LateInitiator"
	ColEducation     = "WB6A"
	ColInsurance     = "WB18"
	ColEverBirth     = "CM1"
	ColMarital       = "MA1"
)

// NumericColumns and CategoricalColumns are the model's input columns in training order.
var (
	NumericColumns     = []string{ColMaternalAge, ColParity, ColLateInitiator}
	CategoricalColumns = []string{ColEducation, ColInsurance, ColEverBirth, ColMarital}
)

// SurveyCodeTable holds the instrument codes for every categorical answer.
type SurveyCodeTable struct {
	Education    map[domain.EducationLevel]float64
	Marital      map[domain.MaritalStatus]float64
	InsuranceYes float64
	InsuranceNo  float64
	EverBirthYes float64
	EverBirthNo  float64
}

// DefaultSurveyCodes returns the codes used by the survey the model was trained on.
func DefaultSurveyCodes() SurveyCodeTable {
	return SurveyCodeTable{
		Education: map[domain.EducationLevel]float64{
			domain.NO_EDUCATION: 0,
			domain.PRIMARY:      1,
			domain.SECONDARY:    3,
			domain.HIGHER:       8,
		},
		Marital: map[domain.MaritalStatus]float64{
			domain.MARRIED:      1,
			domain.COHABITING:   2,
			domain.NOT_IN_UNION: 3,
		},
		InsuranceYes: 1,
		InsuranceNo:  2,
		EverBirthYes: 1,
		EverBirthNo:  2,
	}
}

// FromConfig overlays configured codes on the defaults. Map keys are matched
// case-insensitively against the enum values or their form labels.
func FromConfig(cfg domain.SurveyCodeConfig) (SurveyCodeTable, error) {
	table := DefaultSurveyCodes()

	for key, code := range cfg.Education {
		lvl, ok := domain.ParseEducationLevel(key)
		if !ok {
			return table, fmt.Errorf("unknown education level %q in survey codes", key)
		}
		table.Education[lvl] = code
	}
	for key, code := range cfg.Marital {
		st, ok := domain.ParseMaritalStatus(key)
		if !ok {
			return table, fmt.Errorf("unknown marital status %q in survey codes", key)
		}
		table.Marital[st] = code
	}
	overlay(&table.InsuranceYes, cfg.InsuranceYes)
	overlay(&table.InsuranceNo, cfg.InsuranceNo)
	overlay(&table.EverBirthYes, cfg.EverBirthYes)
	overlay(&table.EverBirthNo, cfg.EverBirthNo)

	if table.InsuranceYes == table.InsuranceNo {
		return table, fmt.Errorf("insurance survey codes must differ, both are %g", table.InsuranceYes)
	}
	if table.EverBirthYes == table.EverBirthNo {
		return table, fmt.Errorf("ever-birth survey codes must differ, both are %g", table.EverBirthYes)
	}
	return table, nil
}

// overlay replaces dst with a configured code; zero means not configured.
func overlay(dst *float64, code float64) {
	if code != 0 {
		*dst = code
	}
}

// Features is the encoded record for one profile.
type Features struct {
	MaternalAge   float64
	Parity        float64
	LateInitiator float64
	Education     float64
	Insurance     float64
	EverBirth     float64
	Marital       float64
}

// Record returns the features keyed by survey column.
func (f Features) Record() map[string]float64 {
	return map[string]float64{
		ColMaternalAge:   f.MaternalAge,
		ColParity:        f.Parity,
		ColLateInitiator: f.LateInitiator,
		ColEducation:     f.Education,
		ColInsurance:     f.Insurance,
		ColEverBirth:     f.EverBirth,
		ColMarital:       f.Marital,
	}
}

func (f Features) String() string {
	var b strings.Builder
	for i, col := range append(append([]string{}, NumericColumns...), CategoricalColumns...) {
		if i > 0 {
			b.WriteString(" ")
		}
		fmt.Fprintf(&b, "%s=%g", col, f.Record()[col])
	}
	return b.String()
}

// Encoder converts profiles into Features. It performs no validation.
type Encoder struct {
	codes SurveyCodeTable
}

// New creates an Encoder over the given code table.
func New(codes SurveyCodeTable) *Encoder {
	return &Encoder{codes: codes}
}

// Encode maps a profile to its survey-coded features.
func (e *Encoder) Encode(p domain.PatientProfile) Features {
	f := Features{
		MaternalAge: float64(p.Age),
		Parity:      float64(p.Parity),
		Education:   e.codes.Education[p.Education],
		Marital:     e.codes.Marital[p.MaritalStatus],
		Insurance:   e.codes.InsuranceNo,
		EverBirth:   e.codes.EverBirthNo,
	}
	if p.LateInitiator {
		f.LateInitiator = 1
	}
	if p.HasInsurance {
		f.Insurance = e.codes.InsuranceYes
	}
	if p.EverGivenBirth {
		f.EverBirth = e.codes.EverBirthYes
	}
	return f
}
