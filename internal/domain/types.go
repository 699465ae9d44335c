// Package domain contains the core entities for antenatal-care (ANC) care gap risk
// assessment: the patient profile collected by the intake form, the risk tiers, the
// assessment result and the error kinds shared by every scorer and outer surface.
package domain

import (
	"strings"
)

// EducationLevel is the highest level of schooling reported by the patient.
type EducationLevel string

const (
	NO_EDUCATION EducationLevel = "NONE"
	PRIMARY      EducationLevel = "PRIMARY"
	SECONDARY    EducationLevel = "SECONDARY"
	HIGHER       EducationLevel = "HIGHER"
)

// EducationLevels lists the levels in ascending order of schooling.
var EducationLevels = []EducationLevel{NO_EDUCATION, PRIMARY, SECONDARY, HIGHER}

// IsValid reports whether the level is one of the four known levels.
func (e EducationLevel) IsValid() bool {
	switch e {
	case NO_EDUCATION, PRIMARY, SECONDARY, HIGHER:
		return true
	default:
		return false
	}
}

func (e EducationLevel) String() string {
	return string(e)
}

// Label returns the form label for the level.
func (e EducationLevel) Label() string {
	switch e {
	case NO_EDUCATION:
		return "No formal education"
	case PRIMARY:
		return "Primary"
	case SECONDARY:
		return "Secondary"
	case HIGHER:
		return "Higher"
	default:
		return "Unknown"
	}
}

// ParseEducationLevel accepts the canonical value, any casing of it, or the form label.
func ParseEducationLevel(s string) (EducationLevel, bool) {
	switch normalizeToken(s) {
	case "NONE", "NO_EDUCATION", "NO_FORMAL_EDUCATION":
		return NO_EDUCATION, true
	case "PRIMARY":
		return PRIMARY, true
	case "SECONDARY":
		return SECONDARY, true
	case "HIGHER":
		return HIGHER, true
	default:
		return "", false
	}
}

// MaritalStatus is the patient's current union status.
type MaritalStatus string

const (
	MARRIED      MaritalStatus = "MARRIED"
	COHABITING   MaritalStatus = "COHABITING"
	NOT_IN_UNION MaritalStatus = "NOT_IN_UNION"
)

// MaritalStatuses lists every status in form order.
var MaritalStatuses = []MaritalStatus{MARRIED, COHABITING, NOT_IN_UNION}

// IsValid reports whether the status is one of the three known statuses.
func (m MaritalStatus) IsValid() bool {
	switch m {
	case MARRIED, COHABITING, NOT_IN_UNION:
		return true
	default:
		return false
	}
}

func (m MaritalStatus) String() string {
	return string(m)
}

// Label returns the form label for the status.
func (m MaritalStatus) Label() string {
	switch m {
	case MARRIED:
		return "Married"
	case COHABITING:
		return "Living with partner"
	case NOT_IN_UNION:
		return "Not in union"
	default:
		return "Unknown"
	}
}

// ParseMaritalStatus accepts the canonical value, any casing of it, or the form label.
func ParseMaritalStatus(s string) (MaritalStatus, bool) {
	switch normalizeToken(s) {
	case "MARRIED":
		return MARRIED, true
	case "COHABITING", "LIVING_WITH_PARTNER":
		return COHABITING, true
	case "NOT_IN_UNION", "NOTINUNION", "SINGLE":
		return NOT_IN_UNION, true
	default:
		return "", false
	}
}

// RiskTier is the three-level banding of a care gap probability.
type RiskTier string

const (
	LOW_RISK    RiskTier = "LOW_RISK"
	MEDIUM_RISK RiskTier = "MEDIUM_RISK"
	HIGH_RISK   RiskTier = "HIGH_RISK"
)

// Tier thresholds shared by every scorer. Both comparisons are strictly greater-than.
const (
	MediumRiskThreshold = 0.4
	HighRiskThreshold   = 0.7
)

// IsValid reports whether the tier is one of the three known tiers.
func (t RiskTier) IsValid() bool {
	switch t {
	case LOW_RISK, MEDIUM_RISK, HIGH_RISK:
		return true
	default:
		return false
	}
}

func (t RiskTier) String() string {
	return string(t)
}

// Label returns the display label shown next to the score.
func (t RiskTier) Label() string {
	switch t {
	case HIGH_RISK:
		return "🔴 HIGH RISK"
	case MEDIUM_RISK:
		return "🟡 MEDIUM RISK"
	case LOW_RISK:
		return "🟢 LOW RISK"
	default:
		return "UNKNOWN"
	}
}

// TierForScore bands a probability into a RiskTier.
func TierForScore(score float64) RiskTier {
	switch {
	case score > HighRiskThreshold:
		return HIGH_RISK
	case score > MediumRiskThreshold:
		return MEDIUM_RISK
	default:
		return LOW_RISK
	}
}

// IsCareGap applies the care gap label rule: fewer components received than tracked minus one.
func IsCareGap(received, tracked int) bool {
	return received < tracked-1
}

func normalizeToken(s string) string {
	s = strings.TrimSpace(strings.ToUpper(s))
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	return s
}
