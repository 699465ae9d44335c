package domain

import (
	"time"
)

// FactorDirection tells whether a factor pushes the score up or down.
type FactorDirection string

const (
	RISK       FactorDirection = "RISK"
	PROTECTIVE FactorDirection = "PROTECTIVE"
)

// Factor is one contributor to an assessment, rendered for display with Display.
type Factor struct {
	Code      string          `json:"code"`
	Label     string          `json:"label"`
	Detail    string          `json:"detail,omitempty"`
	Direction FactorDirection `json:"direction"`
	Weight    float64         `json:"weight,omitempty"`
}

// Display renders the factor the way the result page lists it.
func (f Factor) Display() string {
	if f.Detail == "" {
		return f.Label
	}
	return f.Label + " (" + f.Detail + ")"
}

// ScorerInfo identifies the scorer that produced an assessment.
type ScorerInfo struct {
	Name    string  `json:"name"`
	Version string  `json:"version"`
	Lower   float64 `json:"lower_bound"`
	Upper   float64 `json:"upper_bound"`
}

// RiskAssessment is created per request and discarded after the response.
type RiskAssessment struct {
	ID                  string     `json:"id"`
	Score               float64    `json:"score"`
	ScorePercent        string     `json:"score_percent"`
	Tier                RiskTier   `json:"tier"`
	TierLabel           string     `json:"tier_label"`
	Recommendations     []string   `json:"recommendations"`
	RiskFactors         []Factor   `json:"risk_factors"`
	ProtectiveFactors   []Factor   `json:"protective_factors"`
	ContributingFactors []string   `json:"contributing_factors"`
	Summary             string     `json:"summary"`
	Scorer              ScorerInfo `json:"scorer"`
	AssessedAt          time.Time  `json:"assessed_at"`
}

// NoRiskFactorsMessage is listed when a profile has no risk factors at all.
const NoRiskFactorsMessage = "No significant risk factors identified"
