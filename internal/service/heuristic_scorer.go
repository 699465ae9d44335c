package service

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"math"

	"github.com/anc-caregap-server/internal/domain"
)

// HeuristicScorer is the clamped weighted-sum scorer. It never fails for a valid
// profile and is safe for concurrent use.
type HeuristicScorer struct {
	weights domain.HeuristicWeights
	version string
}

// term is one applicable contribution. Combination terms carry their own label.
type term struct {
	code   string
	label  string
	detail string
	delta  float64
}

// NewHeuristicScorer validates the weight table and builds a scorer over it.
func NewHeuristicScorer(weights domain.HeuristicWeights) (*HeuristicScorer, error) {
	if err := weights.Validate(); err != nil {
		return nil, fmt.Errorf("invalid heuristic weights: %w", err)
	}
	preset := weights.Preset
	if preset == "" {
		preset = "custom"
	}
	return &HeuristicScorer{
		weights: weights,
		version: preset + "-" + fingerprint(weights),
	}, nil
}

// Name implements domain.RiskScorer
func (h *HeuristicScorer) Name() string { return domain.StrategyHeuristic }

// Version identifies the preset and the exact constant table.
func (h *HeuristicScorer) Version() string { return h.version }

// Bounds implements domain.RiskScorer
func (h *HeuristicScorer) Bounds() (float64, float64) { return h.weights.Lower, h.weights.Upper }

// Weights returns the constant table in use.
func (h *HeuristicScorer) Weights() domain.HeuristicWeights { return h.weights }

// Score sums the base rate and every applicable term, then clamps into Bounds.
func (h *HeuristicScorer) Score(ctx context.Context, p domain.PatientProfile) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	sum := h.weights.Base
	for _, t := range h.terms(p) {
		sum += t.delta
	}
	return clamp(sum, h.weights.Lower, h.weights.Upper), nil
}

// Factors lists every term with a non-zero delta, in evaluation order.
func (h *HeuristicScorer) Factors(p domain.PatientProfile) []domain.Factor {
	var out []domain.Factor
	for _, t := range h.terms(p) {
		if t.delta == 0 {
			continue
		}
		dir := domain.RISK
		if t.delta < 0 {
			dir = domain.PROTECTIVE
		}
		out = append(out, domain.Factor{
			Code:      t.code,
			Label:     t.label,
			Detail:    t.detail,
			Direction: dir,
			Weight:    t.delta,
		})
	}
	return out
}

// terms evaluates every condition of the table against the profile. Terms whose
// condition holds are returned even when their delta is zero, so combination rules
// see the condition regardless of weight.
func (h *HeuristicScorer) terms(p domain.PatientProfile) []term {
	w := h.weights
	var ts []term
	add := func(code, detail string, delta float64) {
		ts = append(ts, term{code: code, label: domain.FactorLabels[code], detail: detail, delta: delta})
	}

	if p.LateInitiator {
		add(domain.FactorLateInitiation, "first visit after 13 weeks", w.LateInitiation)
	}

	switch p.Education {
	case domain.NO_EDUCATION:
		add(domain.FactorNoEducation, domain.NO_EDUCATION.Label(), w.NoEducation)
	case domain.PRIMARY:
		add(domain.FactorPrimaryEducation, domain.PRIMARY.Label(), w.PrimaryEducation)
	case domain.SECONDARY:
		add(domain.FactorSecondaryEducation, "", w.SecondaryEducation)
	case domain.HIGHER:
		add(domain.FactorHigherEducation, "", w.HigherEducation)
	}

	if p.HasInsurance {
		add(domain.FactorInsurance, "", w.Insurance)
	} else {
		add(domain.FactorNoInsurance, "", w.NoInsurance)
	}

	if p.Parity > w.ParityThreshold {
		add(domain.FactorHighParity, fmt.Sprintf("%d births", p.Parity),
			w.ParityPerBirth*float64(p.Parity-w.ParityThreshold))
	}

	switch p.MaritalStatus {
	case domain.NOT_IN_UNION:
		add(domain.FactorNotInUnion, "", w.NotInUnion)
	case domain.COHABITING:
		add(domain.FactorCohabiting, "", w.Cohabiting)
	case domain.MARRIED:
		add(domain.FactorMarried, "", w.Married)
	}

	switch {
	case p.Age < w.YoungAgeBelow:
		add(domain.FactorYoungAge, fmt.Sprintf("under %d", w.YoungAgeBelow), w.YoungAge)
	case p.Age > w.AdvancedAgeAbove:
		add(domain.FactorAdvancedAge, fmt.Sprintf("over %d", w.AdvancedAgeAbove), w.AdvancedAge)
	default:
		add(domain.FactorOptimalAge, fmt.Sprintf("%d-%d", w.YoungAgeBelow, w.AdvancedAgeAbove), w.OptimalAge)
	}

	if p.IsFirstPregnancy() {
		add(domain.FactorFirstPregnancy, "", w.FirstPregnancy)
	}

	present := make(map[string]bool, len(ts))
	for _, t := range ts {
		present[t.code] = true
	}
	for _, c := range w.Combinations {
		if !allPresent(present, c.Requires) {
			continue
		}
		label := c.Label
		if label == "" {
			label = c.Name
		}
		ts = append(ts, term{code: c.Name, label: label, delta: c.Delta})
	}
	return ts
}

func allPresent(present map[string]bool, codes []string) bool {
	for _, c := range codes {
		if !present[c] {
			return false
		}
	}
	return true
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func fingerprint(w domain.HeuristicWeights) string {
	b, err := json.Marshal(w)
	if err != nil {
		return "unknown"
	}
	h := fnv.New32a()
	h.Write(b)
	return fmt.Sprintf("%08x", h.Sum32())
}
