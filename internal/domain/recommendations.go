package domain

var recommendations = map[RiskTier][]string{
	HIGH_RISK: {
		"Schedule additional ANC visits",
		"Provide transportation support if needed",
		"Assign community health worker for follow-up",
		"Consider home visits or mobile clinic services",
	},
	MEDIUM_RISK: {
		"Ensure complete ANC package",
		"Provide health education on importance of care",
		"Schedule follow-up appointment",
		"Address any specific barriers to care",
	},
	LOW_RISK: {
		"Continue routine ANC care",
		"Reinforce importance of completing all visits",
		"Monitor for any changes in circumstances",
	},
}

// RecommendationsFor returns a copy of the static advice block for a tier.
func RecommendationsFor(tier RiskTier) []string {
	recs := recommendations[tier]
	out := make([]string, len(recs))
	copy(out, recs)
	return out
}
