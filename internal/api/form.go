package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/anc-caregap-server/internal/domain"
)

// FormOption is one choice of a select or radio input.
type FormOption struct {
	Value interface{} `json:"value"`
	Label string      `json:"label"`
}

// FormField describes one intake input so an external renderer can build it.
type FormField struct {
	Name    string       `json:"name"`
	Label   string       `json:"label"`
	Kind    string       `json:"kind"`
	Min     *int         `json:"min,omitempty"`
	Max     *int         `json:"max,omitempty"`
	Default interface{}  `json:"default"`
	Options []FormOption `json:"options,omitempty"`
}

var yesNo = []FormOption{{Value: false, Label: "No"}, {Value: true, Label: "Yes"}}

func intPtr(v int) *int { return &v }

// IntakeForm lists the seven profile inputs in display order. Defaults are the
// first option of each choice.
func IntakeForm() []FormField {
	education := make([]FormOption, 0, 4)
	for _, e := range []domain.EducationLevel{domain.NO_EDUCATION, domain.PRIMARY, domain.SECONDARY, domain.HIGHER} {
		education = append(education, FormOption{Value: e, Label: e.Label()})
	}
	marital := make([]FormOption, 0, 3)
	for _, m := range []domain.MaritalStatus{domain.MARRIED, domain.COHABITING, domain.NOT_IN_UNION} {
		marital = append(marital, FormOption{Value: m, Label: m.Label()})
	}

	return []FormField{
		{Name: "age", Label: "Age", Kind: "slider",
			Min: intPtr(domain.MinMaternalAge), Max: intPtr(domain.MaxMaternalAge), Default: domain.DefaultMaternalAge},
		{Name: "parity", Label: "Number of births", Kind: "number",
			Min: intPtr(domain.MinParity), Max: intPtr(domain.MaxParity), Default: domain.DefaultParity},
		{Name: "late_initiator", Label: "First ANC visit after first trimester?", Kind: "radio", Default: false, Options: yesNo},
		{Name: "education", Label: "Education Level", Kind: "select", Default: domain.NO_EDUCATION, Options: education},
		{Name: "has_insurance", Label: "Has health insurance?", Kind: "radio", Default: false, Options: yesNo},
		{Name: "ever_given_birth", Label: "Ever given birth?", Kind: "radio", Default: false, Options: yesNo},
		{Name: "marital_status", Label: "Marital Status", Kind: "select", Default: domain.MARRIED, Options: marital},
	}
}

func (s *Server) handleForm(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"fields": IntakeForm(),
		"tiers": gin.H{
			"medium_threshold": domain.MediumRiskThreshold,
			"high_threshold":   domain.HighRiskThreshold,
		},
	})
}
