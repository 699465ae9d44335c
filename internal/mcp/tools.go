package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/anc-caregap-server/internal/domain"
)

// ProfileParams are the seven intake answers. Choice fields accept the canonical
// values or the form labels.
type ProfileParams struct {
	Age            int    `json:"age" jsonschema:"maternal age in years, 15 to 49"`
	Parity         int    `json:"parity" jsonschema:"number of previous births, 0 to 15"`
	LateInitiator  bool   `json:"late_initiator,omitempty" jsonschema:"first ANC visit after 13 weeks of gestation"`
	Education      string `json:"education" jsonschema:"NONE, PRIMARY, SECONDARY or HIGHER"`
	HasInsurance   bool   `json:"has_insurance,omitempty" jsonschema:"has health insurance"`
	EverGivenBirth bool   `json:"ever_given_birth,omitempty" jsonschema:"has given birth before"`
	MaritalStatus  string `json:"marital_status" jsonschema:"MARRIED, COHABITING or NOT_IN_UNION"`
}

// Profile converts the parameters. Unrecognised choices are kept verbatim and
// rejected by validation.
func (p ProfileParams) Profile() domain.PatientProfile {
	edu, ok := domain.ParseEducationLevel(p.Education)
	if !ok {
		edu = domain.EducationLevel(p.Education)
	}
	ms, ok := domain.ParseMaritalStatus(p.MaritalStatus)
	if !ok {
		ms = domain.MaritalStatus(p.MaritalStatus)
	}
	return domain.PatientProfile{
		Age:            p.Age,
		Parity:         p.Parity,
		LateInitiator:  p.LateInitiator,
		Education:      edu,
		HasInsurance:   p.HasInsurance,
		EverGivenBirth: p.EverGivenBirth,
		MaritalStatus:  ms,
	}
}

// SubmitOutcomeParams defines parameters for the submit_care_outcome tool
type SubmitOutcomeParams struct {
	Profile            ProfileParams `json:"profile"`
	ComponentsReceived int           `json:"components_received" jsonschema:"ANC components the patient received"`
	ComponentsTracked  int           `json:"components_tracked" jsonschema:"ANC components tracked for the patient"`
	Notes              string        `json:"notes,omitempty"`
}

// ListOutcomesParams defines parameters for the list_care_outcomes tool
type ListOutcomesParams struct {
	Limit  int `json:"limit,omitempty" jsonschema:"page size, default 50"`
	Offset int `json:"offset,omitempty"`
}

func (s *Server) handleAssess(ctx context.Context, req *mcp.CallToolRequest, params ProfileParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", ToolAssessRisk).Info("Tool invoked")

	a, err := s.assessments.Assess(ctx, params.Profile())
	if err != nil {
		return s.createErrorResult(ToolAssessRisk, err), nil, nil
	}
	return s.createResult(renderAssessment(a), a), nil, nil
}

func (s *Server) handleDescribe(ctx context.Context, req *mcp.CallToolRequest, params ProfileParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", ToolDescribeRisk).Info("Tool invoked")

	factors, err := s.assessments.DescribeFactors(params.Profile())
	if err != nil {
		return s.createErrorResult(ToolDescribeRisk, err), nil, nil
	}

	var b strings.Builder
	if len(factors) == 0 {
		b.WriteString(domain.NoRiskFactorsMessage)
	}
	for _, f := range factors {
		fmt.Fprintf(&b, "- [%s] %s (%+.2f)\n", f.Direction, f.Display(), f.Weight)
	}
	if factors == nil {
		factors = []domain.Factor{}
	}
	return s.createResult(b.String(), map[string]interface{}{"factors": factors}), nil, nil
}

func (s *Server) handleSubmitOutcome(ctx context.Context, req *mcp.CallToolRequest, params SubmitOutcomeParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", ToolSubmitOutcome).Info("Tool invoked")

	o, err := s.outcomes.Record(ctx, params.Profile.Profile(), params.ComponentsReceived, params.ComponentsTracked, params.Notes)
	if err != nil {
		return s.createErrorResult(ToolSubmitOutcome, err), nil, nil
	}

	gap := "complete care"
	if o.CareGap {
		gap = "care gap"
	}
	text := fmt.Sprintf("Outcome %d recorded: %d of %d components received (%s); predicted %s at %.1f%%.",
		o.ID, o.ComponentsReceived, o.ComponentsTracked, gap, o.PredictedTier.Label(), o.PredictedScore*100)
	return s.createResult(text, o), nil, nil
}

func (s *Server) handleListOutcomes(ctx context.Context, req *mcp.CallToolRequest, params ListOutcomesParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", ToolListOutcomes).Info("Tool invoked")

	page, err := s.outcomes.List(ctx, params.Limit, params.Offset)
	if err != nil {
		return s.createErrorResult(ToolListOutcomes, err), nil, nil
	}
	text := fmt.Sprintf("%d of %d outcomes (offset %d).", len(page.Outcomes), page.Total, page.Offset)
	return s.createResult(text, page), nil, nil
}

func renderAssessment(a *domain.RiskAssessment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Care gap risk: %s (%s)\n", a.ScorePercent, a.TierLabel)
	b.WriteString("\nContributing factors:\n")
	for _, f := range a.ContributingFactors {
		fmt.Fprintf(&b, "- %s\n", f)
	}
	b.WriteString("\nRecommendations:\n")
	for _, r := range a.Recommendations {
		fmt.Fprintf(&b, "- %s\n", r)
	}
	fmt.Fprintf(&b, "\nScorer: %s %s", a.Scorer.Name, a.Scorer.Version)
	return b.String()
}

// createResult returns a human readable text block followed by the JSON payload.
func (s *Server) createResult(text string, payload interface{}) *mcp.CallToolResult {
	content := []mcp.Content{&mcp.TextContent{Text: text}}
	if data, err := json.MarshalIndent(payload, "", "  "); err == nil {
		content = append(content, &mcp.TextContent{Text: string(data)})
	} else {
		s.logger.WithError(err).Warn("Failed to encode tool payload")
	}
	return &mcp.CallToolResult{Content: content}
}

// createErrorResult creates a standardized error result for tool calls
func (s *Server) createErrorResult(tool string, err error) *mcp.CallToolResult {
	code := domain.ErrorCode(err)
	entry := s.logger.WithError(err).WithFields(logrus.Fields{"tool": tool, "code": code})
	if code == domain.CodeInvalidInput {
		entry.Warn("Tool call rejected")
	} else {
		entry.Error("Tool call failed")
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf("Error: %s - %v", code, err)},
		},
		IsError: true,
	}
}
