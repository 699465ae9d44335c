package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anc-caregap-server/internal/domain"
	"github.com/anc-caregap-server/internal/outcome"
	"github.com/anc-caregap-server/internal/service"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	logger, _ := test.NewNullLogger()

	h, err := service.NewHeuristicScorer(domain.BalancedWeights())
	require.NoError(t, err)
	assessments := service.NewAssessmentService(h, h, logger)

	store, err := outcome.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return NewServer(domain.MCPConfig{}, assessments, service.NewOutcomeService(store, assessments, logger), logger)
}

func highRisk() ProfileParams {
	return ProfileParams{
		Age: 17, Parity: 5, LateInitiator: true, Education: "No formal education",
		HasInsurance: false, EverGivenBirth: true, MaritalStatus: "Not in union",
	}
}

func text(t *testing.T, res *mcp.CallToolResult, i int) string {
	t.Helper()
	require.Greater(t, len(res.Content), i)
	tc, ok := res.Content[i].(*mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func TestProfileParamsAcceptLabels(t *testing.T) {
	p := highRisk().Profile()
	assert.Equal(t, domain.NO_EDUCATION, p.Education)
	assert.Equal(t, domain.NOT_IN_UNION, p.MaritalStatus)
	assert.NoError(t, p.Validate())

	bad := ProfileParams{Age: 30, Education: "doctorate", MaritalStatus: "MARRIED"}.Profile()
	assert.Error(t, bad.Validate())
}

func TestAssessTool(t *testing.T) {
	s := newTestServer(t)

	res, out, err := s.handleAssess(context.Background(), nil, highRisk())
	require.NoError(t, err)
	assert.Nil(t, out)
	assert.False(t, res.IsError)
	assert.Contains(t, text(t, res, 0), "95.0% (🔴 HIGH RISK)")
	assert.Contains(t, text(t, res, 0), "Late ANC initiation")

	var a domain.RiskAssessment
	require.NoError(t, json.Unmarshal([]byte(text(t, res, 1)), &a))
	assert.Equal(t, domain.HIGH_RISK, a.Tier)
}

func TestAssessToolInvalidInput(t *testing.T) {
	s := newTestServer(t)

	params := highRisk()
	params.Age = 60
	res, _, err := s.handleAssess(context.Background(), nil, params)
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res, 0), domain.CodeInvalidInput)
}

func TestDescribeTool(t *testing.T) {
	s := newTestServer(t)

	res, _, err := s.handleDescribe(context.Background(), nil, highRisk())
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Contains(t, text(t, res, 0), "[RISK] High parity (5 births) (+0.06)")
}

func TestOutcomeTools(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	res, _, err := s.handleSubmitOutcome(ctx, nil, SubmitOutcomeParams{
		Profile: highRisk(), ComponentsReceived: 2, ComponentsTracked: 5,
	})
	require.NoError(t, err)
	require.False(t, res.IsError, text(t, res, 0))
	assert.Contains(t, text(t, res, 0), "care gap")

	res, _, err = s.handleSubmitOutcome(ctx, nil, SubmitOutcomeParams{
		Profile: highRisk(), ComponentsReceived: 9, ComponentsTracked: 5,
	})
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, _, err = s.handleListOutcomes(ctx, nil, ListOutcomesParams{})
	require.NoError(t, err)
	assert.Equal(t, "1 of 1 outcomes (offset 0).", text(t, res, 0))

	var page service.OutcomePage
	require.NoError(t, json.Unmarshal([]byte(text(t, res, 1)), &page))
	require.Len(t, page.Outcomes, 1)
	assert.True(t, page.Outcomes[0].CareGap)
}

func TestServerWithoutOutcomeStore(t *testing.T) {
	logger, _ := test.NewNullLogger()
	h, err := service.NewHeuristicScorer(domain.BalancedWeights())
	require.NoError(t, err)

	s := NewServer(domain.MCPConfig{ServerName: "x"}, service.NewAssessmentService(h, h, logger), nil, logger)
	assert.NotNil(t, s.SDK())
}
