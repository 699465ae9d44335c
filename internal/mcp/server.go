// Package mcp exposes the assessment and outcome services as MCP tools over stdio.
package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/anc-caregap-server/internal/domain"
	"github.com/anc-caregap-server/internal/service"
)

// Tool names
const (
	ToolAssessRisk    = "assess_care_gap_risk"
	ToolDescribeRisk  = "describe_risk_factors"
	ToolSubmitOutcome = "submit_care_outcome"
	ToolListOutcomes  = "list_care_outcomes"
)

const (
	defaultServerName    = "anc-caregap-risk"
	defaultServerVersion = "1.0.0"
)

// Server wraps the SDK server and the services its tools call.
type Server struct {
	assessments *service.AssessmentService
	outcomes    *service.OutcomeService
	mcpServer   *mcp.Server
	logger      *logrus.Logger
}

// NewServer registers every tool. outcomes may be nil, in which case the outcome
// tools are not offered.
func NewServer(cfg domain.MCPConfig, assessments *service.AssessmentService, outcomes *service.OutcomeService, logger *logrus.Logger) *Server {
	name, version := cfg.ServerName, cfg.ServerVersion
	if name == "" {
		name = defaultServerName
	}
	if version == "" {
		version = defaultServerVersion
	}

	s := &Server{
		assessments: assessments,
		outcomes:    outcomes,
		mcpServer:   mcp.NewServer(&mcp.Implementation{Name: name, Version: version}, nil),
		logger:      logger,
	}
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name: ToolAssessRisk,
		Description: "Estimate a patient's risk of an incomplete antenatal care schedule from seven intake answers. " +
			"Returns the probability, the risk tier, contributing factors and tier recommendations.",
	}, s.handleAssess)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolDescribeRisk,
		Description: "List the risk and protective factors that apply to a patient profile, with their weights, without scoring it.",
	}, s.handleDescribe)

	registered := []string{ToolAssessRisk, ToolDescribeRisk}
	if s.outcomes != nil {
		mcp.AddTool(s.mcpServer, &mcp.Tool{
			Name: ToolSubmitOutcome,
			Description: "Record the observed ANC package completion for a patient profile. " +
				"The profile is scored and the prediction is stored with the outcome.",
		}, s.handleSubmitOutcome)

		mcp.AddTool(s.mcpServer, &mcp.Tool{
			Name:        ToolListOutcomes,
			Description: "List recorded care outcomes, newest first.",
		}, s.handleListOutcomes)
		registered = append(registered, ToolSubmitOutcome, ToolListOutcomes)
	}

	s.logger.WithField("tools", registered).Info("Registered MCP tools")
}

// Run serves the tools over stdin/stdout until ctx is cancelled or the client
// disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.WithField("scorer", s.assessments.ScorerInfo()).Info("Starting MCP server on stdio")
	if err := s.mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}

// SDK returns the underlying SDK server.
func (s *Server) SDK() *mcp.Server {
	return s.mcpServer
}
