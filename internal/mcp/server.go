// Package mcp exposes the eligibility engine as Model Context Protocol tools.
package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/trial-eligibility-server/internal/domain"
	"github.com/trial-eligibility-server/internal/trial"
)

// Tool names
const (
	ToolEvaluatePatient = "evaluate_patient"
	ToolEvaluateRule    = "evaluate_rule"
	ToolListRules       = "list_eligibility_rules"
	ToolResolveCategory = "resolve_medication_category"
)

const (
	defaultServerName    = "trial-eligibility"
	defaultServerVersion = "v0.1.0"
)

// Server wraps an MCP server whose tools delegate to the trial service.
type Server struct {
	service   *trial.Service
	mcpServer *mcp.Server
	logger    *logrus.Logger
}

// NewServer creates the MCP server and registers all tools.
func NewServer(cfg domain.MCPConfig, service *trial.Service, logger *logrus.Logger) *Server {
	name := cfg.ServerName
	if name == "" {
		name = defaultServerName
	}
	version := cfg.ServerVersion
	if version == "" {
		version = defaultServerVersion
	}

	// Create MCP server
	mcpServer := mcp.NewServer(&mcp.Implementation{Name: name, Version: version}, nil)

	server := &Server{
		service:   service,
		mcpServer: mcpServer,
		logger:    logger,
	}
	server.registerTools()

	logger.WithFields(logrus.Fields{
		"server_name": name,
		"version":     version,
	}).Info("MCP server initialized")
	return server
}

// registerTools registers tools with the MCP SDK.
func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name: ToolEvaluatePatient,
		Description: "Match a patient record against the loaded clinical trials. " +
			"Returns per-criterion evaluations and whether the patient is potentially eligible for each trial and cohort.",
	}, s.handleEvaluatePatient)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name: ToolEvaluateRule,
		Description: "Evaluate a single eligibility criterion expression, such as " +
			"AND(IS_MALE, NOT(CURRENTLY_GETS_MEDICATION_OF_CATEGORY_X[Anticoagulants])), against a patient record.",
	}, s.handleEvaluateRule)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolListRules,
		Description: "List every eligibility rule with the parameters it expects.",
	}, s.handleListRules)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolResolveCategory,
		Description: "Resolve a curated medication category name or an ATC code to the ATC levels it covers.",
	}, s.handleResolveCategory)

	s.logger.WithField("tool_count", 4).Debug("Registered MCP tools")
}

// MCPServer returns the underlying SDK server.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcpServer
}

// Run serves MCP over stdin/stdout until ctx is cancelled or the client
// disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("Starting MCP server on stdio")
	if err := s.mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}
