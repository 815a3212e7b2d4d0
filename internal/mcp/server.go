// Package mcp exposes the access pipeline over the Model Context
// Protocol so agent hosts can gate record access through the same
// decision core as the HTTP API.
package mcp

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/aegisgraph/aegisgraph/internal/escalate"
	"github.com/aegisgraph/aegisgraph/internal/pipeline"
)

// Server wraps the MCP SDK server around the decision pipeline.
type Server struct {
	mcpServer *mcpsdk.Server
	pipe      *pipeline.Pipeline
	authz     pipeline.Authorizer
	modes     *escalate.Controller
	tracker   *escalate.Tracker
}

// New creates an MCP server over an assembled pipeline.
func New(pipe *pipeline.Pipeline, authz pipeline.Authorizer, modes *escalate.Controller, tracker *escalate.Tracker) *Server {
	s := &Server{
		pipe:    pipe,
		authz:   authz,
		modes:   modes,
		tracker: tracker,
	}

	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    "aegisgraph",
			Version: "0.1.0",
		},
		nil,
	)

	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport. Blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

// registerTools adds all aegisgraph tools to the MCP server.
func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "aegis_chat",
		Description: "Ask a question about a patient through the full access pipeline. Refused requests return the refusal status and a generic reason.",
	}, s.handleChat)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "aegis_check_access",
		Description: "Check whether a doctor may access a patient's records without generating a response (dry-run).",
	}, s.handleCheckAccess)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "aegis_get_mode",
		Description: "Get the current security mode (NORMAL, STRICT, or LOCKDOWN).",
	}, s.handleGetMode)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "aegis_set_mode",
		Description: "Override the security mode. LOCKDOWN refuses all requests until an operator relaxes it.",
	}, s.handleSetMode)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "aegis_escalation_status",
		Description: "Show the refusal count in the current escalation window and its threshold.",
	}, s.handleEscalationStatus)
}
