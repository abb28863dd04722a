// Package mcp exposes the harness as an MCP tool server so agent tooling
// can drive authentication test runs.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/acquirelab/threedsflow"
	"github.com/acquirelab/threedsflow/pkg/domain"
)

// Server wraps a Harness and exposes it as an MCP server.
type Server struct {
	harness   *threedsflow.Harness
	defaults  domain.SessionConfig
	card      domain.TestCard
	mcpServer *server.MCPServer
}

// NewServer creates the MCP server. defaults and card fill in any values a
// start_session call omits.
func NewServer(harness *threedsflow.Harness, defaults domain.SessionConfig, card domain.TestCard) *Server {
	s := &Server{
		harness:   harness,
		defaults:  defaults,
		card:      card,
		mcpServer: server.NewMCPServer("threedsflow-mcp", strings.TrimSpace(threedsflow.Version)),
	}
	s.registerTools()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("start_session",
		mcp.WithDescription("Start a new authentication test session with default request templates for all three steps."),
		mcp.WithString("merchant_id", mcp.Description("Merchant ID (defaults to the configured merchant)")),
		mcp.WithString("amount", mcp.Required(), mcp.Description("Transaction amount, e.g. 25.00")),
		mcp.WithString("currency", mcp.Description("ISO currency code (defaults to the configured currency)")),
		mcp.WithString("order_id", mcp.Description("Order ID (generated when omitted)")),
		mcp.WithString("transaction_id", mcp.Description("Transaction ID (generated when omitted)")),
	), s.handleStartSession)

	s.mcpServer.AddTool(mcp.NewTool("get_session",
		mcp.WithDescription("Get the full state of a session: status, step requests and responses, pending challenge, activity log."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID")),
	), s.handleGetSession)

	s.mcpServer.AddTool(mcp.NewTool("list_sessions",
		mcp.WithDescription("List the IDs of known sessions."),
	), s.handleListSessions)

	s.mcpServer.AddTool(mcp.NewTool("update_step",
		mcp.WithDescription("Edit a step's request method, URL, or JSON body before execution."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID")),
		mcp.WithNumber("step", mcp.Required(), mcp.Description("Step number, 1-3")),
		mcp.WithString("method", mcp.Description("HTTP method")),
		mcp.WithString("url", mcp.Description("Gateway URL")),
		mcp.WithString("body", mcp.Description("Request body as a JSON string")),
	), s.handleUpdateStep)

	s.mcpServer.AddTool(mcp.NewTool("execute_step",
		mcp.WithDescription("Execute one step of the authentication sequence. Steps must run in order; step 2 may leave a pending challenge."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID")),
		mcp.WithNumber("step", mcp.Required(), mcp.Description("Step number, 1-3")),
	), s.handleExecuteStep)

	s.mcpServer.AddTool(mcp.NewTool("resolve_challenge",
		mcp.WithDescription("Signal that the pending challenge was completed. Triggers the authorization step exactly once."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID")),
	), s.handleResolveChallenge)

	s.mcpServer.AddTool(mcp.NewTool("cancel_challenge",
		mcp.WithDescription("Abandon the pending challenge without authorizing."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID")),
	), s.handleCancelChallenge)

	s.mcpServer.AddTool(mcp.NewTool("reset_session",
		mcp.WithDescription("Re-initialize a session with fresh identifiers and default request templates."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID")),
	), s.handleResetSession)
}

func (s *Server) handleStartSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg := s.defaults
	if v := request.GetString("merchant_id", ""); v != "" {
		cfg.MerchantID = v
	}
	if v := request.GetString("currency", ""); v != "" {
		cfg.Currency = v
	}

	sess, err := s.harness.StartSession(ctx, cfg, s.card, threedsflow.StartParams{
		OrderID:       request.GetString("order_id", ""),
		TransactionID: request.GetString("transaction_id", ""),
		Amount:        request.GetString("amount", ""),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("start session failed: %v", err)), nil
	}
	return jsonResult(sess)
}

func (s *Server) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.harness.Session(ctx, request.GetString("session_id", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("get session failed: %v", err)), nil
	}
	return jsonResult(sess)
}

func (s *Server) handleListSessions(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ids, err := s.harness.ListSessions(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list sessions failed: %v", err)), nil
	}
	return jsonResult(map[string][]string{"sessions": ids})
}

func (s *Server) handleUpdateStep(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := request.GetString("session_id", "")
	step := request.GetInt("step", 0)

	// Missing fields keep their current values.
	current, err := s.harness.Session(ctx, sessionID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("update step failed: %v", err)), nil
	}
	st := current.Step(step)
	if st == nil {
		return mcp.NewToolResultError(fmt.Sprintf("update step failed: %v", domain.ErrUnknownStep)), nil
	}

	sess, err := s.harness.UpdateStepRequest(ctx, sessionID, step,
		request.GetString("method", st.Method),
		request.GetString("url", st.URL),
		request.GetString("body", st.Body),
	)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("update step failed: %v", err)), nil
	}
	return jsonResult(sess)
}

func (s *Server) handleExecuteStep(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, result, err := s.harness.ExecuteStep(ctx, request.GetString("session_id", ""), request.GetInt("step", 0))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("execute step failed: %v", err)), nil
	}
	return jsonResult(map[string]any{"session": sess, "result": result})
}

func (s *Server) handleResolveChallenge(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, result, err := s.harness.ResolveChallenge(ctx, request.GetString("session_id", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("resolve challenge failed: %v", err)), nil
	}
	return jsonResult(map[string]any{"session": sess, "result": result})
}

func (s *Server) handleCancelChallenge(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.harness.CancelChallenge(ctx, request.GetString("session_id", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("cancel challenge failed: %v", err)), nil
	}
	return jsonResult(sess)
}

func (s *Server) handleResetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.harness.ResetSession(ctx, request.GetString("session_id", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("reset session failed: %v", err)), nil
	}
	return jsonResult(sess)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
