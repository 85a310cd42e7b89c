package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/aimcr/aimcr/internal/models"
	"github.com/aimcr/aimcr/internal/review"
	"github.com/aimcr/aimcr/internal/risk"
	"github.com/aimcr/aimcr/internal/store"
	"github.com/aimcr/aimcr/internal/validate"
)

// Server exposes read-only review tooling as MCP tools.
type Server struct {
	svc     *review.Service
	ledger  store.Ledger
	version string
}

// NewServer creates the MCP server wrapper. ledger may be nil.
func NewServer(svc *review.Service, ledger store.Ledger, version string) *Server {
	if version == "" {
		version = "dev"
	}
	return &Server{svc: svc, ledger: ledger, version: version}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("aimcr", s.version, server.WithToolCapabilities(true))

	srv.AddTool(s.listDraftsTool())
	srv.AddTool(s.scoreReviewTool())
	srv.AddTool(s.validateReviewTool())
	srv.AddTool(s.checklistTool())
	srv.AddTool(s.historyTool())

	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	srv := s.MCPServer()
	stdioServer := server.NewStdioServer(srv)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) loadDraft(request mcp.CallToolRequest) (string, *models.ReviewDocument, *mcp.CallToolResult) {
	handle, err := request.RequireString("draft")
	if err != nil {
		return "", nil, mcp.NewToolResultError("missing required parameter: draft")
	}
	name, doc, err := s.svc.LoadDraft(handle)
	if err != nil {
		return "", nil, mcp.NewToolResultError(err.Error())
	}
	return name, doc, nil
}

// aimcr_list_drafts
func (s *Server) listDraftsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("aimcr_list_drafts",
		mcp.WithDescription("List saved review drafts, most recently modified first. Returns a JSON array with name, project_id, proposal_title and modified time."),
	)
	return tool, s.handleListDrafts
}

func (s *Server) handleListDrafts(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	drafts, err := s.svc.Documents().ListDrafts()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list drafts: %v", err)), nil
	}
	if drafts == nil {
		drafts = []store.DraftSummary{}
	}
	return jsonResult(drafts)
}

// aimcr_score_review
func (s *Server) scoreReviewTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("aimcr_score_review",
		mcp.WithDescription("Compute risk scores for a draft: per-section max-per-check totals, tiers (green/yellow/orange/red), critical flags, per-artifact raw totals and an advisory decision."),
		mcp.WithString("draft", mcp.Required(), mcp.Description("Draft file name or unique prefix")),
	)
	return tool, s.handleScoreReview
}

func (s *Server) handleScoreReview(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, doc, errResult := s.loadDraft(request)
	if errResult != nil {
		return errResult, nil
	}
	a, err := risk.Assess(doc)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("cannot score %s: %v", name, err)), nil
	}
	return jsonResult(struct {
		Draft string `json:"draft"`
		*risk.Assessment
	}{name, a})
}

// aimcr_validate_review
func (s *Server) validateReviewTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("aimcr_validate_review",
		mcp.WithDescription("Validate a draft. Returns {valid, errors:[{field, reason}]}. With final=true the final decision is also required."),
		mcp.WithString("draft", mcp.Required(), mcp.Description("Draft file name or unique prefix")),
		mcp.WithBoolean("final", mcp.Description("Validate for submission")),
	)
	return tool, s.handleValidateReview
}

func (s *Server) handleValidateReview(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, doc, errResult := s.loadDraft(request)
	if errResult != nil {
		return errResult, nil
	}
	level := validate.Draft
	if request.GetBool("final", false) {
		level = validate.Final
	}

	type out struct {
		Draft  string          `json:"draft"`
		Valid  bool            `json:"valid"`
		Errors validate.Errors `json:"errors"`
	}
	res := out{Draft: name, Valid: true, Errors: validate.Errors{}}
	if err := validate.Document(doc, level); err != nil {
		errs, ok := validate.AsErrors(err)
		if !ok {
			return mcp.NewToolResultError(err.Error()), nil
		}
		res.Valid = false
		res.Errors = errs
	}
	return jsonResult(res)
}

// aimcr_checklist
func (s *Server) checklistTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("aimcr_checklist",
		mcp.WithDescription("Return the fixed check names for one section, or for all sections when section is omitted."),
		mcp.WithString("section", mcp.Description("third_party_software, source_code, datasets_user_files or models")),
	)
	return tool, s.handleChecklist
}

func (s *Server) handleChecklist(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	type sectionOut struct {
		Section models.Section `json:"section"`
		Title   string         `json:"title"`
		Checks  []string       `json:"checks"`
	}

	sections := models.Sections
	if name := request.GetString("section", ""); name != "" {
		sec, err := models.ParseSection(name)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		sections = []models.Section{sec}
	}

	out := make([]sectionOut, 0, len(sections))
	for _, sec := range sections {
		out = append(out, sectionOut{Section: sec, Title: sec.Title(), Checks: sec.Checklist()})
	}
	return jsonResult(out)
}

// aimcr_history
func (s *Server) historyTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("aimcr_history",
		mcp.WithDescription("List recent local history: draft saves, deletions, submissions and sync results, newest first."),
		mcp.WithString("project", mcp.Description("Filter by project ID")),
		mcp.WithNumber("limit", mcp.Description("Maximum entries (default 20)")),
	)
	return tool, s.handleHistory
}

func (s *Server) handleHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.ledger == nil {
		return mcp.NewToolResultError("history is not available"), nil
	}
	events, err := s.ledger.List(ctx, store.EventFilter{
		ProjectID: request.GetString("project", ""),
		Limit:     request.GetInt("limit", 20),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list history: %v", err)), nil
	}
	if events == nil {
		events = []*models.Event{}
	}
	return jsonResult(events)
}
