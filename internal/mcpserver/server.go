// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes tidy tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/tidy/internal/tidyservice"
)

const rulesFormatURI = "tidy://rules-format"

// Server wraps the MCP server with tidy tools.
type Server struct {
	mcp *server.MCPServer
	svc *tidyservice.Service
}

// New creates a new MCP server with all tidy tools registered.
func New(svc *tidyservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"tidy",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_rules",
		mcp.WithDescription("List the keyword rules in priority order, with their 0-based index."),
	), s.listRules)

	s.mcp.AddTool(mcp.NewTool("add_rule",
		mcp.WithDescription("Append a rule: files whose name contains keyword (any case) move to folder. "+
			"Read the format via the "+rulesFormatURI+" resource first."),
		mcp.WithString("keyword", mcp.Required(), mcp.Description("Substring to look for in file names")),
		mcp.WithString("folder", mcp.Required(), mcp.Description("Destination folder, relative to the watched folder or absolute")),
	), s.addRule)

	s.mcp.AddTool(mcp.NewTool("update_rule",
		mcp.WithDescription("Replace the rule at index."),
		mcp.WithNumber("index", mcp.Required(), mcp.Description("0-based rule index from list_rules")),
		mcp.WithString("keyword", mcp.Required(), mcp.Description("Substring to look for in file names")),
		mcp.WithString("folder", mcp.Required(), mcp.Description("Destination folder")),
	), s.updateRule)

	s.mcp.AddTool(mcp.NewTool("remove_rules",
		mcp.WithDescription("Delete the rules at the given indices. Ask the user first and pass confirm=true."),
		mcp.WithArray("indices", mcp.Required(), mcp.WithNumberItems(), mcp.Description("0-based rule indices")),
		mcp.WithBoolean("confirm", mcp.Required(), mcp.Description("Must be true; the user agreed to the removal")),
	), s.removeRules)

	s.mcp.AddTool(mcp.NewTool("classify_file",
		mcp.WithDescription("Show where a file with this name would be moved, without moving anything."),
		mcp.WithString("name", mcp.Required(), mcp.Description("File name, e.g. invoice_march.pdf")),
	), s.classifyFile)

	s.mcp.AddTool(mcp.NewTool("organize_once",
		mcp.WithDescription("Organize a folder once and report every move."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Absolute path of the folder to organize")),
	), s.organizeOnce)

	s.mcp.AddTool(mcp.NewTool("recent_activity",
		mcp.WithDescription("Recent move attempts, newest first, optionally filtered by a search query."),
		mcp.WithString("query", mcp.Description("Optional search over file names and folders")),
		mcp.WithNumber("limit", mcp.Description("Maximum entries (default 50)")),
	), s.recentActivity)

	// Resource: rules format contract.
	s.mcp.AddResource(
		mcp.NewResource(rulesFormatURI, "Rules Format",
			mcp.WithResourceDescription("rules.json format and how rules and buckets place files."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readRulesFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func (s *Server) listRules(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	list := s.svc.Rules(ctx)
	if len(list) == 0 {
		return mcp.NewToolResultText("no rules defined"), nil
	}
	var b strings.Builder
	for i, r := range list {
		fmt.Fprintf(&b, "%d: %q -> %s\n", i, r.Keyword, r.Folder)
	}
	return mcp.NewToolResultText(strings.TrimSuffix(b.String(), "\n")), nil
}

func (s *Server) addRule(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	keyword, err := req.RequireString("keyword")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	folder, err := req.RequireString("folder")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	i, r, err := s.svc.AddRule(ctx, keyword, folder)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("added %d: %q -> %s", i, r.Keyword, r.Folder)), nil
}

func (s *Server) updateRule(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	index, err := req.RequireInt("index")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	keyword, err := req.RequireString("keyword")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	folder, err := req.RequireString("folder")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	r, err := s.svc.UpdateRule(ctx, index, keyword, folder)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("updated %d: %q -> %s", index, r.Keyword, r.Folder)), nil
}

func (s *Server) removeRules(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	indices, err := req.RequireIntSlice("indices")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	confirm := req.GetBool("confirm", false)
	if err := s.svc.RemoveRules(ctx, indices, confirm); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("removed %d rule(s)", len(indices))), nil
}

func (s *Server) classifyFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.Classify(ctx, name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res), nil
}

func (s *Server) organizeOnce(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.Cycle(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res.Report), nil
}

func (s *Server) recentActivity(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entries, err := s.svc.Activity(ctx, req.GetString("query", ""), req.GetInt("limit", 0))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(entries) == 0 {
		return mcp.NewToolResultText("no activity recorded"), nil
	}
	return jsonResult(entries), nil
}

func (s *Server) readRulesFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      rulesFormatURI,
			MIMEType: "text/markdown",
			Text:     RulesFormatContract,
		},
	}, nil
}
