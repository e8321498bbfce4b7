// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes agenda tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/orgagenda/internal/agendaservice"
	"github.com/starford/orgagenda/internal/apperr"
)

const timestampFormatURI = "orgagenda://timestamp-format"

// Server wraps the MCP server with agenda tools.
type Server struct {
	mcp *server.MCPServer
	svc *agendaservice.Service
}

// New creates a new MCP server with all agenda tools registered.
func New(svc *agendaservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"orgagenda",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("build_agenda",
		mcp.WithDescription("Build the Org Mode agenda: every dated headline across the vault, "+
			"sorted by timestamp, with a 'now' marker line."),
		mcp.WithString("format", mcp.Description("Output format: text (default) or json")),
		mcp.WithString("source", mcp.Description("Entry source: index (default) or vault to re-read every file")),
	), s.buildAgenda)

	s.mcp.AddTool(mcp.NewTool("list_entries",
		mcp.WithDescription("List dated entries, optionally restricted to a time range."),
		mcp.WithString("from", mcp.Description("Inclusive lower bound, RFC 3339 or YYYY-MM-DD")),
		mcp.WithString("to", mcp.Description("Exclusive upper bound, RFC 3339 or YYYY-MM-DD")),
	), s.listEntries)

	s.mcp.AddTool(mcp.NewTool("list_documents",
		mcp.WithDescription("List the org documents that feed the agenda, in agenda order."),
	), s.listDocuments)

	s.mcp.AddTool(mcp.NewTool("read_document",
		mcp.WithDescription("Read the full content of an org document."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the document (e.g. work/todo.org)")),
	), s.readDocument)

	s.mcp.AddTool(mcp.NewTool("search_entries",
		mcp.WithDescription("Search dated entries by text."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 20)")),
	), s.searchEntries)

	s.mcp.AddTool(mcp.NewTool("resolve_agenda_line",
		mcp.WithDescription("Resolve a rendered agenda line to the vault path and 1-based line of its headline."),
		mcp.WithString("line", mcp.Required(), mcp.Description("Agenda line, e.g. 'work.org:4: => Release'")),
	), s.resolveAgendaLine)

	s.mcp.AddTool(mcp.NewTool("get_timestamp_format",
		mcp.WithDescription("Returns the timestamp format and agenda line layout. "+
			"Call this before adding dated headlines to a document."),
	), s.getTimestampFormat)

	// Resource: timestamp format contract.
	s.mcp.AddResource(
		mcp.NewResource(timestampFormatURI, "Timestamp Format",
			mcp.WithResourceDescription("Timestamp syntax recognised in org headlines and the agenda line layout."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readTimestampFormatResource,
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

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) buildAgenda(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var (
		snap *agendaservice.Snapshot
		err  error
	)
	switch source := req.GetString("source", "index"); source {
	case "index":
		snap, err = s.svc.Build(ctx)
	case "vault":
		snap, err = s.svc.BuildFromVault(ctx)
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown source: %s", source)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if req.GetString("format", "text") == "json" {
		return jsonResult(snap)
	}
	return mcp.NewToolResultText(snap.String()), nil
}

func (s *Server) listEntries(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	loc := s.svc.Location()
	from, err := agendaservice.ParseBound(req.GetString("from", ""), loc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	to, err := agendaservice.ParseBound(req.GetString("to", ""), loc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	entries, err := s.svc.Entries(ctx, from, to)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(entries)
}

func (s *Server) listDocuments(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	docs, err := s.svc.Documents(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	paths := make([]string, 0, len(docs))
	for _, d := range docs {
		paths = append(paths, d.Path)
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

func (s *Server) readDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := s.svc.ReadDocument(ctx, path)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) searchEntries(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, req.GetInt("limit", 20))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results)
}

func (s *Server) resolveAgendaLine(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	line, err := req.RequireString("line")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	target, err := s.svc.Resolve(ctx, line)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s:%d", target.Path, target.Line)), nil
}

func (s *Server) getTimestampFormat(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(TimestampFormatContract), nil
}

func (s *Server) readTimestampFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      timestampFormatURI,
			MIMEType: "text/markdown",
			Text:     TimestampFormatContract,
		},
	}, nil
}
