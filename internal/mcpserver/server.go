// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes site generation tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/sitegen/internal/document"
	"github.com/starford/sitegen/internal/history"
	"github.com/starford/sitegen/internal/layout"
	"github.com/starford/sitegen/internal/site"
	"github.com/starford/sitegen/internal/storage"
)

// Config wires a Server to one source and output directory.
type Config struct {
	SourceDir string
	OutputDir string
	Settings  site.Settings
	History   history.Store // enables build_history when non-nil
	Logger    *slog.Logger

	// OnBuild, when set, observes every build_site run.
	OnBuild func(summary *site.Summary, err error)
}

// Server wraps the MCP server with site tools.
type Server struct {
	mcp *server.MCPServer
	cfg Config

	// buildMu serialises builds; the stdio transport runs tool calls on a
	// worker pool.
	buildMu sync.Mutex
}

// New creates a new MCP server with all site tools registered.
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	s := &Server{cfg: cfg}

	s.mcp = server.NewMCPServer(
		"Sitegen",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("build_site",
		mcp.WithDescription("Regenerate the whole site and return the build summary."),
	), s.buildSite)

	s.mcp.AddTool(mcp.NewTool("list_documents",
		mcp.WithDescription("List source documents with their layout and target output file."),
	), s.listDocuments)

	s.mcp.AddTool(mcp.NewTool("inspect_document",
		mcp.WithDescription("Show the parsed metadata, content and layout status of one source document. "+
			"Read the format first via the sitegen://document-format resource."),
		mcp.WithString("name", mcp.Required(), mcp.Description("File name of the document in the source directory (e.g. index.rst)")),
	), s.inspectDocument)

	s.mcp.AddTool(mcp.NewTool("list_templates",
		mcp.WithDescription("List the template files in the layout directory."),
	), s.listTemplates)

	s.mcp.AddTool(mcp.NewTool("list_outputs",
		mcp.WithDescription("List generated files with size and SHA-256 checksum."),
	), s.listOutputs)

	s.mcp.AddTool(mcp.NewTool("read_output",
		mcp.WithDescription("Read a generated file."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path relative to the output directory (e.g. index.html)")),
	), s.readOutput)

	if cfg.History != nil {
		s.mcp.AddTool(mcp.NewTool("build_history",
			mcp.WithDescription("Recent build runs, newest first."),
			mcp.WithNumber("limit", mcp.Description("Maximum number of runs (default 10)")),
		), s.buildHistory)
	}

	s.mcp.AddResource(
		mcp.NewResource("sitegen://document-format", "Document Format",
			mcp.WithResourceDescription("Source document format: JSON metadata header, --- delimiter, raw content."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readDocumentFormatResource,
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
	out, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(out))
}

func (s *Server) buildSite(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.buildMu.Lock()
	defer s.buildMu.Unlock()

	summary, err := site.Build(ctx, s.cfg.SourceDir, s.cfg.OutputDir, s.cfg.Settings, site.NewLogReporter(s.cfg.Logger))
	if s.cfg.OnBuild != nil {
		s.cfg.OnBuild(summary, err)
	}
	if err != nil {
		if summary == nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		out, _ := json.MarshalIndent(summary, "", "  ")
		return mcp.NewToolResultError(fmt.Sprintf("build failed: %v\n%s", err, out)), nil
	}
	return jsonResult(summary), nil
}

type documentInfo struct {
	Name          string `json:"name"`
	Layout        string `json:"layout"`
	LayoutFound   bool   `json:"layout_found"`
	Output        string `json:"output"`
	MetadataValid bool   `json:"metadata_valid"`
}

func (s *Server) engine() (*layout.Engine, error) {
	return layout.New(filepath.Join(s.cfg.SourceDir, s.cfg.Settings.LayoutDir),
		layout.WithAutoescape(s.cfg.Settings.Autoescape))
}

func (s *Server) listDocuments(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	engine, err := s.engine()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	docs := []documentInfo{}
	for path, err := range site.ListDocuments(s.cfg.SourceDir, s.cfg.Settings.SourceExt) {
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		doc, err := document.Read(path)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		docs = append(docs, documentInfo{
			Name:          filepath.Base(path),
			Layout:        doc.Layout(),
			LayoutFound:   engine.Has(doc.Layout()),
			Output:        filepath.Base(site.OutputPathExt(path, s.cfg.OutputDir, s.cfg.Settings.OutputExt)),
			MetadataValid: doc.MetadataErr == nil,
		})
	}
	return jsonResult(docs), nil
}

type documentDetail struct {
	documentInfo
	Metadata      document.Metadata `json:"metadata"`
	MetadataError string            `json:"metadata_error,omitempty"`
	Content       string            `json:"content"`
}

func (s *Server) inspectDocument(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if name != filepath.Base(name) || name == "." || name == ".." {
		return mcp.NewToolResultError(fmt.Sprintf("not a document name: %s", name)), nil
	}
	path := filepath.Join(s.cfg.SourceDir, name)
	doc, err := document.Read(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", name)), nil
	}
	engine, err := s.engine()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	detail := documentDetail{
		documentInfo: documentInfo{
			Name:          name,
			Layout:        doc.Layout(),
			LayoutFound:   engine.Has(doc.Layout()),
			Output:        filepath.Base(site.OutputPathExt(path, s.cfg.OutputDir, s.cfg.Settings.OutputExt)),
			MetadataValid: doc.MetadataErr == nil,
		},
		Metadata: doc.Metadata,
		Content:  doc.Content,
	}
	if doc.MetadataErr != nil {
		detail.MetadataError = doc.MetadataErr.Error()
	}
	return jsonResult(detail), nil
}

func (s *Server) listTemplates(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	engine, err := s.engine()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	names, err := engine.Templates()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if names == nil {
		names = []string{}
	}
	return jsonResult(names), nil
}

func (s *Server) listOutputs(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	store, err := storage.NewFS(s.cfg.OutputDir)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	pages, err := store.List()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if pages == nil {
		pages = []storage.Page{}
	}
	return jsonResult(pages), nil
}

func (s *Server) readOutput(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	store, err := storage.NewFS(s.cfg.OutputDir)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := store.Read(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) buildHistory(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", 10)
	runs, err := s.cfg.History.Recent(limit)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if runs == nil {
		runs = []history.Run{}
	}
	return jsonResult(runs), nil
}

func (s *Server) readDocumentFormatResource(_ context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "sitegen://document-format",
			MIMEType: "text/markdown",
			Text:     DocumentFormatContract,
		},
	}, nil
}
