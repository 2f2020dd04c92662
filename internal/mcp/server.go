package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/a3tai/pdf-rag-ingest/internal/config"
	"github.com/a3tai/pdf-rag-ingest/internal/descriptions"
	"github.com/a3tai/pdf-rag-ingest/internal/document"
	"github.com/a3tai/pdf-rag-ingest/internal/ingest"
	"github.com/a3tai/pdf-rag-ingest/internal/security"
)

// Server represents the MCP server instance
type Server struct {
	config    *config.Config
	ingest    *ingest.Service
	paths     *security.PathValidator
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, svc *ingest.Service, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if svc == nil {
		return nil, fmt.Errorf("ingest service cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	paths, err := security.NewPathValidator(cfg.PDFDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to create path validator: %w", err)
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false),
	)

	s := &Server{
		config:    cfg,
		ingest:    svc,
		paths:     paths,
		mcpServer: mcpServer,
		logger:    logger,
	}

	s.registerTools()

	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	toDocumentsTool := mcp.NewTool(
		"pdf_to_documents",
		mcp.WithDescription(descriptions.GetToolDescription("pdf_to_documents")),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to the PDF file, absolute or relative to the configured directory"),
		),
		mcp.WithString("pages",
			mcp.Description("Optional page selection such as '1-3,7' (defaults to the configured selection)"),
		),
	)
	s.mcpServer.AddTool(toDocumentsTool, s.handlePDFToDocuments)

	infoTool := mcp.NewTool(
		"pdf_ingest_info",
		mcp.WithDescription(descriptions.GetToolDescription("pdf_ingest_info")),
	)
	s.mcpServer.AddTool(infoTool, s.handlePDFIngestInfo)
}

func (s *Server) handlePDFToDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	pages, _ := request.GetArguments()["pages"].(string)

	abs, err := s.paths.ResolveFile(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	info, err := os.Stat(abs)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("cannot access file: %v", err)), nil
	}
	if info.Size() > s.config.MaxFileSize {
		return mcp.NewToolResultError(fmt.Sprintf("file too large: %d bytes (max %d)", info.Size(), s.config.MaxFileSize)), nil
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read file: %v", err)), nil
	}

	docs, err := s.ingest.Process(ctx, ingest.Request{
		Filename: filepath.Base(abs),
		Data:     data,
		Pages:    pages,
	})
	if err != nil {
		s.logger.Error("ingestion failed", "path", abs, "error", err)
		return mcp.NewToolResultError(err.Error()), nil
	}

	text, err := formatDocuments(docs)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handlePDFIngestInfo(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(s.formatInfo()), nil
}

func formatDocuments(docs []document.Document) (string, error) {
	if docs == nil {
		docs = []document.Document{}
	}
	out, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode documents: %w", err)
	}
	return string(out), nil
}

func (s *Server) formatInfo() string {
	c := s.config
	opts := s.ingest.Options()

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", c.ServerName, c.Version)
	fmt.Fprintf(&b, "Directory: %s\n", s.paths.Root())
	fmt.Fprintf(&b, "Max file size: %d bytes\n", c.MaxFileSize)
	fmt.Fprintf(&b, "\nDetectors (priority order): %s\n", strings.Join(s.ingest.Detectors(), ", "))
	fmt.Fprintf(&b, "Parallel detectors: %t\n", c.ParallelDetectors)
	fmt.Fprintf(&b, "Pages: %s\n", opts.Pages)
	fmt.Fprintf(&b, "\nChunking: %d chars, %d overlap\n", opts.MaxDocumentChars, opts.OverlapChars)
	fmt.Fprintf(&b, "Text fallback: first %d pages\n", opts.MaxTextPages)
	fmt.Fprintf(&b, "\nTables: at least %d rows x %d columns, up to %d header rows\n",
		c.MinRowsForTable, c.MinColsForTable, c.MaxHeaderRows)
	fmt.Fprintf(&b, "Header rows: at most %.0f%% numeric-like cells\n", c.HeaderNumericRatio*100)
	fmt.Fprintf(&b, "Row documents: first column at least %.0f%% text over %d+ values\n",
		c.EntityTextRatio*100, c.EntityMinValues)
	fmt.Fprintf(&b, "Numeric tokens: %s\n", strings.Join(c.NumericTokens, " "))
	fmt.Fprintf(&b, "Numeric units: %s\n", strings.Join(c.NumericUnits, " "))
	return b.String()
}

// Run serves the MCP tools over standard I/O until the client disconnects
func (s *Server) Run(_ context.Context) error {
	s.logger.Debug("starting MCP server in stdio mode", "directory", s.paths.Root())

	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}
