package mcpadapter

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/medical-doc-extractor/internal/core/domain"
	"github.com/kirillkom/medical-doc-extractor/internal/core/ports"
)

const (
	toolProcessDocument       = "process_document"
	toolLookupExaminationType = "lookup_examination_type"
)

// Server exposes the extraction workflow as MCP tools.
type Server struct {
	processor ports.DocumentProcessor
	resolver  ports.ExaminationTypeResolver
	logger    *slog.Logger
	mcp       *server.MCPServer
}

func NewServer(version string, processor ports.DocumentProcessor, resolver ports.ExaminationTypeResolver, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		processor: processor,
		resolver:  resolver,
		logger:    logger,
		mcp:       server.NewMCPServer("medscan", version, server.WithToolCapabilities(false)),
	}

	s.mcp.AddTool(mcp.NewTool(toolProcessDocument,
		mcp.WithDescription("Extract patient and examination data from a scanned medical document."),
		mcp.WithString("document_id", mcp.Required(), mcp.Description("Identifier used for notifications and routing.")),
		mcp.WithString("mime_type", mcp.Required(), mcp.Description("pdf, doc, docx, jpeg or png mime type.")),
		mcp.WithString("content_base64", mcp.Required(), mcp.Description("Base64-encoded document bytes.")),
	), s.handleProcessDocument)

	s.mcp.AddTool(mcp.NewTool(toolLookupExaminationType,
		mcp.WithDescription("Resolve a free-text examination label to its reference examination type."),
		mcp.WithString("label", mcp.Required(), mcp.Description("Examination label as written on the document.")),
	), s.handleLookupExaminationType)

	return s
}

// ServeStdio blocks serving MCP over stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

func (s *Server) handleProcessDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	documentID, err := req.RequireString("document_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	mimeType, err := req.RequireString("mime_type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	encoded, err := req.RequireString("content_base64")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	mimeType = domain.NormalizeMimeType(mimeType)
	if !domain.IsAllowedMimeType(mimeType) {
		return mcp.NewToolResultError(fmt.Sprintf("unsupported mime type %q", mimeType)), nil
	}

	content, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return mcp.NewToolResultError("content_base64 is not valid base64"), nil
	}

	info, err := s.processor.Process(ctx, domain.Document{ID: documentID, Content: content, MimeType: mimeType})
	if err != nil {
		s.logger.Error("mcp_tool_failed", "tool", toolProcessDocument, "document_id", documentID, "error", err)
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(info)
}

func (s *Server) handleLookupExaminationType(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	label, err := req.RequireString("label")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	examType, err := s.resolver.Resolve(ctx, label)
	if err != nil {
		if domain.IsKind(err, domain.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("no examination type matches %q", label)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(examType)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal tool result: %w", err)
	}
	return mcp.NewToolResultText(string(raw)), nil
}
