// Package mcp exposes form extraction as Model Context Protocol tools over stdio.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hyperjump/formkv/internal/service"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

// Server is the MCP tool server.
type Server struct {
	svc       *service.Service
	mcpServer *server.MCPServer
	logger    *zap.Logger
}

// NewServer creates an MCP server named name/version with the form tools registered.
func NewServer(name, version string, svc *service.Service, logger *zap.Logger) (*Server, error) {
	if svc == nil {
		return nil, fmt.Errorf("service cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		svc:       svc,
		mcpServer: server.NewMCPServer(name, version, server.WithToolCapabilities(false)),
		logger:    logger,
	}
	s.registerTools()
	return s, nil
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool(
		"extract_form_fields",
		mcp.WithDescription("Analyze a scanned form in the configured bucket and return its fields as a JSON object of label text to value text"),
		mcp.WithString("file",
			mcp.Required(),
			mcp.Description("Document name (object key) in the bucket"),
		),
	), s.handleExtractFormFields)

	s.mcpServer.AddTool(mcp.NewTool(
		"list_extractions",
		mcp.WithDescription("List recently recorded extractions, newest first"),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of extractions to return (default 20)"),
		),
	), s.handleListExtractions)
}

func (s *Server) handleExtractFormFields(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	file, err := request.RequireString("file")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	e, err := s.svc.Extract(ctx, file)
	if err != nil {
		if errors.Is(err, service.ErrDocumentNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("document %q not found in bucket %s", file, s.svc.Bucket())), nil
		}
		s.logger.Error("mcp extraction failed", zap.String("file", file), zap.Error(err))
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := json.Marshal(e.Fields)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) handleListExtractions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	history := s.svc.History()
	if history == nil {
		return mcp.NewToolResultError("history not enabled"), nil
	}
	limit := int(request.GetFloat("limit", 20))
	list, err := history.ListExtractions(ctx, 0, limit)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}

// ServeStdio serves the tools on stdin/stdout until the client disconnects.
func (s *Server) ServeStdio() error {
	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}
