// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the operation catalog as tools via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"

	"github.com/iancoleman/strcase"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/siyuanflow/internal/operation"
	"github.com/starford/siyuanflow/internal/siyuan"
)

// ReferenceURI is the resource holding the operation reference.
const ReferenceURI = "siyuanflow://operations"

// Server wraps the MCP server with one tool per catalog operation.
type Server struct {
	mcp      *server.MCPServer
	catalog  *operation.Catalog
	client   *siyuan.Client
	logger   *slog.Logger
	handlers map[string]server.ToolHandlerFunc
}

// New creates a new MCP server with a tool registered for every operation.
// Tool names are the snake_case operation names.
func New(catalog *operation.Catalog, client *siyuan.Client, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		catalog:  catalog,
		client:   client,
		logger:   logger,
		handlers: make(map[string]server.ToolHandlerFunc),
	}

	s.mcp = server.NewMCPServer(
		"siyuanflow",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	for _, op := range catalog.Operations() {
		name := ToolName(op.Name)
		h := s.invoke(op.Name)
		s.handlers[name] = h
		s.mcp.AddTool(toolFor(name, op), h)
	}

	s.mcp.AddResource(
		mcp.NewResource(ReferenceURI, "Operation Reference",
			mcp.WithResourceDescription("Every kernel operation with its parameters."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readReference,
	)

	return s
}

// ToolName maps an operation name to its tool name, e.g. getDocIdByPath
// becomes get_doc_id_by_path.
func ToolName(op string) string {
	return strcase.ToSnake(op)
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// Tools returns the registered tool names sorted.
func (s *Server) Tools() []string {
	out := make([]string, 0, len(s.handlers))
	for name := range s.handlers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func toolFor(name string, op operation.Operation) mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription(op.Description),
		mcp.WithDestructiveHintAnnotation(op.Destructive),
	}
	for _, p := range op.Params {
		props := []mcp.PropertyOption{mcp.Description(p.Description)}
		if p.Required {
			props = append(props, mcp.Required())
		}
		switch p.Type {
		case operation.TypeNumber:
			if d, ok := p.Default.(int); ok {
				props = append(props, mcp.DefaultNumber(float64(d)))
			}
			opts = append(opts, mcp.WithNumber(p.Name, props...))
		case operation.TypeArray:
			props = append(props, mcp.Items(map[string]any{"type": "string"}))
			opts = append(opts, mcp.WithArray(p.Name, props...))
		case operation.TypeObject:
			opts = append(opts, mcp.WithObject(p.Name, props...))
		default:
			if d, ok := p.Default.(string); ok {
				props = append(props, mcp.DefaultString(d))
			}
			opts = append(opts, mcp.WithString(p.Name, props...))
		}
	}
	return mcp.NewTool(name, opts...)
}

// invoke returns the handler that runs op through the catalog. Failures are
// reported as tool errors carrying the formatted message.
func (s *Server) invoke(op string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		out, err := s.catalog.Invoke(ctx, s.client, op, req.GetArguments())
		if err != nil {
			s.logger.Debug("mcp: tool failed", slog.String("operation", op), slog.String("error", err.Error()))
			return mcp.NewToolResultError(err.Error()), nil
		}
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	}
}

func (s *Server) readReference(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      ReferenceURI,
			MIMEType: "text/markdown",
			Text:     Reference(s.catalog),
		},
	}, nil
}
