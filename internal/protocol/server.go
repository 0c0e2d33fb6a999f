// Package protocol assembles the MCP server from the tool and resource registries.
package protocol

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	apperrors "github.com/allisson/uapf-mcp/internal/errors"
	"github.com/allisson/uapf-mcp/internal/resources"
	"github.com/allisson/uapf-mcp/internal/tools"
)

// Options identifies the server to protocol clients.
type Options struct {
	Name    string
	Version string
}

// NewServer registers every tool descriptor and resource of the registries on
// a new MCP server.
func NewServer(
	toolRegistry *tools.Registry,
	resourceRegistry *resources.Registry,
	opts Options,
	logger *slog.Logger,
) *server.MCPServer {
	if logger == nil {
		logger = slog.Default()
	}

	s := server.NewMCPServer(
		opts.Name,
		opts.Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithRecovery(),
		server.WithInstructions(instructions(opts.Name)),
	)

	for _, d := range toolRegistry.Descriptors() {
		s.AddTool(
			mcp.NewToolWithRawSchema(d.Name, d.Description, d.InputSchema),
			toolHandler(toolRegistry, d.Name),
		)
	}

	handler := resourceHandler(resourceRegistry)
	for _, d := range resourceRegistry.Resources() {
		s.AddResource(
			mcp.NewResource(d.URI, d.Name,
				mcp.WithResourceDescription(d.Description),
				mcp.WithMIMEType(d.MIMEType),
			),
			handler,
		)
	}
	for _, d := range resourceRegistry.Templates() {
		templateOpts := []mcp.ResourceTemplateOption{mcp.WithTemplateDescription(d.Description)}
		if d.MIMEType != "" {
			templateOpts = append(templateOpts, mcp.WithTemplateMIMEType(d.MIMEType))
		}
		s.AddResourceTemplate(
			mcp.NewResourceTemplate(d.URI, d.Name, templateOpts...),
			server.ResourceTemplateHandlerFunc(handler),
		)
	}

	logger.Info("mcp server assembled",
		slog.String("name", opts.Name),
		slog.Int("tools", len(toolRegistry.Descriptors())),
		slog.Int("resources", len(resourceRegistry.Resources())),
		slog.Int("resource_templates", len(resourceRegistry.Templates())),
	)
	return s
}

func instructions(name string) string {
	return fmt.Sprintf(
		"%s exposes UAPF packages. Call uapf.describe first to learn the active scope, "+
			"then uapf.list to discover packages before running processes or decisions.",
		name,
	)
}

// errorBody is the payload of a failed tool call.
type errorBody struct {
	Error *apperrors.Error `json:"error"`
}

func toolHandler(registry *tools.Registry, name string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result, err := registry.Call(ctx, name, request.GetArguments())
		if err != nil {
			return ErrorResult(err), nil
		}
		return SuccessResult(result), nil
	}
}

// SuccessResult renders a tool result as JSON text. Object results are also
// attached as structured content.
func SuccessResult(result any) *mcp.CallToolResult {
	data, err := json.Marshal(result)
	if err != nil {
		return ErrorResult(apperrors.Newf(apperrors.CodeInternal, "failed to encode result: %v", err))
	}

	out := &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(string(data))},
	}
	if m, ok := result.(map[string]any); ok {
		out.StructuredContent = m
	}
	return out
}

// ErrorResult renders err as an isError result carrying {"error":{code,message}}.
func ErrorResult(err error) *mcp.CallToolResult {
	data, _ := json.Marshal(errorBody{Error: apperrors.Normalize(err)})
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(string(data))},
		IsError: true,
	}
}

func resourceHandler(registry *resources.Registry) server.ResourceHandlerFunc {
	return func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		contents, err := registry.Read(ctx, request.Params.URI)
		if err != nil {
			return nil, err
		}

		out := make([]mcp.ResourceContents, 0, len(contents))
		for _, c := range contents {
			if c.IsBlob() {
				out = append(out, mcp.BlobResourceContents{
					URI:      c.URI,
					MIMEType: c.MIMEType,
					Blob:     c.Blob,
					Meta:     resourceMeta(c.Meta),
				})
				continue
			}
			out = append(out, mcp.TextResourceContents{
				URI:      c.URI,
				MIMEType: c.MIMEType,
				Text:     c.Text,
				Meta:     resourceMeta(c.Meta),
			})
		}
		return out, nil
	}
}

// resourceMeta keeps _meta off the wire when there is nothing to annotate.
func resourceMeta(m map[string]any) *mcp.Meta {
	if len(m) == 0 {
		return nil
	}
	return mcp.NewMetaFromMap(m)
}
