package faq

import (
	"context"
	"encoding/json"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/vraagbaak/kit"
)

// RegisterMCP registers all FAQ tools on an MCP server. Every tool
// endpoint runs behind the shared logging middleware.
func (svc *Service) RegisterMCP(srv *mcp.Server) {
	wrap := kit.Chain(svc.endpointLogging())
	svc.registerListItems(srv, wrap)
	svc.registerSearch(srv, wrap)
	svc.registerRunExtraction(srv, wrap)
	svc.registerStats(srv, wrap)
}

// endpointLogging tags each tool call with a request ID and logs its
// transport and duration, mirroring the HTTP request logger.
func (svc *Service) endpointLogging() kit.Middleware {
	return func(next kit.Endpoint) kit.Endpoint {
		return func(ctx context.Context, req any) (any, error) {
			ctx = kit.WithRequestID(ctx, svc.newID())
			start := time.Now()
			resp, err := next(ctx, req)
			svc.logger.Debug("tool call",
				"transport", kit.GetTransport(ctx),
				"request_id", kit.GetRequestID(ctx),
				"duration_ms", time.Since(start).Milliseconds(),
				"error", err != nil)
			return resp, err
		}
	}
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func (svc *Service) registerListItems(srv *mcp.Server, wrap kit.Middleware) {
	type req struct {
		Context string `json:"context"`
	}

	tool := &mcp.Tool{
		Name:        "faq_list_items",
		Description: "List a context's published FAQ items in presentation order, with change badges",
		InputSchema: inputSchema(map[string]any{
			"context": map[string]any{"type": "string", "description": "Context slug"},
		}, []string{"context"}),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		p := r.(*req)
		return svc.Items(ctx, p.Context, "")
	}

	decode := func(r *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var p req
		if err := json.Unmarshal(r.Params.Arguments, &p); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &p}, nil
	}

	kit.RegisterMCPTool(srv, tool, wrap(endpoint), decode)
}

func (svc *Service) registerSearch(srv *mcp.Server, wrap kit.Middleware) {
	type req struct {
		Context string `json:"context"`
		Query   string `json:"query"`
	}

	tool := &mcp.Tool{
		Name:        "faq_search",
		Description: "Search a context's FAQ items by relevance, with match highlighting",
		InputSchema: inputSchema(map[string]any{
			"context": map[string]any{"type": "string", "description": "Context slug"},
			"query":   map[string]any{"type": "string", "description": "Search query"},
		}, []string{"context", "query"}),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		p := r.(*req)
		return svc.Items(ctx, p.Context, p.Query)
	}

	decode := func(r *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var p req
		if err := json.Unmarshal(r.Params.Arguments, &p); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &p}, nil
	}

	kit.RegisterMCPTool(srv, tool, wrap(endpoint), decode)
}

func (svc *Service) registerRunExtraction(srv *mcp.Server, wrap kit.Middleware) {
	type req struct {
		Context string `json:"context"`
	}

	tool := &mcp.Tool{
		Name:        "faq_run_extraction",
		Description: "Fetch a context's sources, extract Q&A pairs and apply new/updated/stale changes",
		InputSchema: inputSchema(map[string]any{
			"context": map[string]any{"type": "string", "description": "Context slug"},
		}, []string{"context"}),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		p := r.(*req)
		return svc.RunExtraction(ctx, p.Context)
	}

	decode := func(r *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var p req
		if err := json.Unmarshal(r.Params.Arguments, &p); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &p}, nil
	}

	kit.RegisterMCPTool(srv, tool, wrap(endpoint), decode)
}

func (svc *Service) registerStats(srv *mcp.Server, wrap kit.Middleware) {
	type req struct {
		Context string `json:"context"`
	}

	tool := &mcp.Tool{
		Name:        "faq_stats",
		Description: "Aggregate counters for a context: published items and recent new/updated/stale changes",
		InputSchema: inputSchema(map[string]any{
			"context": map[string]any{"type": "string", "description": "Context slug"},
		}, []string{"context"}),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		p := r.(*req)
		return svc.Stats(ctx, p.Context)
	}

	decode := func(r *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var p req
		if err := json.Unmarshal(r.Params.Arguments, &p); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &p}, nil
	}

	kit.RegisterMCPTool(srv, tool, wrap(endpoint), decode)
}
