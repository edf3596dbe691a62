package snooze

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/snooze/kit"
)

// MCPServer returns a server with every snooze tool registered.
func (e *Engine) MCPServer() *mcp.Server {
	srv := mcp.NewServer(&mcp.Implementation{Name: "snooze", Version: Version}, nil)
	e.RegisterMCP(srv)
	return srv
}

// RegisterMCP registers the snooze tools on srv.
func (e *Engine) RegisterMCP(srv *mcp.Server) {
	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "snooze_list",
		Description: "List the items on the dashboard with their snooze date, state and urgency.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}, e.endpoint("mcp_list", e.listEndpoint), kit.DecodeArgs[struct{}])

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "snooze_set",
		Description: "Snooze an item until a date. A date not in the future wakes it.",
		InputSchema: inputSchema(map[string]any{
			"id":   map[string]any{"type": "string", "description": "Item identifier, e.g. T123 or rPHUabc"},
			"date": map[string]any{"type": "string", "description": "Wake-up day, YYYY-MM-DD"},
		}, []string{"id", "date"}),
	}, e.endpoint("mcp_set", e.setEndpoint), kit.DecodeArgs[setRequest])

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "snooze_clear",
		Description: "Wake an item now and forget its snooze date.",
		InputSchema: inputSchema(map[string]any{
			"id": map[string]any{"type": "string", "description": "Item identifier"},
		}, []string{"id"}),
	}, e.endpoint("mcp_clear", e.clearEndpoint), kit.DecodeArgs[idRequest])

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "snooze_override",
		Description: "Show (true) or hide (false) snoozed items. Omit show to flip.",
		InputSchema: inputSchema(map[string]any{
			"show": map[string]any{"type": "boolean", "description": "Show snoozed items"},
		}, nil),
	}, e.endpoint("mcp_override", e.overrideEndpoint), kit.DecodeArgs[overrideRequest])

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "snooze_export",
		Description: "Return every stored entry, as written to the export file.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}, e.endpoint("mcp_export", e.exportEndpoint), kit.DecodeArgs[struct{}])
}

// inputSchema builds a JSON Schema object with type "object".
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
