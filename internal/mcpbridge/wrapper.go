package mcpbridge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/0xfe/buddyx/internal/tool"
)

// ToolWrapper adapts one remote MCP tool to internal/tool.Tool's
// Name/Definition/Execute(...)(*Result, *tool.Error) contract.
type ToolWrapper struct {
	remote remoteTool
	client *Client
}

// NewToolWrapper wraps one already-prefixed remote tool.
func NewToolWrapper(remote remoteTool, client *Client) *ToolWrapper {
	return &ToolWrapper{remote: remote, client: client}
}

func (w *ToolWrapper) Name() string { return w.remote.Name }

func (w *ToolWrapper) Definition() tool.Definition {
	params := w.remote.InputSchema
	if params == nil {
		params = json.RawMessage(`{}`)
	}
	return tool.Definition{
		Name:        w.remote.Name,
		Description: w.remote.Description,
		Parameters:  params,
	}
}

// Execute unmarshals argumentsJSON into the map shape the SDK's CallTool
// wants, calls through to the owning server, and reports failures as
// ExecutionFailed (the MCP spec doesn't distinguish approval-denied from
// any other tool-side failure, so Denied is never produced here).
func (w *ToolWrapper) Execute(ctx context.Context, argumentsJSON string, toolCtx *tool.Context) (*tool.Result, *tool.Error) {
	var args map[string]any
	if argumentsJSON != "" {
		if err := json.Unmarshal([]byte(argumentsJSON), &args); err != nil {
			return nil, tool.InvalidArguments(fmt.Sprintf("parse arguments: %v", err))
		}
	}

	output, err := w.client.ExecuteTool(ctx, w.remote.Name, args)
	if err != nil {
		return nil, tool.ExecutionFailed(err.Error())
	}
	return &tool.Result{Output: output, Metadata: map[string]any{"mcp_tool": w.remote.Name}}, nil
}

// RegisterTools fetches every tool currently exposed by client's connected
// servers and registers a ToolWrapper for each in registry.
func RegisterTools(client *Client, registry *tool.Registry) {
	if client == nil || registry == nil {
		return
	}
	for _, t := range client.Tools() {
		registry.Register(NewToolWrapper(t, client))
	}
}
