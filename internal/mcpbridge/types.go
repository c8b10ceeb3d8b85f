package mcpbridge

import (
	"encoding/json"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// TransportType selects how a server process is reached.
type TransportType string

const (
	TransportStdio  TransportType = "stdio"
	TransportRemote TransportType = "remote"
)

// Config describes one MCP server connection: transport, target, and the
// environment/command a stdio server needs to launch.
type Config struct {
	Enabled     bool              `json:"enabled"`
	Type        TransportType     `json:"type"`
	URL         string            `json:"url,omitempty"`
	Command     []string          `json:"command,omitempty"`
	Environment map[string]string `json:"environment,omitempty"`
	TimeoutMS   int               `json:"timeout_ms,omitempty"`
}

// Status is the connection state of one configured server.
type Status string

const (
	StatusConnected    Status = "connected"
	StatusDisabled     Status = "disabled"
	StatusFailed       Status = "failed"
	StatusDisconnected Status = "disconnected"
)

// ServerStatus reports one server's health for diagnostics/introspection.
type ServerStatus struct {
	Name      string
	Status    Status
	ToolCount int
	Error     string
}

// remoteTool is the prefixed tool metadata surfaced by Client.Tools.
type remoteTool struct {
	Name        string
	Description string
	InputSchema json.RawMessage
}

func fromSDKTool(t *sdkmcp.Tool) remoteTool {
	var schema json.RawMessage
	if t.InputSchema != nil {
		schema, _ = json.Marshal(t.InputSchema)
	}
	return remoteTool{Name: t.Name, Description: t.Description, InputSchema: schema}
}

// sanitizeToolName replaces every non-alphanumeric rune with '_', building a
// name-collision-free prefix out of an arbitrary server name.
func sanitizeToolName(name string) string {
	var b []byte
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b = append(b, byte(r))
		} else {
			b = append(b, '_')
		}
	}
	return string(b)
}
