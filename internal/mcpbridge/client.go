package mcpbridge

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const defaultConnectTimeout = 5 * time.Second

// sdkSession is the slice of *sdkmcp.ClientSession this package calls,
// narrowed to an interface so tests can substitute a fake session instead
// of spawning a real MCP server subprocess.
type sdkSession interface {
	ListTools(ctx context.Context, params *sdkmcp.ListToolsParams) (*sdkmcp.ListToolsResult, error)
	CallTool(ctx context.Context, params *sdkmcp.CallToolParams) (*sdkmcp.CallToolResult, error)
	Close() error
}

// dialer connects to one configured server and returns a session. The real
// implementation (sdkDialer) goes through sdkmcp.Client.Connect; tests
// substitute a fake that hands back an in-memory session.
type dialer interface {
	Dial(ctx context.Context, name string, cfg Config) (sdkSession, error)
}

// sdkDialer is the production dialer.
type sdkDialer struct {
	client *sdkmcp.Client
}

func newSDKDialer(clientName, clientVersion string) *sdkDialer {
	return &sdkDialer{client: sdkmcp.NewClient(&sdkmcp.Implementation{
		Name:    clientName,
		Version: clientVersion,
	}, nil)}
}

func (d *sdkDialer) Dial(ctx context.Context, name string, cfg Config) (sdkSession, error) {
	timeout := time.Duration(cfg.TimeoutMS) * time.Millisecond
	if timeout == 0 {
		timeout = defaultConnectTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var transport sdkmcp.Transport
	switch cfg.Type {
	case TransportRemote:
		transport = &sdkmcp.SSEClientTransport{
			Endpoint:   cfg.URL,
			HTTPClient: &http.Client{Timeout: timeout},
		}
	case TransportStdio:
		if len(cfg.Command) == 0 {
			return nil, fmt.Errorf("mcpbridge: empty command for server %s", name)
		}
		cmd := exec.Command(cfg.Command[0], cfg.Command[1:]...)
		cmd.Env = os.Environ()
		for k, v := range cfg.Environment {
			cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
		}
		transport = &sdkmcp.CommandTransport{Command: cmd}
	default:
		return nil, fmt.Errorf("mcpbridge: unknown transport type %q for server %s", cfg.Type, name)
	}

	session, err := d.client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("mcpbridge: connect to %s: %w", name, err)
	}
	return session, nil
}

// server is one configured and (if enabled) connected MCP server.
type server struct {
	name    string
	cfg     Config
	session sdkSession
	tools   []remoteTool
	status  Status
	err     string
}

// Client manages a set of named MCP server connections and surfaces their
// tools as a flat, name-prefixed list: the registry needs globally unique
// names, and a bare "sum" from two different servers would collide.
type Client struct {
	mu      sync.RWMutex
	servers map[string]*server
	dial    dialer
}

// NewClient builds a Client that dials real MCP servers over stdio or SSE.
func NewClient(clientName, clientVersion string) *Client {
	return &Client{
		servers: make(map[string]*server),
		dial:    newSDKDialer(clientName, clientVersion),
	}
}

// newClientWithDialer is used by tests to inject a fake dialer.
func newClientWithDialer(d dialer) *Client {
	return &Client{servers: make(map[string]*server), dial: d}
}

// AddServer registers and, if enabled, connects a server, listing its tools.
// A disabled server is recorded and nil is returned. A server that fails to
// dial is recorded as failed (so Status reports it) and the dial error is
// returned; servers already added are left as they are.
func (c *Client) AddServer(ctx context.Context, name string, cfg Config) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.servers[name]; ok {
		return fmt.Errorf("mcpbridge: server %s already added", name)
	}

	if !cfg.Enabled {
		c.servers[name] = &server{name: name, cfg: cfg, status: StatusDisabled}
		return nil
	}

	session, err := c.dial.Dial(ctx, name, cfg)
	if err != nil {
		c.servers[name] = &server{name: name, cfg: cfg, status: StatusFailed, err: err.Error()}
		return err
	}

	srv := &server{name: name, cfg: cfg, session: session, status: StatusConnected}
	if result, lerr := session.ListTools(ctx, nil); lerr == nil {
		srv.tools = make([]remoteTool, len(result.Tools))
		for i, t := range result.Tools {
			srv.tools[i] = fromSDKTool(t)
		}
	}
	c.servers[name] = srv
	return nil
}

// Tools returns every tool from every connected server, prefixed
// "<sanitized server name>_<sanitized tool name>" to keep registry names
// unique and collision-free across servers.
func (c *Client) Tools() []remoteTool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var all []remoteTool
	for name, srv := range c.servers {
		if srv.status != StatusConnected {
			continue
		}
		prefix := sanitizeToolName(name) + "_"
		for _, t := range srv.tools {
			all = append(all, remoteTool{
				Name:        prefix + sanitizeToolName(t.Name),
				Description: t.Description,
				InputSchema: t.InputSchema,
			})
		}
	}
	return all
}

// ExecuteTool dispatches a prefixed tool name to its owning server.
func (c *Client) ExecuteTool(ctx context.Context, prefixedName string, arguments map[string]any) (string, error) {
	c.mu.RLock()
	var target *server
	var original string
	for name, srv := range c.servers {
		if srv.status != StatusConnected {
			continue
		}
		prefix := sanitizeToolName(name) + "_"
		if !strings.HasPrefix(prefixedName, prefix) {
			continue
		}
		suffix := strings.TrimPrefix(prefixedName, prefix)
		for _, t := range srv.tools {
			if sanitizeToolName(t.Name) == suffix {
				target, original = srv, t.Name
				break
			}
		}
		if target != nil {
			break
		}
	}
	c.mu.RUnlock()

	if target == nil {
		return "", fmt.Errorf("mcpbridge: no server owns tool %s", prefixedName)
	}

	result, err := target.session.CallTool(ctx, &sdkmcp.CallToolParams{Name: original, Arguments: arguments})
	if err != nil {
		return "", fmt.Errorf("mcpbridge: call %s: %w", prefixedName, err)
	}

	var out strings.Builder
	for _, content := range result.Content {
		if text, ok := content.(*sdkmcp.TextContent); ok {
			out.WriteString(text.Text)
		}
	}
	if result.IsError {
		return "", fmt.Errorf("mcpbridge: tool %s reported an error: %s", prefixedName, out.String())
	}
	return out.String(), nil
}

// Status reports the health of every configured server.
func (c *Client) Status() []ServerStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	statuses := make([]ServerStatus, 0, len(c.servers))
	for name, srv := range c.servers {
		statuses = append(statuses, ServerStatus{
			Name: name, Status: srv.status, ToolCount: len(srv.tools), Error: srv.err,
		})
	}
	return statuses
}

// Close disconnects every connected server.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, srv := range c.servers {
		if srv.session != nil {
			srv.session.Close()
		}
	}
	c.servers = make(map[string]*server)
	return nil
}
