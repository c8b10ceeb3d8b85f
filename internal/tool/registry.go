package tool

import (
	"fmt"
	"sort"
	"sync"
)

// Registry is a case-sensitive name -> Tool lookup.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Printf("[registry] registering tool: %s\n", t.Name())
	r.tools[t.Name()] = t
}

func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Definitions returns the JSON-Schema tool set for a model request. If no
// tool is registered the caller should omit the tool set from the request
// entirely (some providers reject an empty array).
func (r *Registry) Definitions() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.tools) == 0 {
		return nil
	}
	defs := make([]Definition, 0, len(r.tools))
	for _, t := range r.tools {
		defs = append(defs, t.Definition())
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry registers the standard built-in tool set.
func DefaultRegistry(deps BuiltinDeps) *Registry {
	fmt.Printf("[registry] creating default registry\n")
	r := NewRegistry()
	r.Register(NewShellTool(deps.Denylist))
	r.Register(NewReadFileTool(deps.SensitivePatterns))
	r.Register(NewWriteFileTool(deps.SensitivePatterns, deps.AllowlistPatterns))
	r.Register(NewFetchURLTool(deps.DomainAllowlist, deps.DomainDenylist))
	r.Register(NewCapturePaneTool())
	r.Register(NewSendKeysTool())
	r.Register(NewTimeTool())
	r.Register(NewTmuxCreateSessionTool())
	r.Register(NewTmuxKillSessionTool())
	r.Register(NewTmuxCreatePaneTool())
	r.Register(NewTmuxKillPaneTool())
	fmt.Printf("[registry] default registry ready with %d tools: %v\n", len(r.tools), r.Names())
	return r
}

// BuiltinDeps configures the built-in tool set's policy knobs.
type BuiltinDeps struct {
	Denylist          []string
	SensitivePatterns []string // doublestar globs of paths write_file guards
	AllowlistPatterns []string // doublestar globs explicitly permitted despite being sensitive
	DomainAllowlist   []string
	DomainDenylist    []string
}
