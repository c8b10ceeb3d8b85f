package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
)

const readFileTruncation = 8 * 1024

// ReadFileTool is the backend-aware "read_file" built-in.
type ReadFileTool struct {
	sensitivePatterns []string
}

func NewReadFileTool(sensitivePatterns []string) *ReadFileTool {
	return &ReadFileTool{sensitivePatterns: sensitivePatterns}
}

func (t *ReadFileTool) Name() string { return "read_file" }

func (t *ReadFileTool) Definition() Definition {
	return Definition{
		Name:        t.Name(),
		Description: "Reads a text file through the active execution backend, truncated to 8K.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {"path": {"type": "string"}},
			"required": ["path"]
		}`),
	}
}

type pathInput struct {
	Path string `json:"path"`
}

func (t *ReadFileTool) Execute(ctx context.Context, argumentsJSON string, toolCtx *Context) (*Result, *Error) {
	var in pathInput
	if err := json.Unmarshal([]byte(argumentsJSON), &in); err != nil {
		return nil, InvalidArguments("malformed read_file arguments: " + err.Error())
	}
	if in.Path == "" {
		return nil, InvalidArguments("path is required")
	}
	if toolCtx == nil || toolCtx.Exec == nil {
		return nil, ExecutionFailed("no execution backend configured")
	}

	text, err := toolCtx.Exec.ReadFile(ctx, in.Path)
	if err != nil {
		return nil, ExecutionFailed(err.Error())
	}

	truncated := false
	if len(text) > readFileTruncation {
		text = text[:readFileTruncation]
		truncated = true
	}

	payload := map[string]any{"path": in.Path, "content": text, "truncated": truncated}
	body, _ := json.Marshal(payload)
	return &Result{Output: string(body), Metadata: payload}, nil
}

// WriteFileTool is the backend-aware "write_file" built-in. It rejects
// sensitive paths unless an allowlist pattern permits them.
type WriteFileTool struct {
	sensitivePatterns []string
	allowlist         []string
}

func NewWriteFileTool(sensitivePatterns, allowlist []string) *WriteFileTool {
	return &WriteFileTool{sensitivePatterns: sensitivePatterns, allowlist: allowlist}
}

func (t *WriteFileTool) Name() string { return "write_file" }

func (t *WriteFileTool) Definition() Definition {
	return Definition{
		Name:        t.Name(),
		Description: "Writes a text file through the active execution backend. Rejects sensitive paths unless allowlisted.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"path": {"type": "string"},
				"content": {"type": "string"}
			},
			"required": ["path", "content"]
		}`),
	}
}

type writeFileInput struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

func (t *WriteFileTool) Execute(ctx context.Context, argumentsJSON string, toolCtx *Context) (*Result, *Error) {
	var in writeFileInput
	if err := json.Unmarshal([]byte(argumentsJSON), &in); err != nil {
		return nil, InvalidArguments("malformed write_file arguments: " + err.Error())
	}
	if in.Path == "" {
		return nil, InvalidArguments("path is required")
	}
	if toolCtx == nil || toolCtx.Exec == nil {
		return nil, ExecutionFailed("no execution backend configured")
	}

	if isSensitivePath(in.Path, t.sensitivePatterns) && !isSensitivePath(in.Path, t.allowlist) {
		return nil, Denied(fmt.Sprintf("%s matches a sensitive-path pattern and is not allowlisted", in.Path))
	}

	before, _ := toolCtx.Exec.ReadFile(ctx, in.Path)
	n, err := toolCtx.Exec.WriteFile(ctx, in.Path, in.Content)
	if err != nil {
		return nil, ExecutionFailed(err.Error())
	}

	diffText, additions, deletions := buildDiffMetadata(in.Path, before, in.Content, "")

	payload := map[string]any{
		"path":      in.Path,
		"bytes":     n,
		"diff":      diffText,
		"additions": additions,
		"deletions": deletions,
	}
	body, _ := json.Marshal(payload)
	return &Result{Output: string(body), Metadata: payload}, nil
}

func isSensitivePath(path string, patterns []string) bool {
	for _, p := range patterns {
		if ok, err := doublestar.Match(p, path); err == nil && ok {
			return true
		}
	}
	return false
}
