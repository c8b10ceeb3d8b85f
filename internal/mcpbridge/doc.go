// Package mcpbridge adapts Model Context Protocol servers into
// internal/tool.Tool instances so their tools show up in the same registry
// and get called through the same dispatch path as every built-in tool.
//
// Client/AddServer/Tools/ExecuteTool dial one MCP server and list and
// invoke its tools; ToolWrapper adapts each into this module's
// tool.Tool contract (Name/Definition/Execute returning *tool.Error). The
// package is narrowed to tools only — the registry has no resource or
// prompt concept, so there is no ListResources/ReadResource surface here.
package mcpbridge
