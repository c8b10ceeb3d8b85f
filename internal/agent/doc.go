// Package agent implements the agentic loop (Loop, Send) and the
// supporting per-role access policy (Profile, Registry) that scopes which
// tools and bash commands a given role may use.
//
// # Agentic Loop
//
// [Loop] owns one session's conversation history and drives the
// sanitize -> budget-check -> model-call -> tool-dispatch cycle through
// [Loop.Send]. Context-budget enforcement lives in loop.go and compaction
// in compact.go; doom-loop detection for repetitive tool calls lives in
// doomloop.go.
//
// # Profile Types
//
// The package provides four built-in profiles:
//
//   - build: primary role for executing tasks, writing code, and making changes.
//     Full tool access and permissive permissions.
//   - plan: primary role for analysis and exploration without making changes.
//     Restricted to read-only operations.
//   - general: subagent role for general-purpose searches and exploration.
//   - explore: fast subagent role specialized for codebase exploration.
//
// # Profile Modes
//
// Profiles operate in one of three modes:
//
//   - ModePrimary: can be selected as the main role for a session
//   - ModeSubagent: can only be invoked by other roles via a task-delegation tool
//   - ModeAll: can operate in both primary and subagent contexts
//
// # Tool Access Control
//
// Each profile has a Tools map that controls which tools are available. Tools can be
// enabled or disabled using exact names or wildcard patterns:
//
//	profile.Tools = map[string]bool{
//	    "*":     true,   // Enable all tools by default
//	    "shell": false,  // Disable shell specifically
//	    "mcp_*": true,   // Enable all MCP tools
//	}
//
// The [Profile.ToolEnabled] method checks tool availability, supporting glob patterns
// including doublestar (**) for complex matching.
//
// # Permission System
//
// Profiles define permissions for sensitive operations through [ProfilePermission]:
//
//   - Edit: controls file editing permissions
//   - Bash: maps command patterns to permission actions
//   - WebFetch: controls web fetching permissions
//   - ExternalDir: controls access to directories outside the project
//   - DoomLoop: controls handling of repeated tool-call patterns
//
// Permission actions are: allow, deny, or ask (prompt user).
//
// # Registry
//
// The [Registry] type manages profile configurations with thread-safe operations:
//
//	registry := agent.NewRegistry()  // Includes built-in profiles
//	registry.Register(customProfile)
//	p, err := registry.Get("build")
//	primary := registry.ListPrimary()
//	subagents := registry.ListSubagents()
//
// # Custom Configuration
//
// Custom profiles can be loaded from configuration using [Registry.LoadFromConfig].
// Configurations can extend or override built-in profiles:
//
//	config := map[string]agent.ProfileConfig{
//	    "build": {
//	        Temperature: 0.7,
//	        Permission: &agent.ProfilePermissionConfig{
//	            Edit: permission.ActionAsk,
//	        },
//	    },
//	    "custom": {
//	        Description: "Custom role",
//	        Mode:        agent.ModePrimary,
//	        Tools:       map[string]bool{"read_file": true},
//	    },
//	}
//	registry.LoadFromConfig(config)
package agent
