// Package config holds the model/provider connection profile the core
// consumes to build a transport.Client and a tokens.Tracker for one agent
// session. It does not load or parse configuration files; file discovery,
// JSONC, and env-override resolution live outside the core — a caller (the
// CLI, a test harness, an embedding application) resolves a Profile however
// it likes and builds the transport config (Profile.TransportConfig) and
// context limit from it.
package config
