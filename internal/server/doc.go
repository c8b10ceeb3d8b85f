// Package server exposes internal/runtime's command/event protocol over
// HTTP: POST /command accepts one JSON-encoded RuntimeCommand, GET /event
// streams the runtime's RuntimeEventEnvelope sequence as Server-Sent
// Events.
//
// It uses a go-chi router and middleware stack, a JSON error envelope for
// failed requests, and an SSE writer with heartbeat support. The runtime's
// command/event protocol is the sole programmatic boundary a frontend
// needs, so there is no separate REST resource model alongside it.
package server
