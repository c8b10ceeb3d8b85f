// Package sessionstore persists one JSON file per session id under a
// sessions directory, the concrete implementation of
// internal/runtime.SessionStore. Writes are flock-guarded and go through
// atomic temp-file-then-rename so a crash mid-write never leaves a
// truncated snapshot; List walks the directory in updated_at-descending
// order to implement LastID.
package sessionstore
