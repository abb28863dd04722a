// Package session serializes access to persisted transaction sessions.
// The activity log is append-only and single-writer; the manager's
// per-session locks are what make that hold when several surfaces (HTTP,
// MCP, CLI) share one store.
package session
