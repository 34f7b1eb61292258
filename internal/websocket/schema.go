package websocket

import "github.com/stemsi/roster-backend/internal/model"

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventHello Event = "hello"
	EventAudit Event = "audit"
	EventError Event = "error"
)

// HelloFrame is sent once after the upgrade succeeds.
type HelloFrame struct {
	Event    Event  `json:"event"`
	Username string `json:"username"`
}

// AuditFrame carries one committed audit entry.
type AuditFrame struct {
	Event Event            `json:"event"`
	Entry model.AuditEntry `json:"entry"`
}

type ErrorFrame struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}
