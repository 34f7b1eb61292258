package model

import "time"

// AuditEntry is an immutable record of one administrative action.
type AuditEntry struct {
	ID            int64     `json:"id"`
	ActorID       int       `json:"actor_id"`
	ActorUsername string    `json:"actor_username,omitempty"`
	Action        string    `json:"action"`
	Details       string    `json:"details"`
	CreatedAt     time.Time `json:"timestamp"`
}
