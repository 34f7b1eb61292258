package repository

import (
	"context"

	"github.com/stemsi/roster-backend/internal/model"
)

// AppendAuditEntry stamps the entry no earlier than the newest existing one,
// so created_at never decreases in insertion order.
func (r *pgQueries) AppendAuditEntry(ctx context.Context, e *model.AuditEntry) error {
	err := r.q.QueryRow(ctx,
		`INSERT INTO audit_entries (actor_id, action, details, created_at)
		 VALUES ($1, $2, $3, GREATEST(
			clock_timestamp(),
			COALESCE((SELECT MAX(created_at) FROM audit_entries), clock_timestamp())
		 ))
		 RETURNING id, created_at`,
		e.ActorID, e.Action, e.Details,
	).Scan(&e.ID, &e.CreatedAt)
	return mapErr(err)
}

// ListAuditEntries returns the whole trail, newest first.
func (r *pgQueries) ListAuditEntries(ctx context.Context) ([]model.AuditEntry, error) {
	rows, err := r.q.Query(ctx,
		`SELECT a.id, a.actor_id, COALESCE(i.username, ''), a.action, a.details, a.created_at
		 FROM audit_entries a
		 LEFT JOIN identities i ON i.id = a.actor_id
		 ORDER BY a.created_at DESC, a.id DESC`)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	entries := []model.AuditEntry{}
	for rows.Next() {
		var e model.AuditEntry
		if err := rows.Scan(&e.ID, &e.ActorID, &e.ActorUsername, &e.Action, &e.Details, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
