package model

import "time"

// AuditLog captures a before/after snapshot of a mutated entity. Audit rows
// are written after the business transaction commits and are best-effort.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	Action     string    `db:"action" json:"action"`
	EntityType string    `db:"entity_type" json:"entity_type"`
	EntityID   string    `db:"entity_id" json:"entity_id"`
	OldValues  []byte    `db:"old_values" json:"old_values"` // JSON snapshot
	NewValues  []byte    `db:"new_values" json:"new_values"` // JSON snapshot
	ActorID    *string   `db:"actor_id" json:"actor_id"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
