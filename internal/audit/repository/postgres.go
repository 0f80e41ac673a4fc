package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fahrez/warungpos-inventory-service/internal/audit"
	"github.com/fahrez/warungpos-inventory-service/internal/model"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type PGRecorder struct {
	DB *sqlx.DB
}

func NewPGRecorder(db *sqlx.DB) *PGRecorder {
	return &PGRecorder{DB: db}
}

func (r *PGRecorder) Record(ctx context.Context, entries []audit.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	query := `
        INSERT INTO audit_logs (id, action, entity_type, entity_id, old_values, new_values, actor_id, created_at)
        VALUES (:id, :action, :entity_type, :entity_id, :old_values, :new_values, :actor_id, :created_at)
    `

	now := time.Now()
	rows := make([]model.AuditLog, 0, len(entries))
	for _, e := range entries {
		oldJSON, err := json.Marshal(e.OldValues)
		if err != nil {
			return fmt.Errorf("marshal old values: %w", err)
		}
		newJSON, err := json.Marshal(e.NewValues)
		if err != nil {
			return fmt.Errorf("marshal new values: %w", err)
		}

		var actorID *string
		if e.ActorID != "" {
			a := e.ActorID
			actorID = &a
		}

		rows = append(rows, model.AuditLog{
			ID:         uuid.New().String(),
			Action:     e.Action,
			EntityType: e.EntityType,
			EntityID:   e.EntityID,
			OldValues:  oldJSON,
			NewValues:  newJSON,
			ActorID:    actorID,
			CreatedAt:  now,
		})
	}

	_, err := r.DB.NamedExecContext(ctx, query, rows)
	return err
}
