package model

import "time"

type MovementKind string

const (
	MovementIn         MovementKind = "IN"
	MovementOut        MovementKind = "OUT"
	MovementAdjustment MovementKind = "ADJUSTMENT"
)

// StockMovement is one row of the append-only stock ledger. Rows are never
// updated or deleted; a batch's remaining quantity must always equal the sum
// of quantity_change over its movements.
type StockMovement struct {
	ID             string       `db:"id" json:"id"`
	ProductID      string       `db:"product_id" json:"product_id"`
	BatchID        string       `db:"batch_id" json:"batch_id"`
	Kind           MovementKind `db:"kind" json:"kind"`
	QuantityChange int64        `db:"quantity_change" json:"quantity_change"` // signed: IN > 0, OUT < 0
	QuantityBefore int64        `db:"quantity_before" json:"quantity_before"`
	QuantityAfter  int64        `db:"quantity_after" json:"quantity_after"`
	Note           string       `db:"note" json:"note"`
	CreatedBy      *string      `db:"created_by" json:"created_by"`
	CreatedAt      time.Time    `db:"created_at" json:"created_at"`
}
