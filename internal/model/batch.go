package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type BatchStatus string

const (
	BatchAvailable BatchStatus = "AVAILABLE"
	BatchSoldOut   BatchStatus = "SOLD_OUT"
	BatchExpired   BatchStatus = "EXPIRED"
)

// Batch is one receipt of stock for a product. Its remaining quantity only
// changes together with a StockMovement row; the batch row itself is never
// deleted, it just reaches a terminal status.
type Batch struct {
	BaseModel
	ProductID  string          `db:"product_id" json:"product_id"`
	Quantity   int64           `db:"quantity" json:"quantity"` // remaining, never negative
	CostBasis  decimal.Decimal `db:"cost_basis" json:"cost_basis"`
	ReceivedAt time.Time       `db:"received_at" json:"received_at"`
	ExpiresAt  *time.Time      `db:"expires_at" json:"expires_at"` // Nullable
	Status     BatchStatus     `db:"status" json:"status"`
}

// DeriveStatus computes the batch status from remaining quantity and expiry.
// Status is never set independently of this function: expiry wins over
// quantity, so an expired batch with stock left is EXPIRED, not AVAILABLE.
func (b *Batch) DeriveStatus(now time.Time) BatchStatus {
	if b.ExpiresAt != nil && !b.ExpiresAt.After(now) {
		return BatchExpired
	}
	if b.Quantity <= 0 {
		return BatchSoldOut
	}
	return BatchAvailable
}

// Refresh recomputes and stores the derived status.
func (b *Batch) Refresh(now time.Time) {
	b.Status = b.DeriveStatus(now)
}
