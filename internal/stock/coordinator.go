package stock

import (
	"context"
	"time"

	"github.com/fahrez/warungpos-inventory-service/internal/apperrors"
	"github.com/fahrez/warungpos-inventory-service/internal/audit"
	"github.com/fahrez/warungpos-inventory-service/internal/model"
	"github.com/google/uuid"
)

// BatchDelta is one signed quantity change against a batch. Consumption is
// negative, receipt and upward corrections positive.
type BatchDelta struct {
	Batch  model.Batch
	Change int64
}

// Deltas converts an allocation plan into the consumption deltas the
// coordinator applies, preserving plan order.
func Deltas(plan []Allocation) []BatchDelta {
	deltas := make([]BatchDelta, len(plan))
	for i, a := range plan {
		deltas[i] = BatchDelta{Batch: a.Batch, Change: -a.Quantity}
	}
	return deltas
}

// CommitResult is what one coordinator application produced: the ledger rows
// written inside the transaction and the audit entries to emit after it
// commits.
type CommitResult struct {
	Movements []model.StockMovement
	Audits    []audit.Entry
}

// Coordinator applies batch deltas as one atomic unit. All writes go through
// the caller's Tx; the coordinator itself never commits, so a multi-product
// sale can span several Apply calls in one transaction.
type Coordinator struct {
	repo Repository
}

func NewCoordinator(repo Repository) *Coordinator {
	return &Coordinator{repo: repo}
}

// Apply mutates each batch by its delta, re-derives the batch status, and
// appends one ledger row per delta, in delta order. The batch rows must have
// been loaded under the same transaction (FOR UPDATE) before planning the
// deltas, so the quantities seen here cannot have moved underneath us.
func (c *Coordinator) Apply(ctx context.Context, tx Tx, deltas []BatchDelta, kind model.MovementKind, note, actorID string, now time.Time) (*CommitResult, error) {
	result := &CommitResult{
		Movements: make([]model.StockMovement, 0, len(deltas)),
		Audits:    make([]audit.Entry, 0, len(deltas)),
	}

	for _, d := range deltas {
		b := d.Batch
		before := b

		b.Quantity += d.Change
		if b.Quantity < 0 {
			return nil, apperrors.NewInvalidRequest(
				"batch quantity cannot go negative",
				"batch "+b.ID,
			)
		}
		b.Refresh(now)
		b.UpdatedAt = now

		if err := c.repo.UpdateBatch(ctx, tx, &b); err != nil {
			return nil, err
		}

		var createdBy *string
		if actorID != "" {
			a := actorID
			createdBy = &a
		}
		m := model.StockMovement{
			ID:             uuid.New().String(),
			ProductID:      b.ProductID,
			BatchID:        b.ID,
			Kind:           kind,
			QuantityChange: d.Change,
			QuantityBefore: before.Quantity,
			QuantityAfter:  b.Quantity,
			Note:           note,
			CreatedBy:      createdBy,
			CreatedAt:      now,
		}
		if err := c.repo.InsertMovement(ctx, tx, &m); err != nil {
			return nil, err
		}

		result.Movements = append(result.Movements, m)
		result.Audits = append(result.Audits, audit.Entry{
			Action:     "stock." + string(kind),
			EntityType: "batch",
			EntityID:   b.ID,
			OldValues:  before,
			NewValues:  b,
			ActorID:    actorID,
		})
	}

	return result, nil
}
