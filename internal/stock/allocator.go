package stock

import (
	"sort"
	"time"

	"github.com/fahrez/warungpos-inventory-service/internal/apperrors"
	"github.com/fahrez/warungpos-inventory-service/internal/model"
)

// Allocation is one step of an allocation plan: take Quantity units from
// Batch. The plan order is the consumption order and must be preserved all
// the way into the ledger.
type Allocation struct {
	Batch    model.Batch
	Quantity int64
}

// PlanAllocation selects the batches a removal of requested units should be
// taken from. Perishable products are consumed in expiry order (FEFO,
// batches without expiry last), everything else in receipt order (FIFO).
// Batch id breaks ties so the plan is deterministic.
//
// The planner is pure: it never mutates the batches and never touches
// storage. Callers must have validated requested > 0. If the available
// batches cannot cover the request the plan fails as a whole; no partial
// allocation is returned.
func PlanAllocation(product *model.Product, batches []model.Batch, requested int64, now time.Time) ([]Allocation, error) {
	available := make([]model.Batch, 0, len(batches))
	var total int64
	for _, b := range batches {
		if b.DeriveStatus(now) == model.BatchAvailable && b.Quantity > 0 {
			available = append(available, b)
			total += b.Quantity
		}
	}

	if total < requested {
		return nil, apperrors.NewInsufficientStock(product.ID, product.Name, requested, total)
	}

	if product.Perishable {
		sort.Slice(available, func(i, j int) bool {
			ei, ej := available[i].ExpiresAt, available[j].ExpiresAt
			switch {
			case ei == nil && ej == nil:
				return available[i].ID < available[j].ID
			case ei == nil:
				return false
			case ej == nil:
				return true
			case !ei.Equal(*ej):
				return ei.Before(*ej)
			default:
				return available[i].ID < available[j].ID
			}
		})
	} else {
		sort.Slice(available, func(i, j int) bool {
			if !available[i].ReceivedAt.Equal(available[j].ReceivedAt) {
				return available[i].ReceivedAt.Before(available[j].ReceivedAt)
			}
			return available[i].ID < available[j].ID
		})
	}

	var plan []Allocation
	remaining := requested
	for _, b := range available {
		if remaining == 0 {
			break
		}
		take := b.Quantity
		if take > remaining {
			take = remaining
		}
		plan = append(plan, Allocation{Batch: b, Quantity: take})
		remaining -= take
	}

	return plan, nil
}
