package dto

import (
	"github.com/fahrez/warungpos-inventory-service/internal/model"
)

type MovementFilters struct {
	ProductID string
	BatchID   string
	Kind      string
	Page      int
	PageSize  int
}

// SaleItemResult summarizes the movements one sale line produced.
type SaleItemResult struct {
	ProductID string                `json:"product_id"`
	Quantity  int64                 `json:"quantity"`
	Movements []model.StockMovement `json:"movements"`
}

type SaleResult struct {
	Items []SaleItemResult `json:"items"`
}

type ProductStock struct {
	Product *model.Product `json:"product"`
	Batches []model.Batch  `json:"batches"`
	OnHand  int64          `json:"on_hand"` // sum of AVAILABLE batch quantities
}

// ReconciliationEntry compares a batch's remaining quantity against the sum
// of its ledger movements. A non-zero drift means the reconciliation
// invariant is broken.
type ReconciliationEntry struct {
	BatchID   string `json:"batch_id"`
	LedgerSum int64  `json:"ledger_sum"`
	Remaining int64  `json:"remaining"`
	Drift     int64  `json:"drift"`
}

type ReconciliationReport struct {
	ProductID string                `json:"product_id"`
	Entries   []ReconciliationEntry `json:"entries"`
	Clean     bool                  `json:"clean"`
}
