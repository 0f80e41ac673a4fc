package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

type SaleItem struct {
	ProductID string `json:"product_id"`
	Quantity  int64  `json:"quantity"`
}

type SaleInput struct {
	Items   []SaleItem `json:"items"`
	Note    string     `json:"note"`
	ActorID string     `json:"-"`
}

type AddStockInput struct {
	ProductID string          `json:"product_id"`
	Quantity  int64           `json:"quantity"`
	CostBasis decimal.Decimal `json:"cost_basis"`
	ExpiresAt *time.Time      `json:"expires_at"`
	Note      string          `json:"note"`
	ActorID   string          `json:"-"`
}

type AdjustBatchInput struct {
	BatchID     string `json:"-"`
	NewQuantity int64  `json:"new_quantity"`
	Note        string `json:"note"`
	ActorID     string `json:"-"`
}
