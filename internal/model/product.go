package model

import "github.com/shopspring/decimal"

type Product struct {
	BaseModel
	CategoryID   *string          `db:"category_id" json:"category_id"` // Nullable
	SKU          string           `db:"sku" json:"sku"`
	Name         string           `db:"name" json:"name"`
	Description  *string          `db:"description" json:"description"`
	Unit         string           `db:"unit" json:"unit"` // pcs, kg, liter, ...
	Perishable   bool             `db:"perishable" json:"perishable"`
	SellingPrice decimal.Decimal  `db:"selling_price" json:"selling_price"`
	CostPrice    *decimal.Decimal `db:"cost_price" json:"cost_price"`
	ImageURL     *string          `db:"image_url" json:"image_url"`
	IsActive     bool             `db:"is_active" json:"is_active"`
	Category     *Category        `db:"-" json:"category,omitempty"` // Joined data
}
