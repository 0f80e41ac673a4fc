package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

type CreateProductInput struct {
	CategoryID   string          `json:"category_id"`
	SKU          string          `json:"sku"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Unit         string          `json:"unit"`
	Perishable   bool            `json:"perishable"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	CostPrice    decimal.Decimal `json:"cost_price"`
	ImageURL     string          `json:"image_url"`

	// Optional opening stock; when set, creation also receives the first
	// batch (IN movement).
	InitialQuantity int64      `json:"initial_quantity"`
	ExpiresAt       *time.Time `json:"expires_at"`

	ActorID string `json:"-"`
}

type UpdateProductInput struct {
	ID           string          `json:"-"`
	CategoryID   string          `json:"category_id"`
	SKU          string          `json:"sku"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Unit         string          `json:"unit"`
	Perishable   bool            `json:"perishable"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	CostPrice    decimal.Decimal `json:"cost_price"`
	ImageURL     string          `json:"image_url"`
	IsActive     bool            `json:"is_active"`

	ActorID string `json:"-"`
}
