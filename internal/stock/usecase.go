package stock

import (
	"context"

	"github.com/fahrez/warungpos-inventory-service/internal/model"
	"github.com/fahrez/warungpos-inventory-service/internal/stock/dto"
)

type UseCase interface {
	// CommitSale removes stock for every sale item, all-or-nothing: if any
	// product cannot be satisfied the whole sale is rejected.
	CommitSale(ctx context.Context, input *dto.SaleInput) (*dto.SaleResult, error)

	// AddStock receives a new batch for a product (IN movement).
	AddStock(ctx context.Context, input *dto.AddStockInput) (*model.Batch, error)

	// AdjustBatch sets a batch's remaining quantity directly
	// (ADJUSTMENT movement with the signed delta).
	AdjustBatch(ctx context.Context, input *dto.AdjustBatchInput) (*model.Batch, error)

	ProductStock(ctx context.Context, productID string) (*dto.ProductStock, error)
	ListMovements(ctx context.Context, f *dto.MovementFilters) ([]model.StockMovement, int, error)
	Reconcile(ctx context.Context, productID string) (*dto.ReconciliationReport, error)
}
