package stock

import (
	"context"
	"time"

	"github.com/fahrez/warungpos-inventory-service/internal/model"
	"github.com/fahrez/warungpos-inventory-service/internal/stock/dto"
)

// Tx is one atomic unit of batch updates and ledger appends. Either every
// write made through it persists on Commit, or none does.
type Tx interface {
	Commit() error
	Rollback() error
}

type Repository interface {
	BeginTx(ctx context.Context) (Tx, error)

	// Reads outside a transaction.
	ProductByID(ctx context.Context, id string) (*model.Product, error)
	BatchesByProduct(ctx context.Context, productID string) ([]model.Batch, error)
	ListMovements(ctx context.Context, f *dto.MovementFilters) ([]model.StockMovement, int, error)
	// MovementSums returns, per batch of the product, the sum of signed
	// movement quantities. Used for the reconciliation check.
	MovementSums(ctx context.Context, productID string) (map[string]int64, error)

	// Writes and locking reads inside a transaction.
	AvailableBatchesForUpdate(ctx context.Context, tx Tx, productID string) ([]model.Batch, error)
	BatchByIDForUpdate(ctx context.Context, tx Tx, id string) (*model.Batch, error)
	InsertBatch(ctx context.Context, tx Tx, b *model.Batch) error
	UpdateBatch(ctx context.Context, tx Tx, b *model.Batch) error
	InsertMovement(ctx context.Context, tx Tx, m *model.StockMovement) error
}

// Locker serializes sale commits per product across instances.
type Locker interface {
	AcquireLock(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key, value string) error
}
