package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/fahrez/warungpos-inventory-service/internal/apperrors"
	"github.com/fahrez/warungpos-inventory-service/internal/audit"
	"github.com/fahrez/warungpos-inventory-service/internal/model"
	"github.com/fahrez/warungpos-inventory-service/internal/stock"
	"github.com/fahrez/warungpos-inventory-service/internal/stock/dto"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	lockTTL          = 5 * time.Second
	lockAttempts     = 3
	lockRetryDelay   = 100 * time.Millisecond
	maxCommitRetries = 3
)

type stockUseCase struct {
	repo        stock.Repository
	coordinator *stock.Coordinator
	recorder    audit.Recorder
	locker      stock.Locker
	logger      *zap.Logger
}

func NewStockUseCase(repo stock.Repository, recorder audit.Recorder, locker stock.Locker, logger *zap.Logger) stock.UseCase {
	return &stockUseCase{
		repo:        repo,
		coordinator: stock.NewCoordinator(repo),
		recorder:    recorder,
		locker:      locker,
		logger:      logger,
	}
}

func (uc *stockUseCase) CommitSale(ctx context.Context, input *dto.SaleInput) (*dto.SaleResult, error) {
	if len(input.Items) == 0 {
		return nil, apperrors.NewInvalidRequest("sale has no items", "")
	}
	for _, item := range input.Items {
		if item.Quantity <= 0 {
			return nil, apperrors.NewInvalidRequest(
				"quantity must be positive",
				fmt.Sprintf("product %s: %d", item.ProductID, item.Quantity),
			)
		}
	}

	// Resolve products up front: the allocator needs the perishable flag and
	// an unknown product rejects the sale before any stock is touched.
	products := make(map[string]*model.Product, len(input.Items))
	for _, item := range input.Items {
		if _, ok := products[item.ProductID]; ok {
			continue
		}
		p, err := uc.repo.ProductByID(ctx, item.ProductID)
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, apperrors.NewInvalidRequest("unknown product", "ID: "+item.ProductID)
		}
		products[item.ProductID] = p
	}

	release, err := uc.lockProducts(ctx, products)
	if err != nil {
		return nil, err
	}
	defer release()

	var result *dto.SaleResult
	var audits []audit.Entry
	err = uc.withRetry(func() error {
		var txErr error
		result, audits, txErr = uc.commitSaleTx(ctx, input, products)
		return txErr
	})
	if err != nil {
		return nil, err
	}

	uc.emitAudits(ctx, audits)
	return result, nil
}

// commitSaleTx runs one attempt of the whole sale inside a single
// transaction. Any failure on any item rolls back every item.
func (uc *stockUseCase) commitSaleTx(ctx context.Context, input *dto.SaleInput, products map[string]*model.Product) (*dto.SaleResult, []audit.Entry, error) {
	tx, err := uc.repo.BeginTx(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	now := time.Now()
	result := &dto.SaleResult{Items: make([]dto.SaleItemResult, 0, len(input.Items))}
	var audits []audit.Entry

	for _, item := range input.Items {
		product := products[item.ProductID]

		batches, err := uc.repo.AvailableBatchesForUpdate(ctx, tx, item.ProductID)
		if err != nil {
			return nil, nil, err
		}

		plan, err := stock.PlanAllocation(product, batches, item.Quantity, now)
		if err != nil {
			return nil, nil, err
		}

		applied, err := uc.coordinator.Apply(ctx, tx, stock.Deltas(plan), model.MovementOut, input.Note, input.ActorID, now)
		if err != nil {
			return nil, nil, err
		}

		result.Items = append(result.Items, dto.SaleItemResult{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Movements: applied.Movements,
		})
		audits = append(audits, applied.Audits...)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}
	return result, audits, nil
}

func (uc *stockUseCase) AddStock(ctx context.Context, input *dto.AddStockInput) (*model.Batch, error) {
	if input.Quantity <= 0 {
		return nil, apperrors.NewInvalidRequest("quantity must be positive", fmt.Sprintf("got %d", input.Quantity))
	}
	product, err := uc.repo.ProductByID(ctx, input.ProductID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, apperrors.NewNotFound("product", input.ProductID)
	}

	var batch *model.Batch
	var audits []audit.Entry
	err = uc.withRetry(func() error {
		tx, err := uc.repo.BeginTx(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		now := time.Now()
		b := &model.Batch{
			BaseModel:  model.BaseModel{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now},
			ProductID:  input.ProductID,
			Quantity:   0,
			CostBasis:  input.CostBasis,
			ReceivedAt: now,
			ExpiresAt:  input.ExpiresAt,
		}
		b.Refresh(now)
		if err := uc.repo.InsertBatch(ctx, tx, b); err != nil {
			return err
		}

		// The IN movement carries the full received quantity, so a fresh
		// batch reconciles like any other.
		applied, err := uc.coordinator.Apply(ctx, tx,
			[]stock.BatchDelta{{Batch: *b, Change: input.Quantity}},
			model.MovementIn, input.Note, input.ActorID, now)
		if err != nil {
			return err
		}

		if err := tx.Commit(); err != nil {
			return err
		}

		b.Quantity = input.Quantity
		b.Refresh(now)
		batch = b
		audits = applied.Audits
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.emitAudits(ctx, audits)
	return batch, nil
}

func (uc *stockUseCase) AdjustBatch(ctx context.Context, input *dto.AdjustBatchInput) (*model.Batch, error) {
	if input.NewQuantity < 0 {
		return nil, apperrors.NewInvalidRequest("quantity cannot be negative", fmt.Sprintf("got %d", input.NewQuantity))
	}

	var batch *model.Batch
	var audits []audit.Entry
	err := uc.withRetry(func() error {
		tx, err := uc.repo.BeginTx(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		b, err := uc.repo.BatchByIDForUpdate(ctx, tx, input.BatchID)
		if err != nil {
			return err
		}
		if b == nil {
			return apperrors.NewNotFound("batch", input.BatchID)
		}

		delta := input.NewQuantity - b.Quantity
		if delta == 0 {
			batch = b
			audits = nil
			return tx.Commit()
		}

		now := time.Now()
		applied, err := uc.coordinator.Apply(ctx, tx,
			[]stock.BatchDelta{{Batch: *b, Change: delta}},
			model.MovementAdjustment, input.Note, input.ActorID, now)
		if err != nil {
			return err
		}

		if err := tx.Commit(); err != nil {
			return err
		}

		b.Quantity = input.NewQuantity
		b.Refresh(now)
		b.UpdatedAt = now
		batch = b
		audits = applied.Audits
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.emitAudits(ctx, audits)
	return batch, nil
}

func (uc *stockUseCase) ProductStock(ctx context.Context, productID string) (*dto.ProductStock, error) {
	product, err := uc.repo.ProductByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, apperrors.NewNotFound("product", productID)
	}

	batches, err := uc.repo.BatchesByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var onHand int64
	for _, b := range batches {
		if b.DeriveStatus(now) == model.BatchAvailable {
			onHand += b.Quantity
		}
	}

	return &dto.ProductStock{Product: product, Batches: batches, OnHand: onHand}, nil
}

func (uc *stockUseCase) ListMovements(ctx context.Context, f *dto.MovementFilters) ([]model.StockMovement, int, error) {
	return uc.repo.ListMovements(ctx, f)
}

func (uc *stockUseCase) Reconcile(ctx context.Context, productID string) (*dto.ReconciliationReport, error) {
	product, err := uc.repo.ProductByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, apperrors.NewNotFound("product", productID)
	}

	sums, err := uc.repo.MovementSums(ctx, productID)
	if err != nil {
		return nil, err
	}
	batches, err := uc.repo.BatchesByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	report := &dto.ReconciliationReport{ProductID: productID, Clean: true}
	for _, b := range batches {
		entry := dto.ReconciliationEntry{
			BatchID:   b.ID,
			LedgerSum: sums[b.ID],
			Remaining: b.Quantity,
			Drift:     b.Quantity - sums[b.ID],
		}
		if entry.Drift != 0 {
			report.Clean = false
			uc.logger.Warn("stock ledger drift detected",
				zap.String("product_id", productID),
				zap.String("batch_id", b.ID),
				zap.Int64("drift", entry.Drift),
			)
		}
		report.Entries = append(report.Entries, entry)
	}

	return report, nil
}

// lockProducts takes the per-product advisory locks in sorted order to avoid
// deadlocking against a concurrent sale with overlapping products.
func (uc *stockUseCase) lockProducts(ctx context.Context, products map[string]*model.Product) (func(), error) {
	ids := make([]string, 0, len(products))
	for id := range products {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	token := uuid.New().String()
	var held []string
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			if err := uc.locker.ReleaseLock(ctx, held[i], token); err != nil {
				uc.logger.Error("failed to release stock lock", zap.String("key", held[i]), zap.Error(err))
			}
		}
	}

	for _, id := range ids {
		key := "lock:stock:" + id
		acquired := false
		for i := 0; i < lockAttempts; i++ {
			ok, err := uc.locker.AcquireLock(ctx, key, token, lockTTL)
			if err != nil {
				uc.logger.Error("failed to acquire stock lock", zap.String("key", key), zap.Error(err))
			}
			if ok {
				acquired = true
				break
			}
			time.Sleep(lockRetryDelay)
		}
		if !acquired {
			release()
			return nil, apperrors.NewConcurrencyConflict("could not lock product " + id)
		}
		held = append(held, key)
	}

	return release, nil
}

// withRetry re-runs fn on detected write conflicts, up to maxCommitRetries.
// Other errors pass through untouched.
func (uc *stockUseCase) withRetry(fn func() error) error {
	var err error
	for attempt := 0; attempt < maxCommitRetries; attempt++ {
		err = fn()
		if err == nil || apperrors.CodeOf(err) != apperrors.CodeConcurrencyConflict {
			return err
		}
		uc.logger.Warn("retrying after write conflict", zap.Int("attempt", attempt+1), zap.Error(err))
	}
	return err
}

func (uc *stockUseCase) emitAudits(ctx context.Context, entries []audit.Entry) {
	if len(entries) == 0 {
		return
	}
	if err := uc.recorder.Record(ctx, entries); err != nil {
		// Audit is bookkeeping: the business transaction already committed
		// and stays committed.
		uc.logger.Error("audit delivery failed", zap.Int("entries", len(entries)), zap.Error(err))
	}
}
