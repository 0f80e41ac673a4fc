package usecase

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/fahrez/warungpos-inventory-service/internal/apperrors"
	"github.com/fahrez/warungpos-inventory-service/internal/audit"
	"github.com/fahrez/warungpos-inventory-service/internal/model"
	"github.com/fahrez/warungpos-inventory-service/internal/stock"
	"github.com/fahrez/warungpos-inventory-service/internal/stock/dto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeRepo keeps committed state in maps and stages every transactional
// write in a fakeTx, so rollback semantics match a real database: nothing
// staged is visible until Commit copies it over.
type fakeRepo struct {
	products  map[string]*model.Product
	batches   map[string]model.Batch
	movements []model.StockMovement

	updates       int // UpdateBatch calls across all transactions
	failOnUpdate  int // 1-based call number that fails, 0 = never
	conflictsLeft int // Commits to fail with a conflict before succeeding
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		products: map[string]*model.Product{},
		batches:  map[string]model.Batch{},
	}
}

type fakeTx struct {
	repo      *fakeRepo
	batches   map[string]model.Batch
	movements []model.StockMovement
}

func (t *fakeTx) Commit() error {
	if t.repo.conflictsLeft > 0 {
		t.repo.conflictsLeft--
		return apperrors.NewConcurrencyConflict("simulated write collision")
	}
	for id, b := range t.batches {
		t.repo.batches[id] = b
	}
	t.repo.movements = append(t.repo.movements, t.movements...)
	t.batches = nil
	t.movements = nil
	return nil
}

func (t *fakeTx) Rollback() error { return nil }

func (r *fakeRepo) BeginTx(ctx context.Context) (stock.Tx, error) {
	staged := make(map[string]model.Batch, len(r.batches))
	for id, b := range r.batches {
		staged[id] = b
	}
	return &fakeTx{repo: r, batches: staged}, nil
}

func (r *fakeRepo) ProductByID(ctx context.Context, id string) (*model.Product, error) {
	return r.products[id], nil
}

func (r *fakeRepo) BatchesByProduct(ctx context.Context, productID string) ([]model.Batch, error) {
	var out []model.Batch
	for _, b := range r.batches {
		if b.ProductID == productID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeRepo) ListMovements(ctx context.Context, f *dto.MovementFilters) ([]model.StockMovement, int, error) {
	var out []model.StockMovement
	for _, m := range r.movements {
		if f.ProductID != "" && m.ProductID != f.ProductID {
			continue
		}
		if f.BatchID != "" && m.BatchID != f.BatchID {
			continue
		}
		if f.Kind != "" && string(m.Kind) != f.Kind {
			continue
		}
		out = append(out, m)
	}
	return out, len(out), nil
}

func (r *fakeRepo) MovementSums(ctx context.Context, productID string) (map[string]int64, error) {
	sums := map[string]int64{}
	for _, m := range r.movements {
		if m.ProductID == productID {
			sums[m.BatchID] += m.QuantityChange
		}
	}
	return sums, nil
}

func (r *fakeRepo) AvailableBatchesForUpdate(ctx context.Context, tx stock.Tx, productID string) ([]model.Batch, error) {
	t := tx.(*fakeTx)
	var out []model.Batch
	for _, b := range t.batches {
		if b.ProductID == productID && b.Status == model.BatchAvailable && b.Quantity > 0 {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeRepo) BatchByIDForUpdate(ctx context.Context, tx stock.Tx, id string) (*model.Batch, error) {
	t := tx.(*fakeTx)
	if b, ok := t.batches[id]; ok {
		return &b, nil
	}
	return nil, nil
}

func (r *fakeRepo) InsertBatch(ctx context.Context, tx stock.Tx, b *model.Batch) error {
	tx.(*fakeTx).batches[b.ID] = *b
	return nil
}

func (r *fakeRepo) UpdateBatch(ctx context.Context, tx stock.Tx, b *model.Batch) error {
	r.updates++
	if r.failOnUpdate > 0 && r.updates == r.failOnUpdate {
		return apperrors.NewPersistenceFailure(errors.New("simulated storage failure"))
	}
	tx.(*fakeTx).batches[b.ID] = *b
	return nil
}

func (r *fakeRepo) InsertMovement(ctx context.Context, tx stock.Tx, m *model.StockMovement) error {
	t := tx.(*fakeTx)
	t.movements = append(t.movements, *m)
	return nil
}

type noopLocker struct{}

func (noopLocker) AcquireLock(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return true, nil
}
func (noopLocker) ReleaseLock(ctx context.Context, key, value string) error { return nil }

type captureRecorder struct {
	entries []audit.Entry
	fail    bool
}

func (r *captureRecorder) Record(ctx context.Context, entries []audit.Entry) error {
	if r.fail {
		return errors.New("audit sink down")
	}
	r.entries = append(r.entries, entries...)
	return nil
}

func addProduct(r *fakeRepo, id, name string, perishable bool) {
	r.products[id] = &model.Product{
		BaseModel:  model.BaseModel{ID: id},
		Name:       name,
		Perishable: perishable,
		IsActive:   true,
	}
}

func addBatch(r *fakeRepo, id, productID string, qty int64, receivedAt time.Time, expiresAt *time.Time) {
	b := model.Batch{
		BaseModel:  model.BaseModel{ID: id},
		ProductID:  productID,
		Quantity:   qty,
		CostBasis:  decimal.NewFromInt(100),
		ReceivedAt: receivedAt,
		ExpiresAt:  expiresAt,
	}
	b.Refresh(time.Now())
	r.batches[id] = b
}

func newUC(r *fakeRepo, rec audit.Recorder) stock.UseCase {
	return NewStockUseCase(r, rec, noopLocker{}, zap.NewNop())
}

func timePtr(t time.Time) *time.Time { return &t }

func TestCommitSaleWorkedExample(t *testing.T) {
	// Perishable product, batch X (10, expires sooner) and Y (10, later).
	// Selling 15 takes all of X and 5 of Y.
	repo := newFakeRepo()
	rec := &captureRecorder{}
	addProduct(repo, "p1", "Milk", true)
	now := time.Now()
	addBatch(repo, "x", "p1", 10, now.AddDate(0, 0, -2), timePtr(now.AddDate(0, 0, 5)))
	addBatch(repo, "y", "p1", 10, now.AddDate(0, 0, -1), timePtr(now.AddDate(0, 0, 10)))

	uc := newUC(repo, rec)
	result, err := uc.CommitSale(context.Background(), &dto.SaleInput{
		Items:   []dto.SaleItem{{ProductID: "p1", Quantity: 15}},
		Note:    "receipt #42",
		ActorID: "u1",
	})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	require.Len(t, result.Items[0].Movements, 2)

	first, second := result.Items[0].Movements[0], result.Items[0].Movements[1]
	assert.Equal(t, "x", first.BatchID)
	assert.Equal(t, model.MovementOut, first.Kind)
	assert.Equal(t, int64(-10), first.QuantityChange)
	assert.Equal(t, int64(10), first.QuantityBefore)
	assert.Equal(t, int64(0), first.QuantityAfter)

	assert.Equal(t, "y", second.BatchID)
	assert.Equal(t, int64(-5), second.QuantityChange)

	assert.Equal(t, int64(0), repo.batches["x"].Quantity)
	assert.Equal(t, model.BatchSoldOut, repo.batches["x"].Status)
	assert.Equal(t, int64(5), repo.batches["y"].Quantity)
	assert.Equal(t, model.BatchAvailable, repo.batches["y"].Status)

	require.Len(t, rec.entries, 2)
	assert.Equal(t, "stock.OUT", rec.entries[0].Action)
	assert.Equal(t, "batch", rec.entries[0].EntityType)
	assert.Equal(t, "u1", rec.entries[0].ActorID)
}

func TestCommitSaleInsufficientStockLeavesStateUntouched(t *testing.T) {
	repo := newFakeRepo()
	addProduct(repo, "p1", "Rice", false)
	addBatch(repo, "b1", "p1", 7, time.Now(), nil)

	uc := newUC(repo, &captureRecorder{})
	_, err := uc.CommitSale(context.Background(), &dto.SaleInput{
		Items: []dto.SaleItem{{ProductID: "p1", Quantity: 10}},
	})

	var stockErr *apperrors.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "p1", stockErr.ProductID)
	assert.Equal(t, int64(3), stockErr.Shortfall())

	assert.Equal(t, int64(7), repo.batches["b1"].Quantity)
	assert.Empty(t, repo.movements)
}

func TestCommitSaleMultiProductAllOrNothing(t *testing.T) {
	// Product A could be satisfied, B cannot; the whole sale is rejected and
	// A's batches stay untouched.
	repo := newFakeRepo()
	addProduct(repo, "a", "Sugar", false)
	addProduct(repo, "b", "Flour", false)
	addBatch(repo, "ba", "a", 20, time.Now(), nil)
	addBatch(repo, "bb", "b", 1, time.Now(), nil)

	uc := newUC(repo, &captureRecorder{})
	_, err := uc.CommitSale(context.Background(), &dto.SaleInput{
		Items: []dto.SaleItem{
			{ProductID: "a", Quantity: 5},
			{ProductID: "b", Quantity: 5},
		},
	})

	var stockErr *apperrors.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "b", stockErr.ProductID)

	assert.Equal(t, int64(20), repo.batches["ba"].Quantity)
	assert.Equal(t, int64(1), repo.batches["bb"].Quantity)
	assert.Empty(t, repo.movements)
}

func TestCommitSaleRollsBackOnStorageFailure(t *testing.T) {
	// Three batches in the plan; the second update blows up. No batch and no
	// movement may survive.
	repo := newFakeRepo()
	addProduct(repo, "p1", "Rice", false)
	base := time.Now()
	addBatch(repo, "b1", "p1", 5, base.AddDate(0, 0, -3), nil)
	addBatch(repo, "b2", "p1", 5, base.AddDate(0, 0, -2), nil)
	addBatch(repo, "b3", "p1", 5, base.AddDate(0, 0, -1), nil)
	repo.failOnUpdate = 2

	uc := newUC(repo, &captureRecorder{})
	_, err := uc.CommitSale(context.Background(), &dto.SaleInput{
		Items: []dto.SaleItem{{ProductID: "p1", Quantity: 13}},
	})

	require.Error(t, err)
	assert.Equal(t, apperrors.CodePersistenceFailure, apperrors.CodeOf(err))

	for _, id := range []string{"b1", "b2", "b3"} {
		assert.Equal(t, int64(5), repo.batches[id].Quantity, "batch %s must be untouched", id)
	}
	assert.Empty(t, repo.movements)
}

func TestCommitSaleAuditFailureDoesNotFailSale(t *testing.T) {
	repo := newFakeRepo()
	rec := &captureRecorder{fail: true}
	addProduct(repo, "p1", "Rice", false)
	addBatch(repo, "b1", "p1", 10, time.Now(), nil)

	uc := newUC(repo, rec)
	result, err := uc.CommitSale(context.Background(), &dto.SaleInput{
		Items: []dto.SaleItem{{ProductID: "p1", Quantity: 4}},
	})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)

	// The committed movement stays committed.
	assert.Len(t, repo.movements, 1)
	assert.Equal(t, int64(6), repo.batches["b1"].Quantity)
}

func TestCommitSaleRetriesConflictThenSucceeds(t *testing.T) {
	repo := newFakeRepo()
	addProduct(repo, "p1", "Rice", false)
	addBatch(repo, "b1", "p1", 10, time.Now(), nil)
	repo.conflictsLeft = 1

	uc := newUC(repo, &captureRecorder{})
	_, err := uc.CommitSale(context.Background(), &dto.SaleInput{
		Items: []dto.SaleItem{{ProductID: "p1", Quantity: 4}},
	})
	require.NoError(t, err)

	// The failed attempt left nothing behind; only the retry's writes exist.
	assert.Len(t, repo.movements, 1)
	assert.Equal(t, int64(6), repo.batches["b1"].Quantity)
}

func TestCommitSaleConflictRetriesExhausted(t *testing.T) {
	repo := newFakeRepo()
	addProduct(repo, "p1", "Rice", false)
	addBatch(repo, "b1", "p1", 10, time.Now(), nil)
	repo.conflictsLeft = 10

	uc := newUC(repo, &captureRecorder{})
	_, err := uc.CommitSale(context.Background(), &dto.SaleInput{
		Items: []dto.SaleItem{{ProductID: "p1", Quantity: 4}},
	})

	require.Error(t, err)
	assert.Equal(t, apperrors.CodeConcurrencyConflict, apperrors.CodeOf(err))
	assert.Empty(t, repo.movements)
	assert.Equal(t, int64(10), repo.batches["b1"].Quantity)
}

func TestCommitSaleRejectsBadInput(t *testing.T) {
	repo := newFakeRepo()
	addProduct(repo, "p1", "Rice", false)
	uc := newUC(repo, &captureRecorder{})

	_, err := uc.CommitSale(context.Background(), &dto.SaleInput{})
	assert.Equal(t, apperrors.CodeInvalidRequest, apperrors.CodeOf(err))

	_, err = uc.CommitSale(context.Background(), &dto.SaleInput{
		Items: []dto.SaleItem{{ProductID: "p1", Quantity: 0}},
	})
	assert.Equal(t, apperrors.CodeInvalidRequest, apperrors.CodeOf(err))

	_, err = uc.CommitSale(context.Background(), &dto.SaleInput{
		Items: []dto.SaleItem{{ProductID: "ghost", Quantity: 1}},
	})
	assert.Equal(t, apperrors.CodeInvalidRequest, apperrors.CodeOf(err))
}

func TestAddStockCreatesBatchWithInMovement(t *testing.T) {
	repo := newFakeRepo()
	rec := &captureRecorder{}
	addProduct(repo, "p1", "Milk", true)

	uc := newUC(repo, rec)
	expiry := time.Now().AddDate(0, 0, 14)
	batch, err := uc.AddStock(context.Background(), &dto.AddStockInput{
		ProductID: "p1",
		Quantity:  25,
		CostBasis: decimal.NewFromInt(150),
		ExpiresAt: &expiry,
		Note:      "weekly delivery",
		ActorID:   "u1",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(25), batch.Quantity)
	assert.Equal(t, model.BatchAvailable, batch.Status)

	require.Len(t, repo.movements, 1)
	m := repo.movements[0]
	assert.Equal(t, model.MovementIn, m.Kind)
	assert.Equal(t, int64(25), m.QuantityChange)
	assert.Equal(t, int64(0), m.QuantityBefore)
	assert.Equal(t, int64(25), m.QuantityAfter)
	assert.Equal(t, batch.ID, m.BatchID)

	require.Len(t, rec.entries, 1)
	assert.Equal(t, "stock.IN", rec.entries[0].Action)

	_, err = uc.AddStock(context.Background(), &dto.AddStockInput{ProductID: "p1", Quantity: 0})
	assert.Equal(t, apperrors.CodeInvalidRequest, apperrors.CodeOf(err))

	_, err = uc.AddStock(context.Background(), &dto.AddStockInput{ProductID: "ghost", Quantity: 1})
	assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeOf(err))
}

func TestAdjustBatchWritesSignedDelta(t *testing.T) {
	repo := newFakeRepo()
	addProduct(repo, "p1", "Rice", false)
	addBatch(repo, "b1", "p1", 10, time.Now(), nil)

	uc := newUC(repo, &captureRecorder{})
	batch, err := uc.AdjustBatch(context.Background(), &dto.AdjustBatchInput{
		BatchID:     "b1",
		NewQuantity: 4,
		Note:        "stocktake correction",
		ActorID:     "u1",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(4), batch.Quantity)

	require.Len(t, repo.movements, 1)
	m := repo.movements[0]
	assert.Equal(t, model.MovementAdjustment, m.Kind)
	assert.Equal(t, int64(-6), m.QuantityChange)
	assert.Equal(t, int64(10), m.QuantityBefore)
	assert.Equal(t, int64(4), m.QuantityAfter)

	// Adjusting to the same quantity is a no-op, not a ledger row.
	_, err = uc.AdjustBatch(context.Background(), &dto.AdjustBatchInput{BatchID: "b1", NewQuantity: 4})
	require.NoError(t, err)
	assert.Len(t, repo.movements, 1)

	_, err = uc.AdjustBatch(context.Background(), &dto.AdjustBatchInput{BatchID: "b1", NewQuantity: -1})
	assert.Equal(t, apperrors.CodeInvalidRequest, apperrors.CodeOf(err))

	_, err = uc.AdjustBatch(context.Background(), &dto.AdjustBatchInput{BatchID: "ghost", NewQuantity: 1})
	assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeOf(err))
}

func TestAdjustBatchToZeroMarksSoldOut(t *testing.T) {
	repo := newFakeRepo()
	addProduct(repo, "p1", "Rice", false)
	addBatch(repo, "b1", "p1", 3, time.Now(), nil)

	uc := newUC(repo, &captureRecorder{})
	batch, err := uc.AdjustBatch(context.Background(), &dto.AdjustBatchInput{BatchID: "b1", NewQuantity: 0})
	require.NoError(t, err)
	assert.Equal(t, model.BatchSoldOut, batch.Status)
	assert.Equal(t, model.BatchSoldOut, repo.batches["b1"].Status)
}

func TestReconcileAfterCommits(t *testing.T) {
	repo := newFakeRepo()
	addProduct(repo, "p1", "Milk", true)

	uc := newUC(repo, &captureRecorder{})
	batch, err := uc.AddStock(context.Background(), &dto.AddStockInput{
		ProductID: "p1",
		Quantity:  20,
		CostBasis: decimal.NewFromInt(100),
	})
	require.NoError(t, err)

	_, err = uc.CommitSale(context.Background(), &dto.SaleInput{
		Items: []dto.SaleItem{{ProductID: "p1", Quantity: 8}},
	})
	require.NoError(t, err)

	report, err := uc.Reconcile(context.Background(), "p1")
	require.NoError(t, err)
	assert.True(t, report.Clean)
	require.Len(t, report.Entries, 1)
	assert.Equal(t, int64(12), report.Entries[0].LedgerSum)
	assert.Equal(t, int64(12), report.Entries[0].Remaining)

	// Tampering with the batch outside the ledger shows up as drift.
	b := repo.batches[batch.ID]
	b.Quantity = 99
	repo.batches[batch.ID] = b

	report, err = uc.Reconcile(context.Background(), "p1")
	require.NoError(t, err)
	assert.False(t, report.Clean)
	assert.Equal(t, int64(87), report.Entries[0].Drift)
}

func TestProductStockSumsOnlyAvailableBatches(t *testing.T) {
	repo := newFakeRepo()
	addProduct(repo, "p1", "Milk", true)
	now := time.Now()
	addBatch(repo, "avail", "p1", 10, now, timePtr(now.AddDate(0, 0, 5)))
	addBatch(repo, "expired", "p1", 8, now, timePtr(now.AddDate(0, 0, -1)))
	addBatch(repo, "empty", "p1", 0, now, nil)

	uc := newUC(repo, &captureRecorder{})
	result, err := uc.ProductStock(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(10), result.OnHand)
	assert.Len(t, result.Batches, 3)
}
