package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/fahrez/warungpos-inventory-service/internal/apperrors"
	"github.com/fahrez/warungpos-inventory-service/internal/model"
	"github.com/fahrez/warungpos-inventory-service/internal/stock"
	"github.com/fahrez/warungpos-inventory-service/internal/stock/dto"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

// pgTx wraps sqlx.Tx behind the stock.Tx interface.
type pgTx struct {
	tx *sqlx.Tx
}

func (t *pgTx) Commit() error {
	return wrapPG(t.tx.Commit())
}

func (t *pgTx) Rollback() error {
	return t.tx.Rollback()
}

func (r *PGRepository) BeginTx(ctx context.Context) (stock.Tx, error) {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return nil, wrapPG(err)
	}
	return &pgTx{tx: tx}, nil
}

func unwrap(tx stock.Tx) *sqlx.Tx {
	return tx.(*pgTx).tx
}

// wrapPG translates driver errors into the application taxonomy.
// Serialization and deadlock failures become retryable conflicts, everything
// else a persistence failure.
func wrapPG(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return apperrors.NewConcurrencyConflict(pqErr.Message)
		}
	}
	return apperrors.NewPersistenceFailure(err)
}

func (r *PGRepository) ProductByID(ctx context.Context, id string) (*model.Product, error) {
	var product model.Product
	query := `SELECT * FROM products WHERE id = $1 LIMIT 1`
	err := r.DB.GetContext(ctx, &product, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapPG(err)
	}
	return &product, nil
}

func (r *PGRepository) BatchesByProduct(ctx context.Context, productID string) ([]model.Batch, error) {
	var batches []model.Batch
	query := `SELECT * FROM batches WHERE product_id = $1 ORDER BY received_at ASC, id ASC`
	if err := r.DB.SelectContext(ctx, &batches, query, productID); err != nil {
		return nil, wrapPG(err)
	}
	return batches, nil
}

// AvailableBatchesForUpdate loads the consumable batches of a product with
// row locks. Rows are locked in id order regardless of consumption policy to
// keep concurrent sales from deadlocking; the allocator re-orders the result.
func (r *PGRepository) AvailableBatchesForUpdate(ctx context.Context, tx stock.Tx, productID string) ([]model.Batch, error) {
	var batches []model.Batch
	query := `
        SELECT * FROM batches
        WHERE product_id = $1 AND status = $2 AND quantity > 0
        ORDER BY id ASC
        FOR UPDATE
    `
	if err := unwrap(tx).SelectContext(ctx, &batches, query, productID, model.BatchAvailable); err != nil {
		return nil, wrapPG(err)
	}
	return batches, nil
}

func (r *PGRepository) BatchByIDForUpdate(ctx context.Context, tx stock.Tx, id string) (*model.Batch, error) {
	var batch model.Batch
	query := `SELECT * FROM batches WHERE id = $1 FOR UPDATE`
	err := unwrap(tx).GetContext(ctx, &batch, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapPG(err)
	}
	return &batch, nil
}

func (r *PGRepository) InsertBatch(ctx context.Context, tx stock.Tx, b *model.Batch) error {
	query := `
        INSERT INTO batches (id, product_id, quantity, cost_basis, received_at, expires_at, status, created_at, updated_at)
        VALUES (:id, :product_id, :quantity, :cost_basis, :received_at, :expires_at, :status, :created_at, :updated_at)
    `
	_, err := unwrap(tx).NamedExecContext(ctx, query, b)
	return wrapPG(err)
}

func (r *PGRepository) UpdateBatch(ctx context.Context, tx stock.Tx, b *model.Batch) error {
	query := `
        UPDATE batches
        SET quantity = :quantity, status = :status, updated_at = :updated_at
        WHERE id = :id
    `
	res, err := unwrap(tx).NamedExecContext(ctx, query, b)
	if err != nil {
		return wrapPG(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return wrapPG(err)
	}
	if affected == 0 {
		return apperrors.NewPersistenceFailure(fmt.Errorf("batch %s not updated", b.ID))
	}
	return nil
}

func (r *PGRepository) InsertMovement(ctx context.Context, tx stock.Tx, m *model.StockMovement) error {
	query := `
        INSERT INTO stock_movements (id, product_id, batch_id, kind, quantity_change, quantity_before, quantity_after, note, created_by, created_at)
        VALUES (:id, :product_id, :batch_id, :kind, :quantity_change, :quantity_before, :quantity_after, :note, :created_by, :created_at)
    `
	_, err := unwrap(tx).NamedExecContext(ctx, query, m)
	return wrapPG(err)
}

func (r *PGRepository) ListMovements(ctx context.Context, f *dto.MovementFilters) ([]model.StockMovement, int, error) {
	var movements []model.StockMovement
	var count int

	conditions := []string{}
	args := map[string]interface{}{}

	if f.ProductID != "" {
		conditions = append(conditions, "product_id = :product_id")
		args["product_id"] = f.ProductID
	}
	if f.BatchID != "" {
		conditions = append(conditions, "batch_id = :batch_id")
		args["batch_id"] = f.BatchID
	}
	if f.Kind != "" {
		conditions = append(conditions, "kind = :kind")
		args["kind"] = f.Kind
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := "SELECT count(*) FROM stock_movements" + whereClause
	rows, err := r.DB.NamedQueryContext(ctx, countQuery, args)
	if err != nil {
		return nil, 0, wrapPG(err)
	}
	defer rows.Close()
	if rows.Next() {
		rows.Scan(&count)
	}

	query := "SELECT * FROM stock_movements" + whereClause + " ORDER BY created_at DESC, id DESC"
	if f.PageSize > 0 {
		offset := (f.Page - 1) * f.PageSize
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, offset)
	}

	nstmt, err := r.DB.PrepareNamedContext(ctx, query)
	if err != nil {
		return nil, 0, wrapPG(err)
	}
	defer nstmt.Close()

	if err := nstmt.SelectContext(ctx, &movements, args); err != nil {
		return nil, 0, wrapPG(err)
	}
	return movements, count, nil
}

func (r *PGRepository) MovementSums(ctx context.Context, productID string) (map[string]int64, error) {
	rows, err := r.DB.QueryxContext(ctx, `
        SELECT batch_id, COALESCE(SUM(quantity_change), 0)
        FROM stock_movements
        WHERE product_id = $1
        GROUP BY batch_id
    `, productID)
	if err != nil {
		return nil, wrapPG(err)
	}
	defer rows.Close()

	sums := map[string]int64{}
	for rows.Next() {
		var batchID string
		var sum int64
		if err := rows.Scan(&batchID, &sum); err != nil {
			return nil, wrapPG(err)
		}
		sums[batchID] = sum
	}
	return sums, wrapPG(rows.Err())
}
