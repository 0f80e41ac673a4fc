package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fahrez/warungpos-inventory-service/internal/apperrors"
	"github.com/fahrez/warungpos-inventory-service/internal/auth"
	"github.com/fahrez/warungpos-inventory-service/internal/model"
	"github.com/fahrez/warungpos-inventory-service/internal/stock/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubUseCase struct {
	commitSale  func(ctx context.Context, input *dto.SaleInput) (*dto.SaleResult, error)
	addStock    func(ctx context.Context, input *dto.AddStockInput) (*model.Batch, error)
	adjustBatch func(ctx context.Context, input *dto.AdjustBatchInput) (*model.Batch, error)
}

func (s *stubUseCase) CommitSale(ctx context.Context, input *dto.SaleInput) (*dto.SaleResult, error) {
	return s.commitSale(ctx, input)
}

func (s *stubUseCase) AddStock(ctx context.Context, input *dto.AddStockInput) (*model.Batch, error) {
	return s.addStock(ctx, input)
}

func (s *stubUseCase) AdjustBatch(ctx context.Context, input *dto.AdjustBatchInput) (*model.Batch, error) {
	return s.adjustBatch(ctx, input)
}

func (s *stubUseCase) ProductStock(ctx context.Context, productID string) (*dto.ProductStock, error) {
	return nil, apperrors.NewNotFound("product", productID)
}

func (s *stubUseCase) ListMovements(ctx context.Context, f *dto.MovementFilters) ([]model.StockMovement, int, error) {
	return nil, 0, nil
}

func (s *stubUseCase) Reconcile(ctx context.Context, productID string) (*dto.ReconciliationReport, error) {
	return &dto.ReconciliationReport{ProductID: productID, Clean: true}, nil
}

func setupRouter(uc *stubUseCase) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(auth.Identity())
	h := NewStockHandler(uc, zap.NewNop())
	h.RegisterRoutes(r.Group("/api/v1"))
	return r
}

func TestCommitSaleEndpoint(t *testing.T) {
	uc := &stubUseCase{
		commitSale: func(ctx context.Context, input *dto.SaleInput) (*dto.SaleResult, error) {
			assert.Equal(t, "u1", input.ActorID)
			require.Len(t, input.Items, 1)
			assert.Equal(t, "p1", input.Items[0].ProductID)
			return &dto.SaleResult{Items: []dto.SaleItemResult{{ProductID: "p1", Quantity: 2}}}, nil
		},
	}
	r := setupRouter(uc)

	body := `{"items":[{"product_id":"p1","quantity":2}],"note":"receipt #7"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sales", strings.NewReader(body))
	req.Header.Set("X-User-ID", "u1")
	req.Header.Set("X-User-Role", auth.RoleCashier)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var result dto.SaleResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	require.Len(t, result.Items, 1)
	assert.Equal(t, int64(2), result.Items[0].Quantity)
}

func TestCommitSaleInsufficientStockPayload(t *testing.T) {
	uc := &stubUseCase{
		commitSale: func(ctx context.Context, input *dto.SaleInput) (*dto.SaleResult, error) {
			return nil, apperrors.NewInsufficientStock("p1", "Milk", 10, 7)
		},
	}
	r := setupRouter(uc)

	body := `{"items":[{"product_id":"p1","quantity":10}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sales", strings.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	assert.Equal(t, apperrors.CodeInsufficientStock, payload["error"])
	assert.Equal(t, "p1", payload["product_id"])
	assert.Equal(t, float64(3), payload["shortfall"])
}

func TestCommitSaleConflictStatus(t *testing.T) {
	uc := &stubUseCase{
		commitSale: func(ctx context.Context, input *dto.SaleInput) (*dto.SaleResult, error) {
			return nil, apperrors.NewConcurrencyConflict("could not lock product p1")
		},
	}
	r := setupRouter(uc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sales",
		strings.NewReader(`{"items":[{"product_id":"p1","quantity":1}]}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCommitSaleMalformedBody(t *testing.T) {
	uc := &stubUseCase{}
	r := setupRouter(uc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sales", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInternalErrorHidesDetails(t *testing.T) {
	uc := &stubUseCase{
		addStock: func(ctx context.Context, input *dto.AddStockInput) (*model.Batch, error) {
			return nil, apperrors.NewPersistenceFailure(assert.AnError)
		},
	}
	r := setupRouter(uc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/stock",
		strings.NewReader(`{"product_id":"p1","quantity":5}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), assert.AnError.Error())
}

func TestAdjustBatchRequiresAdmin(t *testing.T) {
	called := false
	uc := &stubUseCase{
		adjustBatch: func(ctx context.Context, input *dto.AdjustBatchInput) (*model.Batch, error) {
			called = true
			assert.Equal(t, "b1", input.BatchID)
			return &model.Batch{BaseModel: model.BaseModel{ID: "b1"}, Quantity: input.NewQuantity}, nil
		},
	}
	r := setupRouter(uc)

	body := `{"new_quantity":4,"note":"stocktake"}`

	req := httptest.NewRequest(http.MethodPost, "/api/v1/batches/b1/adjust", strings.NewReader(body))
	req.Header.Set("X-User-Role", auth.RoleCashier)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.False(t, called)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/batches/b1/adjust", strings.NewReader(body))
	req.Header.Set("X-User-Role", auth.RoleAdmin)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, called)
}

func TestProductStockNotFound(t *testing.T) {
	r := setupRouter(&stubUseCase{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/ghost/stock", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
