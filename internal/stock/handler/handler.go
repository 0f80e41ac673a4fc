package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/fahrez/warungpos-inventory-service/internal/apperrors"
	"github.com/fahrez/warungpos-inventory-service/internal/auth"
	"github.com/fahrez/warungpos-inventory-service/internal/stock"
	"github.com/fahrez/warungpos-inventory-service/internal/stock/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type StockHandler struct {
	uc     stock.UseCase
	logger *zap.Logger
}

func NewStockHandler(uc stock.UseCase, logger *zap.Logger) *StockHandler {
	return &StockHandler{uc: uc, logger: logger}
}

func (h *StockHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/sales", h.CommitSale)
	rg.POST("/stock", h.AddStock)
	rg.POST("/batches/:id/adjust", auth.RequireRole(auth.RoleAdmin), h.AdjustBatch)
	rg.GET("/products/:id/stock", h.ProductStock)
	rg.GET("/products/:id/reconciliation", auth.RequireRole(auth.RoleAdmin), h.Reconcile)
	rg.GET("/movements", h.ListMovements)
}

func (h *StockHandler) CommitSale(c *gin.Context) {
	var input dto.SaleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.respondError(c, apperrors.NewInvalidRequest("invalid request body", err.Error()))
		return
	}
	input.ActorID = auth.ActorID(c)

	result, err := h.uc.CommitSale(c.Request.Context(), &input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *StockHandler) AddStock(c *gin.Context) {
	var input dto.AddStockInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.respondError(c, apperrors.NewInvalidRequest("invalid request body", err.Error()))
		return
	}
	input.ActorID = auth.ActorID(c)

	batch, err := h.uc.AddStock(c.Request.Context(), &input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, batch)
}

func (h *StockHandler) AdjustBatch(c *gin.Context) {
	var input dto.AdjustBatchInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.respondError(c, apperrors.NewInvalidRequest("invalid request body", err.Error()))
		return
	}
	input.BatchID = c.Param("id")
	input.ActorID = auth.ActorID(c)

	batch, err := h.uc.AdjustBatch(c.Request.Context(), &input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, batch)
}

func (h *StockHandler) ProductStock(c *gin.Context) {
	result, err := h.uc.ProductStock(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *StockHandler) Reconcile(c *gin.Context) {
	report, err := h.uc.Reconcile(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *StockHandler) ListMovements(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	filters := &dto.MovementFilters{
		ProductID: c.Query("product_id"),
		BatchID:   c.Query("batch_id"),
		Kind:      c.Query("kind"),
		Page:      page,
		PageSize:  pageSize,
	}

	movements, total, err := h.uc.ListMovements(c.Request.Context(), filters)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"movements": movements, "total": total})
}

func (h *StockHandler) respondError(c *gin.Context, err error) {
	status := apperrors.HTTPStatusOf(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(status, gin.H{"error": apperrors.CodePersistenceFailure, "message": "internal error"})
		return
	}

	var stockErr *apperrors.InsufficientStockError
	if errors.As(err, &stockErr) {
		c.JSON(status, gin.H{
			"error":      stockErr.Code(),
			"message":    stockErr.Error(),
			"product_id": stockErr.ProductID,
			"shortfall":  stockErr.Shortfall(),
		})
		return
	}

	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		c.JSON(status, appErr)
		return
	}
	c.JSON(status, gin.H{"error": apperrors.CodeOf(err), "message": err.Error()})
}
