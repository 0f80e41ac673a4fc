package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/fahrez/warungpos-inventory-service/internal/apperrors"
	"github.com/fahrez/warungpos-inventory-service/internal/auth"
	"github.com/fahrez/warungpos-inventory-service/internal/product"
	"github.com/fahrez/warungpos-inventory-service/internal/product/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ProductHandler struct {
	uc     product.UseCase
	logger *zap.Logger
}

func NewProductHandler(uc product.UseCase, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{uc: uc, logger: logger}
}

func (h *ProductHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/products", auth.RequireRole(auth.RoleAdmin), h.Create)
	rg.GET("/products", h.List)
	rg.GET("/products/:id", h.Get)
	rg.PUT("/products/:id", auth.RequireRole(auth.RoleAdmin), h.Update)
	rg.DELETE("/products/:id", auth.RequireRole(auth.RoleAdmin), h.Deactivate)
}

func (h *ProductHandler) Create(c *gin.Context) {
	var input dto.CreateProductInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.respondError(c, apperrors.NewInvalidRequest("invalid request body", err.Error()))
		return
	}
	input.ActorID = auth.ActorID(c)

	p, err := h.uc.CreateProduct(c.Request.Context(), &input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *ProductHandler) Get(c *gin.Context) {
	p, err := h.uc.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *ProductHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	filters := &dto.ProductFilters{
		CategoryID:  c.Query("category_id"),
		SearchQuery: c.Query("q"),
		SortBy:      c.Query("sort_by"),
		SortOrder:   c.Query("sort_order"),
		Page:        page,
		PageSize:    pageSize,
	}
	if v, ok := c.GetQuery("is_active"); ok {
		active := v == "true"
		filters.IsActive = &active
	}

	products, total, err := h.uc.ListProducts(c.Request.Context(), filters)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products, "total": total})
}

func (h *ProductHandler) Update(c *gin.Context) {
	var input dto.UpdateProductInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.respondError(c, apperrors.NewInvalidRequest("invalid request body", err.Error()))
		return
	}
	input.ID = c.Param("id")
	input.ActorID = auth.ActorID(c)

	p, err := h.uc.UpdateProduct(c.Request.Context(), &input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *ProductHandler) Deactivate(c *gin.Context) {
	if err := h.uc.DeactivateProduct(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ProductHandler) respondError(c *gin.Context, err error) {
	status := apperrors.HTTPStatusOf(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(status, gin.H{"error": apperrors.CodePersistenceFailure, "message": "internal error"})
		return
	}

	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		c.JSON(status, appErr)
		return
	}
	c.JSON(status, gin.H{"error": apperrors.CodeOf(err), "message": err.Error()})
}
