package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/fahrez/warungpos-inventory-service/internal/apperrors"
	"github.com/fahrez/warungpos-inventory-service/internal/auth"
	"github.com/fahrez/warungpos-inventory-service/internal/category"
	"github.com/fahrez/warungpos-inventory-service/internal/category/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type CategoryHandler struct {
	uc     category.UseCase
	logger *zap.Logger
}

func NewCategoryHandler(uc category.UseCase, logger *zap.Logger) *CategoryHandler {
	return &CategoryHandler{uc: uc, logger: logger}
}

func (h *CategoryHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/categories", auth.RequireRole(auth.RoleAdmin), h.Create)
	rg.GET("/categories", h.List)
	rg.GET("/categories/tree", h.Tree)
	rg.GET("/categories/:id", h.Get)
	rg.PUT("/categories/:id", auth.RequireRole(auth.RoleAdmin), h.Update)
	rg.DELETE("/categories/:id", auth.RequireRole(auth.RoleAdmin), h.Delete)
}

func (h *CategoryHandler) Create(c *gin.Context) {
	var input dto.CreateCategoryInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.respondError(c, apperrors.NewInvalidRequest("invalid request body", err.Error()))
		return
	}

	cat, err := h.uc.CreateCategory(c.Request.Context(), &input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cat)
}

func (h *CategoryHandler) Get(c *gin.Context) {
	cat, err := h.uc.GetCategory(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cat)
}

func (h *CategoryHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "50"))

	filters := &dto.CategoryFilters{Page: page, PageSize: pageSize}
	if v, ok := c.GetQuery("parent_id"); ok {
		filters.ParentID = &v
	}
	if v, ok := c.GetQuery("is_active"); ok {
		active := v == "true"
		filters.IsActive = &active
	}

	categories, total, err := h.uc.ListCategories(c.Request.Context(), filters)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories, "total": total})
}

func (h *CategoryHandler) Tree(c *gin.Context) {
	tree, err := h.uc.CategoryTree(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": tree})
}

func (h *CategoryHandler) Update(c *gin.Context) {
	var input dto.UpdateCategoryInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.respondError(c, apperrors.NewInvalidRequest("invalid request body", err.Error()))
		return
	}
	input.ID = c.Param("id")

	cat, err := h.uc.UpdateCategory(c.Request.Context(), &input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cat)
}

func (h *CategoryHandler) Delete(c *gin.Context) {
	if err := h.uc.DeleteCategory(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CategoryHandler) respondError(c *gin.Context, err error) {
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
