package category

import (
	"context"

	"github.com/fahrez/warungpos-inventory-service/internal/category/dto"
	"github.com/fahrez/warungpos-inventory-service/internal/model"
)

type UseCase interface {
	CreateCategory(ctx context.Context, input *dto.CreateCategoryInput) (*model.Category, error)
	GetCategory(ctx context.Context, id string) (*model.Category, error)
	ListCategories(ctx context.Context, filters *dto.CategoryFilters) ([]model.Category, int, error)
	// CategoryTree returns the active categories as a parent/child tree.
	CategoryTree(ctx context.Context) ([]model.Category, error)
	UpdateCategory(ctx context.Context, input *dto.UpdateCategoryInput) (*model.Category, error)
	// DeleteCategory removes an unused category; a category still holding
	// products is deactivated instead.
	DeleteCategory(ctx context.Context, id string) error
}
