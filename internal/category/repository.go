package category

import (
	"context"

	"github.com/fahrez/warungpos-inventory-service/internal/category/dto"
	"github.com/fahrez/warungpos-inventory-service/internal/model"
)

type Repository interface {
	Create(ctx context.Context, category *model.Category) error
	FindByID(ctx context.Context, id string) (*model.Category, error)
	FindAll(ctx context.Context, filters *dto.CategoryFilters) ([]model.Category, int, error)
	Update(ctx context.Context, category *model.Category) error
	Delete(ctx context.Context, id string) error
	Deactivate(ctx context.Context, id string) error

	HasProducts(ctx context.Context, id string) (bool, error)
}
