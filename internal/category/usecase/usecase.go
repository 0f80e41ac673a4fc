package usecase

import (
	"context"
	"time"

	"github.com/fahrez/warungpos-inventory-service/internal/apperrors"
	"github.com/fahrez/warungpos-inventory-service/internal/category"
	"github.com/fahrez/warungpos-inventory-service/internal/category/dto"
	"github.com/fahrez/warungpos-inventory-service/internal/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type categoryUseCase struct {
	repo   category.Repository
	logger *zap.Logger
}

func NewCategoryUseCase(repo category.Repository, logger *zap.Logger) category.UseCase {
	return &categoryUseCase{
		repo:   repo,
		logger: logger,
	}
}

func (uc *categoryUseCase) CreateCategory(ctx context.Context, input *dto.CreateCategoryInput) (*model.Category, error) {
	if input.ParentID != nil && *input.ParentID != "" {
		parent, err := uc.repo.FindByID(ctx, *input.ParentID)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			return nil, apperrors.NewNotFound("category", *input.ParentID)
		}
	}

	id := uuid.New().String()
	now := time.Now()

	var imageURL *string
	if input.ImageURL != "" {
		u := input.ImageURL
		imageURL = &u
	}

	cat := &model.Category{
		BaseModel: model.BaseModel{
			ID:        id,
			CreatedAt: now,
			UpdatedAt: now,
		},
		ParentID:    input.ParentID,
		Name:        input.Name,
		Description: &input.Description,
		ImageURL:    imageURL,
		SortOrder:   input.SortOrder,
		IsActive:    true,
	}

	if err := uc.repo.Create(ctx, cat); err != nil {
		return nil, err
	}
	return cat, nil
}

func (uc *categoryUseCase) GetCategory(ctx context.Context, id string) (*model.Category, error) {
	cat, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if cat == nil {
		return nil, apperrors.NewNotFound("category", id)
	}
	return cat, nil
}

func (uc *categoryUseCase) ListCategories(ctx context.Context, filters *dto.CategoryFilters) ([]model.Category, int, error) {
	return uc.repo.FindAll(ctx, filters)
}

func (uc *categoryUseCase) CategoryTree(ctx context.Context) ([]model.Category, error) {
	active := true
	flat, _, err := uc.repo.FindAll(ctx, &dto.CategoryFilters{IsActive: &active})
	if err != nil {
		return nil, err
	}
	return buildTree(flat), nil
}

// buildTree nests categories under their parents; categories whose parent is
// missing from the list surface as roots.
func buildTree(flat []model.Category) []model.Category {
	children := map[string][]model.Category{}
	ids := map[string]bool{}
	for _, c := range flat {
		ids[c.ID] = true
	}
	for _, c := range flat {
		if c.ParentID != nil && ids[*c.ParentID] {
			children[*c.ParentID] = append(children[*c.ParentID], c)
		}
	}

	var attach func(c model.Category) model.Category
	attach = func(c model.Category) model.Category {
		for _, child := range children[c.ID] {
			c.Children = append(c.Children, attach(child))
		}
		return c
	}

	var roots []model.Category
	for _, c := range flat {
		if c.ParentID == nil || !ids[*c.ParentID] {
			roots = append(roots, attach(c))
		}
	}
	return roots
}

func (uc *categoryUseCase) UpdateCategory(ctx context.Context, input *dto.UpdateCategoryInput) (*model.Category, error) {
	cat, err := uc.repo.FindByID(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	if cat == nil {
		return nil, apperrors.NewNotFound("category", input.ID)
	}

	if input.ParentID != nil && *input.ParentID == input.ID {
		return nil, apperrors.NewInvalidRequest("category cannot be its own parent", "ID: "+input.ID)
	}

	cat.Name = input.Name
	cat.Description = &input.Description
	if input.ImageURL != "" {
		u := input.ImageURL
		cat.ImageURL = &u
	} else {
		cat.ImageURL = nil
	}
	cat.SortOrder = input.SortOrder
	cat.IsActive = input.IsActive
	cat.ParentID = input.ParentID
	cat.UpdatedAt = time.Now()

	if err := uc.repo.Update(ctx, cat); err != nil {
		return nil, err
	}
	return cat, nil
}

func (uc *categoryUseCase) DeleteCategory(ctx context.Context, id string) error {
	cat, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if cat == nil {
		return apperrors.NewNotFound("category", id)
	}

	inUse, err := uc.repo.HasProducts(ctx, id)
	if err != nil {
		return err
	}
	if inUse {
		uc.logger.Info("category still holds products, deactivating instead of deleting", zap.String("category_id", id))
		return uc.repo.Deactivate(ctx, id)
	}
	return uc.repo.Delete(ctx, id)
}
