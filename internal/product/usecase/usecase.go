package usecase

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fahrez/warungpos-inventory-service/internal/apperrors"
	"github.com/fahrez/warungpos-inventory-service/internal/model"
	"github.com/fahrez/warungpos-inventory-service/internal/product"
	"github.com/fahrez/warungpos-inventory-service/internal/product/dto"
	"github.com/fahrez/warungpos-inventory-service/internal/stock"
	stockdto "github.com/fahrez/warungpos-inventory-service/internal/stock/dto"
	"github.com/fahrez/warungpos-inventory-service/pkg/cache"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type productUseCase struct {
	repo    product.Repository
	stockUC stock.UseCase
	cache   *cache.RedisClient
	logger  *zap.Logger
}

func NewProductUseCase(repo product.Repository, stockUC stock.UseCase, cache *cache.RedisClient, logger *zap.Logger) product.UseCase {
	return &productUseCase{
		repo:    repo,
		stockUC: stockUC,
		cache:   cache,
		logger:  logger,
	}
}

func (uc *productUseCase) CreateProduct(ctx context.Context, input *dto.CreateProductInput) (*model.Product, error) {
	unique, err := uc.repo.IsSKUUnique(ctx, input.SKU, "")
	if err != nil {
		return nil, err
	}
	if !unique {
		return nil, apperrors.NewInvalidRequest("SKU already exists", "SKU: "+input.SKU)
	}
	if input.InitialQuantity < 0 {
		return nil, apperrors.NewInvalidRequest("initial quantity cannot be negative", fmt.Sprintf("got %d", input.InitialQuantity))
	}

	id := uuid.New().String()
	now := time.Now()

	categoryID := &input.CategoryID
	if input.CategoryID == "" {
		categoryID = nil
	}
	var imageURL *string
	if input.ImageURL != "" {
		u := input.ImageURL
		imageURL = &u
	}
	cost := input.CostPrice

	p := &model.Product{
		BaseModel:    model.BaseModel{ID: id, CreatedAt: now, UpdatedAt: now},
		CategoryID:   categoryID,
		SKU:          input.SKU,
		Name:         input.Name,
		Description:  &input.Description,
		Unit:         input.Unit,
		Perishable:   input.Perishable,
		SellingPrice: input.SellingPrice,
		CostPrice:    &cost,
		ImageURL:     imageURL,
		IsActive:     true,
	}

	if err := uc.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	// Opening stock goes through the regular stock path so a fresh product
	// gets its batch and IN movement like any other receipt.
	if input.InitialQuantity > 0 {
		_, err := uc.stockUC.AddStock(ctx, &stockdto.AddStockInput{
			ProductID: p.ID,
			Quantity:  input.InitialQuantity,
			CostBasis: input.CostPrice,
			ExpiresAt: input.ExpiresAt,
			Note:      "opening stock",
			ActorID:   input.ActorID,
		})
		if err != nil {
			return nil, err
		}
	}

	go uc.invalidateListCache(context.Background())

	return p, nil
}

func (uc *productUseCase) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	p, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperrors.NewNotFound("product", id)
	}
	return p, nil
}

func (uc *productUseCase) ListProducts(ctx context.Context, filters *dto.ProductFilters) ([]model.Product, int, error) {
	cacheKey, err := uc.listCacheKey(filters)
	if err == nil && uc.cache != nil {
		val, err := uc.cache.Client.Get(ctx, cacheKey).Result()
		if err == nil {
			var cached struct {
				Products []model.Product
				Count    int
			}
			if err := json.Unmarshal([]byte(val), &cached); err == nil {
				return cached.Products, cached.Count, nil
			}
		}
	}

	products, count, err := uc.repo.FindAll(ctx, filters)
	if err != nil {
		return nil, 0, err
	}

	if cacheKey != "" && uc.cache != nil {
		payload := struct {
			Products []model.Product
			Count    int
		}{Products: products, Count: count}
		if data, err := json.Marshal(payload); err == nil {
			uc.cache.Client.Set(ctx, cacheKey, data, 5*time.Minute)
		}
	}

	return products, count, nil
}

func (uc *productUseCase) UpdateProduct(ctx context.Context, input *dto.UpdateProductInput) (*model.Product, error) {
	p, err := uc.repo.FindByID(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperrors.NewNotFound("product", input.ID)
	}

	if p.SKU != input.SKU {
		unique, err := uc.repo.IsSKUUnique(ctx, input.SKU, p.ID)
		if err != nil {
			return nil, err
		}
		if !unique {
			return nil, apperrors.NewInvalidRequest("SKU already exists", "SKU: "+input.SKU)
		}
	}

	p.SKU = input.SKU
	p.Name = input.Name
	p.Description = &input.Description
	p.Unit = input.Unit
	p.Perishable = input.Perishable
	p.SellingPrice = input.SellingPrice
	cost := input.CostPrice
	p.CostPrice = &cost
	p.IsActive = input.IsActive
	if input.CategoryID != "" {
		catID := input.CategoryID
		p.CategoryID = &catID
	} else {
		p.CategoryID = nil
	}
	if input.ImageURL != "" {
		u := input.ImageURL
		p.ImageURL = &u
	} else {
		p.ImageURL = nil
	}
	p.UpdatedAt = time.Now()

	if err := uc.repo.Update(ctx, p); err != nil {
		return nil, err
	}

	go uc.invalidateListCache(context.Background())

	return p, nil
}

func (uc *productUseCase) DeactivateProduct(ctx context.Context, id string) error {
	p, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if p == nil {
		return apperrors.NewNotFound("product", id)
	}

	if err := uc.repo.Deactivate(ctx, id); err != nil {
		return err
	}

	go uc.invalidateListCache(context.Background())
	return nil
}

func (uc *productUseCase) listCacheKey(filters *dto.ProductFilters) (string, error) {
	data, err := json.Marshal(filters)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("products:list:%x", md5.Sum(data)), nil
}

func (uc *productUseCase) invalidateListCache(ctx context.Context) {
	if uc.cache == nil {
		return
	}
	keys, err := uc.cache.Client.Keys(ctx, "products:list:*").Result()
	if err == nil && len(keys) > 0 {
		uc.cache.Client.Del(ctx, keys...)
	}
}
