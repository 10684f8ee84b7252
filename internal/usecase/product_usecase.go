package usecase

import (
	"context"
	"errors"
	"strings"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

type ProductUsecase struct {
	productRepo repo.ProductRepository
}

// DI
func NewProductUsecase(productRepo repo.ProductRepository) *ProductUsecase {
	return &ProductUsecase{productRepo: productRepo}
}

// GET /productsの入力DTO
type ListProductsInput struct {
	Page  int
	Limit int
}

type ProductListOutput struct {
	Items []model.Product `json:"items"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

func (u *ProductUsecase) ListPublicProducts(ctx context.Context, in ListProductsInput) (ProductListOutput, error) {
	if in.Page < 1 {
		return ProductListOutput{}, NewError(KindValidation, "invalid page")
	}
	if in.Limit < 1 || in.Limit > 100 {
		return ProductListOutput{}, NewError(KindValidation, "invalid limit")
	}

	items, total, err := u.productRepo.ListPublic(ctx, repo.ProductListQuery{
		Page:  in.Page,
		Limit: in.Limit,
	})
	if err != nil {
		return ProductListOutput{}, internalError("list products", err)
	}

	return ProductListOutput{
		Items: items,
		Total: total,
		Page:  in.Page,
		Limit: in.Limit,
	}, nil
}

func (u *ProductUsecase) GetProductDetail(ctx context.Context, productID int64) (*model.Product, error) {
	if productID <= 0 {
		return nil, NewError(KindValidation, "invalid product id")
	}

	p, err := u.productRepo.FindByID(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, NewError(KindNotFound, "product not found")
	}
	if err != nil {
		return nil, internalError("find product", err)
	}

	if !p.IsActive {
		return nil, NewError(KindNotFound, "product not found")
	}
	return p, nil
}

type AdminCreateProductInput struct {
	Name        string
	Description string
	Price       int64
	ImageURL    string
	Sizes       []string
	Colors      []string
	IsActive    bool
}

func (u *ProductUsecase) AdminCreateProduct(ctx context.Context, adminUserID int64, in AdminCreateProductInput) (*model.Product, error) {
	if adminUserID <= 0 {
		return nil, NewError(KindUnauthorized, "unauthorized")
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, NewError(KindValidation, "name required")
	}
	if in.Price < 0 || in.Price > model.MaxUnitPrice {
		return nil, NewError(KindValidation, "price out of range")
	}
	if in.Sizes == nil {
		in.Sizes = []string{}
	}
	if in.Colors == nil {
		in.Colors = []string{}
	}

	p := &model.Product{
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Price:       in.Price,
		ImageURL:    strings.TrimSpace(in.ImageURL),
		Sizes:       in.Sizes,
		Colors:      in.Colors,
		IsActive:    in.IsActive,
	}
	if err := u.productRepo.Create(ctx, p); err != nil {
		return nil, internalError("create product", err)
	}
	return p, nil
}
