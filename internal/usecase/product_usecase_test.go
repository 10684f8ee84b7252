package usecase

import (
	"context"
	"testing"

	"storefront/internal/domain/model"
	"storefront/internal/testutil/memstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductUsecase_ListPublicProducts(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	uc := NewProductUsecase(s.Products())

	s.SeedProduct(model.Product{Name: "a", Price: 100, IsActive: true})
	s.SeedProduct(model.Product{Name: "hidden", Price: 100, IsActive: false})
	s.SeedProduct(model.Product{Name: "b", Price: 200, IsActive: true})

	out, err := uc.ListPublicProducts(ctx, ListProductsInput{Page: 1, Limit: 20})
	require.NoError(t, err)
	assert.Equal(t, int64(2), out.Total)
	for _, p := range out.Items {
		assert.True(t, p.IsActive)
	}

	_, err = uc.ListPublicProducts(ctx, ListProductsInput{Page: 0, Limit: 20})
	assertKind(t, err, KindValidation)
	_, err = uc.ListPublicProducts(ctx, ListProductsInput{Page: 1, Limit: 101})
	assertKind(t, err, KindValidation)
}

func TestProductUsecase_GetProductDetail(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	uc := NewProductUsecase(s.Products())

	active := s.SeedProduct(model.Product{Name: "a", Price: 100, IsActive: true})
	hidden := s.SeedProduct(model.Product{Name: "hidden", Price: 100})

	got, err := uc.GetProductDetail(ctx, active.ID)
	require.NoError(t, err)
	assert.Equal(t, "a", got.Name)

	_, err = uc.GetProductDetail(ctx, hidden.ID)
	assertKind(t, err, KindNotFound)
	_, err = uc.GetProductDetail(ctx, 9999)
	assertKind(t, err, KindNotFound)
	_, err = uc.GetProductDetail(ctx, 0)
	assertKind(t, err, KindValidation)
}

func TestProductUsecase_AdminCreateProduct(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	uc := NewProductUsecase(s.Products())

	p, err := uc.AdminCreateProduct(ctx, 1, AdminCreateProductInput{Name: " Tee ", Price: 1500, IsActive: true})
	require.NoError(t, err)
	assert.NotZero(t, p.ID)
	assert.Equal(t, "Tee", p.Name)
	assert.Equal(t, []string{}, p.Sizes)

	_, err = uc.AdminCreateProduct(ctx, 1, AdminCreateProductInput{Name: "", Price: 100})
	assertKind(t, err, KindValidation)
	_, err = uc.AdminCreateProduct(ctx, 1, AdminCreateProductInput{Name: "x", Price: -1})
	assertKind(t, err, KindValidation)
	_, err = uc.AdminCreateProduct(ctx, 1, AdminCreateProductInput{Name: "x", Price: model.MaxUnitPrice + 1})
	assertKind(t, err, KindValidation)
	_, err = uc.AdminCreateProduct(ctx, 0, AdminCreateProductInput{Name: "x", Price: 1})
	assertKind(t, err, KindUnauthorized)
}
