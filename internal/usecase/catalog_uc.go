package usecase

import (
	"context"

	"coach-storefront/internal/domain/model"
	"coach-storefront/internal/domain/ports/repository"
)

var _ CatalogUseCase = (*catalogUC)(nil)

type CatalogUseCase interface {
	ListProducts(ctx context.Context) ([]*model.Product, error)
}

type catalogUC struct {
	products repository.ProductRepository
}

func NewCatalogUseCase(products repository.ProductRepository) *catalogUC {
	return &catalogUC{products: products}
}

func (c *catalogUC) ListProducts(ctx context.Context) ([]*model.Product, error) {
	return c.products.ListActive(ctx, repository.NoTX)
}
