// Package catalog manages the products customers can order.
//
// Admins create and edit products; everyone can read them. Stock changes made
// by order placement and cancellation go through the order service, never here,
// except for an explicit admin stock correction via Update.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dshills/orderdesk/internal/storage"
	"github.com/dshills/orderdesk/pkg/types"
)

// ProductInput is the admin payload for a new product
type ProductInput struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Image       string          `json:"image"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	IsActive    *bool           `json:"isActive"` // Defaults to true
}

// ProductPatch holds the fields to change. Nil fields are left as they are.
type ProductPatch struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Image       *string          `json:"image"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int             `json:"stock"`
	IsActive    *bool            `json:"isActive"`
}

// ListFilter narrows product listings
type ListFilter struct {
	ActiveOnly bool
	Limit      int
	Offset     int
}

// Service exposes catalog reads and admin writes
type Service struct {
	store  storage.Storage
	logger *slog.Logger
}

// NewService creates a catalog service
func NewService(store storage.Storage, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger.With("component", "catalog")}
}

// Create validates and stores a new product
func (s *Service) Create(ctx context.Context, in ProductInput) (*types.Product, error) {
	product := &types.Product{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Image:       in.Image,
		Price:       in.Price,
		Stock:       in.Stock,
		IsActive:    in.IsActive == nil || *in.IsActive,
	}
	if err := product.Validate(); err != nil {
		return nil, err
	}

	if err := s.store.CreateProduct(ctx, product); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return nil, types.Conflictf("Product already exists")
		}
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	s.logger.Info("product created", "product_id", product.ID, "name", product.Name)
	return product, nil
}

// Update applies patch to the product. The read and the write share a
// transaction so a concurrent placement cannot interleave with a stock edit.
func (s *Service) Update(ctx context.Context, id string, patch ProductPatch) (*types.Product, error) {
	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	product, err := tx.GetProduct(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, types.NotFoundf("Product not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	patch.apply(product)
	if err := product.Validate(); err != nil {
		return nil, err
	}

	if err := tx.UpdateProduct(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Info("product updated", "product_id", product.ID, "stock", product.Stock, "active", product.IsActive)
	return product, nil
}

func (p ProductPatch) apply(product *types.Product) {
	if p.Name != nil {
		product.Name = strings.TrimSpace(*p.Name)
	}
	if p.Description != nil {
		product.Description = *p.Description
	}
	if p.Image != nil {
		product.Image = *p.Image
	}
	if p.Price != nil {
		product.Price = *p.Price
	}
	if p.Stock != nil {
		product.Stock = *p.Stock
	}
	if p.IsActive != nil {
		product.IsActive = *p.IsActive
	}
}

// Get returns one product
func (s *Service) Get(ctx context.Context, id string) (*types.Product, error) {
	product, err := s.store.GetProduct(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, types.NotFoundf("Product not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return product, nil
}

// List returns products, newest first
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*types.Product, error) {
	if filter.Limit < 0 || filter.Offset < 0 {
		return nil, types.Validationf("limit and offset must not be negative")
	}
	products, err := s.store.ListProducts(ctx, storage.ProductFilter{
		ActiveOnly: filter.ActiveOnly,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}
