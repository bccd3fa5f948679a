package storage

import (
	"context"

	"github.com/dshills/orderdesk/pkg/types"
)

// Storage defines the interface for persisting catalog and order data
type Storage interface {
	// Product operations
	CreateProduct(ctx context.Context, product *types.Product) error
	GetProduct(ctx context.Context, productID string) (*types.Product, error)
	ListProducts(ctx context.Context, filter ProductFilter) ([]*types.Product, error)
	UpdateProduct(ctx context.Context, product *types.Product) error

	// Stock operations
	DecrementStock(ctx context.Context, productID string, qty int) error
	IncrementStock(ctx context.Context, productID string, qty int) error

	// Sequence operations
	NextSequence(ctx context.Context, name string) (int64, error)

	// Order operations
	CreateOrder(ctx context.Context, order *types.Order) error
	GetOrderByID(ctx context.Context, orderID string) (*types.Order, error)
	GetOrderByNumber(ctx context.Context, orderNumber string) (*types.Order, error)
	ListOrders(ctx context.Context, filter OrderFilter) ([]*types.Order, int, error)
	UpdateOrder(ctx context.Context, order *types.Order) error
	AppendHistory(ctx context.Context, orderID string, entry types.StatusEntry) error
	DeleteOrder(ctx context.Context, orderID string) error

	// Database operations
	Close() error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx represents a database transaction
type Tx interface {
	Commit() error
	Rollback() error
	Storage // Embed Storage interface for transaction operations
}

// ProductFilter narrows product listings
type ProductFilter struct {
	ActiveOnly bool
	Limit      int
	Offset     int
}

// OrderFilter narrows order listings
type OrderFilter struct {
	Status types.OrderStatus // Empty means any status
	Limit  int
	Offset int
}

// OrderSequence is the sequence used for order numbers
const OrderSequence = "orders"
