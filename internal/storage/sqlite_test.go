package storage

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/orderdesk/pkg/types"
)

func setupTestDB(t *testing.T) *SQLiteStorage {
	// Use in-memory database for testing
	storage, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	require.NotNil(t, storage)
	t.Cleanup(func() { _ = storage.Close() })
	return storage
}

func createTestProduct(t *testing.T, s Storage, name string, price string, stock int) *types.Product {
	t.Helper()
	p := &types.Product{
		ID:       uuid.NewString(),
		Name:     name,
		Price:    decimal.RequireFromString(price),
		Stock:    stock,
		IsActive: true,
	}
	require.NoError(t, s.CreateProduct(context.Background(), p))
	return p
}

func testOrder(number string, items ...types.LineItem) *types.Order {
	o := &types.Order{
		ID:          uuid.NewString(),
		OrderNumber: number,
		CustomerInfo: types.CustomerInfo{
			FullName: "Ada Lovelace",
			Email:    "ada@example.com",
			Phone:    "555-0100",
			Address:  "12 Analytical St",
		},
		Items:         items,
		PaymentMethod: types.PaymentCashOnDelivery,
		PaymentStatus: types.PaymentPending,
		OrderStatus:   types.OrderPending,
		StatusHistory: []types.StatusEntry{{Status: types.OrderPending, Note: "Order placed"}},
	}
	o.TotalAmount = o.ComputeTotal()
	return o
}

func TestNewSQLiteStorage(t *testing.T) {
	storage := setupTestDB(t)
	assert.NotNil(t, storage.db)
}

func TestProductCRUD(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	p := createTestProduct(t, s, "Desk Lamp", "19.99", 5)
	assert.False(t, p.CreatedAt.IsZero())

	got, err := s.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Desk Lamp", got.Name)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("19.99")))
	assert.Equal(t, 5, got.Stock)
	assert.True(t, got.IsActive)

	got.Price = decimal.RequireFromString("24.50")
	got.IsActive = false
	require.NoError(t, s.UpdateProduct(ctx, got))

	updated, err := s.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, updated.Price.Equal(decimal.RequireFromString("24.5")))
	assert.False(t, updated.IsActive)

	t.Run("duplicate id", func(t *testing.T) {
		err := s.CreateProduct(ctx, &types.Product{ID: p.ID, Name: "x", Price: decimal.Zero})
		assert.ErrorIs(t, err, ErrAlreadyExists)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := s.GetProduct(ctx, "nope")
		assert.ErrorIs(t, err, ErrNotFound)
		err = s.UpdateProduct(ctx, &types.Product{ID: "nope", Name: "x"})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestListProducts(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	createTestProduct(t, s, "A", "1", 1)
	inactive := createTestProduct(t, s, "B", "2", 1)
	inactive.IsActive = false
	require.NoError(t, s.UpdateProduct(ctx, inactive))

	all, err := s.ListProducts(ctx, ProductFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	active, err := s.ListProducts(ctx, ProductFilter{ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "A", active[0].Name)

	page, err := s.ListProducts(ctx, ProductFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, page, 1)
}

func TestDecrementStock(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	p := createTestProduct(t, s, "Mug", "8", 2)

	require.NoError(t, s.DecrementStock(ctx, p.ID, 2))
	got, err := s.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Stock)

	assert.ErrorIs(t, s.DecrementStock(ctx, p.ID, 1), ErrInsufficientStock)
	assert.ErrorIs(t, s.DecrementStock(ctx, "missing", 1), ErrInsufficientStock)
	assert.Error(t, s.DecrementStock(ctx, p.ID, 0))

	t.Run("inactive product is never debited", func(t *testing.T) {
		q := createTestProduct(t, s, "Hidden", "1", 10)
		q.IsActive = false
		require.NoError(t, s.UpdateProduct(ctx, q))
		assert.ErrorIs(t, s.DecrementStock(ctx, q.ID, 1), ErrInsufficientStock)
	})
}

func TestIncrementStock(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	p := createTestProduct(t, s, "Mug", "8", 0)

	require.NoError(t, s.IncrementStock(ctx, p.ID, 3))
	got, err := s.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Stock)

	assert.ErrorIs(t, s.IncrementStock(ctx, "missing", 1), ErrNotFound)
}

func TestNextSequence(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := s.NextSequence(ctx, OrderSequence)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	other, err := s.NextSequence(ctx, "invoices")
	require.NoError(t, err)
	assert.Equal(t, int64(1), other)
}

func TestOrderRoundTrip(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	shipped := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	order := testOrder("ORD000001",
		types.LineItem{
			ProductID: "p1",
			Snapshot:  types.ProductSnapshot{Name: "Lamp", Price: decimal.RequireFromString("10.25"), Image: "lamp.png"},
			Quantity:  2,
			UnitPrice: decimal.RequireFromString("10.25"),
		},
		types.LineItem{
			ProductID: "p2",
			Snapshot:  types.ProductSnapshot{Name: "Bulb", Price: decimal.RequireFromString("1.50")},
			Quantity:  1,
			UnitPrice: decimal.RequireFromString("1.50"),
		},
	)
	order.ShippingInfo.ShippedAt = &shipped
	require.NoError(t, s.CreateOrder(ctx, order))

	byID, err := s.GetOrderByID(ctx, order.ID)
	require.NoError(t, err)
	byNumber, err := s.GetOrderByNumber(ctx, "ORD000001")
	require.NoError(t, err)
	assert.Equal(t, byID, byNumber)

	assert.Equal(t, order.CustomerInfo, byID.CustomerInfo)
	require.Len(t, byID.Items, 2)
	assert.Equal(t, "Lamp", byID.Items[0].Snapshot.Name)
	assert.Equal(t, "lamp.png", byID.Items[0].Snapshot.Image)
	assert.True(t, byID.TotalAmount.Equal(decimal.RequireFromString("22")))
	require.Len(t, byID.StatusHistory, 1)
	assert.Equal(t, "Order placed", byID.StatusHistory[0].Note)
	require.NotNil(t, byID.ShippingInfo.ShippedAt)
	assert.True(t, shipped.Equal(*byID.ShippingInfo.ShippedAt))
	assert.Nil(t, byID.ShippingInfo.DeliveredAt)

	t.Run("duplicate order number", func(t *testing.T) {
		dup := testOrder("ORD000001")
		assert.ErrorIs(t, s.CreateOrder(ctx, dup), ErrAlreadyExists)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := s.GetOrderByID(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.GetOrderByNumber(ctx, "ORD999999")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestUpdateOrderAndHistory(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	order := testOrder("ORD000001")
	require.NoError(t, s.CreateOrder(ctx, order))

	order.OrderStatus = types.OrderShipped
	order.PaymentStatus = types.PaymentPaid
	order.AdminNotes = "left the warehouse"
	order.StockRestored = true
	require.NoError(t, s.UpdateOrder(ctx, order))
	require.NoError(t, s.AppendHistory(ctx, order.ID, types.StatusEntry{Status: types.OrderShipped, Note: "shipped"}))
	require.NoError(t, s.AppendHistory(ctx, order.ID, types.StatusEntry{Status: types.OrderShipped, Note: "second"}))

	got, err := s.GetOrderByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, types.OrderShipped, got.OrderStatus)
	assert.Equal(t, types.PaymentPaid, got.PaymentStatus)
	assert.Equal(t, "left the warehouse", got.AdminNotes)
	assert.True(t, got.StockRestored)
	require.Len(t, got.StatusHistory, 3)
	assert.Equal(t, []string{"Order placed", "shipped", "second"},
		[]string{got.StatusHistory[0].Note, got.StatusHistory[1].Note, got.StatusHistory[2].Note})

	assert.ErrorIs(t, s.AppendHistory(ctx, "missing", types.StatusEntry{Status: types.OrderPending}), ErrNotFound)
	assert.ErrorIs(t, s.UpdateOrder(ctx, &types.Order{ID: "missing"}), ErrNotFound)

	t.Run("history rows are append-only", func(t *testing.T) {
		_, err := s.db.ExecContext(ctx, `UPDATE order_history SET note = 'rewritten'`)
		assert.Error(t, err)
	})
}

func TestListOrders(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	for i, number := range []string{"ORD000001", "ORD000002", "ORD000003"} {
		o := testOrder(number)
		if i == 0 {
			o.OrderStatus = types.OrderCancelled
		}
		require.NoError(t, s.CreateOrder(ctx, o))
	}

	orders, total, err := s.ListOrders(ctx, OrderFilter{})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, orders, 3)

	orders, total, err = s.ListOrders(ctx, OrderFilter{Status: types.OrderPending, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, orders, 1)
	assert.Len(t, orders[0].StatusHistory, 1)
}

func TestDeleteOrder(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	order := testOrder("ORD000001", types.LineItem{
		ProductID: "p1", Snapshot: types.ProductSnapshot{Name: "x", Price: decimal.NewFromInt(1)},
		Quantity: 1, UnitPrice: decimal.NewFromInt(1),
	})
	require.NoError(t, s.CreateOrder(ctx, order))
	require.NoError(t, s.DeleteOrder(ctx, order.ID))

	_, err := s.GetOrderByNumber(ctx, "ORD000001")
	assert.ErrorIs(t, err, ErrNotFound)

	var items int
	require.NoError(t, s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM order_items`).Scan(&items))
	assert.Zero(t, items)

	assert.ErrorIs(t, s.DeleteOrder(ctx, order.ID), ErrNotFound)
}

func TestTransactionRollback(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	p := createTestProduct(t, s, "Chair", "40", 3)

	tx, err := s.BeginTx(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.DecrementStock(ctx, p.ID, 2))
	_, err = tx.NextSequence(ctx, OrderSequence)
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())

	got, err := s.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Stock)

	seq, err := s.NextSequence(ctx, OrderSequence)
	require.NoError(t, err)
	assert.Equal(t, int64(1), seq)

	t.Run("nested transactions are rejected", func(t *testing.T) {
		tx, err := s.BeginTx(ctx)
		require.NoError(t, err)
		defer func() { _ = tx.Rollback() }()
		_, err = tx.BeginTx(ctx)
		assert.Error(t, err)
	})
}

func TestTransactionCommit(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	p := createTestProduct(t, s, "Chair", "40", 3)

	tx, err := s.BeginTx(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.DecrementStock(ctx, p.ID, 1))
	order := testOrder("ORD000001")
	require.NoError(t, tx.CreateOrder(ctx, order))
	got, err := tx.GetOrderByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "ORD000001", got.OrderNumber)
	require.NoError(t, tx.Commit())

	product, err := s.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, product.Stock)
	_, err = s.GetOrderByID(ctx, order.ID)
	assert.NoError(t, err)
}
