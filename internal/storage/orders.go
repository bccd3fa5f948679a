package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dshills/orderdesk/pkg/types"
)

// Order operations

const orderColumns = `
	id, order_number,
	customer_name, customer_email, customer_phone, customer_address, customer_city, customer_postal_code,
	total_amount, payment_method, payment_status, order_status,
	shipping_carrier, tracking_number, shipped_at, delivered_at,
	notes, admin_notes, stock_restored, created_at, updated_at`

func scanOrder(row rowScanner) (*types.Order, error) {
	var o types.Order
	var shippedAt, deliveredAt sql.NullTime
	err := row.Scan(
		&o.ID, &o.OrderNumber,
		&o.CustomerInfo.FullName, &o.CustomerInfo.Email, &o.CustomerInfo.Phone,
		&o.CustomerInfo.Address, &o.CustomerInfo.City, &o.CustomerInfo.PostalCode,
		&o.TotalAmount, &o.PaymentMethod, &o.PaymentStatus, &o.OrderStatus,
		&o.ShippingInfo.Carrier, &o.ShippingInfo.TrackingNumber, &shippedAt, &deliveredAt,
		&o.Notes, &o.AdminNotes, &o.StockRestored, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if shippedAt.Valid {
		o.ShippingInfo.ShippedAt = &shippedAt.Time
	}
	if deliveredAt.Valid {
		o.ShippingInfo.DeliveredAt = &deliveredAt.Time
	}
	return &o, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

// createOrderWithQuerier inserts the order row, its line items and its status history.
// Callers run it inside a transaction so the three inserts land together.
func (s *SQLiteStorage) createOrderWithQuerier(ctx context.Context, q querier, order *types.Order) error {
	query := `INSERT INTO orders (` + orderColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	ts := now()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = ts
	}
	order.UpdatedAt = order.CreatedAt

	c := order.CustomerInfo
	_, err := q.ExecContext(ctx, query,
		order.ID, order.OrderNumber,
		c.FullName, c.Email, c.Phone, c.Address, c.City, c.PostalCode,
		order.TotalAmount.String(), order.PaymentMethod, order.PaymentStatus, order.OrderStatus,
		order.ShippingInfo.Carrier, order.ShippingInfo.TrackingNumber,
		nullTime(order.ShippingInfo.ShippedAt), nullTime(order.ShippingInfo.DeliveredAt),
		order.Notes, order.AdminNotes, order.StockRestored, order.CreatedAt, order.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	itemQuery := `
		INSERT INTO order_items (order_id, position, product_id, name, price, image, quantity, unit_price)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	for i, item := range order.Items {
		_, err := q.ExecContext(ctx, itemQuery,
			order.ID, i, item.ProductID, item.Snapshot.Name, item.Snapshot.Price.String(),
			item.Snapshot.Image, item.Quantity, item.UnitPrice.String())
		if err != nil {
			return fmt.Errorf("failed to store order item %d: %w", i, err)
		}
	}

	for _, entry := range order.StatusHistory {
		if err := s.insertHistory(ctx, q, order.ID, entry); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStorage) CreateOrder(ctx context.Context, order *types.Order) error {
	return s.createOrderWithQuerier(ctx, s.querier(), order)
}

// getOrderWithQuerier loads one order keyed by column, then its items and history.
// Rows are closed before the child queries run because the pool holds a single connection.
func (s *SQLiteStorage) getOrderWithQuerier(ctx context.Context, q querier, column, value string) (*types.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE ` + column + ` = ?`
	order, err := scanOrder(q.QueryRowContext(ctx, query, value))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if err := s.loadOrderChildren(ctx, q, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *SQLiteStorage) GetOrderByID(ctx context.Context, orderID string) (*types.Order, error) {
	return s.getOrderWithQuerier(ctx, s.querier(), "id", orderID)
}

func (s *SQLiteStorage) GetOrderByNumber(ctx context.Context, orderNumber string) (*types.Order, error) {
	return s.getOrderWithQuerier(ctx, s.querier(), "order_number", orderNumber)
}

func (s *SQLiteStorage) loadOrderChildren(ctx context.Context, q querier, order *types.Order) error {
	items, err := s.listItems(ctx, q, order.ID)
	if err != nil {
		return err
	}
	history, err := s.listHistory(ctx, q, order.ID)
	if err != nil {
		return err
	}
	order.Items = items
	order.StatusHistory = history
	return nil
}

func (s *SQLiteStorage) listItems(ctx context.Context, q querier, orderID string) ([]types.LineItem, error) {
	query := `
		SELECT product_id, name, price, image, quantity, unit_price
		FROM order_items
		WHERE order_id = ?
		ORDER BY position
	`
	rows, err := q.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list order items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	items := make([]types.LineItem, 0)
	for rows.Next() {
		var item types.LineItem
		err := rows.Scan(&item.ProductID, &item.Snapshot.Name, &item.Snapshot.Price,
			&item.Snapshot.Image, &item.Quantity, &item.UnitPrice)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *SQLiteStorage) listHistory(ctx context.Context, q querier, orderID string) ([]types.StatusEntry, error) {
	query := `
		SELECT status, note, created_at
		FROM order_history
		WHERE order_id = ?
		ORDER BY id
	`
	rows, err := q.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list order history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	history := make([]types.StatusEntry, 0)
	for rows.Next() {
		var entry types.StatusEntry
		if err := rows.Scan(&entry.Status, &entry.Note, &entry.Timestamp); err != nil {
			return nil, err
		}
		history = append(history, entry)
	}
	return history, rows.Err()
}

// listOrdersWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) listOrdersWithQuerier(ctx context.Context, q querier, filter OrderFilter) ([]*types.Order, int, error) {
	where := ``
	args := make([]interface{}, 0, 3)
	if filter.Status != "" {
		where = ` WHERE order_status = ?`
		args = append(args, filter.Status)
	}

	var total int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	query := `SELECT ` + orderColumns + ` FROM orders` + where + ` ORDER BY created_at DESC, order_number DESC`
	query, args = appendPage(query, args, filter.Limit, filter.Offset)

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	orders := make([]*types.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			_ = rows.Close()
			return nil, 0, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, 0, err
	}
	_ = rows.Close()

	for _, order := range orders {
		if err := s.loadOrderChildren(ctx, q, order); err != nil {
			return nil, 0, err
		}
	}
	return orders, total, nil
}

func (s *SQLiteStorage) ListOrders(ctx context.Context, filter OrderFilter) ([]*types.Order, int, error) {
	return s.listOrdersWithQuerier(ctx, s.querier(), filter)
}

// updateOrderWithQuerier writes the mutable order fields. Items, totals and
// history are never rewritten here.
func (s *SQLiteStorage) updateOrderWithQuerier(ctx context.Context, q querier, order *types.Order) error {
	query := `
		UPDATE orders
		SET payment_status = ?, order_status = ?,
		    shipping_carrier = ?, tracking_number = ?, shipped_at = ?, delivered_at = ?,
		    admin_notes = ?, stock_restored = ?, updated_at = ?
		WHERE id = ?
	`
	ts := now()
	result, err := q.ExecContext(ctx, query,
		order.PaymentStatus, order.OrderStatus,
		order.ShippingInfo.Carrier, order.ShippingInfo.TrackingNumber,
		nullTime(order.ShippingInfo.ShippedAt), nullTime(order.ShippingInfo.DeliveredAt),
		order.AdminNotes, order.StockRestored, ts, order.ID)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	order.UpdatedAt = ts
	return nil
}

func (s *SQLiteStorage) UpdateOrder(ctx context.Context, order *types.Order) error {
	return s.updateOrderWithQuerier(ctx, s.querier(), order)
}

func (s *SQLiteStorage) insertHistory(ctx context.Context, q querier, orderID string, entry types.StatusEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = now()
	}
	query := `INSERT INTO order_history (order_id, status, note, created_at) VALUES (?, ?, ?, ?)`
	if _, err := q.ExecContext(ctx, query, orderID, entry.Status, entry.Note, entry.Timestamp.UTC()); err != nil {
		return fmt.Errorf("failed to append order history: %w", err)
	}
	return nil
}

// appendHistoryWithQuerier appends one entry after checking the order exists
func (s *SQLiteStorage) appendHistoryWithQuerier(ctx context.Context, q querier, orderID string, entry types.StatusEntry) error {
	var exists int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM orders WHERE id = ?`, orderID).Scan(&exists)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to check order: %w", err)
	}
	return s.insertHistory(ctx, q, orderID, entry)
}

func (s *SQLiteStorage) AppendHistory(ctx context.Context, orderID string, entry types.StatusEntry) error {
	return s.appendHistoryWithQuerier(ctx, s.querier(), orderID, entry)
}

// deleteOrderWithQuerier removes the order together with its items and history.
// Children are deleted explicitly so removal does not depend on the foreign_keys pragma.
func (s *SQLiteStorage) deleteOrderWithQuerier(ctx context.Context, q querier, orderID string) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = ?`, orderID); err != nil {
		return fmt.Errorf("failed to delete order items: %w", err)
	}
	if _, err := q.ExecContext(ctx, `DELETE FROM order_history WHERE order_id = ?`, orderID); err != nil {
		return fmt.Errorf("failed to delete order history: %w", err)
	}
	result, err := q.ExecContext(ctx, `DELETE FROM orders WHERE id = ?`, orderID)
	if err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStorage) DeleteOrder(ctx context.Context, orderID string) error {
	return s.deleteOrderWithQuerier(ctx, s.querier(), orderID)
}
