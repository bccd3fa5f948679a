package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dshills/orderdesk/pkg/types"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when trying to create a duplicate entity
	ErrAlreadyExists = errors.New("already exists")
	// ErrInsufficientStock is returned when a conditional stock decrement matches no row
	ErrInsufficientStock = errors.New("insufficient stock")
)

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Set connection pool settings.
	// A single connection serializes writers, which makes the conditional
	// stock decrement and the sequence increment atomic across requests.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Apply migrations
	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginTx starts a new transaction
func (s *SQLiteStorage) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx, storage: s}, nil
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// rowScanner is implemented by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// sqliteTx wraps a SQL transaction
type sqliteTx struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

// querier returns the transaction querier
func (t *sqliteTx) querier() querier {
	return t.tx
}

// querier returns the DB querier
func (s *SQLiteStorage) querier() querier {
	return s.db
}

// isUniqueViolation matches the constraint error text shared by both drivers
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func now() time.Time {
	return time.Now().UTC()
}

// Product operations

const productColumns = `id, name, description, image, price, stock, is_active, created_at, updated_at`

func scanProduct(row rowScanner) (*types.Product, error) {
	var p types.Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Image, &p.Price,
		&p.Stock, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// createProductWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) createProductWithQuerier(ctx context.Context, q querier, product *types.Product) error {
	query := `
		INSERT INTO products (` + productColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	ts := now()
	_, err := q.ExecContext(ctx, query,
		product.ID, product.Name, product.Description, product.Image, product.Price.String(),
		product.Stock, product.IsActive, ts, ts)
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	product.CreatedAt = ts
	product.UpdatedAt = ts
	return nil
}

func (s *SQLiteStorage) CreateProduct(ctx context.Context, product *types.Product) error {
	return s.createProductWithQuerier(ctx, s.querier(), product)
}

// getProductWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) getProductWithQuerier(ctx context.Context, q querier, productID string) (*types.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = ?`
	product, err := scanProduct(q.QueryRowContext(ctx, query, productID))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return product, nil
}

func (s *SQLiteStorage) GetProduct(ctx context.Context, productID string) (*types.Product, error) {
	return s.getProductWithQuerier(ctx, s.querier(), productID)
}

// listProductsWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) listProductsWithQuerier(ctx context.Context, q querier, filter ProductFilter) ([]*types.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products`
	args := make([]interface{}, 0, 2)
	if filter.ActiveOnly {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY created_at DESC, id`
	query, args = appendPage(query, args, filter.Limit, filter.Offset)

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer func() { _ = rows.Close() }()

	products := make([]*types.Product, 0)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	return products, rows.Err()
}

func (s *SQLiteStorage) ListProducts(ctx context.Context, filter ProductFilter) ([]*types.Product, error) {
	return s.listProductsWithQuerier(ctx, s.querier(), filter)
}

// updateProductWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) updateProductWithQuerier(ctx context.Context, q querier, product *types.Product) error {
	query := `
		UPDATE products
		SET name = ?, description = ?, image = ?, price = ?, stock = ?, is_active = ?, updated_at = ?
		WHERE id = ?
	`
	ts := now()
	result, err := q.ExecContext(ctx, query,
		product.Name, product.Description, product.Image, product.Price.String(),
		product.Stock, product.IsActive, ts, product.ID)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	product.UpdatedAt = ts
	return nil
}

func (s *SQLiteStorage) UpdateProduct(ctx context.Context, product *types.Product) error {
	return s.updateProductWithQuerier(ctx, s.querier(), product)
}

// Stock operations

// decrementStockWithQuerier debits stock only when the product is active and
// enough units remain, so stock can never go negative.
func (s *SQLiteStorage) decrementStockWithQuerier(ctx context.Context, q querier, productID string, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("invalid quantity %d", qty)
	}
	query := `
		UPDATE products
		SET stock = stock - ?, updated_at = ?
		WHERE id = ? AND is_active = 1 AND stock >= ?
	`
	result, err := q.ExecContext(ctx, query, qty, now(), productID, qty)
	if err != nil {
		return fmt.Errorf("failed to decrement stock: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrInsufficientStock
	}
	return nil
}

func (s *SQLiteStorage) DecrementStock(ctx context.Context, productID string, qty int) error {
	return s.decrementStockWithQuerier(ctx, s.querier(), productID, qty)
}

// incrementStockWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) incrementStockWithQuerier(ctx context.Context, q querier, productID string, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("invalid quantity %d", qty)
	}
	query := `UPDATE products SET stock = stock + ?, updated_at = ? WHERE id = ?`
	result, err := q.ExecContext(ctx, query, qty, now(), productID)
	if err != nil {
		return fmt.Errorf("failed to increment stock: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStorage) IncrementStock(ctx context.Context, productID string, qty int) error {
	return s.incrementStockWithQuerier(ctx, s.querier(), productID, qty)
}

// Sequence operations

// nextSequenceWithQuerier atomically increments the named counter and returns the new value
func (s *SQLiteStorage) nextSequenceWithQuerier(ctx context.Context, q querier, name string) (int64, error) {
	query := `
		INSERT INTO sequences (name, value) VALUES (?, 1)
		ON CONFLICT(name) DO UPDATE SET value = value + 1
		RETURNING value
	`
	var value int64
	if err := q.QueryRowContext(ctx, query, name).Scan(&value); err != nil {
		return 0, fmt.Errorf("failed to advance sequence %s: %w", name, err)
	}
	return value, nil
}

func (s *SQLiteStorage) NextSequence(ctx context.Context, name string) (int64, error) {
	return s.nextSequenceWithQuerier(ctx, s.querier(), name)
}

// appendPage adds LIMIT/OFFSET clauses when a limit is set
func appendPage(query string, args []interface{}, limit, offset int) (string, []interface{}) {
	if limit <= 0 {
		return query, args
	}
	query += ` LIMIT ? OFFSET ?`
	if offset < 0 {
		offset = 0
	}
	return query, append(args, limit, offset)
}

// Transaction wrappers

func (t *sqliteTx) CreateProduct(ctx context.Context, product *types.Product) error {
	return t.storage.createProductWithQuerier(ctx, t.querier(), product)
}

func (t *sqliteTx) GetProduct(ctx context.Context, productID string) (*types.Product, error) {
	return t.storage.getProductWithQuerier(ctx, t.querier(), productID)
}

func (t *sqliteTx) ListProducts(ctx context.Context, filter ProductFilter) ([]*types.Product, error) {
	return t.storage.listProductsWithQuerier(ctx, t.querier(), filter)
}

func (t *sqliteTx) UpdateProduct(ctx context.Context, product *types.Product) error {
	return t.storage.updateProductWithQuerier(ctx, t.querier(), product)
}

func (t *sqliteTx) DecrementStock(ctx context.Context, productID string, qty int) error {
	return t.storage.decrementStockWithQuerier(ctx, t.querier(), productID, qty)
}

func (t *sqliteTx) IncrementStock(ctx context.Context, productID string, qty int) error {
	return t.storage.incrementStockWithQuerier(ctx, t.querier(), productID, qty)
}

func (t *sqliteTx) NextSequence(ctx context.Context, name string) (int64, error) {
	return t.storage.nextSequenceWithQuerier(ctx, t.querier(), name)
}

func (t *sqliteTx) CreateOrder(ctx context.Context, order *types.Order) error {
	return t.storage.createOrderWithQuerier(ctx, t.querier(), order)
}

func (t *sqliteTx) GetOrderByID(ctx context.Context, orderID string) (*types.Order, error) {
	return t.storage.getOrderWithQuerier(ctx, t.querier(), "id", orderID)
}

func (t *sqliteTx) GetOrderByNumber(ctx context.Context, orderNumber string) (*types.Order, error) {
	return t.storage.getOrderWithQuerier(ctx, t.querier(), "order_number", orderNumber)
}

func (t *sqliteTx) ListOrders(ctx context.Context, filter OrderFilter) ([]*types.Order, int, error) {
	return t.storage.listOrdersWithQuerier(ctx, t.querier(), filter)
}

func (t *sqliteTx) UpdateOrder(ctx context.Context, order *types.Order) error {
	return t.storage.updateOrderWithQuerier(ctx, t.querier(), order)
}

func (t *sqliteTx) AppendHistory(ctx context.Context, orderID string, entry types.StatusEntry) error {
	return t.storage.appendHistoryWithQuerier(ctx, t.querier(), orderID, entry)
}

func (t *sqliteTx) DeleteOrder(ctx context.Context, orderID string) error {
	return t.storage.deleteOrderWithQuerier(ctx, t.querier(), orderID)
}

func (t *sqliteTx) Close() error {
	// Transactions don't close the underlying connection
	return nil
}

func (t *sqliteTx) BeginTx(ctx context.Context) (Tx, error) {
	// SQLite does not support true nested transactions
	return nil, errors.New("nested transactions not supported")
}
