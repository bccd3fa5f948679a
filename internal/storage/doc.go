// Package storage provides SQLite-based persistence for the catalog and the order ledger.
//
// # Database Schema
//
// Tables:
//   - products: Catalog entries (price as decimal text, stock, active flag)
//   - sequences: Named counters, incremented atomically (order numbers)
//   - orders: Order header, customer and shipping fields, status fields
//   - order_items: Line items with frozen product snapshots
//   - order_history: Append-only status history, ordered by id
//
// # Basic Usage
//
//	store, err := storage.NewSQLiteStorage("orderdesk.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	product, err := store.GetProduct(ctx, productID)
//
// # Transactions
//
// Use transactions for atomic operations:
//
//	tx, err := store.BeginTx(ctx)
//	if err != nil {
//	    return err
//	}
//	defer tx.Rollback()
//
//	if err := tx.DecrementStock(ctx, productID, 2); err != nil {
//	    return err // ErrInsufficientStock when the product is inactive or short
//	}
//	seq, _ := tx.NextSequence(ctx, storage.OrderSequence)
//	_ = tx.CreateOrder(ctx, order)
//
//	return tx.Commit()
//
// The pool holds a single connection, so transactions are serialized. Never
// call the non-transactional Storage while a transaction is open on the same
// goroutine: it would wait for the connection the transaction holds.
//
// # Build Tags
//
// Pure Go build (default or purego tag) uses modernc.org/sqlite.
// CGO build (sqlite_cgo tag) uses github.com/mattn/go-sqlite3.
package storage
