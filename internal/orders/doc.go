// Package orders implements order placement, lookup and lifecycle transitions.
//
// Placement validates the cart, then in one storage transaction checks every
// item, debits stock with conditional decrements, draws the next order number
// and writes the order. Any failure rolls all of it back. Once committed, the
// order is handed to the Notifier; delivery failures are logged only.
//
// Lifecycle operations (UpdateStatus, Cancel, Delete) load the order, apply
// the status tables in pkg/types, credit stock where needed and append one
// history entry, all inside a transaction.
//
//	svc := orders.NewService(store, dispatcher, logger)
//	order, err := svc.PlaceOrder(ctx, orders.PlaceOrderRequest{...})
//	if errors.Is(err, types.ErrNotAvailable) {
//	    // out of stock or inactive product
//	}
package orders
