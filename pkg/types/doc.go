// Package types provides the domain types shared by the orderdesk components.
//
// # Core Types
//
// Product is a catalog entry with a price, a stock count and an active flag.
// Order is a placed order holding frozen LineItem snapshots and an append-only
// StatusEntry history:
//
//	order := &types.Order{
//	    OrderNumber:   "ORD000042",
//	    PaymentMethod: types.PaymentCashOnDelivery,
//	    OrderStatus:   types.OrderPending,
//	    PaymentStatus: types.PaymentPending,
//	}
//
// # Status Enumerations
//
// OrderStatus and PaymentStatus are closed enumerations with explicit
// transition tables:
//
//	types.OrderProcessing.CanTransitionTo(types.OrderShipped) // true
//	types.OrderDelivered.CanTransitionTo(types.OrderPending)  // false
//
// # Errors
//
// Client-facing failures are *types.Error values wrapping one of the kind
// sentinels, so callers can branch with errors.Is and still show the message:
//
//	if errors.Is(err, types.ErrNotAvailable) {
//	    fmt.Println(types.Message(err)) // "Insufficient stock for Desk Lamp"
//	}
//
// Money is represented with github.com/shopspring/decimal and serialized as a
// JSON number.
package types
