package orders

import (
	"context"
	"fmt"

	"github.com/dshills/orderdesk/internal/storage"
)

// OrderNumberPrefix starts every order number
const OrderNumberPrefix = "ORD"

// FormatOrderNumber renders a sequence value as a human-readable order number
func FormatOrderNumber(seq int64) string {
	return fmt.Sprintf("%s%06d", OrderNumberPrefix, seq)
}

// nextOrderNumber draws the next value of the order sequence inside tx.
// The counter is incremented atomically, so concurrent placements never
// share a number; the unique index on order_number backstops it.
func nextOrderNumber(ctx context.Context, tx storage.Tx) (string, error) {
	seq, err := tx.NextSequence(ctx, storage.OrderSequence)
	if err != nil {
		return "", err
	}
	return FormatOrderNumber(seq), nil
}
