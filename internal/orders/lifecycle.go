package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dshills/orderdesk/internal/storage"
	"github.com/dshills/orderdesk/pkg/types"
)

// DefaultCancelNote is recorded when a cancellation carries no reason
const DefaultCancelNote = "Order cancelled by customer"

// StatusUpdate is an admin transition request. Empty fields are left unchanged.
type StatusUpdate struct {
	OrderStatus   types.OrderStatus   `json:"orderStatus,omitempty"`
	PaymentStatus types.PaymentStatus `json:"paymentStatus,omitempty"`
	AdminNotes    string              `json:"adminNotes,omitempty"`
	// Force bypasses the transition tables. A cancelled order still cannot be reopened.
	Force bool `json:"force,omitempty"`
}

func (u StatusUpdate) validate() error {
	if u.OrderStatus != "" && !u.OrderStatus.Valid() {
		return types.Validationf("orderStatus must be one of %v", types.OrderStatuses)
	}
	if u.PaymentStatus != "" && !u.PaymentStatus.Valid() {
		return types.Validationf("paymentStatus must be one of %v", types.PaymentStatuses)
	}
	return nil
}

// UpdateStatus applies an admin transition and appends at most one history entry.
//
// When the order status changes, the entry records the new status even if the
// payment status changed in the same call. A payment-only change records an
// entry under the current order status. A note with no change records a
// note-only entry. A request that changes nothing and carries no note is a no-op.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, upd StatusUpdate) (*types.Order, error) {
	if err := upd.validate(); err != nil {
		return nil, err
	}
	note := strings.TrimSpace(upd.AdminNotes)

	var updated *types.Order
	err := s.inTx(ctx, func(tx storage.Tx) error {
		order, err := loadOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}

		statusChanged := upd.OrderStatus != "" && upd.OrderStatus != order.OrderStatus
		paymentChanged := upd.PaymentStatus != "" && upd.PaymentStatus != order.PaymentStatus
		if !statusChanged && !paymentChanged && note == "" {
			updated = order
			return nil
		}

		if statusChanged {
			if err := checkOrderTransition(order.OrderStatus, upd.OrderStatus, upd.Force); err != nil {
				return err
			}
		}
		if paymentChanged && !upd.Force && !order.PaymentStatus.CanTransitionTo(upd.PaymentStatus) {
			return types.InvalidTransitionf("Cannot change payment status from %s to %s",
				order.PaymentStatus, upd.PaymentStatus)
		}

		ts := s.now()
		var entry types.StatusEntry
		switch {
		case statusChanged:
			if upd.OrderStatus == types.OrderCancelled && owesStock(order) {
				if err := s.restock(ctx, tx, order); err != nil {
					return err
				}
				order.StockRestored = true
			}
			order.OrderStatus = upd.OrderStatus
			stampShipping(order, ts)
			if paymentChanged {
				order.PaymentStatus = upd.PaymentStatus
			}
			entry = types.StatusEntry{
				Status: order.OrderStatus,
				Note:   noteOr(note, fmt.Sprintf("Order status updated to %s", order.OrderStatus)),
			}
		case paymentChanged:
			order.PaymentStatus = upd.PaymentStatus
			entry = types.StatusEntry{
				Status: order.OrderStatus,
				Note:   noteOr(note, fmt.Sprintf("Payment status updated to %s", order.PaymentStatus)),
			}
		default:
			entry = types.StatusEntry{Status: order.OrderStatus, Note: note}
		}
		entry.Timestamp = ts
		if note != "" {
			order.AdminNotes = note
		}

		if err := tx.UpdateOrder(ctx, order); err != nil {
			return err
		}
		if err := tx.AppendHistory(ctx, order.ID, entry); err != nil {
			return err
		}
		updated, err = tx.GetOrderByID(ctx, order.ID)
		return err
	})
	if err != nil {
		return nil, wrapInternal("update order status", err)
	}

	s.logger.Info("order status updated",
		"order_number", updated.OrderNumber,
		"order_status", updated.OrderStatus,
		"payment_status", updated.PaymentStatus)
	return updated, nil
}

// Cancel cancels an order that is neither delivered nor already cancelled,
// returning its items to stock.
func (s *Service) Cancel(ctx context.Context, orderID, reason string) (*types.Order, error) {
	var cancelled *types.Order
	err := s.inTx(ctx, func(tx storage.Tx) error {
		order, err := loadOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if !order.OrderStatus.Cancellable() {
			return types.NotCancellablef("Order cannot be cancelled as it is already %s", order.OrderStatus)
		}

		if owesStock(order) {
			if err := s.restock(ctx, tx, order); err != nil {
				return err
			}
			order.StockRestored = true
		}
		order.OrderStatus = types.OrderCancelled

		if err := tx.UpdateOrder(ctx, order); err != nil {
			return err
		}
		entry := types.StatusEntry{
			Status:    types.OrderCancelled,
			Note:      noteOr(strings.TrimSpace(reason), DefaultCancelNote),
			Timestamp: s.now(),
		}
		if err := tx.AppendHistory(ctx, order.ID, entry); err != nil {
			return err
		}
		cancelled, err = tx.GetOrderByID(ctx, order.ID)
		return err
	})
	if err != nil {
		return nil, wrapInternal("cancel order", err)
	}

	s.logger.Info("order cancelled", "order_number", cancelled.OrderNumber)
	return cancelled, nil
}

// Delete permanently removes an order. Items of an order that was never
// delivered go back to stock first, unless a cancellation already returned them.
func (s *Service) Delete(ctx context.Context, orderID string) error {
	var number string
	err := s.inTx(ctx, func(tx storage.Tx) error {
		order, err := loadOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		number = order.OrderNumber

		if owesStock(order) {
			if err := s.restock(ctx, tx, order); err != nil {
				return err
			}
		}
		return tx.DeleteOrder(ctx, order.ID)
	})
	if err != nil {
		return wrapInternal("delete order", err)
	}

	s.logger.Info("order deleted", "order_number", number)
	return nil
}

// restock credits every line item back to its product. Products that no
// longer exist are skipped. Quantities for the same product are summed so
// each product is written once.
func (s *Service) restock(ctx context.Context, tx storage.Tx, order *types.Order) error {
	credit := make(map[string]int, len(order.Items))
	seen := make([]string, 0, len(order.Items))
	for _, item := range order.Items {
		if _, ok := credit[item.ProductID]; !ok {
			seen = append(seen, item.ProductID)
		}
		credit[item.ProductID] += item.Quantity
	}

	for _, productID := range seen {
		err := tx.IncrementStock(ctx, productID, credit[productID])
		if errors.Is(err, storage.ErrNotFound) {
			s.logger.Debug("restock skipped, product gone",
				"order_number", order.OrderNumber, "product_id", productID)
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func checkOrderTransition(from, to types.OrderStatus, force bool) error {
	if from == types.OrderCancelled {
		return types.InvalidTransitionf("Cancelled orders cannot be reopened")
	}
	if !force && !from.CanTransitionTo(to) {
		return types.InvalidTransitionf("Cannot change order status from %s to %s", from, to)
	}
	return nil
}

// stampShipping records fulfilment timestamps when an order ships or arrives
func stampShipping(order *types.Order, ts time.Time) {
	switch order.OrderStatus {
	case types.OrderShipped:
		if order.ShippingInfo.ShippedAt == nil {
			order.ShippingInfo.ShippedAt = &ts
		}
	case types.OrderDelivered:
		if order.ShippingInfo.ShippedAt == nil {
			order.ShippingInfo.ShippedAt = &ts
		}
		order.ShippingInfo.DeliveredAt = &ts
	}
}

// owesStock reports whether the order's items are still out of stock and were
// never handed to the customer
func owesStock(order *types.Order) bool {
	return !order.StockRestored && !order.Fulfilled()
}

func noteOr(note, fallback string) string {
	if note != "" {
		return note
	}
	return fallback
}

func wrapInternal(op string, err error) error {
	if types.IsClientError(err) {
		return err
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
