package orders

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dshills/orderdesk/internal/storage"
	"github.com/dshills/orderdesk/pkg/types"
)

// ItemRequest asks for quantity units of one product
type ItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// PlaceOrderRequest is the cart submitted by a customer
type PlaceOrderRequest struct {
	CustomerInfo  *types.CustomerInfo `json:"customerInfo"`
	Items         []ItemRequest       `json:"items"`
	PaymentMethod types.PaymentMethod `json:"paymentMethod"`
	Notes         string              `json:"notes,omitempty"`
}

// Validate checks the request shape. It runs before any storage access.
func (r *PlaceOrderRequest) Validate() error {
	if r.CustomerInfo == nil {
		return types.Validationf("customerInfo is required")
	}
	if len(r.Items) == 0 {
		return types.Validationf("items must be a non-empty list")
	}
	if r.PaymentMethod == "" {
		return types.Validationf("paymentMethod is required")
	}
	if !r.PaymentMethod.Valid() {
		return types.Validationf("paymentMethod must be one of %v", types.PaymentMethods)
	}

	c := r.CustomerInfo
	required := []struct {
		name  string
		value string
	}{
		{"fullName", c.FullName},
		{"email", c.Email},
		{"phone", c.Phone},
		{"address", c.Address},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return types.Validationf("customerInfo.%s is required", f.name)
		}
	}
	// Only a bare address is accepted; it is used verbatim as the mail recipient
	if addr, err := mail.ParseAddress(c.Email); err != nil || addr.Address != c.Email {
		return types.Validationf("customerInfo.email is invalid")
	}

	for i, item := range r.Items {
		if strings.TrimSpace(item.ProductID) == "" {
			return types.Validationf("items[%d].productId is required", i)
		}
		if item.Quantity < 1 {
			return types.Validationf("items[%d].quantity must be a positive integer", i)
		}
	}
	return nil
}

// PlaceOrder validates the cart, reserves stock, and records the order.
//
// Stock is checked for every item before any debit is written, and all debits,
// the order number and the order insert share one transaction: any failure
// leaves every product's stock untouched. The confirmation is queued only
// after commit and its outcome never affects the order.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*types.Order, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	order, err := s.placeOnce(ctx, req)
	if errors.Is(err, storage.ErrAlreadyExists) {
		// The sequence was rolled back with the transaction; burn the
		// colliding value so the retry draws a fresh number.
		s.logger.Warn("order number collision, retrying")
		if _, seqErr := s.store.NextSequence(ctx, storage.OrderSequence); seqErr != nil {
			return nil, fmt.Errorf("failed to advance order sequence: %w", seqErr)
		}
		order, err = s.placeOnce(ctx, req)
	}
	if errors.Is(err, storage.ErrAlreadyExists) {
		return nil, types.Conflictf("Could not assign a unique order number, please retry")
	}
	if err != nil {
		if types.IsClientError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to place order: %w", err)
	}

	s.logger.Info("order placed",
		"order_id", order.ID,
		"order_number", order.OrderNumber,
		"total", order.TotalAmount.StringFixed(2),
		"items", len(order.Items))

	s.notify(order)
	return order, nil
}

func (s *Service) placeOnce(ctx context.Context, req PlaceOrderRequest) (*types.Order, error) {
	var order *types.Order
	err := s.inTx(ctx, func(tx storage.Tx) error {
		items, total, err := reserveStock(ctx, tx, req.Items)
		if err != nil {
			return err
		}

		number, err := nextOrderNumber(ctx, tx)
		if err != nil {
			return err
		}

		ts := s.now()
		customer := *req.CustomerInfo
		order = &types.Order{
			ID:            uuid.NewString(),
			OrderNumber:   number,
			CustomerInfo:  customer,
			Items:         items,
			TotalAmount:   total,
			PaymentMethod: req.PaymentMethod,
			PaymentStatus: types.PaymentPending,
			OrderStatus:   types.OrderPending,
			Notes:         req.Notes,
			StatusHistory: []types.StatusEntry{{
				Status:    types.OrderPending,
				Note:      "Order placed",
				Timestamp: ts,
			}},
			CreatedAt: ts,
		}
		if err := tx.CreateOrder(ctx, order); err != nil {
			return err
		}

		// Return the document as stored
		order, err = tx.GetOrderByID(ctx, order.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// reserveStock snapshots every requested product and debits its stock.
// Phase one reads and validates all items without writing; phase two applies
// the conditional decrements. Both run inside the caller's transaction.
func reserveStock(ctx context.Context, tx storage.Tx, requested []ItemRequest) ([]types.LineItem, decimal.Decimal, error) {
	products := make(map[string]*types.Product, len(requested))
	demand := make(map[string]int, len(requested))
	order := make([]string, 0, len(requested))

	items := make([]types.LineItem, 0, len(requested))
	total := decimal.Zero

	for _, req := range requested {
		product, ok := products[req.ProductID]
		if !ok {
			p, err := tx.GetProduct(ctx, req.ProductID)
			if errors.Is(err, storage.ErrNotFound) {
				return nil, decimal.Zero, types.NotAvailablef("Product %s is not available", req.ProductID)
			}
			if err != nil {
				return nil, decimal.Zero, err
			}
			product = p
			products[req.ProductID] = p
			order = append(order, req.ProductID)
		}
		if !product.IsActive {
			return nil, decimal.Zero, types.NotAvailablef("Product %s is not available", product.Name)
		}

		demand[req.ProductID] += req.Quantity
		if !product.Purchasable(demand[req.ProductID]) {
			return nil, decimal.Zero, types.NotAvailablef("Insufficient stock for %s", product.Name)
		}

		item := types.LineItem{
			ProductID: product.ID,
			Snapshot: types.ProductSnapshot{
				Name:  product.Name,
				Price: product.Price,
				Image: product.Image,
			},
			Quantity:  req.Quantity,
			UnitPrice: product.Price,
		}
		items = append(items, item)
		total = total.Add(item.Subtotal())
	}

	for _, productID := range order {
		err := tx.DecrementStock(ctx, productID, demand[productID])
		if errors.Is(err, storage.ErrInsufficientStock) {
			return nil, decimal.Zero, types.NotAvailablef("Insufficient stock for %s", products[productID].Name)
		}
		if err != nil {
			return nil, decimal.Zero, err
		}
	}

	return items, total, nil
}
