package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dshills/orderdesk/internal/storage"
	"github.com/dshills/orderdesk/pkg/types"
)

// GetOrder returns the full order matching identifier, trying the order
// number first and the internal id second.
func (s *Service) GetOrder(ctx context.Context, identifier string) (*types.Order, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, types.Validationf("order identifier is required")
	}

	order, err := s.store.GetOrderByNumber(ctx, identifier)
	if err == nil {
		return order, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	order, err = s.store.GetOrderByID(ctx, identifier)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, types.NotFoundf("Order not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return order, nil
}

// TrackOrder returns the public tracking view, keyed strictly by order number
func (s *Service) TrackOrder(ctx context.Context, orderNumber string) (*types.Tracking, error) {
	orderNumber = strings.TrimSpace(orderNumber)
	if orderNumber == "" {
		return nil, types.Validationf("orderNumber is required")
	}

	order, err := s.store.GetOrderByNumber(ctx, orderNumber)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, types.NotFoundf("Order not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to track order: %w", err)
	}
	return order.Tracking(), nil
}

// ListOrders returns one page of orders, newest first, and the total count
func (s *Service) ListOrders(ctx context.Context, filter storage.OrderFilter) ([]*types.Order, int, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, types.Validationf("status must be one of %v", types.OrderStatuses)
	}
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	orders, total, err := s.store.ListOrders(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, total, nil
}
