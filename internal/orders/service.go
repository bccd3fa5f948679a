package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/dshills/orderdesk/internal/storage"
	"github.com/dshills/orderdesk/pkg/types"
)

// Notifier accepts committed orders for best-effort confirmation.
// *notify.Dispatcher satisfies it.
type Notifier interface {
	Enqueue(order *types.Order) error
}

// Service implements order placement, lookup and lifecycle transitions
type Service struct {
	store    storage.Storage
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates an order service. notifier may be nil.
func NewService(store storage.Storage, notifier Notifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:    store,
		notifier: notifier,
		logger:   logger.With("component", "orders"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// inTx runs fn inside a transaction and commits when fn succeeds
func (s *Service) inTx(ctx context.Context, fn func(tx storage.Tx) error) error {
	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// loadOrder fetches an order by id inside tx, mapping absence to a client error
func loadOrder(ctx context.Context, tx storage.Tx, orderID string) (*types.Order, error) {
	order, err := tx.GetOrderByID(ctx, orderID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, types.NotFoundf("Order not found")
	}
	if err != nil {
		return nil, err
	}
	return order, nil
}

// notify hands a copy of the committed order to the notifier
func (s *Service) notify(order *types.Order) {
	if s.notifier == nil {
		return
	}
	snapshot := *order
	snapshot.Items = slices.Clone(order.Items)
	snapshot.StatusHistory = slices.Clone(order.StatusHistory)
	if err := s.notifier.Enqueue(&snapshot); err != nil {
		s.logger.Warn("confirmation not queued", "order_number", order.OrderNumber, "error", err)
	}
}
