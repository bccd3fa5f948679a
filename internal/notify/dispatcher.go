package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/orderdesk/pkg/types"
)

// DispatcherConfig tunes the background delivery pool
type DispatcherConfig struct {
	QueueSize int           // Pending confirmations before Enqueue drops (default: 256)
	Workers   int           // Concurrent senders (default: 2)
	Timeout   time.Duration // Per-attempt send timeout (default: 10s)
	Retry     RetryConfig
}

// Dispatcher delivers confirmations off the request path.
// Delivery failures are logged and never reported back to the caller.
type Dispatcher struct {
	notifier Notifier
	config   DispatcherConfig
	logger   *slog.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan *types.Order

	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group
}

// NewDispatcher starts the worker pool
func NewDispatcher(notifier Notifier, config DispatcherConfig, logger *slog.Logger) *Dispatcher {
	if config.QueueSize <= 0 {
		config.QueueSize = 256
	}
	if config.Workers <= 0 {
		config.Workers = 2
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	if config.Retry.MaxRetries <= 0 {
		config.Retry = DefaultRetryConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		notifier: notifier,
		config:   config,
		logger:   logger.With("component", "notify", "provider", notifier.Name()),
		queue:    make(chan *types.Order, config.QueueSize),
		ctx:      ctx,
		cancel:   cancel,
		group:    &errgroup.Group{},
	}

	for i := 0; i < config.Workers; i++ {
		d.group.Go(d.work)
	}
	return d
}

// Enqueue schedules a confirmation without blocking.
// It returns ErrQueueFull or ErrDispatcherClose when the order is dropped.
func (d *Dispatcher) Enqueue(order *types.Order) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return ErrDispatcherClose
	}
	select {
	case d.queue <- order:
		return nil
	default:
		d.logger.Warn("confirmation dropped", "order_number", order.OrderNumber, "reason", ErrQueueFull)
		return ErrQueueFull
	}
}

func (d *Dispatcher) work() error {
	for order := range d.queue {
		d.deliver(order)
	}
	return nil
}

func (d *Dispatcher) deliver(order *types.Order) {
	err := retryWithBackoff(d.ctx, d.config.Retry, func(attempt int) error {
		ctx, cancel := context.WithTimeout(d.ctx, d.config.Timeout)
		defer cancel()
		err := d.notifier.SendOrderConfirmation(ctx, order)
		if err != nil {
			d.logger.Debug("confirmation attempt failed",
				"order_number", order.OrderNumber, "attempt", attempt+1, "error", err)
		}
		return err
	})
	if err != nil {
		d.logger.Error("confirmation not delivered", "order_number", order.OrderNumber, "error", err)
		return
	}
	d.logger.Debug("confirmation delivered", "order_number", order.OrderNumber)
}

// Close stops accepting work and waits for queued confirmations to drain.
// When ctx expires first, in-flight sends are cancelled.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- d.group.Wait() }()

	select {
	case err := <-done:
		d.cancel()
		return err
	case <-ctx.Done():
		d.cancel()
		<-done
		return ctx.Err()
	}
}
