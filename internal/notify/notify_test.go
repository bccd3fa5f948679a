package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/orderdesk/internal/config"
	"github.com/dshills/orderdesk/pkg/types"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleOrder() *types.Order {
	return &types.Order{
		ID:          "order-1",
		OrderNumber: "ORD000001",
		CustomerInfo: types.CustomerInfo{
			FullName: "Ada Lovelace",
			Email:    "ada@example.com",
			Address:  "12 Analytical St",
		},
		Items: []types.LineItem{{
			ProductID: "p1",
			Snapshot:  types.ProductSnapshot{Name: "Lamp", Price: decimal.RequireFromString("9.5")},
			Quantity:  2,
			UnitPrice: decimal.RequireFromString("9.5"),
		}},
		TotalAmount:   decimal.RequireFromString("19"),
		PaymentMethod: types.PaymentCashOnDelivery,
	}
}

// flakyNotifier fails the first failures calls, then records deliveries
type flakyNotifier struct {
	failures  int32
	calls     atomic.Int32
	mu        sync.Mutex
	delivered []string
	block     chan struct{}
}

func (f *flakyNotifier) SendOrderConfirmation(ctx context.Context, order *types.Order) error {
	n := f.calls.Add(1)
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if n <= f.failures {
		return errors.New("smtp unavailable")
	}
	f.mu.Lock()
	f.delivered = append(f.delivered, order.OrderNumber)
	f.mu.Unlock()
	return nil
}

func (f *flakyNotifier) Name() string { return "flaky" }

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{MaxRetries: attempts, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2}
}

func TestDispatcherRetriesUntilDelivered(t *testing.T) {
	n := &flakyNotifier{failures: 2}
	d := NewDispatcher(n, DispatcherConfig{Workers: 1, Retry: fastRetry(3)}, discardLogger())

	require.NoError(t, d.Enqueue(sampleOrder()))
	require.NoError(t, d.Close(context.Background()))

	assert.Equal(t, int32(3), n.calls.Load())
	assert.Equal(t, []string{"ORD000001"}, n.delivered)
}

func TestDispatcherSwallowsFinalFailure(t *testing.T) {
	n := &flakyNotifier{failures: 100}
	d := NewDispatcher(n, DispatcherConfig{Workers: 1, Retry: fastRetry(2)}, discardLogger())

	require.NoError(t, d.Enqueue(sampleOrder()))
	require.NoError(t, d.Close(context.Background()))

	assert.Equal(t, int32(2), n.calls.Load())
	assert.Empty(t, n.delivered)
}

func TestDispatcherQueueFull(t *testing.T) {
	n := &flakyNotifier{block: make(chan struct{})}
	d := NewDispatcher(n, DispatcherConfig{Workers: 1, QueueSize: 1, Retry: fastRetry(1)}, discardLogger())

	require.NoError(t, d.Enqueue(sampleOrder()))
	// Wait for the worker to pick up the first order so the queue is empty again
	require.Eventually(t, func() bool { return n.calls.Load() == 1 }, time.Second, time.Millisecond)

	require.NoError(t, d.Enqueue(sampleOrder()))
	assert.ErrorIs(t, d.Enqueue(sampleOrder()), ErrQueueFull)

	close(n.block)
	require.NoError(t, d.Close(context.Background()))
	assert.Len(t, n.delivered, 2)
}

func TestDispatcherClosed(t *testing.T) {
	d := NewDispatcher(&flakyNotifier{}, DispatcherConfig{}, discardLogger())
	require.NoError(t, d.Close(context.Background()))
	require.NoError(t, d.Close(context.Background()))
	assert.ErrorIs(t, d.Enqueue(sampleOrder()), ErrDispatcherClose)
}

func TestDispatcherCloseDeadline(t *testing.T) {
	n := &flakyNotifier{block: make(chan struct{})}
	d := NewDispatcher(n, DispatcherConfig{Workers: 1, Retry: fastRetry(1)}, discardLogger())
	require.NoError(t, d.Enqueue(sampleOrder()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, d.Close(ctx), context.DeadlineExceeded)
}

func TestWebhookNotifier(t *testing.T) {
	var got webhookPayload
	var key string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key = r.Header.Get("Idempotency-Key")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, time.Second)
	require.NoError(t, n.SendOrderConfirmation(context.Background(), sampleOrder()))
	assert.Equal(t, "order.confirmed", got.Event)
	assert.Equal(t, "ORD000001", got.Order.OrderNumber)
	assert.Equal(t, "order-1", key)

	t.Run("non 2xx is an error", func(t *testing.T) {
		failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "relay down", http.StatusBadGateway)
		}))
		defer failing.Close()

		err := NewWebhookNotifier(failing.URL, time.Second).SendOrderConfirmation(context.Background(), sampleOrder())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "502")
	})
}

func TestSMTPNotifier(t *testing.T) {
	n := NewSMTPNotifier("mail.local:587", "user", "secret", "shop@example.com")
	var to []string
	var body string
	n.sendMail = func(ctx context.Context, addr string, a smtp.Auth, from string, rcpt []string, msg []byte) error {
		assert.Equal(t, "mail.local:587", addr)
		assert.NotNil(t, a)
		to = rcpt
		body = string(msg)
		return nil
	}

	require.NoError(t, n.SendOrderConfirmation(context.Background(), sampleOrder()))
	assert.Equal(t, []string{"ada@example.com"}, to)
	assert.Contains(t, body, "Subject: Order ORD000001 confirmed")
	assert.Contains(t, body, "2 x Lamp @ 9.50")
	assert.Contains(t, body, "Total: 19.00")

	t.Run("missing recipient", func(t *testing.T) {
		o := sampleOrder()
		o.CustomerInfo.Email = ""
		assert.ErrorIs(t, n.SendOrderConfirmation(context.Background(), o), ErrNoRecipient)
	})
}

func TestSMTPNotifierStalledServer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	// Accept and never send the greeting
	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			accepted <- conn
		}
	}()
	t.Cleanup(func() {
		select {
		case conn := <-accepted:
			_ = conn.Close()
		default:
		}
	})

	n := NewSMTPNotifier(ln.Addr().String(), "", "", "shop@example.com")
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	err = n.SendOrderConfirmation(ctx, sampleOrder())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second, "send must return once the context expires")
}

func TestNewFromConfig(t *testing.T) {
	n, err := New(config.NotifyConfig{Provider: "log"}, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, "log", n.Name())

	n, err = New(config.NotifyConfig{Provider: "webhook", WebhookURL: "http://x"}, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, "webhook", n.Name())

	_, err = New(config.NotifyConfig{Provider: "smtp"}, discardLogger())
	assert.Error(t, err)

	_, err = New(config.NotifyConfig{Provider: "fax"}, discardLogger())
	assert.Error(t, err)
}
