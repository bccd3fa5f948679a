package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dshills/orderdesk/internal/catalog"
	"github.com/dshills/orderdesk/internal/orders"
	"github.com/dshills/orderdesk/internal/storage"
	"github.com/dshills/orderdesk/pkg/types"
)

// OrderService is the order workflow used by the handlers.
// *orders.Service satisfies it.
type OrderService interface {
	PlaceOrder(ctx context.Context, req orders.PlaceOrderRequest) (*types.Order, error)
	GetOrder(ctx context.Context, identifier string) (*types.Order, error)
	TrackOrder(ctx context.Context, orderNumber string) (*types.Tracking, error)
	ListOrders(ctx context.Context, filter storage.OrderFilter) ([]*types.Order, int, error)
	UpdateStatus(ctx context.Context, orderID string, upd orders.StatusUpdate) (*types.Order, error)
	Cancel(ctx context.Context, orderID, reason string) (*types.Order, error)
	Delete(ctx context.Context, orderID string) error
}

// CatalogService is the product catalog used by the handlers.
// *catalog.Service satisfies it.
type CatalogService interface {
	Create(ctx context.Context, in catalog.ProductInput) (*types.Product, error)
	Update(ctx context.Context, id string, patch catalog.ProductPatch) (*types.Product, error)
	Get(ctx context.Context, id string) (*types.Product, error)
	List(ctx context.Context, filter catalog.ListFilter) ([]*types.Product, error)
}

// Options tunes the HTTP surface
type Options struct {
	Debug                bool // Include internal error detail in 5xx bodies
	JWTSecret            string
	RateRPS              float64
	RateBurst            int
	IdempotencyCacheSize int
}

// Server holds the HTTP handlers and their middleware state
type Server struct {
	orders  OrderService
	catalog CatalogService
	logger  *slog.Logger
	debug   bool

	auth    *adminAuth
	limiter *ipRateLimiter
	replay  *idempotencyCache
}

// NewServer wires the handlers to the services
func NewServer(orderSvc OrderService, catalogSvc CatalogService, logger *slog.Logger, opts Options) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	replay, err := newIdempotencyCache(opts.IdempotencyCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create idempotency cache: %w", err)
	}
	return &Server{
		orders:  orderSvc,
		catalog: catalogSvc,
		logger:  logger.With("component", "api"),
		debug:   opts.Debug,
		auth:    newAdminAuth(opts.JWTSecret),
		limiter: newIPRateLimiter(opts.RateRPS, opts.RateBurst),
		replay:  replay,
	}, nil
}

// Handler returns the routed HTTP handler
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeFailure(w, http.StatusNotFound, "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeFailure(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/orders", func(r chi.Router) {
			r.With(s.rateLimit, s.idempotent).Post("/", s.handlePlaceOrder)
			r.With(s.adminOnly).Get("/", s.handleListOrders)
			r.Get("/track/{orderNumber}", s.handleTrackOrder)
			r.Get("/{id}", s.handleGetOrder)
			r.Put("/{id}/cancel", s.handleCancelOrder)
			r.With(s.adminOnly).Put("/{id}/status", s.handleUpdateStatus)
			r.With(s.adminOnly).Delete("/{id}", s.handleDeleteOrder)
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", s.handleListProducts)
			r.Get("/{id}", s.handleGetProduct)
			r.With(s.adminOnly).Post("/", s.handleCreateProduct)
			r.With(s.adminOnly).Put("/{id}", s.handleUpdateProduct)
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "status": "ok"})
}
