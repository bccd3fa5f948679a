package mcp

import (
	"context"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/orderdesk/internal/catalog"
	"github.com/dshills/orderdesk/internal/orders"
	"github.com/dshills/orderdesk/internal/storage"
	"github.com/dshills/orderdesk/pkg/types"
)

const (
	// ServerName is the MCP server name
	ServerName = "orderdesk"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// OrderAdmin is the subset of the order service the tools drive.
// *orders.Service satisfies it.
type OrderAdmin interface {
	GetOrder(ctx context.Context, identifier string) (*types.Order, error)
	TrackOrder(ctx context.Context, orderNumber string) (*types.Tracking, error)
	ListOrders(ctx context.Context, filter storage.OrderFilter) ([]*types.Order, int, error)
	UpdateStatus(ctx context.Context, orderID string, upd orders.StatusUpdate) (*types.Order, error)
	Cancel(ctx context.Context, orderID, reason string) (*types.Order, error)
	Delete(ctx context.Context, orderID string) error
}

// ProductLister lists catalog products. *catalog.Service satisfies it.
type ProductLister interface {
	List(ctx context.Context, filter catalog.ListFilter) ([]*types.Product, error)
}

// Server exposes the order admin tools over MCP
type Server struct {
	mcp     *server.MCPServer
	orders  OrderAdmin
	catalog ProductLister
	logger  *slog.Logger
}

// NewServer creates a new MCP server instance backed by the given services
func NewServer(orderSvc OrderAdmin, catalogSvc ProductLister, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
		server.WithToolCapabilities(false),
	)

	s := &Server{
		mcp:     mcpServer,
		orders:  orderSvc,
		catalog: catalogSvc,
		logger:  logger.With("component", "mcp"),
	}
	s.registerTools()
	return s
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(getOrderTool(), s.handleGetOrder)
	s.mcp.AddTool(trackOrderTool(), s.handleTrackOrder)
	s.mcp.AddTool(listOrdersTool(), s.handleListOrders)
	s.mcp.AddTool(updateOrderStatusTool(), s.handleUpdateOrderStatus)
	s.mcp.AddTool(cancelOrderTool(), s.handleCancelOrder)
	s.mcp.AddTool(deleteOrderTool(), s.handleDeleteOrder)
	s.mcp.AddTool(listProductsTool(), s.handleListProducts)
}
