package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/orderdesk/internal/catalog"
	"github.com/dshills/orderdesk/internal/orders"
	"github.com/dshills/orderdesk/internal/storage"
	"github.com/dshills/orderdesk/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams     = -32602 // Invalid method parameters
	ErrorCodeInternalError     = -32603 // Internal JSON-RPC error
	ErrorCodeNotFound          = -32001 // Order or product does not exist
	ErrorCodeInvalidTransition = -32002 // Status change not allowed
	ErrorCodeNotCancellable    = -32003 // Order already delivered or cancelled
	ErrorCodeConflict          = -32004 // Concurrent modification or duplicate
)

// handleGetOrder handles the get_order tool invocation
func (s *Server) handleGetOrder(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	identifier, err := requireString(args, "identifier")
	if err != nil {
		return nil, err
	}

	order, err := s.orders.GetOrder(ctx, identifier)
	if err != nil {
		return nil, s.toMCPError("get order", err)
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{"order": order})), nil
}

// handleTrackOrder handles the track_order tool invocation
func (s *Server) handleTrackOrder(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	number, err := requireString(args, "order_number")
	if err != nil {
		return nil, err
	}

	tracking, err := s.orders.TrackOrder(ctx, number)
	if err != nil {
		return nil, s.toMCPError("track order", err)
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{"tracking": tracking})), nil
}

// handleListOrders handles the list_orders tool invocation
func (s *Server) handleListOrders(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		args = map[string]interface{}{}
	}

	limit := getIntDefault(args, "limit", 20)
	if limit < 1 || limit > 100 {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 100", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}
	offset := getIntDefault(args, "offset", 0)
	if offset < 0 {
		return nil, newMCPError(ErrorCodeInvalidParams, "offset must not be negative", map[string]interface{}{
			"param": "offset",
			"value": offset,
		})
	}

	list, total, err := s.orders.ListOrders(ctx, storage.OrderFilter{
		Status: types.OrderStatus(getStringDefault(args, "status", "")),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return nil, s.toMCPError("list orders", err)
	}

	summaries := make([]map[string]interface{}, 0, len(list))
	for _, o := range list {
		summaries = append(summaries, map[string]interface{}{
			"id":             o.ID,
			"order_number":   o.OrderNumber,
			"customer":       o.CustomerInfo.FullName,
			"total_amount":   o.TotalAmount,
			"order_status":   o.OrderStatus,
			"payment_status": o.PaymentStatus,
			"created_at":     o.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"orders": summaries,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})), nil
}

// handleUpdateOrderStatus handles the update_order_status tool invocation
func (s *Server) handleUpdateOrderStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	orderID, err := requireString(args, "order_id")
	if err != nil {
		return nil, err
	}

	upd := orders.StatusUpdate{
		OrderStatus:   types.OrderStatus(getStringDefault(args, "order_status", "")),
		PaymentStatus: types.PaymentStatus(getStringDefault(args, "payment_status", "")),
		AdminNotes:    getStringDefault(args, "admin_notes", ""),
		Force:         getBoolDefault(args, "force", false),
	}
	if upd.OrderStatus == "" && upd.PaymentStatus == "" && strings.TrimSpace(upd.AdminNotes) == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "nothing to update", map[string]interface{}{
			"reason": "provide order_status, payment_status or admin_notes",
		})
	}

	order, err := s.orders.UpdateStatus(ctx, orderID, upd)
	if err != nil {
		return nil, s.toMCPError("update order status", err)
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"updated":        true,
		"order_number":   order.OrderNumber,
		"order_status":   order.OrderStatus,
		"payment_status": order.PaymentStatus,
		"history_count":  len(order.StatusHistory),
	})), nil
}

// handleCancelOrder handles the cancel_order tool invocation
func (s *Server) handleCancelOrder(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	orderID, err := requireString(args, "order_id")
	if err != nil {
		return nil, err
	}

	order, err := s.orders.Cancel(ctx, orderID, getStringDefault(args, "reason", ""))
	if err != nil {
		return nil, s.toMCPError("cancel order", err)
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"cancelled":    true,
		"id":           order.ID,
		"order_number": order.OrderNumber,
		"order_status": order.OrderStatus,
	})), nil
}

// handleDeleteOrder handles the delete_order tool invocation
func (s *Server) handleDeleteOrder(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	orderID, err := requireString(args, "order_id")
	if err != nil {
		return nil, err
	}

	if err := s.orders.Delete(ctx, orderID); err != nil {
		return nil, s.toMCPError("delete order", err)
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"deleted":  true,
		"order_id": orderID,
	})), nil
}

// handleListProducts handles the list_products tool invocation
func (s *Server) handleListProducts(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		args = map[string]interface{}{}
	}

	limit := getIntDefault(args, "limit", 50)
	if limit < 1 || limit > 100 {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 100", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	products, err := s.catalog.List(ctx, catalog.ListFilter{
		ActiveOnly: !getBoolDefault(args, "include_inactive", false),
		Limit:      limit,
	})
	if err != nil {
		return nil, s.toMCPError("list products", err)
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"products": products,
		"count":    len(products),
	})), nil
}

// Helper functions

// toMCPError maps a service error onto an MCP error code. Client errors keep
// their message; anything else is logged and reported as internal.
func (s *Server) toMCPError(op string, err error) error {
	msg := types.Message(err)
	switch {
	case errors.Is(err, types.ErrNotFound):
		return newMCPError(ErrorCodeNotFound, msg, nil)
	case errors.Is(err, types.ErrInvalidTransition):
		return newMCPError(ErrorCodeInvalidTransition, msg, nil)
	case errors.Is(err, types.ErrNotCancellable):
		return newMCPError(ErrorCodeNotCancellable, msg, nil)
	case errors.Is(err, types.ErrConflict):
		return newMCPError(ErrorCodeConflict, msg, nil)
	case errors.Is(err, types.ErrValidation), errors.Is(err, types.ErrNotAvailable):
		return newMCPError(ErrorCodeInvalidParams, msg, nil)
	}

	s.logger.Error("tool failed", "op", op, "error", err)
	return newMCPError(ErrorCodeInternalError, op+" failed", map[string]interface{}{
		"error": err.Error(),
	})
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// requireString extracts a mandatory, non-blank string parameter
func requireString(args map[string]interface{}, key string) (string, error) {
	val, ok := args[key].(string)
	if !ok || strings.TrimSpace(val) == "" {
		return "", newMCPError(ErrorCodeInvalidParams, key+" parameter is required", map[string]interface{}{
			"param":  key,
			"reason": "missing or empty",
		})
	}
	return strings.TrimSpace(val), nil
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}
