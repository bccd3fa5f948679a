package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/orderdesk/pkg/types"
)

func orderStatusNames() []string {
	names := make([]string, len(types.OrderStatuses))
	for i, s := range types.OrderStatuses {
		names[i] = string(s)
	}
	return names
}

func paymentStatusNames() []string {
	names := make([]string, len(types.PaymentStatuses))
	for i, s := range types.PaymentStatuses {
		names[i] = string(s)
	}
	return names
}

// getOrderTool returns the tool definition for get_order
func getOrderTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_order",
		Description: "Fetch a full order by order number (e.g. ORD000042) or internal id",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"identifier": map[string]interface{}{
					"type":        "string",
					"description": "Order number or order id",
				},
			},
			Required: []string{"identifier"},
		},
	}
}

// trackOrderTool returns the tool definition for track_order
func trackOrderTool() mcp.Tool {
	return mcp.Tool{
		Name:        "track_order",
		Description: "Show the public tracking view of an order",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"order_number": map[string]interface{}{
					"type":        "string",
					"description": "Order number, e.g. ORD000042",
				},
			},
			Required: []string{"order_number"},
		},
	}
}

// listOrdersTool returns the tool definition for list_orders
func listOrdersTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_orders",
		Description: "List orders, newest first, optionally filtered by status",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"status": map[string]interface{}{
					"type":        "string",
					"description": "Only orders in this status",
					"enum":        orderStatusNames(),
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of orders to return (1-100)",
					"default":     20,
					"minimum":     1,
					"maximum":     100,
				},
				"offset": map[string]interface{}{
					"type":        "integer",
					"description": "Number of orders to skip",
					"default":     0,
					"minimum":     0,
				},
			},
		},
	}
}

// updateOrderStatusTool returns the tool definition for update_order_status
func updateOrderStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "update_order_status",
		Description: "Change the order and/or payment status of an order and record a history entry",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"order_id": map[string]interface{}{
					"type":        "string",
					"description": "Internal order id",
				},
				"order_status": map[string]interface{}{
					"type":        "string",
					"description": "New order status",
					"enum":        orderStatusNames(),
				},
				"payment_status": map[string]interface{}{
					"type":        "string",
					"description": "New payment status",
					"enum":        paymentStatusNames(),
				},
				"admin_notes": map[string]interface{}{
					"type":        "string",
					"description": "Note recorded in the status history",
				},
				"force": map[string]interface{}{
					"type":        "boolean",
					"description": "Bypass the transition table (cancelled orders still cannot be reopened)",
					"default":     false,
				},
			},
			Required: []string{"order_id"},
		},
	}
}

// cancelOrderTool returns the tool definition for cancel_order
func cancelOrderTool() mcp.Tool {
	return mcp.Tool{
		Name:        "cancel_order",
		Description: "Cancel an order that is not yet delivered and return its items to stock",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"order_id": map[string]interface{}{
					"type":        "string",
					"description": "Internal order id",
				},
				"reason": map[string]interface{}{
					"type":        "string",
					"description": "Cancellation reason recorded in the history",
				},
			},
			Required: []string{"order_id"},
		},
	}
}

// deleteOrderTool returns the tool definition for delete_order
func deleteOrderTool() mcp.Tool {
	return mcp.Tool{
		Name:        "delete_order",
		Description: "Permanently delete an order, restocking its items unless it was delivered",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"order_id": map[string]interface{}{
					"type":        "string",
					"description": "Internal order id",
				},
			},
			Required: []string{"order_id"},
		},
	}
}

// listProductsTool returns the tool definition for list_products
func listProductsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_products",
		Description: "List catalog products with price and stock",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"include_inactive": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, include products hidden from the storefront",
					"default":     false,
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of products to return (1-100)",
					"default":     50,
					"minimum":     1,
					"maximum":     100,
				},
			},
		},
	}
}
