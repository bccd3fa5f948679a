// Package mcp implements the Model Context Protocol (MCP) server for orderdesk.
//
// The MCP server exposes order administration to AI assistants and scripts:
//   - get_order: Fetch a full order by number or id
//   - track_order: Public tracking view by order number
//   - list_orders: Page through orders, optionally by status
//   - update_order_status: Change order and/or payment status
//   - cancel_order: Cancel and restock an undelivered order
//   - delete_order: Remove an order permanently
//   - list_products: Catalog with price and stock
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// # Basic Usage
//
//	orderdesk mcp
//
// The server listens on stdin and writes responses to stdout. Logs go to stderr.
//
// # Tool: update_order_status
//
//	Request:
//	{
//	  "name": "update_order_status",
//	  "arguments": {
//	    "order_id": "5f0c...",
//	    "order_status": "shipped",
//	    "admin_notes": "Handed to courier"
//	  }
//	}
//
//	Response:
//	{
//	  "updated": true,
//	  "order_number": "ORD000042",
//	  "order_status": "shipped",
//	  "payment_status": "pending",
//	  "history_count": 3
//	}
//
// # MCP Client Configuration
//
//	{
//	  "mcpServers": {
//	    "orderdesk": {
//	      "command": "/usr/local/bin/orderdesk",
//	      "args": ["mcp"],
//	      "env": {
//	        "ORDERDESK_DB_PATH": "/var/lib/orderdesk/orderdesk.db"
//	      }
//	    }
//	  }
//	}
//
// # Error Handling
//
// Error codes:
//   - -32602: Invalid params (missing arguments, validation, unavailable product)
//   - -32603: Internal error (database)
//   - -32001: Order or product not found
//   - -32002: Status transition not allowed
//   - -32003: Order cannot be cancelled
//   - -32004: Conflict
package mcp
