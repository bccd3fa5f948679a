// Package api serves the storefront and admin REST API under /api.
//
// Routes:
//
//	POST   /api/orders                  place an order (rate limited, Idempotency-Key aware)
//	GET    /api/orders                  list orders (admin)
//	GET    /api/orders/{identifier}     order by number or id
//	GET    /api/orders/track/{number}   public tracking view
//	PUT    /api/orders/{id}/status      change order/payment status (admin)
//	PUT    /api/orders/{id}/cancel      cancel an order
//	DELETE /api/orders/{id}             delete an order (admin)
//	GET    /api/products                active products
//	GET    /api/products/{id}           one product
//	POST   /api/products                create a product (admin)
//	PUT    /api/products/{id}           update a product (admin)
//	GET    /api/health                  liveness
//
// Admin routes require "Authorization: Bearer <jwt>" signed with HS256 and
// carrying role=admin. Failures are rendered as {"success":false,"message":...}.
package api
