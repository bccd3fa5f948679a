package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/dshills/orderdesk/internal/orders"
	"github.com/dshills/orderdesk/internal/storage"
	"github.com/dshills/orderdesk/pkg/types"
)

// placedOrder is the trimmed order returned to the customer after checkout
type placedOrder struct {
	ID            string              `json:"id"`
	OrderNumber   string              `json:"orderNumber"`
	TotalAmount   decimal.Decimal     `json:"totalAmount"`
	PaymentMethod types.PaymentMethod `json:"paymentMethod"`
	Status        types.OrderStatus   `json:"status"`
	CustomerInfo  placedCustomer      `json:"customerInfo"`
}

type placedCustomer struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

type cancelledOrder struct {
	ID          string            `json:"id"`
	OrderNumber string            `json:"orderNumber"`
	OrderStatus types.OrderStatus `json:"orderStatus"`
}

type pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

func (s *Server) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req orders.PlaceOrderRequest
	if err := decodeBody(w, r, placeOrderLoader, &req, false); err != nil {
		s.writeError(w, r, err)
		return
	}

	order, err := s.orders.PlaceOrder(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "Order placed successfully",
		"order": placedOrder{
			ID:            order.ID,
			OrderNumber:   order.OrderNumber,
			TotalAmount:   order.TotalAmount,
			PaymentMethod: order.PaymentMethod,
			Status:        order.OrderStatus,
			CustomerInfo: placedCustomer{
				FullName: order.CustomerInfo.FullName,
				Email:    order.CustomerInfo.Email,
			},
		},
	})
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := s.orders.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "order": order})
}

func (s *Server) handleTrackOrder(w http.ResponseWriter, r *http.Request) {
	tracking, err := s.orders.TrackOrder(r.Context(), chi.URLParam(r, "orderNumber"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "tracking": tracking})
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	page, limit, err := pageParams(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	list, total, err := s.orders.ListOrders(r.Context(), storage.OrderFilter{
		Status: types.OrderStatus(r.URL.Query().Get("status")),
		Limit:  limit,
		Offset: (page - 1) * limit,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"orders":  list,
		"pagination": pagination{
			Page:  page,
			Limit: limit,
			Total: total,
			Pages: (total + limit - 1) / limit,
		},
	})
}

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var upd orders.StatusUpdate
	if err := decodeBody(w, r, statusUpdateLoader, &upd, false); err != nil {
		s.writeError(w, r, err)
		return
	}

	order, err := s.orders.UpdateStatus(r.Context(), chi.URLParam(r, "id"), upd)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Order status updated successfully",
		"order":   order,
	})
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Reason string `json:"reason"`
	}
	if err := decodeBody(w, r, cancelLoader, &body, true); err != nil {
		s.writeError(w, r, err)
		return
	}

	order, err := s.orders.Cancel(r.Context(), chi.URLParam(r, "id"), body.Reason)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Order cancelled successfully",
		"order": cancelledOrder{
			ID:          order.ID,
			OrderNumber: order.OrderNumber,
			OrderStatus: order.OrderStatus,
		},
	})
}

func (s *Server) handleDeleteOrder(w http.ResponseWriter, r *http.Request) {
	if err := s.orders.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Order deleted successfully"})
}

// pageParams reads ?page= and ?limit=, defaulting to page 1 of 20
func pageParams(r *http.Request) (page, limit int, err error) {
	page, limit = 1, 20
	q := r.URL.Query()
	if v := q.Get("page"); v != "" {
		page, err = strconv.Atoi(v)
		if err != nil || page < 1 {
			return 0, 0, types.Validationf("page must be a positive integer")
		}
	}
	if v := q.Get("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit < 1 || limit > 100 {
			return 0, 0, types.Validationf("limit must be between 1 and 100")
		}
	}
	return page, limit, nil
}
