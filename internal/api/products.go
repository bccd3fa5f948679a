package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dshills/orderdesk/internal/catalog"
)

// handleListProducts lists active products for the storefront
func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	page, limit, err := pageParams(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	products, err := s.catalog.List(r.Context(), catalog.ListFilter{
		ActiveOnly: true,
		Limit:      limit,
		Offset:     (page - 1) * limit,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "products": products})
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := s.catalog.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "product": product})
}

func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var in catalog.ProductInput
	if err := decodeBody(w, r, productCreateLoader, &in, false); err != nil {
		s.writeError(w, r, err)
		return
	}
	product, err := s.catalog.Create(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"success": true, "product": product})
}

func (s *Server) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	var patch catalog.ProductPatch
	if err := decodeBody(w, r, productUpdateLoader, &patch, false); err != nil {
		s.writeError(w, r, err)
		return
	}
	product, err := s.catalog.Update(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "product": product})
}
