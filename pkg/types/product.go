package types

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog entry that can be ordered while active and in stock
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Image       string          `json:"image,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	IsActive    bool            `json:"isActive"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// Validate checks the fields an admin must supply for a product
func (p *Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return Validationf("name is required")
	}
	if p.Price.IsNegative() {
		return Validationf("price must not be negative")
	}
	if p.Stock < 0 {
		return Validationf("stock must not be negative")
	}
	return nil
}

// Purchasable reports whether qty units can be ordered right now
func (p *Product) Purchasable(qty int) bool {
	return p.IsActive && qty > 0 && p.Stock >= qty
}
