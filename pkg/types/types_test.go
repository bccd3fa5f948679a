package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProductPurchasable(t *testing.T) {
	tests := []struct {
		name     string
		active   bool
		stock    int
		qty      int
		expected bool
	}{
		{"exact stock", true, 3, 3, true},
		{"more than stock", true, 3, 4, false},
		{"inactive", false, 3, 1, false},
		{"zero quantity", true, 3, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Product{Name: "Lamp", Stock: tt.stock, IsActive: tt.active}
			assert.Equal(t, tt.expected, p.Purchasable(tt.qty))
		})
	}
}

func TestOrderFulfilled(t *testing.T) {
	o := &Order{OrderStatus: OrderShipped}
	assert.False(t, o.Fulfilled())

	o.OrderStatus = OrderDelivered
	assert.True(t, o.Fulfilled())

	// A forced reopen keeps the delivery timestamp
	delivered := time.Now()
	o.OrderStatus = OrderPending
	o.ShippingInfo.DeliveredAt = &delivered
	assert.True(t, o.Fulfilled())
}
