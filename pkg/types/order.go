package types

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Amounts travel as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// OrderStatus is the fulfilment state of an order
type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderConfirmed  OrderStatus = "confirmed"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
)

// PaymentStatus is the payment state of an order, tracked independently of OrderStatus
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

// PaymentMethod is how the customer pays
type PaymentMethod string

const (
	PaymentCashOnDelivery PaymentMethod = "cash_on_delivery"
	PaymentBkash          PaymentMethod = "bkash"
	PaymentNagad          PaymentMethod = "nagad"
)

var (
	OrderStatuses   = []OrderStatus{OrderPending, OrderConfirmed, OrderProcessing, OrderShipped, OrderDelivered, OrderCancelled}
	PaymentStatuses = []PaymentStatus{PaymentPending, PaymentPaid, PaymentFailed, PaymentRefunded}
	PaymentMethods  = []PaymentMethod{PaymentCashOnDelivery, PaymentBkash, PaymentNagad}
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:    {OrderConfirmed, OrderProcessing, OrderShipped, OrderDelivered, OrderCancelled},
	OrderConfirmed:  {OrderProcessing, OrderShipped, OrderDelivered, OrderCancelled},
	OrderProcessing: {OrderShipped, OrderDelivered, OrderCancelled},
	OrderShipped:    {OrderDelivered, OrderCancelled},
}

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentPending: {PaymentPaid, PaymentFailed},
	PaymentFailed:  {PaymentPending, PaymentPaid},
	PaymentPaid:    {PaymentRefunded},
}

func (s OrderStatus) Valid() bool {
	return slices.Contains(OrderStatuses, s)
}

// CanTransitionTo reports whether the table allows moving from s to next.
// Delivered and cancelled are terminal.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	return slices.Contains(orderTransitions[s], next)
}

// Cancellable reports whether a customer may still cancel an order in this status
func (s OrderStatus) Cancellable() bool {
	return s != OrderDelivered && s != OrderCancelled
}

func (s PaymentStatus) Valid() bool {
	return slices.Contains(PaymentStatuses, s)
}

func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	return slices.Contains(paymentTransitions[s], next)
}

func (m PaymentMethod) Valid() bool {
	return slices.Contains(PaymentMethods, m)
}

// CustomerInfo holds contact and shipping address details
type CustomerInfo struct {
	FullName   string `json:"fullName"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	City       string `json:"city,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
}

// ProductSnapshot freezes the product data of record at order time
type ProductSnapshot struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Image string          `json:"image,omitempty"`
}

// LineItem is one product and quantity within an order.
// ProductID is a weak reference; the snapshot stays valid after the product changes or disappears.
type LineItem struct {
	ProductID string          `json:"productId"`
	Snapshot  ProductSnapshot `json:"productSnapshot"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// Subtotal returns UnitPrice × Quantity
func (li LineItem) Subtotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// ShippingInfo tracks carrier data and fulfilment timestamps
type ShippingInfo struct {
	Carrier        string     `json:"carrier,omitempty"`
	TrackingNumber string     `json:"trackingNumber,omitempty"`
	ShippedAt      *time.Time `json:"shippedAt,omitempty"`
	DeliveredAt    *time.Time `json:"deliveredAt,omitempty"`
}

// StatusEntry is one record of the append-only status history
type StatusEntry struct {
	Status    OrderStatus `json:"status"`
	Note      string      `json:"note"`
	Timestamp time.Time   `json:"timestamp"`
}

// Order is a placed order with its frozen line items and audit trail
type Order struct {
	ID            string          `json:"id"`
	OrderNumber   string          `json:"orderNumber"`
	CustomerInfo  CustomerInfo    `json:"customerInfo"`
	Items         []LineItem      `json:"items"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	PaymentMethod PaymentMethod   `json:"paymentMethod"`
	PaymentStatus PaymentStatus   `json:"paymentStatus"`
	OrderStatus   OrderStatus     `json:"orderStatus"`
	ShippingInfo  ShippingInfo    `json:"shippingInfo"`
	Notes         string          `json:"notes,omitempty"`
	AdminNotes    string          `json:"adminNotes,omitempty"`
	StockRestored bool            `json:"-"`
	StatusHistory []StatusEntry   `json:"statusHistory"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// ComputeTotal sums the subtotals of all line items
// Fulfilled reports whether the order was ever delivered. DeliveredAt is never
// cleared, so a forced reopen does not undo it.
func (o *Order) Fulfilled() bool {
	return o.OrderStatus == OrderDelivered || o.ShippingInfo.DeliveredAt != nil
}

func (o *Order) ComputeTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// Tracking is the public subset of an order shown on the tracking page
type Tracking struct {
	OrderNumber   string          `json:"orderNumber"`
	OrderStatus   OrderStatus     `json:"orderStatus"`
	PaymentStatus PaymentStatus   `json:"paymentStatus"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	CustomerName  string          `json:"customerName"`
	StatusHistory []StatusEntry   `json:"statusHistory"`
	ShippingInfo  ShippingInfo    `json:"shippingInfo"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// Tracking projects the order onto its tracking view
func (o *Order) Tracking() *Tracking {
	return &Tracking{
		OrderNumber:   o.OrderNumber,
		OrderStatus:   o.OrderStatus,
		PaymentStatus: o.PaymentStatus,
		TotalAmount:   o.TotalAmount,
		CustomerName:  o.CustomerInfo.FullName,
		StatusHistory: o.StatusHistory,
		ShippingInfo:  o.ShippingInfo,
		CreatedAt:     o.CreatedAt,
	}
}
