package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusNew  Status = "NEW"
	StatusPaid Status = "PAID"
)

// OrderLine is a value record. UnitPrice is the product price at order time.
type OrderLine struct {
	ID          int64           `json:"id"`
	ProductID   int64           `json:"productId"`
	ProductName string          `json:"productName"`
	SKU         string          `json:"sku"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// NewOrderLine snapshots the product's name, sku and current price.
func NewOrderLine(p Product, qty int) (OrderLine, error) {
	if qty <= 0 {
		return OrderLine{}, NewValidation("quantity", "must be > 0")
	}
	return OrderLine{
		ProductID:   p.ID,
		ProductName: p.Name,
		SKU:         p.SKU,
		Quantity:    qty,
		UnitPrice:   p.Price,
		Subtotal:    p.Price.Mul(decimal.NewFromInt(int64(qty))),
	}, nil
}

type lineAlias OrderLine

// MarshalJSON writes money with exactly two decimals.
func (l OrderLine) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		lineAlias
		UnitPrice string `json:"unitPrice"`
		Subtotal  string `json:"subtotal"`
	}{lineAlias(l), l.UnitPrice.StringFixed(2), l.Subtotal.StringFixed(2)})
}

// Order is the aggregate root. Its lines are fixed at construction.
type Order struct {
	ID          int64
	Number      string
	CustomerID  int64
	Status      Status
	TotalAmount decimal.Decimal
	CreatedAt   time.Time
	UpdatedAt   time.Time

	lines []OrderLine
}

func NewOrder(customerID int64, lines []OrderLine) *Order {
	owned := make([]OrderLine, len(lines))
	copy(owned, lines)

	total := decimal.Zero
	for _, l := range owned {
		total = total.Add(l.Subtotal)
	}
	return &Order{
		CustomerID:  customerID,
		Status:      StatusNew,
		TotalAmount: total,
		lines:       owned,
	}
}

// RestoreOrder rebuilds a persisted order as read from storage.
func RestoreOrder(id int64, number string, customerID int64, status Status, total decimal.Decimal,
	createdAt, updatedAt time.Time, lines []OrderLine) *Order {
	owned := make([]OrderLine, len(lines))
	copy(owned, lines)
	return &Order{
		ID:          id,
		Number:      number,
		CustomerID:  customerID,
		Status:      status,
		TotalAmount: total,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
		lines:       owned,
	}
}

func (o *Order) Lines() []OrderLine {
	out := make([]OrderLine, len(o.lines))
	copy(out, o.lines)
	return out
}

func (o *Order) MarkPaid() error {
	if o.Status != StatusNew {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, StatusPaid)
	}
	o.Status = StatusPaid
	return nil
}

// Persisted records the identity assigned by the store. lineIDs follow line order.
func (o *Order) Persisted(id int64, lineIDs []int64, at time.Time) {
	o.ID = id
	for i := range o.lines {
		if i < len(lineIDs) {
			o.lines[i].ID = lineIDs[i]
		}
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = at
	}
	o.UpdatedAt = at
}

// Verify checks subtotal == unitPrice*quantity per line and total == sum(subtotals).
func (o *Order) Verify() error {
	sum := decimal.Zero
	for i, l := range o.lines {
		want := l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
		if !l.Subtotal.Equal(want) {
			return fmt.Errorf("line %d: subtotal %s != %s x %d", i, l.Subtotal, l.UnitPrice, l.Quantity)
		}
		sum = sum.Add(l.Subtotal)
	}
	if !o.TotalAmount.Equal(sum) {
		return fmt.Errorf("total %s != sum of subtotals %s", o.TotalAmount, sum)
	}
	return nil
}

type orderJSON struct {
	ID          int64       `json:"id"`
	Number      string      `json:"number"`
	CustomerID  int64       `json:"customerId"`
	Status      Status      `json:"status"`
	TotalAmount string      `json:"totalAmount"`
	Lines       []OrderLine `json:"lines"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

func (o *Order) MarshalJSON() ([]byte, error) {
	return json.Marshal(orderJSON{
		ID:          o.ID,
		Number:      o.Number,
		CustomerID:  o.CustomerID,
		Status:      o.Status,
		TotalAmount: o.TotalAmount.StringFixed(2),
		Lines:       o.Lines(),
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	})
}
