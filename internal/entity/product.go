package domain

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID       int64           `json:"id"`
	Name     string          `json:"name"`
	SKU      string          `json:"sku"`
	Price    decimal.Decimal `json:"price"`
	Stock    int             `json:"stock"`
	Category string          `json:"category,omitempty"`
	Supplier string          `json:"supplier,omitempty"`

	// Version is bumped on every successful save and checked by the store.
	Version int64 `json:"version"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type productAlias Product

func (p Product) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		productAlias
		Price string `json:"price"`
	}{productAlias(p), p.Price.StringFixed(2)})
}

func (p *Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return NewValidation("name", "must not be blank")
	}
	if strings.TrimSpace(p.SKU) == "" {
		return NewValidation("sku", "must not be blank")
	}
	if p.Price.IsNegative() {
		return NewValidation("price", "must be >= 0")
	}
	if !p.Price.Equal(p.Price.Round(2)) {
		return NewValidation("price", "at most 2 decimal places")
	}
	if p.Stock < 0 {
		return NewValidation("stock", "must be >= 0")
	}
	return nil
}

// Decrement removes qty units from stock. Stock never goes below zero.
func (p *Product) Decrement(qty int) error {
	if qty <= 0 {
		return NewValidation("quantity", "must be > 0")
	}
	if p.Stock < qty {
		return &InsufficientStockError{
			ProductID: p.ID,
			SKU:       p.SKU,
			Requested: qty,
			Available: p.Stock,
		}
	}
	p.Stock -= qty
	return nil
}

func (p *Product) Restock(qty int) error {
	if qty <= 0 {
		return NewValidation("quantity", "must be > 0")
	}
	p.Stock += qty
	return nil
}
