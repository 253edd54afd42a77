package usecase

import (
	"context"
	"strconv"
	"time"

	domain "github.com/Sharath05hk/Minimart/internal/entity"
	"github.com/Sharath05hk/Minimart/internal/logging"
)

type Invoices struct {
	orders    OrderRepo
	customers CustomerStore
	renderer  DocumentRenderer
	cache     DocumentCache
	ttl       time.Duration
}

func NewInvoices(orders OrderRepo, customers CustomerStore, renderer DocumentRenderer, cache DocumentCache, ttl time.Duration) *Invoices {
	return &Invoices{orders: orders, customers: customers, renderer: renderer, cache: cache, ttl: ttl}
}

// invoiceKey changes whenever the customer row does, so a rename is never
// served from a document rendered before it.
func invoiceKey(orderID int64, customerUpdated time.Time) string {
	return "invoice:" + strconv.FormatInt(orderID, 10) + ":" + strconv.FormatInt(customerUpdated.UnixMicro(), 10)
}

// Invoice returns the PDF for a placed order, from cache when possible.
// Order lines and totals never change once PAID; customer details are part
// of the key.
func (uc *Invoices) Invoice(ctx context.Context, orderID int64) ([]byte, error) {
	o, c, err := uc.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if uc.cache != nil {
		if b, ok, err := uc.cache.Get(ctx, invoiceKey(o.ID, c.UpdatedAt)); err == nil && ok {
			return b, nil
		} else if err != nil {
			logging.FromCtx(ctx).Warn("invoice cache get", "order_id", orderID, "err", err)
		}
	}
	return uc.render(ctx, o, c)
}

// Prewarm renders and caches the invoice ahead of the first download.
func (uc *Invoices) Prewarm(ctx context.Context, orderID int64) error {
	o, c, err := uc.load(ctx, orderID)
	if err != nil {
		return err
	}
	_, err = uc.render(ctx, o, c)
	return err
}

func (uc *Invoices) load(ctx context.Context, orderID int64) (*domain.Order, *domain.Customer, error) {
	o, err := uc.orders.Get(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	c, err := uc.customers.Get(ctx, o.CustomerID)
	if err != nil {
		return nil, nil, err
	}
	return o, c, nil
}

func (uc *Invoices) render(ctx context.Context, o *domain.Order, c *domain.Customer) ([]byte, error) {
	b, err := uc.renderer.RenderInvoice(o, c)
	if err != nil {
		return nil, err
	}
	if uc.cache != nil {
		if err := uc.cache.Set(ctx, invoiceKey(o.ID, c.UpdatedAt), b, uc.ttl); err != nil {
			logging.FromCtx(ctx).Warn("invoice cache set", "order_id", o.ID, "err", err)
		}
	}
	return b, nil
}
