package queue

import (
	"context"

	"github.com/Sharath05hk/Minimart/internal/usecase"
)

type InvoiceWarmer interface {
	Prewarm(ctx context.Context, orderID int64) error
}

// InvoicePrewarmHandler renders the invoice of a freshly placed order so the
// first download is served from cache.
type InvoicePrewarmHandler struct {
	invoices InvoiceWarmer
}

func NewInvoicePrewarmHandler(invoices InvoiceWarmer) *InvoicePrewarmHandler {
	return &InvoicePrewarmHandler{invoices: invoices}
}

func (h *InvoicePrewarmHandler) HandlePlaced(ctx context.Context, msg usecase.OrderPlacedMsg) error {
	return h.invoices.Prewarm(ctx, msg.OrderID)
}
