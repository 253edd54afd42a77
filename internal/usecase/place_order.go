package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	domain "github.com/Sharath05hk/Minimart/internal/entity"
	"github.com/Sharath05hk/Minimart/internal/logging"
)

var ErrDuplicate = errors.New("duplicate idempotency key")

type LineInput struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

type PlaceOrderInput struct {
	CustomerID int64
	Lines      []LineInput
	// IdempotencyKey is optional. Without it every call creates a new order.
	IdempotencyKey string
}

type OrderPlacer struct {
	tx      Transactor
	orders  OrderRepo
	idem    IdempotencyStore
	events  OrderEvents
	metrics PlacementMetrics
}

type PlacerOption func(*OrderPlacer)

func WithIdempotency(s IdempotencyStore) PlacerOption {
	return func(p *OrderPlacer) { p.idem = s }
}

func WithEvents(e OrderEvents) PlacerOption {
	return func(p *OrderPlacer) { p.events = e }
}

func WithMetrics(m PlacementMetrics) PlacerOption {
	return func(p *OrderPlacer) { p.metrics = m }
}

func NewOrderPlacer(tx Transactor, orders OrderRepo, opts ...PlacerOption) *OrderPlacer {
	p := &OrderPlacer{tx: tx, orders: orders, events: nopEvents{}, metrics: nopMetrics{}}
	for _, o := range opts {
		o(p)
	}
	return p
}

func validatePlacement(in PlaceOrderInput) error {
	if len(in.Lines) == 0 {
		return domain.NewValidation("lines", "must not be empty")
	}
	for i, l := range in.Lines {
		if l.Quantity <= 0 {
			return domain.NewValidation(fmt.Sprintf("lines[%d].quantity", i), "must be > 0")
		}
	}
	return nil
}

// Place turns a purchase request into a persisted PAID order. Lines are
// processed in request order and the first failure aborts the whole call;
// every stock decrement made so far is rolled back with the transaction.
func (uc *OrderPlacer) Place(ctx context.Context, in PlaceOrderInput) (*domain.Order, error) {
	log := logging.FromCtx(ctx)

	if err := validatePlacement(in); err != nil {
		uc.metrics.PlacementFailed(failureReason(err))
		return nil, err
	}

	scope := "order:" + strconv.FormatInt(in.CustomerID, 10)
	if in.IdempotencyKey != "" && uc.idem != nil {
		// Fast path: idempotency recall
		if v, ok, _ := uc.idem.Recall(ctx, scope, in.IdempotencyKey); ok {
			if id, err := strconv.ParseInt(v, 10, 64); err == nil {
				return uc.orders.Get(ctx, id)
			}
		}
		ok, err := uc.idem.TryLock(ctx, scope, in.IdempotencyKey)
		if err != nil {
			return nil, fmt.Errorf("idempotency lock: %w", err)
		}
		if !ok {
			uc.metrics.PlacementFailed("duplicate")
			return nil, ErrDuplicate
		}
	}

	var order *domain.Order
	err := uc.tx.InTx(ctx, func(s TxStores) error {
		if _, err := s.Customers.Get(ctx, in.CustomerID); err != nil {
			return err
		}

		lines := make([]domain.OrderLine, 0, len(in.Lines))
		for _, li := range in.Lines {
			p, err := s.Products.Get(ctx, li.ProductID)
			if err != nil {
				return err
			}
			// snapshot before decrementing so the line keeps the price read here
			line, err := domain.NewOrderLine(*p, li.Quantity)
			if err != nil {
				return err
			}
			if err := p.Decrement(li.Quantity); err != nil {
				return err
			}
			if err := s.Products.Save(ctx, p); err != nil {
				return err
			}
			lines = append(lines, line)
		}

		o := domain.NewOrder(in.CustomerID, lines)
		if err := o.MarkPaid(); err != nil {
			return err
		}
		if err := s.Orders.Save(ctx, o); err != nil {
			return err
		}
		order = o
		return nil
	})
	if err != nil {
		if in.IdempotencyKey != "" && uc.idem != nil {
			_ = uc.idem.Release(ctx, scope, in.IdempotencyKey)
		}
		uc.metrics.PlacementFailed(failureReason(err))
		log.Warn("order placement failed", "customer_id", in.CustomerID, "lines", len(in.Lines), "err", err)
		return nil, err
	}

	uc.metrics.OrderPlaced(len(in.Lines))
	log.Info("order placed",
		"order_id", order.ID,
		"order_number", order.Number,
		"customer_id", order.CustomerID,
		"total", order.TotalAmount.StringFixed(2),
	)

	if in.IdempotencyKey != "" && uc.idem != nil {
		if err := uc.idem.Remember(ctx, scope, in.IdempotencyKey, strconv.FormatInt(order.ID, 10)); err != nil {
			// the lock stays held, so replays of this key get ErrDuplicate until it expires
			log.Error("idempotency remember", "order_id", order.ID, "key", in.IdempotencyKey, "err", err)
		}
	}

	msg := OrderPlacedMsg{
		OrderID:     order.ID,
		OrderNumber: order.Number,
		CustomerID:  order.CustomerID,
		TotalAmount: order.TotalAmount.StringFixed(2),
		Lines:       len(in.Lines),
	}
	if err := uc.events.PublishOrderPlaced(ctx, msg); err != nil {
		log.Error("publish order.placed", "order_id", order.ID, "err", err)
	}
	return order, nil
}

func (uc *OrderPlacer) Get(ctx context.Context, id int64) (*domain.Order, error) {
	return uc.orders.Get(ctx, id)
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, domain.ErrConcurrencyConflict):
		return "conflict"
	default:
		return "internal"
	}
}
