package usecase

import (
	"context"
	"fmt"

	domain "github.com/Sharath05hk/Minimart/internal/entity"
	"github.com/Sharath05hk/Minimart/internal/logging"
)

type ReplenishStock struct {
	catalog *Catalog
	idem    IdempotencyStore
}

func NewReplenishStock(catalog *Catalog, idem IdempotencyStore) *ReplenishStock {
	return &ReplenishStock{catalog: catalog, idem: idem}
}

// Handle applies a replenishment event at most once per EventID. A failure
// after taking the lock releases it so a redelivery can try again.
func (uc *ReplenishStock) Handle(ctx context.Context, msg StockReplenishedMsg) error {
	log := logging.FromCtx(ctx)
	if msg.EventID == "" {
		return domain.NewValidation("eventId", "must not be empty")
	}

	ok, err := uc.idem.TryLock(ctx, "restock", msg.EventID)
	if err != nil {
		return fmt.Errorf("restock lock: %w", err)
	}
	if !ok {
		log.Info("restock event already applied", "event_id", msg.EventID)
		return nil
	}

	p, err := uc.catalog.Restock(ctx, msg.ProductID, msg.Quantity)
	if err != nil {
		_ = uc.idem.Release(ctx, "restock", msg.EventID)
		return err
	}
	if err := uc.idem.Remember(ctx, "restock", msg.EventID, "done"); err != nil {
		log.Error("idempotency remember", "event_id", msg.EventID, "err", err)
	}
	log.Info("stock replenished", "event_id", msg.EventID, "product_id", p.ID, "quantity", msg.Quantity, "stock", p.Stock)
	return nil
}
