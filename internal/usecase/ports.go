package usecase

import (
	"context"
	"time"

	domain "github.com/Sharath05hk/Minimart/internal/entity"
)

// Stores used by order placement. Implementations bound to a transaction
// see and write only that transaction's state.
type CustomerStore interface {
	Get(ctx context.Context, id int64) (*domain.Customer, error)
}

type ProductStore interface {
	Get(ctx context.Context, id int64) (*domain.Product, error)
	// Save persists p if its Version still matches the stored row and bumps it.
	// A mismatch yields *domain.ConcurrencyConflictError.
	Save(ctx context.Context, p *domain.Product) error
}

type OrderStore interface {
	Save(ctx context.Context, o *domain.Order) error
}

type TxStores struct {
	Customers CustomerStore
	Products  ProductStore
	Orders    OrderStore
}

// Transactor commits when fn returns nil and rolls back otherwise.
type Transactor interface {
	InTx(ctx context.Context, fn func(TxStores) error) error
}

type CustomerRepo interface {
	CustomerStore
	List(ctx context.Context) ([]domain.Customer, error)
	Create(ctx context.Context, c *domain.Customer) error
	Update(ctx context.Context, c *domain.Customer) error
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int, error)
}

type ProductRepo interface {
	ProductStore
	List(ctx context.Context) ([]domain.Product, error)
	Create(ctx context.Context, p *domain.Product) error
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int, error)
}

type OrderRepo interface {
	Get(ctx context.Context, id int64) (*domain.Order, error)
	// ListBetween returns orders with from <= created_at < to.
	ListBetween(ctx context.Context, from, to time.Time) ([]*domain.Order, error)
}

type UserRepo interface {
	Get(ctx context.Context, id int64) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	Update(ctx context.Context, u *domain.User) error
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int, error)
}

type IdempotencyStore interface {
	TryLock(ctx context.Context, scope, key string) (bool, error)
	Remember(ctx context.Context, scope, key, value string) error
	Recall(ctx context.Context, scope, key string) (string, bool, error)
	// Release drops a lock that never got a remembered result.
	Release(ctx context.Context, scope, key string) error
}

type DocumentCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, doc []byte, ttl time.Duration) error
}

type OrderEvents interface {
	PublishOrderPlaced(ctx context.Context, msg OrderPlacedMsg) error
}

type DocumentRenderer interface {
	RenderInvoice(o *domain.Order, c *domain.Customer) ([]byte, error)
	RenderSalesReport(s SalesSummary) ([]byte, error)
}

type PlacementMetrics interface {
	OrderPlaced(lines int)
	PlacementFailed(reason string)
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

type TokenIssuer interface {
	Issue(userID int64, email string, roles []string) (token string, expiresAt time.Time, err error)
}

type nopMetrics struct{}

func (nopMetrics) OrderPlaced(int) {}

func (nopMetrics) PlacementFailed(string) {}

type nopEvents struct{}

func (nopEvents) PublishOrderPlaced(context.Context, OrderPlacedMsg) error { return nil }
