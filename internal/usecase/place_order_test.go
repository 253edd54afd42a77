package usecase_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Sharath05hk/Minimart/internal/adapter/cache"
	"github.com/Sharath05hk/Minimart/internal/adapter/repo"
	domain "github.com/Sharath05hk/Minimart/internal/entity"
	"github.com/Sharath05hk/Minimart/internal/logging"
	"github.com/Sharath05hk/Minimart/internal/usecase"
)

type fixture struct {
	store    *repo.Store
	customer *domain.Customer
	apple    *domain.Product
	milk     *domain.Product
}

func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	s, err := repo.Open(ctx, repo.Options{Driver: repo.DriverSQLite, DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	c := &domain.Customer{Name: "Alice"}
	require.NoError(t, s.Customers().Create(ctx, c))
	apple := &domain.Product{Name: "Apple", SKU: "SKU-APPLE", Price: decimal.RequireFromString("0.50"), Stock: 100}
	require.NoError(t, s.Products().Create(ctx, apple))
	milk := &domain.Product{Name: "Milk 1L", SKU: "SKU-MILK1L", Price: decimal.RequireFromString("1.20"), Stock: 5}
	require.NoError(t, s.Products().Create(ctx, milk))

	return &fixture{store: s, customer: c, apple: apple, milk: milk}
}

func (f *fixture) stock(t *testing.T, id int64) int {
	t.Helper()
	p, err := f.store.Products().Get(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

func (f *fixture) orderCount(t *testing.T) int {
	t.Helper()
	var n int
	// every order has at least one line
	for id := int64(1); ; id++ {
		if _, err := f.store.Orders().Get(context.Background(), id); err != nil {
			require.ErrorIs(t, err, domain.ErrNotFound)
			return n
		}
		n++
	}
}

type recordingMetrics struct {
	mu      sync.Mutex
	placed  int
	reasons []string
}

func (m *recordingMetrics) OrderPlaced(int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.placed++
}

func (m *recordingMetrics) PlacementFailed(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reasons = append(m.reasons, reason)
}

type recordingEvents struct {
	msgs []usecase.OrderPlacedMsg
	err  error
}

func (e *recordingEvents) PublishOrderPlaced(_ context.Context, m usecase.OrderPlacedMsg) error {
	e.msgs = append(e.msgs, m)
	return e.err
}

func TestPlace_SingleLine(t *testing.T) {
	f := setup(t)
	events := &recordingEvents{}
	metrics := &recordingMetrics{}
	placer := usecase.NewOrderPlacer(f.store, f.store.Orders(), usecase.WithEvents(events), usecase.WithMetrics(metrics))

	o, err := placer.Place(context.Background(), usecase.PlaceOrderInput{
		CustomerID: f.customer.ID,
		Lines:      []usecase.LineInput{{ProductID: f.apple.ID, Quantity: 10}},
	})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPaid, o.Status)
	assert.Equal(t, "5.00", o.TotalAmount.StringFixed(2))
	require.Len(t, o.Lines(), 1)
	assert.True(t, o.Lines()[0].UnitPrice.Equal(decimal.RequireFromString("0.50")))
	assert.True(t, o.Lines()[0].Subtotal.Equal(decimal.RequireFromString("5.00")))
	assert.Equal(t, 90, f.stock(t, f.apple.ID))

	require.Len(t, events.msgs, 1)
	assert.Equal(t, o.ID, events.msgs[0].OrderID)
	assert.Equal(t, "5.00", events.msgs[0].TotalAmount)
	assert.Equal(t, 1, metrics.placed)

	stored, err := placer.Get(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.Number, stored.Number)
	require.NoError(t, stored.Verify())
}

func TestPlace_InsufficientStockLeavesEverythingUnchanged(t *testing.T) {
	f := setup(t)
	metrics := &recordingMetrics{}
	placer := usecase.NewOrderPlacer(f.store, f.store.Orders(), usecase.WithMetrics(metrics))

	_, err := placer.Place(context.Background(), usecase.PlaceOrderInput{
		CustomerID: f.customer.ID,
		Lines: []usecase.LineInput{
			{ProductID: f.apple.ID, Quantity: 3},
			{ProductID: f.milk.ID, Quantity: 10},
		},
	})

	var stockErr *domain.InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, f.milk.ID, stockErr.ProductID)
	assert.Equal(t, 10, stockErr.Requested)
	assert.Equal(t, 5, stockErr.Available)

	assert.Equal(t, 5, f.stock(t, f.milk.ID))
	assert.Equal(t, 100, f.stock(t, f.apple.ID), "earlier line must be rolled back")
	assert.Equal(t, 0, f.orderCount(t))
	assert.Equal(t, []string{"insufficient_stock"}, metrics.reasons)
}

func TestPlace_UnknownProductRollsBackEarlierLines(t *testing.T) {
	f := setup(t)
	placer := usecase.NewOrderPlacer(f.store, f.store.Orders())

	_, err := placer.Place(context.Background(), usecase.PlaceOrderInput{
		CustomerID: f.customer.ID,
		Lines: []usecase.LineInput{
			{ProductID: f.apple.ID, Quantity: 2},
			{ProductID: 9999, Quantity: 1},
		},
	})

	var nf *domain.NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "product", nf.Entity)
	assert.Equal(t, int64(9999), nf.ID)
	assert.Equal(t, 100, f.stock(t, f.apple.ID))
	assert.Equal(t, 0, f.orderCount(t))
}

func TestPlace_NonPositiveProductIDIsNotFound(t *testing.T) {
	f := setup(t)
	placer := usecase.NewOrderPlacer(f.store, f.store.Orders())

	_, err := placer.Place(context.Background(), usecase.PlaceOrderInput{
		CustomerID: f.customer.ID,
		Lines:      []usecase.LineInput{{ProductID: 0, Quantity: 1}},
	})

	var nf *domain.NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "product", nf.Entity)
	assert.Equal(t, int64(0), nf.ID)
}

func TestPlace_UnknownCustomer(t *testing.T) {
	f := setup(t)
	placer := usecase.NewOrderPlacer(f.store, f.store.Orders())

	_, err := placer.Place(context.Background(), usecase.PlaceOrderInput{
		CustomerID: 777,
		Lines:      []usecase.LineInput{{ProductID: f.apple.ID, Quantity: 1}},
	})

	var nf *domain.NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "customer", nf.Entity)
	assert.Equal(t, 100, f.stock(t, f.apple.ID))
}

// failingTransactor makes any storage access fail the test.
type failingTransactor struct{ t *testing.T }

func (f failingTransactor) InTx(context.Context, func(usecase.TxStores) error) error {
	f.t.Fatal("storage must not be touched for a malformed request")
	return nil
}

func TestPlace_ValidationBeforeStorage(t *testing.T) {
	placer := usecase.NewOrderPlacer(failingTransactor{t}, nil)

	cases := map[string][]usecase.LineInput{
		"empty":         nil,
		"zero quantity": {{ProductID: 1, Quantity: 0}},
		"negative":      {{ProductID: 1, Quantity: 2}, {ProductID: 2, Quantity: -1}},
	}
	for name, lines := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := placer.Place(context.Background(), usecase.PlaceOrderInput{CustomerID: 1, Lines: lines})
			var ve *domain.ValidationError
			require.True(t, errors.As(err, &ve))
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestPlace_NotIdempotentWithoutKey(t *testing.T) {
	f := setup(t)
	placer := usecase.NewOrderPlacer(f.store, f.store.Orders())
	in := usecase.PlaceOrderInput{
		CustomerID: f.customer.ID,
		Lines:      []usecase.LineInput{{ProductID: f.apple.ID, Quantity: 1}},
	}

	a, err := placer.Place(context.Background(), in)
	require.NoError(t, err)
	b, err := placer.Place(context.Background(), in)
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
	assert.NotEqual(t, a.Number, b.Number)
	assert.Equal(t, 98, f.stock(t, f.apple.ID))
}

func TestPlace_IdempotencyKeyReturnsSameOrder(t *testing.T) {
	f := setup(t)
	idem, err := cache.NewMemoryIdempotencyStore(64, 0)
	require.NoError(t, err)
	placer := usecase.NewOrderPlacer(f.store, f.store.Orders(), usecase.WithIdempotency(idem))
	in := usecase.PlaceOrderInput{
		CustomerID:     f.customer.ID,
		Lines:          []usecase.LineInput{{ProductID: f.apple.ID, Quantity: 4}},
		IdempotencyKey: "k-1",
	}

	a, err := placer.Place(context.Background(), in)
	require.NoError(t, err)
	b, err := placer.Place(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, a.ID, b.ID)
	assert.Equal(t, 96, f.stock(t, f.apple.ID))
}

func TestPlace_IdempotencyKeyReleasedOnFailure(t *testing.T) {
	f := setup(t)
	idem, err := cache.NewMemoryIdempotencyStore(64, 0)
	require.NoError(t, err)
	placer := usecase.NewOrderPlacer(f.store, f.store.Orders(), usecase.WithIdempotency(idem))
	in := usecase.PlaceOrderInput{
		CustomerID:     f.customer.ID,
		Lines:          []usecase.LineInput{{ProductID: f.milk.ID, Quantity: 6}},
		IdempotencyKey: "k-2",
	}

	_, err = placer.Place(context.Background(), in)
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	catalog := usecase.NewCatalog(f.store.Products(), f.store)
	_, err = catalog.Restock(context.Background(), f.milk.ID, 1)
	require.NoError(t, err)

	o, err := placer.Place(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 6, o.Lines()[0].Quantity)
}

func TestPlace_DuplicateKeyInFlight(t *testing.T) {
	f := setup(t)
	idem, err := cache.NewMemoryIdempotencyStore(64, 0)
	require.NoError(t, err)
	scope := "order:" + strconv.FormatInt(f.customer.ID, 10)
	ok, err := idem.TryLock(context.Background(), scope, "k-3")
	require.NoError(t, err)
	require.True(t, ok)

	placer := usecase.NewOrderPlacer(f.store, f.store.Orders(), usecase.WithIdempotency(idem))
	_, err = placer.Place(context.Background(), usecase.PlaceOrderInput{
		CustomerID:     f.customer.ID,
		Lines:          []usecase.LineInput{{ProductID: f.apple.ID, Quantity: 1}},
		IdempotencyKey: "k-3",
	})
	assert.ErrorIs(t, err, usecase.ErrDuplicate)
	assert.Equal(t, 100, f.stock(t, f.apple.ID))
}

// forgetfulStore locks like the memory store but cannot persist results.
type forgetfulStore struct {
	usecase.IdempotencyStore
}

func (forgetfulStore) Remember(context.Context, string, string, string) error {
	return errors.New("redis: connection refused")
}

func TestPlace_RememberFailureIsLogged(t *testing.T) {
	f := setup(t)
	mem, err := cache.NewMemoryIdempotencyStore(64, 0)
	require.NoError(t, err)
	placer := usecase.NewOrderPlacer(f.store, f.store.Orders(), usecase.WithIdempotency(forgetfulStore{mem}))

	var buf bytes.Buffer
	ctx := logging.WithCtx(context.Background(), slog.New(slog.NewJSONHandler(&buf, nil)))
	o, err := placer.Place(ctx, usecase.PlaceOrderInput{
		CustomerID:     f.customer.ID,
		Lines:          []usecase.LineInput{{ProductID: f.apple.ID, Quantity: 1}},
		IdempotencyKey: "k-4",
	})
	require.NoError(t, err, "the order is committed even when its key cannot be stored")
	assert.NotZero(t, o.ID)
	assert.Contains(t, buf.String(), `"msg":"idempotency remember"`)
	assert.Contains(t, buf.String(), "connection refused")
}

func TestPlace_PriceSnapshotSurvivesPriceChange(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	placer := usecase.NewOrderPlacer(f.store, f.store.Orders())

	o, err := placer.Place(ctx, usecase.PlaceOrderInput{
		CustomerID: f.customer.ID,
		Lines:      []usecase.LineInput{{ProductID: f.apple.ID, Quantity: 2}},
	})
	require.NoError(t, err)

	catalog := usecase.NewCatalog(f.store.Products(), f.store)
	_, err = catalog.Update(ctx, f.apple.ID, usecase.ProductInput{
		Name: "Apple", SKU: "SKU-APPLE", Price: decimal.RequireFromString("0.80"), Stock: 98,
	})
	require.NoError(t, err)

	got, err := placer.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "0.50", got.Lines()[0].UnitPrice.StringFixed(2))
	assert.Equal(t, "1.00", got.TotalAmount.StringFixed(2))
}

func TestPlace_PublishFailureDoesNotFailPlacement(t *testing.T) {
	f := setup(t)
	events := &recordingEvents{err: errors.New("broker down")}
	placer := usecase.NewOrderPlacer(f.store, f.store.Orders(), usecase.WithEvents(events))

	o, err := placer.Place(context.Background(), usecase.PlaceOrderInput{
		CustomerID: f.customer.ID,
		Lines:      []usecase.LineInput{{ProductID: f.apple.ID, Quantity: 1}},
	})
	require.NoError(t, err)
	assert.NotZero(t, o.ID)
	assert.Len(t, events.msgs, 1)
}

func TestPlace_LastUnitUnderConcurrency(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	last := &domain.Product{Name: "Last", SKU: "SKU-LAST", Price: decimal.RequireFromString("2.00"), Stock: 1}
	require.NoError(t, f.store.Products().Create(ctx, last))

	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	placer := usecase.NewOrderPlacer(f.store, f.store.Orders())
	const n = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := placer.Place(ctx, usecase.PlaceOrderInput{
				CustomerID: f.customer.ID,
				Lines:      []usecase.LineInput{{ProductID: last.ID, Quantity: 1}},
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, domain.ErrInsufficientStock), errors.Is(err, domain.ErrConcurrencyConflict):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, n-1, rejected)
	assert.Equal(t, 0, f.stock(t, last.ID))
}

// conflictTransactor simulates a store that lost an optimistic race at commit.
type conflictTransactor struct{}

func (conflictTransactor) InTx(context.Context, func(usecase.TxStores) error) error {
	return &domain.ConcurrencyConflictError{Entity: "product", ID: 1}
}

func TestPlace_ConflictIsRetryable(t *testing.T) {
	metrics := &recordingMetrics{}
	placer := usecase.NewOrderPlacer(conflictTransactor{}, nil, usecase.WithMetrics(metrics))

	_, err := placer.Place(context.Background(), usecase.PlaceOrderInput{
		CustomerID: 1,
		Lines:      []usecase.LineInput{{ProductID: 1, Quantity: 1}},
	})
	assert.ErrorIs(t, err, domain.ErrConcurrencyConflict)
	assert.True(t, domain.IsRetryable(err))
	assert.Equal(t, []string{"conflict"}, metrics.reasons)
}
