package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Sharath05hk/Minimart/internal/adapter/cache"
	httpapi "github.com/Sharath05hk/Minimart/internal/adapter/http"
	"github.com/Sharath05hk/Minimart/internal/adapter/http/middleware"
	"github.com/Sharath05hk/Minimart/internal/adapter/pdf"
	"github.com/Sharath05hk/Minimart/internal/adapter/repo"
	"github.com/Sharath05hk/Minimart/internal/bootstrap"
	"github.com/Sharath05hk/Minimart/internal/security"
	"github.com/Sharath05hk/Minimart/internal/usecase"
)

func init() { gin.SetMode(gin.TestMode) }

type api struct {
	t      *testing.T
	router *gin.Engine
}

func newAPI(t *testing.T) *api {
	t.Helper()
	ctx := context.Background()

	store, err := repo.Open(ctx, repo.Options{Driver: repo.DriverSQLite, DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	idem, err := cache.NewMemoryIdempotencyStore(64, time.Hour)
	require.NoError(t, err)
	docs, err := cache.NewMemoryDocumentCache(64)
	require.NoError(t, err)

	tokens := security.NewTokens(security.TokenConfig{Secret: "test-secret", Issuer: "minimart", Audience: "minimart-api", TTL: time.Hour})
	renderer := pdf.NewRenderer("Minimart", "UTC")

	users := usecase.NewUsers(store.Users(), security.NewBcryptHasher(bcrypt.MinCost), tokens)
	catalog := usecase.NewCatalog(store.Products(), store)
	customers := usecase.NewCustomers(store.Customers())
	invoices := usecase.NewInvoices(store.Orders(), store.Customers(), renderer, docs, time.Hour)
	placer := usecase.NewOrderPlacer(store, store.Orders(), usecase.WithIdempotency(idem))

	seeder := &bootstrap.Seeder{
		Users: users, Catalog: catalog, Customers: customers,
		UserCount: store.Users(), ProductCount: store.Products(), CustomerCount: store.Customers(),
		Creds: bootstrap.Credentials{
			AdminEmail: "admin@minimart.local", AdminPassword: "Admin@123",
			CashierEmail: "cashier@minimart.local", CashierPassword: "Cashier@123",
		},
	}
	require.NoError(t, seeder.Run(ctx))

	r := httpapi.NewRouter(httpapi.Handlers{
		Auth:      httpapi.NewAuthHandler(users),
		Users:     httpapi.NewUserHandler(users),
		Products:  httpapi.NewProductHandler(catalog),
		Customers: httpapi.NewCustomerHandler(customers),
		Orders:    httpapi.NewOrderHandler(placer, invoices, 5*time.Second),
		Reports:   httpapi.NewReportHandler(usecase.NewReportAggregator(store.Orders(), renderer), time.UTC),
	}, middleware.NewAuthz(tokens), store)

	return &api{t: t, router: r}
}

func (a *api) do(method, path, token string, body any, hdr ...string) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *api) login(email, password string) string {
	a.t.Helper()
	w := a.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": email, "password": password})
	require.Equal(a.t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Token     string `json:"token"`
		TokenType string `json:"token_type"`
	}
	require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(a.t, "Bearer", resp.TokenType)
	return resp.Token
}

type orderResp struct {
	ID          int64           `json:"id"`
	Number      string          `json:"number"`
	Status      string          `json:"status"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
}

func decodeOrder(t *testing.T, w *httptest.ResponseRecorder) orderResp {
	t.Helper()
	var o orderResp
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &o))
	return o
}

func TestAuth(t *testing.T) {
	a := newAPI(t)

	w := a.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "admin@minimart.local", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = a.do(http.MethodGet, "/api/products", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = a.do(http.MethodGet, "/api/products", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	cashier := a.login("cashier@minimart.local", "Cashier@123")
	w = a.do(http.MethodGet, "/api/products", cashier, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = a.do(http.MethodPost, "/api/products", cashier, gin.H{"name": "Tea", "sku": "SKU-TEA", "price": "2.00", "stock": 5})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.do(http.MethodGet, "/api/users", cashier, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	admin := a.login("admin@minimart.local", "Admin@123")
	w = a.do(http.MethodPost, "/api/products", admin, gin.H{"name": "Tea", "sku": "SKU-TEA", "price": "2.00", "stock": 5})
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"price":"2.00"`)

	w = a.do(http.MethodPost, "/api/products", admin, gin.H{"name": "Tea again", "sku": "SKU-TEA", "price": "2.00", "stock": 5})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestPlaceOrder(t *testing.T) {
	a := newAPI(t)
	cashier := a.login("cashier@minimart.local", "Cashier@123")

	w := a.do(http.MethodPost, "/api/orders", cashier, gin.H{
		"customerId": 1,
		"items":      []gin.H{{"productId": 1, "quantity": 3}, {"productId": 2, "quantity": 1}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	o := decodeOrder(t, w)
	assert.Equal(t, "PAID", o.Status)
	assert.NotEmpty(t, o.Number)
	assert.True(t, o.TotalAmount.Equal(decimal.RequireFromString("2.70")), o.TotalAmount.String())
	assert.Equal(t, "/api/orders/1", w.Header().Get("Location"))

	w = a.do(http.MethodGet, "/api/products/1", cashier, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var p struct {
		Stock int `json:"stock"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	assert.Equal(t, 97, p.Stock)

	w = a.do(http.MethodGet, "/api/orders/1", cashier, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = a.do(http.MethodGet, "/api/orders/99", cashier, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPlaceOrder_Errors(t *testing.T) {
	a := newAPI(t)
	cashier := a.login("cashier@minimart.local", "Cashier@123")

	w := a.do(http.MethodPost, "/api/orders", cashier, gin.H{"customerId": 1, "items": []gin.H{{"productId": 2, "quantity": 51}}})
	require.Equal(t, http.StatusConflict, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "insufficient_stock", body["error"])
	assert.EqualValues(t, 50, body["available"])

	w = a.do(http.MethodPost, "/api/orders", cashier, gin.H{"customerId": 1, "items": []gin.H{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(http.MethodPost, "/api/orders", cashier, gin.H{"customerId": 1, "items": []gin.H{{"productId": 1, "quantity": 0}}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(http.MethodPost, "/api/orders", cashier, gin.H{"customerId": 42, "items": []gin.H{{"productId": 1, "quantity": 1}}})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = a.do(http.MethodPost, "/api/orders", cashier, gin.H{"customerId": 1, "items": []gin.H{{"productId": 1, "quantity": 1}, {"productId": 404, "quantity": 1}}})
	assert.Equal(t, http.StatusNotFound, w.Code)

	// nothing above may have touched stock
	w = a.do(http.MethodGet, "/api/products/1", cashier, nil)
	var p struct {
		Stock int `json:"stock"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	assert.Equal(t, 100, p.Stock)
}

func TestPlaceOrder_IdempotencyKey(t *testing.T) {
	a := newAPI(t)
	cashier := a.login("cashier@minimart.local", "Cashier@123")
	req := gin.H{"customerId": 1, "items": []gin.H{{"productId": 3, "quantity": 2}}}

	first := a.do(http.MethodPost, "/api/orders", cashier, req, "X-Idempotency-Key", "k-1")
	require.Equal(t, http.StatusCreated, first.Code)
	again := a.do(http.MethodPost, "/api/orders", cashier, req, "X-Idempotency-Key", "k-1")
	require.Equal(t, http.StatusCreated, again.Code)
	assert.Equal(t, decodeOrder(t, first).ID, decodeOrder(t, again).ID)

	other := a.do(http.MethodPost, "/api/orders", cashier, req)
	require.Equal(t, http.StatusCreated, other.Code)
	assert.NotEqual(t, decodeOrder(t, first).ID, decodeOrder(t, other).ID)
}

func TestInvoiceAndReport(t *testing.T) {
	a := newAPI(t)
	cashier := a.login("cashier@minimart.local", "Cashier@123")
	admin := a.login("admin@minimart.local", "Admin@123")

	w := a.do(http.MethodPost, "/api/orders", cashier, gin.H{"customerId": 2, "items": []gin.H{{"productId": 1, "quantity": 4}}})
	require.Equal(t, http.StatusCreated, w.Code)

	w = a.do(http.MethodGet, "/api/orders/1/invoice.pdf", cashier, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))

	today := time.Now().UTC().Format("2006-01-02")
	w = a.do(http.MethodGet, "/api/reports/sales?from="+today+"&to="+today, cashier, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.do(http.MethodGet, "/api/reports/sales?from="+today+"&to="+today, admin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var s struct {
		TotalRevenue decimal.Decimal `json:"totalRevenue"`
		TotalOrders  int             `json:"totalOrders"`
		TopProduct   *struct {
			ProductID int64 `json:"productId"`
			Quantity  int   `json:"quantity"`
		} `json:"topProduct"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &s))
	assert.Contains(t, w.Body.String(), `"totalRevenue":"2.00"`)
	assert.Equal(t, 1, s.TotalOrders)
	assert.True(t, s.TotalRevenue.Equal(decimal.RequireFromString("2.00")))
	require.NotNil(t, s.TopProduct)
	assert.Equal(t, int64(1), s.TopProduct.ProductID)
	assert.Equal(t, 4, s.TopProduct.Quantity)

	w = a.do(http.MethodGet, "/api/reports/sales?from=2024-02-10&to=2024-02-01", admin, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(http.MethodGet, "/api/reports/sales.pdf?from="+today+"&to="+today, admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))
}

func TestHealthz(t *testing.T) {
	a := newAPI(t)
	w := a.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())
}
