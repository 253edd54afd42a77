package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Sharath05hk/Minimart/internal/adapter/http/middleware"
	domain "github.com/Sharath05hk/Minimart/internal/entity"
	"github.com/Sharath05hk/Minimart/internal/logging"
)

type Handlers struct {
	Auth      *AuthHandler
	Users     *UserHandler
	Products  *ProductHandler
	Customers *CustomerHandler
	Orders    *OrderHandler
	Reports   *ReportHandler
}

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

func NewRouter(h Handlers, authz *middleware.Authz, db Pinger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.MetricsMiddleware())
	r.Use(middleware.Logging(logging.New("http")))

	r.GET("/healthz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := db.Ping(ctx); err != nil {
			logging.From(c).Warn("health check failed", "err", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	// Prometheus endpoint (scraped by Prometheus)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	admin := authz.RequireRoles(domain.RoleAdmin)
	managers := authz.RequireRoles(domain.RoleAdmin, domain.RoleManager)
	staff := authz.RequireRoles(domain.RoleAdmin, domain.RoleManager, domain.RoleCashier)

	api := r.Group("/api")
	api.POST("/auth/login", h.Auth.Login)

	sec := api.Group("", authz.Authenticate())
	{
		sec.GET("/users", admin, h.Users.List)
		sec.POST("/users", admin, h.Users.Create)
		sec.GET("/users/:id", admin, h.Users.Get)
		sec.PUT("/users/:id", managers, h.Users.Update)
		sec.PATCH("/users/:id", managers, h.Users.Patch)
		sec.DELETE("/users/:id", managers, h.Users.Delete)

		sec.GET("/products", h.Products.List)
		sec.GET("/products/:id", h.Products.Get)
		sec.POST("/products", managers, h.Products.Create)
		sec.PUT("/products/:id", managers, h.Products.Update)
		sec.DELETE("/products/:id", managers, h.Products.Delete)
		sec.POST("/products/:id/restock", managers, h.Products.Restock)

		sec.GET("/customers", h.Customers.List)
		sec.GET("/customers/:id", h.Customers.Get)
		sec.POST("/customers", staff, h.Customers.Create)
		sec.PUT("/customers/:id", managers, h.Customers.Update)
		sec.DELETE("/customers/:id", admin, h.Customers.Delete)

		sec.POST("/orders", staff, h.Orders.PlaceOrder)
		sec.GET("/orders/:id", h.Orders.GetOrder)
		sec.GET("/orders/:id/invoice.pdf", h.Orders.Invoice)

		sec.GET("/reports/sales", managers, h.Reports.Sales)
		sec.GET("/reports/sales.pdf", managers, h.Reports.SalesPDF)
	}

	return r
}
