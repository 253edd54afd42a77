package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/Sharath05hk/Minimart/configs"
	"github.com/Sharath05hk/Minimart/internal/adapter/cache"
	httpapi "github.com/Sharath05hk/Minimart/internal/adapter/http"
	"github.com/Sharath05hk/Minimart/internal/adapter/http/middleware"
	"github.com/Sharath05hk/Minimart/internal/adapter/kafka"
	"github.com/Sharath05hk/Minimart/internal/adapter/observ"
	"github.com/Sharath05hk/Minimart/internal/adapter/pdf"
	"github.com/Sharath05hk/Minimart/internal/adapter/queue"
	"github.com/Sharath05hk/Minimart/internal/adapter/repo"
	"github.com/Sharath05hk/Minimart/internal/bootstrap"
	"github.com/Sharath05hk/Minimart/internal/logging"
	"github.com/Sharath05hk/Minimart/internal/security"
	"github.com/Sharath05hk/Minimart/internal/usecase"
)

// App owns the HTTP server and the background consumers.
type App struct {
	server   *http.Server
	shutdown time.Duration
	workers  []func(ctx context.Context) error
	log      *slog.Logger
}

func InitWithConfig(ctx context.Context, cfg configs.Config) (*App, func(), error) {
	logger := logging.Init(logging.Options{
		Component: cfg.App.Name,
		File:      cfg.App.LogFile,
		Level:     cfg.App.LogLevel,
	})
	ctx = logging.WithCtx(ctx, logger)

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*App, func(), error) {
		cleanup()
		return nil, nil, err
	}

	// init database
	store, err := repo.Open(ctx, repo.Options{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		return fail(fmt.Errorf("open store: %w", err))
	}
	closers = append(closers, func() { _ = store.Close() })
	logger.Info("store ready", "driver", store.Driver())

	// idempotency + document cache: redis when enabled, in-process otherwise
	var (
		idem usecase.IdempotencyStore
		docs usecase.DocumentCache
	)
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fail(fmt.Errorf("redis ping: %w", err))
		}
		closers = append(closers, func() { _ = rdb.Close() })
		idem = cache.NewRedisIdempotencyStore(rdb, cfg.Idempotency.TTL)
		docs = cache.NewRedisDocumentCache(rdb)
	} else {
		mi, err := cache.NewMemoryIdempotencyStore(cfg.Cache.LocalSize, cfg.Idempotency.TTL)
		if err != nil {
			return fail(err)
		}
		md, err := cache.NewMemoryDocumentCache(cfg.Cache.LocalSize)
		if err != nil {
			return fail(err)
		}
		idem, docs = mi, md
		logger.Warn("redis disabled, idempotency keys and invoices are cached in-process")
	}

	// usecases
	renderer := pdf.NewRenderer(cfg.App.Name, cfg.App.Timezone)
	hasher := security.NewBcryptHasher(cfg.Security.BcryptCost)
	tokens := security.NewTokens(security.TokenConfig{
		Secret:   cfg.Security.JWTSecret,
		Issuer:   cfg.Security.Issuer,
		Audience: cfg.Security.Audience,
		TTL:      cfg.Security.TTL,
	})

	users := usecase.NewUsers(store.Users(), hasher, tokens)
	catalog := usecase.NewCatalog(store.Products(), store)
	customers := usecase.NewCustomers(store.Customers())
	invoices := usecase.NewInvoices(store.Orders(), store.Customers(), renderer, docs, cfg.Cache.InvoiceTTL)
	reports := usecase.NewReportAggregator(store.Orders(), renderer)

	placerOpts := []usecase.PlacerOption{
		usecase.WithIdempotency(idem),
		usecase.WithMetrics(observ.Placement{}),
	}

	a := &App{shutdown: cfg.HTTP.ShutdownPeriod, log: logger}

	// rabbitmq: order.placed producer + invoice prewarm consumer
	if cfg.Rabbit.Enabled {
		conn, err := amqp.Dial(cfg.Rabbit.URL)
		if err != nil {
			return fail(fmt.Errorf("rabbitmq dial: %w", err))
		}
		closers = append(closers, func() { _ = conn.Close() })

		topo := queue.Topology{Exchange: cfg.Rabbit.Exchange, RoutingKey: cfg.Rabbit.RoutingKey, Queue: cfg.Rabbit.Queue}
		pubCh, err := conn.Channel()
		if err != nil {
			return fail(err)
		}
		producer, err := queue.NewRabbitProducer(pubCh, topo)
		if err != nil {
			return fail(err)
		}
		placerOpts = append(placerOpts, usecase.WithEvents(producer))

		subCh, err := conn.Channel()
		if err != nil {
			return fail(err)
		}
		router := queue.NewRouter(subCh, queue.WithPrefetch(cfg.Rabbit.Prefetch))
		router.Register(cfg.Rabbit.Queue, queue.JSONHandler[usecase.OrderPlacedMsg]{
			HandleFunc: queue.NewInvoicePrewarmHandler(invoices).HandlePlaced,
		})
		a.workers = append(a.workers, router.Run)
	}

	// kafka: stock replenishment events
	if cfg.Kafka.Enabled {
		grp, err := kafka.NewGroup(cfg.Kafka.Brokers, cfg.Kafka.GroupID)
		if err != nil {
			return fail(fmt.Errorf("kafka group: %w", err))
		}
		closers = append(closers, func() { _ = grp.Close() })

		restock := usecase.NewReplenishStock(catalog, idem)
		consumer := kafka.NewConsumer(grp, []string{cfg.Kafka.RestockTopic}, restock.Handle)
		a.workers = append(a.workers, consumer.Start)
	}

	placer := usecase.NewOrderPlacer(store, store.Orders(), placerOpts...)

	if cfg.Seed.Enabled {
		seeder := &bootstrap.Seeder{
			Users:         users,
			Catalog:       catalog,
			Customers:     customers,
			UserCount:     store.Users(),
			ProductCount:  store.Products(),
			CustomerCount: store.Customers(),
			Creds: bootstrap.Credentials{
				AdminEmail:      cfg.Seed.AdminEmail,
				AdminPassword:   cfg.Seed.AdminPassword,
				CashierEmail:    cfg.Seed.CashierEmail,
				CashierPassword: cfg.Seed.CashierPassword,
			},
		}
		if err := seeder.Run(ctx); err != nil {
			return fail(err)
		}
	}

	// init handlers + routers + middleware
	router := httpapi.NewRouter(httpapi.Handlers{
		Auth:      httpapi.NewAuthHandler(users),
		Users:     httpapi.NewUserHandler(users),
		Products:  httpapi.NewProductHandler(catalog),
		Customers: httpapi.NewCustomerHandler(customers),
		Orders:    httpapi.NewOrderHandler(placer, invoices, cfg.HTTP.OrderTimeout),
		Reports:   httpapi.NewReportHandler(reports, cfg.Location()),
	}, middleware.NewAuthz(tokens), store)

	a.server = &http.Server{
		Addr:         cfg.App.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}
	return a, cleanup, nil
}

// Run serves HTTP and runs the consumers until ctx is cancelled or one of
// them fails, then drains the server.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.log.Info("listening", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	for _, w := range a.workers {
		w := w
		g.Go(func() error { return w(logging.WithCtx(gctx, a.log)) })
	}
	g.Go(func() error {
		<-gctx.Done()
		a.log.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.shutdown)
		defer cancel()
		return a.server.Shutdown(sctx)
	})
	return g.Wait()
}
