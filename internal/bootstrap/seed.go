package bootstrap

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Sharath05hk/Minimart/internal/logging"
	"github.com/Sharath05hk/Minimart/internal/usecase"
)

type Counter interface {
	Count(ctx context.Context) (int, error)
}

type Credentials struct {
	AdminEmail      string
	AdminPassword   string
	CashierEmail    string
	CashierPassword string
}

// Seeder fills an empty store with demo data. Each table is seeded only
// when it has no rows, so restarts never duplicate anything.
type Seeder struct {
	Users     *usecase.Users
	Catalog   *usecase.Catalog
	Customers *usecase.Customers

	UserCount     Counter
	ProductCount  Counter
	CustomerCount Counter

	Creds Credentials
}

func (s *Seeder) Run(ctx context.Context) error {
	log := logging.FromCtx(ctx)

	if err := seedIfEmpty(ctx, s.UserCount, "users", func() error {
		if _, err := s.Users.Create(ctx, usecase.UserInput{
			Email: s.Creds.AdminEmail, FullName: "Store Admin", Password: s.Creds.AdminPassword,
			Roles: []string{"ADMIN", "MANAGER"},
		}); err != nil {
			return err
		}
		_, err := s.Users.Create(ctx, usecase.UserInput{
			Email: s.Creds.CashierEmail, FullName: "Front Cashier", Password: s.Creds.CashierPassword,
			Roles: []string{"CASHIER"},
		})
		return err
	}); err != nil {
		return err
	}

	if err := seedIfEmpty(ctx, s.ProductCount, "products", func() error {
		for _, p := range []usecase.ProductInput{
			{Name: "Apple", SKU: "SKU-APPLE", Price: decimal.RequireFromString("0.50"), Stock: 100, Category: "Produce"},
			{Name: "Milk 1L", SKU: "SKU-MILK1L", Price: decimal.RequireFromString("1.20"), Stock: 50, Category: "Dairy"},
			{Name: "Bread", SKU: "SKU-BREAD", Price: decimal.RequireFromString("1.00"), Stock: 80, Category: "Bakery"},
		} {
			if _, err := s.Catalog.Create(ctx, p); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return err
	}

	if err := seedIfEmpty(ctx, s.CustomerCount, "customers", func() error {
		for _, c := range []usecase.CustomerInput{
			{Name: "Alice", Email: "alice@example.com"},
			{Name: "Bob", Email: "bob@example.com"},
		} {
			if _, err := s.Customers.Create(ctx, c); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return err
	}

	log.Info("seed complete")
	return nil
}

func seedIfEmpty(ctx context.Context, c Counter, table string, fill func() error) error {
	n, err := c.Count(ctx)
	if err != nil {
		return fmt.Errorf("count %s: %w", table, err)
	}
	if n > 0 {
		return nil
	}
	if err := fill(); err != nil {
		return fmt.Errorf("seed %s: %w", table, err)
	}
	logging.FromCtx(ctx).Info("seeded", "table", table)
	return nil
}
