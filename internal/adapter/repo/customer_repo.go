package repo

import (
	"context"
	"fmt"
	"time"

	domain "github.com/Sharath05hk/Minimart/internal/entity"
	"github.com/Sharath05hk/Minimart/internal/usecase"
)

type CustomerRepo struct {
	q      querier
	driver string
	now    func() time.Time
	inTx   bool
}

const customerColumns = `id, name, email, phone, created_at, updated_at`

func scanCustomer(r rowScanner) (*domain.Customer, error) {
	var c domain.Customer
	if err := r.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CustomerRepo) Get(ctx context.Context, id int64) (*domain.Customer, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = ?`, id)
	c, err := scanCustomer(row)
	if err != nil {
		return nil, notFoundIfNoRows(err, "customer", id)
	}
	return c, nil
}

func (r *CustomerRepo) List(ctx context.Context) ([]domain.Customer, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+customerColumns+` FROM customers ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	defer rows.Close()

	out := []domain.Customer{}
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (r *CustomerRepo) Create(ctx context.Context, c *domain.Customer) error {
	now := r.now()
	res, err := r.q.ExecContext(ctx, `
		INSERT INTO customers (name, email, phone, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		c.Name, c.Email, c.Phone, now, now)
	if err != nil {
		return mapWriteErr(err, "customer")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID, c.CreatedAt, c.UpdatedAt = id, now, now
	return nil
}

func (r *CustomerRepo) Update(ctx context.Context, c *domain.Customer) error {
	now := r.now()
	res, err := r.q.ExecContext(ctx, `
		UPDATE customers SET name = ?, email = ?, phone = ?, updated_at = ? WHERE id = ?`,
		c.Name, c.Email, c.Phone, now, c.ID)
	if err != nil {
		return mapWriteErr(err, "customer")
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return domain.NewNotFound("customer", c.ID)
	}
	c.UpdatedAt = now
	return nil
}

func (r *CustomerRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM customers WHERE id = ?`, id)
	if err != nil {
		return mapWriteErr(err, fmt.Sprintf("customer %d", id))
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return domain.NewNotFound("customer", id)
	}
	return nil
}

func (r *CustomerRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM customers`).Scan(&n)
	return n, err
}

var _ usecase.CustomerRepo = (*CustomerRepo)(nil)
