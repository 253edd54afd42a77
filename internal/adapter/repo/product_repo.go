package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	domain "github.com/Sharath05hk/Minimart/internal/entity"
	"github.com/Sharath05hk/Minimart/internal/usecase"
)

type ProductRepo struct {
	q      querier
	driver string
	now    func() time.Time
	inTx   bool
}

const productColumns = `id, name, sku, price, stock, category, supplier, version, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(r rowScanner) (*domain.Product, error) {
	var p domain.Product
	err := r.Scan(&p.ID, &p.Name, &p.SKU, &p.Price, &p.Stock, &p.Category, &p.Supplier,
		&p.Version, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProductRepo) Get(ctx context.Context, id int64) (*domain.Product, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = ?`+lockClause(r.driver, r.inTx), id)
	p, err := scanProduct(row)
	if err != nil {
		return nil, notFoundIfNoRows(err, "product", id)
	}
	return p, nil
}

func (r *ProductRepo) List(ctx context.Context) ([]domain.Product, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+productColumns+` FROM products ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	out := []domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *ProductRepo) Create(ctx context.Context, p *domain.Product) error {
	now := r.now()
	res, err := r.q.ExecContext(ctx, `
		INSERT INTO products (name, sku, price, stock, category, supplier, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		p.Name, p.SKU, p.Price, p.Stock, p.Category, p.Supplier, now, now)
	if err != nil {
		return mapWriteErr(err, "product sku "+p.SKU)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID, p.Version, p.CreatedAt, p.UpdatedAt = id, 0, now, now
	return nil
}

// Save writes p only if nobody saved the row since p was read.
func (r *ProductRepo) Save(ctx context.Context, p *domain.Product) error {
	now := r.now()
	res, err := r.q.ExecContext(ctx, `
		UPDATE products
		SET name = ?, sku = ?, price = ?, stock = ?, category = ?, supplier = ?,
		    version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`,
		p.Name, p.SKU, p.Price, p.Stock, p.Category, p.Supplier, now, p.ID, p.Version)
	if err != nil {
		return mapWriteErr(err, "product sku "+p.SKU)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var one int
		err := r.q.QueryRowContext(ctx, `SELECT 1 FROM products WHERE id = ?`, p.ID).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NewNotFound("product", p.ID)
		}
		if err != nil {
			return err
		}
		return &domain.ConcurrencyConflictError{Entity: "product", ID: p.ID}
	}
	p.Version++
	p.UpdatedAt = now
	return nil
}

func (r *ProductRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return mapWriteErr(err, fmt.Sprintf("product %d", id))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.NewNotFound("product", id)
	}
	return nil
}

func (r *ProductRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&n)
	return n, err
}

var _ usecase.ProductRepo = (*ProductRepo)(nil)
