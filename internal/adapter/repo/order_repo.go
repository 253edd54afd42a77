package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	domain "github.com/Sharath05hk/Minimart/internal/entity"
	"github.com/Sharath05hk/Minimart/internal/usecase"
)

type OrderRepo struct {
	q      querier
	driver string
	now    func() time.Time
	inTx   bool
}

// Save inserts the order and its lines. Orders are written once; the
// number is assigned here when the aggregate has none.
func (r *OrderRepo) Save(ctx context.Context, o *domain.Order) error {
	if o.ID != 0 {
		return fmt.Errorf("order %d already persisted", o.ID)
	}
	if o.Number == "" {
		o.Number = uuid.NewString()
	}
	now := r.now()

	res, err := r.q.ExecContext(ctx, `
		INSERT INTO orders (number, customer_id, status, total_amount, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		o.Number, o.CustomerID, string(o.Status), o.TotalAmount, now, now)
	if err != nil {
		return mapWriteErr(err, "order "+o.Number)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}

	lines := o.Lines()
	lineIDs := make([]int64, 0, len(lines))
	for _, l := range lines {
		res, err := r.q.ExecContext(ctx, `
			INSERT INTO order_lines (order_id, product_id, product_name, sku, quantity, unit_price, subtotal)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			id, l.ProductID, l.ProductName, l.SKU, l.Quantity, l.UnitPrice, l.Subtotal)
		if err != nil {
			return mapWriteErr(err, "order line")
		}
		lid, err := res.LastInsertId()
		if err != nil {
			return err
		}
		lineIDs = append(lineIDs, lid)
	}

	o.Persisted(id, lineIDs, now)
	return nil
}

type orderRow struct {
	id         int64
	number     string
	customerID int64
	status     string
	total      decimal.Decimal
	createdAt  time.Time
	updatedAt  time.Time
}

func (r *OrderRepo) Get(ctx context.Context, id int64) (*domain.Order, error) {
	var o orderRow
	err := r.q.QueryRowContext(ctx, `
		SELECT id, number, customer_id, status, total_amount, created_at, updated_at
		FROM orders WHERE id = ?`, id).
		Scan(&o.id, &o.number, &o.customerID, &o.status, &o.total, &o.createdAt, &o.updatedAt)
	if err != nil {
		return nil, notFoundIfNoRows(err, "order", id)
	}

	lines, err := r.lines(ctx, `WHERE l.order_id = ?`, id)
	if err != nil {
		return nil, err
	}
	return o.restore(lines[id]), nil
}

// ListBetween returns orders with from <= created_at < to, oldest first.
func (r *OrderRepo) ListBetween(ctx context.Context, from, to time.Time) ([]*domain.Order, error) {
	from, to = from.UTC(), to.UTC()
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, number, customer_id, status, total_amount, created_at, updated_at
		FROM orders WHERE created_at >= ? AND created_at < ?
		ORDER BY created_at, id`, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var heads []orderRow
	for rows.Next() {
		var o orderRow
		if err := rows.Scan(&o.id, &o.number, &o.customerID, &o.status, &o.total, &o.createdAt, &o.updatedAt); err != nil {
			return nil, err
		}
		heads = append(heads, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	lines, err := r.lines(ctx, `JOIN orders o ON o.id = l.order_id WHERE o.created_at >= ? AND o.created_at < ?`, from, to)
	if err != nil {
		return nil, err
	}

	out := make([]*domain.Order, 0, len(heads))
	for _, h := range heads {
		out = append(out, h.restore(lines[h.id]))
	}
	return out, nil
}

func (r *OrderRepo) lines(ctx context.Context, where string, args ...any) (map[int64][]domain.OrderLine, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT l.id, l.order_id, l.product_id, l.product_name, l.sku, l.quantity, l.unit_price, l.subtotal
		FROM order_lines l `+where+`
		ORDER BY l.order_id, l.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load order lines: %w", err)
	}
	defer rows.Close()

	out := map[int64][]domain.OrderLine{}
	for rows.Next() {
		var (
			l       domain.OrderLine
			orderID int64
		)
		if err := rows.Scan(&l.ID, &orderID, &l.ProductID, &l.ProductName, &l.SKU, &l.Quantity, &l.UnitPrice, &l.Subtotal); err != nil {
			return nil, err
		}
		out[orderID] = append(out[orderID], l)
	}
	return out, rows.Err()
}

func (o orderRow) restore(lines []domain.OrderLine) *domain.Order {
	return domain.RestoreOrder(o.id, o.number, o.customerID, domain.Status(o.status), o.total,
		o.createdAt, o.updatedAt, lines)
}

var (
	_ usecase.OrderStore = (*OrderRepo)(nil)
	_ usecase.OrderRepo  = (*OrderRepo)(nil)
)
