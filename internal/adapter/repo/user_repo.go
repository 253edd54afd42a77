package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/Sharath05hk/Minimart/internal/entity"
	"github.com/Sharath05hk/Minimart/internal/usecase"
)

type UserRepo struct {
	q      querier
	driver string
	now    func() time.Time
	inTx   bool
}

const userColumns = `id, email, full_name, password_hash, roles, created_at, updated_at`

func scanUser(r rowScanner) (*domain.User, error) {
	var (
		u     domain.User
		roles string
	)
	if err := r.Scan(&u.ID, &u.Email, &u.FullName, &u.PasswordHash, &roles, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	for _, s := range strings.Split(roles, ",") {
		if s != "" {
			u.Roles = append(u.Roles, domain.Role(s))
		}
	}
	return &u, nil
}

func joinRoles(rs []domain.Role) string {
	parts := make([]string, len(rs))
	for i, r := range rs {
		parts[i] = string(r)
	}
	return strings.Join(parts, ",")
}

func (r *UserRepo) Get(ctx context.Context, id int64) (*domain.User, error) {
	u, err := scanUser(r.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		return nil, notFoundIfNoRows(err, "user", id)
	}
	return u, nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	u, err := scanUser(r.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", email, domain.ErrNotFound)
	}
	return u, err
}

func (r *UserRepo) List(ctx context.Context) ([]domain.User, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	out := []domain.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	now := r.now()
	res, err := r.q.ExecContext(ctx, `
		INSERT INTO users (email, full_name, password_hash, roles, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		u.Email, u.FullName, u.PasswordHash, joinRoles(u.Roles), now, now)
	if err != nil {
		return mapWriteErr(err, "user "+u.Email)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID, u.CreatedAt, u.UpdatedAt = id, now, now
	return nil
}

func (r *UserRepo) Update(ctx context.Context, u *domain.User) error {
	now := r.now()
	res, err := r.q.ExecContext(ctx, `
		UPDATE users SET email = ?, full_name = ?, password_hash = ?, roles = ?, updated_at = ?
		WHERE id = ?`,
		u.Email, u.FullName, u.PasswordHash, joinRoles(u.Roles), now, u.ID)
	if err != nil {
		return mapWriteErr(err, "user "+u.Email)
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return domain.NewNotFound("user", u.ID)
	}
	u.UpdatedAt = now
	return nil
}

func (r *UserRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return domain.NewNotFound("user", id)
	}
	return nil
}

func (r *UserRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

var _ usecase.UserRepo = (*UserRepo)(nil)
