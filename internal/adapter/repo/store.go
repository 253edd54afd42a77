package repo

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"

	"github.com/Sharath05hk/Minimart/internal/usecase"
)

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

type Options struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// querier is implemented by both *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store owns the connection pool and hands out repositories bound either
// to the pool or to a single transaction.
type Store struct {
	db     *sql.DB
	driver string
	now    func() time.Time
}

func Open(ctx context.Context, o Options) (*Store, error) {
	var (
		db  *sql.DB
		err error
	)
	switch o.Driver {
	case DriverMySQL:
		db, err = openMySQL(o)
	case DriverSQLite:
		db, err = openSQLite(o.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", o.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", o.Driver, err)
	}
	if err := ApplyMigrations(ctx, db, o.Driver); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}
	return &Store{db: db, driver: o.Driver, now: utcNow}, nil
}

func openMySQL(o Options) (*sql.DB, error) {
	cfg, err := mysql.ParseDSN(o.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.ClientFoundRows = true

	db, err := sql.Open(DriverMySQL, cfg.FormatDSN())
	if err != nil {
		return nil, err
	}
	if o.MaxOpenConns > 0 {
		db.SetMaxOpenConns(o.MaxOpenConns)
	}
	if o.MaxIdleConns > 0 {
		db.SetMaxIdleConns(o.MaxIdleConns)
	}
	db.SetConnMaxLifetime(o.ConnMaxLifetime)
	return db, nil
}

// sqliteDSN turns a path or ":memory:" into a URI the driver understands,
// with times written in a lexically sortable form.
func sqliteDSN(dsn string) string {
	if dsn == "" || dsn == ":memory:" {
		dsn = "file::memory:"
	}
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	if strings.Contains(dsn, "_time_format=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_time_format=sqlite"
}

// sqliteFile returns the on-disk path of dsn, or "" for in-memory databases.
func sqliteFile(dsn string) string {
	path, query, _ := strings.Cut(strings.TrimPrefix(sqliteDSN(dsn), "file:"), "?")
	if path == "" || path == ":memory:" || strings.Contains(query, "mode=memory") {
		return ""
	}
	return path
}

func openSQLite(dsn string) (*sql.DB, error) {
	if path := sqliteFile(dsn); path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open(DriverSQLite, sqliteDSN(dsn))
	if err != nil {
		return nil, err
	}

	// single writer; transactions queue on the one connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	return db, nil
}

func utcNow() time.Time { return time.Now().UTC().Truncate(time.Microsecond) }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) Driver() string { return s.driver }

func (s *Store) Products() *ProductRepo {
	return &ProductRepo{q: s.db, driver: s.driver, now: s.now}
}

func (s *Store) Customers() *CustomerRepo {
	return &CustomerRepo{q: s.db, driver: s.driver, now: s.now}
}

func (s *Store) Orders() *OrderRepo {
	return &OrderRepo{q: s.db, driver: s.driver, now: s.now}
}

func (s *Store) Users() *UserRepo {
	return &UserRepo{q: s.db, driver: s.driver, now: s.now}
}

// InTx runs fn against repositories bound to one transaction. It commits when
// fn returns nil and rolls back on error or panic.
func (s *Store) InTx(ctx context.Context, fn func(usecase.TxStores) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stores := usecase.TxStores{
		Customers: &CustomerRepo{q: tx, driver: s.driver, now: s.now, inTx: true},
		Products:  &ProductRepo{q: tx, driver: s.driver, now: s.now, inTx: true},
		Orders:    &OrderRepo{q: tx, driver: s.driver, now: s.now, inTx: true},
	}
	if err = fn(stores); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// lockClause adds a row lock to reads inside a MySQL transaction.
func lockClause(driver string, inTx bool) string {
	if inTx && driver == DriverMySQL {
		return " FOR UPDATE"
	}
	return ""
}

var _ usecase.Transactor = (*Store)(nil)
