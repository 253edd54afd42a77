package repo

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"

	domain "github.com/Sharath05hk/Minimart/internal/entity"
)

const (
	mysqlDupEntry        = 1062
	mysqlRowIsReferenced = 1451
	mysqlNoReferencedRow = 1452
)

func isUniqueViolation(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == mysqlDupEntry
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isForeignKeyViolation(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == mysqlRowIsReferenced || me.Number == mysqlNoReferencedRow
	}
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

// mapWriteErr converts driver constraint failures into domain errors.
func mapWriteErr(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case isUniqueViolation(err):
		return &alreadyExists{what: what, cause: err}
	case isForeignKeyViolation(err):
		return &referenced{what: what, cause: err}
	default:
		return err
	}
}

type alreadyExists struct {
	what  string
	cause error
}

func (e *alreadyExists) Error() string   { return e.what + " already exists" }
func (e *alreadyExists) Unwrap() []error { return []error{domain.ErrAlreadyExists, e.cause} }

type referenced struct {
	what  string
	cause error
}

func (e *referenced) Error() string   { return e.what + " is still referenced" }
func (e *referenced) Unwrap() []error { return []error{domain.ErrReferenced, e.cause} }

func notFoundIfNoRows(err error, entity string, id int64) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NewNotFound(entity, id)
	}
	return err
}
