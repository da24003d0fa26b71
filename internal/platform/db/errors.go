package db

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

// ErrNoRows is returned by FetchOne when the query matched nothing.
var ErrNoRows = sql.ErrNoRows

// sqlLogPrefix bounds how much of a statement is logged or reported.
const sqlLogPrefix = 100

// QueryError wraps a storage engine failure together with the statement
// that caused it.
type QueryError struct {
	Op  string
	SQL string
	Err error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Op, e.SQL, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

func newQueryError(op, query string, err error) *QueryError {
	return &QueryError{Op: op, SQL: truncateSQL(query), Err: err}
}

func truncateSQL(query string) string {
	if len(query) > sqlLogPrefix {
		return query[:sqlLogPrefix]
	}
	return query
}

// IsUniqueViolation reports whether err comes from a UNIQUE or PRIMARY KEY
// constraint.
func IsUniqueViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique ||
			se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// IsForeignKeyViolation reports whether err comes from a FOREIGN KEY constraint.
func IsForeignKeyViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintForeignKey
	}
	return false
}
