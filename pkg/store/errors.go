package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrNotFound reports that no record exists for the requested key. Not an
// internal fault.
var ErrNotFound = errors.New("not found")

// ErrStoreUnavailable reports that the underlying store is unreachable. The
// caller may retry, understanding that a re-submitted run always gets a
// fresh identifier.
var ErrStoreUnavailable = errors.New("store unavailable")

// wrapErr maps a gorm/database error into the store error taxonomy, keeping
// the operation context.
func wrapErr(op string, err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case errors.Is(err, driver.ErrBadConn),
		errors.Is(err, sql.ErrConnDone),
		errors.Is(err, gorm.ErrInvalidDB),
		errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %v: %w", op, err, ErrStoreUnavailable)
	}
	return fmt.Errorf("%s: %w", op, err)
}
