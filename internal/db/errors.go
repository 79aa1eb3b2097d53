package db

import (
	"bugfind/internal/model"
	"bugfind/internal/store"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/lib/pq"
)

// wrap translates driver errors into the store error vocabulary.
func wrap(action string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", action, store.ErrNotFound)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			return fmt.Errorf("%s: %w", action, store.ErrConflict)
		case "23502", "23503", "23514":
			return fmt.Errorf("%s: %w", action, store.ErrConstraint)
		}
		return fmt.Errorf("%s: %w", action, err)
	}
	var netErr net.Error
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) || errors.As(err, &netErr) {
		return fmt.Errorf("%s: %w: %w", action, model.ErrStoreUnavailable, err)
	}
	return fmt.Errorf("%s: %w", action, err)
}
