package repositories

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"storefront/internal/apperr"
)

// ErrVersionConflict is returned when an optimistic write lost a race with a
// concurrent writer of the same record. Callers may retry.
var ErrVersionConflict = errors.New("record was modified concurrently")

// ErrStoreBusy is returned when the store refused a write because another
// connection held the lock. Callers may retry.
var ErrStoreBusy = errors.New("store is busy")

// Primary SQLite result codes.
const (
	sqliteBusy   = 5
	sqliteLocked = 6
)

// sqliteCoder is implemented by the pure-Go sqlite driver's errors.
type sqliteCoder interface {
	Code() int
}

// isBusy reports whether err is SQLITE_BUSY or SQLITE_LOCKED from either
// sqlite driver.
func isBusy(err error) bool {
	if isCgoBusy(err) {
		return true
	}
	var pureErr sqliteCoder
	if errors.As(err, &pureErr) {
		code := pureErr.Code() & 0xff
		return code == sqliteBusy || code == sqliteLocked
	}
	return false
}

// translate maps store errors onto the apperr taxonomy.
func translate(err error, entity string) error {
	if err == nil {
		return nil
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) || errors.Is(err, ErrVersionConflict) {
		return err
	}
	if isBusy(err) {
		return apperr.Wrap(apperr.Transient, "store busy", fmt.Errorf("%w: %v", ErrStoreBusy, err))
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperr.Wrap(apperr.NotFound, entity+" not found", err)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperr.Wrap(apperr.Conflict, entity+" already exists", err)
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled),
		errors.Is(err, driver.ErrBadConn),
		errors.Is(err, sql.ErrConnDone):
		return apperr.Wrap(apperr.Transient, "store unavailable", err)
	}
	return apperr.Wrap(apperr.Internal, "store error", err)
}
