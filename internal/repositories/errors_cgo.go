//go:build cgo

package repositories

import (
	"errors"

	"github.com/mattn/go-sqlite3"
)

func isCgoBusy(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
}
