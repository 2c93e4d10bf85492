package database

import (
	"errors"

	"github.com/mattn/go-sqlite3"
)

// ErrInvalid marks argument validation failures (bad role, non-positive
// price, negative quantity and the like).
var ErrInvalid = errors.New("invalid argument")

// Transient reports whether err is a SQLite contention failure
// (busy or locked) that is safe to retry.
func Transient(err error) bool {
	var serr sqlite3.Error
	if errors.As(err, &serr) {
		return serr.Code == sqlite3.ErrBusy || serr.Code == sqlite3.ErrLocked
	}
	return false
}
