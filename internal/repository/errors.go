// Package repository defines error types that are reused across every
// query in the store. These sentinel values allow the service layer to
// distinguish a missing row from a broken database without looking at
// driver-specific errors.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when the requested row does not exist. The
// service layer translates it into a typed NotFound with a message naming
// the entity.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write hits a unique index, such as a
// second viewer with the same email or a repeated episode number. It
// backs up the existence checks the service runs inside its transaction.
var ErrConflict = errors.New("conflict")

// ErrTooLong is returned when a value does not fit its column.
var ErrTooLong = errors.New("value too long")

const (
	mysqlDuplicateEntry = 1062 // ER_DUP_ENTRY
	mysqlDataTooLong    = 1406 // ER_DATA_TOO_LONG
)

// translate maps driver errors onto the sentinels above. Anything it does
// not recognise is returned unchanged.
func translate(err error) error {
	var me *mysql.MySQLError
	if !errors.As(err, &me) {
		return err
	}
	switch me.Number {
	case mysqlDuplicateEntry:
		return ErrConflict
	case mysqlDataTooLong:
		return ErrTooLong
	}
	return err
}
