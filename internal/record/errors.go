package record

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/go-sql-driver/mysql"
	"modernc.org/sqlite"
)

// ErrIncomplete is returned when a record would break the non-empty invariant.
var ErrIncomplete = errors.New("incomplete generation record")

type PersistenceErrorKind string

const (
	// WriteConflict is a lock or deadlock between concurrent writers.
	WriteConflict PersistenceErrorKind = "write_conflict"
	// Unavailable is a store that cannot be reached.
	Unavailable PersistenceErrorKind = "unavailable"
)

// PersistenceError is a store failure that may succeed when retried.
type PersistenceError struct {
	Kind PersistenceErrorKind
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is a PersistenceError.
func IsTransient(err error) bool {
	var persistenceErr *PersistenceError
	return errors.As(err, &persistenceErr)
}

const (
	mysqlLockWaitTimeout = 1205
	mysqlDeadlock        = 1213

	sqliteBusy   = 5
	sqliteLocked = 6
)

// classify wraps driver errors worth retrying in a PersistenceError.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		if mysqlErr.Number == mysqlDeadlock || mysqlErr.Number == mysqlLockWaitTimeout {
			return &PersistenceError{Kind: WriteConflict, Err: err}
		}
		return err
	}
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		// Extended result codes keep the primary code in the low byte.
		switch sqliteErr.Code() & 0xff {
		case sqliteBusy, sqliteLocked:
			return &PersistenceError{Kind: WriteConflict, Err: err}
		}
		return err
	}

	var netErr net.Error
	if errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, mysql.ErrInvalidConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.As(err, &netErr) {
		return &PersistenceError{Kind: Unavailable, Err: err}
	}
	return err
}

type ExportErrorKind string

const CorruptRecord ExportErrorKind = "corrupt_record"

// ExportError describes a stored record that was left out of an export.
type ExportError struct {
	Kind   ExportErrorKind
	Word   string
	Reason string
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("%s: %q: %s", e.Kind, e.Word, e.Reason)
}
