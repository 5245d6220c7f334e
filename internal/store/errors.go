package store

import (
	"errors"
	"strings"
)

var (
	// ErrPersistenceConflict reports a constraint failure while writing the
	// child rows of a talk that was just created.
	ErrPersistenceConflict = errors.New("persistence conflict")

	// ErrSchemaAhead is returned when the database carries migrations newer
	// than this binary knows about.
	ErrSchemaAhead = errors.New("database schema is newer than this build")

	// ErrUnknownVersion is returned when a migration target does not exist.
	ErrUnknownVersion = errors.New("unknown schema version")
)

const (
	sqliteBusyCode       = 5
	sqliteConstraintCode = 19
)

func sqliteCode(err error) (int, bool) {
	var coder interface{ Code() int }
	if errors.As(err, &coder) {
		return coder.Code(), true
	}
	return 0, false
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	if code, ok := sqliteCode(err); ok && code&0xff == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func isConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	if code, ok := sqliteCode(err); ok && code&0xff == sqliteConstraintCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "constraint failed") || strings.Contains(msg, "SQLITE_CONSTRAINT")
}
