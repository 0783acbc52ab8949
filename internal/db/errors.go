package db

import "errors"

// Sentinel errors for database operations.
var (
	ErrKeyNotFound    = errors.New("db: key not found")
	ErrBucketNotFound = errors.New("db: bucket not found")
	ErrClosed         = errors.New("db: store is closed")
	ErrStopScan       = errors.New("db: stop scan")
)

// Op constants name the failing operation for error context.
const (
	OpOpen    = "OPEN"
	OpView    = "VIEW"
	OpUpdate  = "UPDATE"
	OpGet     = "GET"
	OpPut     = "PUT"
	OpDelete  = "DELETE"
	OpScan    = "SCAN"
	OpBackup  = "BACKUP"
	OpRestore = "RESTORE"
	OpSize    = "SIZE"
	OpSet     = "SET"
	OpDel     = "DEL"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
