package db

import (
	"context"
	"time"
)

// Bucket names. Every document store creates them on open.
const (
	BucketDocs  = "docs"
	BucketMeta  = "idxmeta"
	BucketRevs  = "rev"
	BucketByKey = "bykey"
)

// Buckets lists all buckets in creation order.
var Buckets = []string{BucketDocs, BucketMeta, BucketRevs, BucketByKey}

// Store is the document storage facade combining all sub-interfaces.
//
//nolint:interfacebloat // facade by design -- consumers use narrow sub-interfaces (ISP)
type Store interface {
	Pinger
	Transactor
	Snapshotter
	Path() string
	Size() (int64, error)
	Close() error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Transactor runs read-only and read-write transactions.
// A read-write transaction commits when fn returns nil and rolls back otherwise.
type Transactor interface {
	View(ctx context.Context, fn func(Tx) error) error
	Update(ctx context.Context, fn func(Tx) error) error
}

// Tx is a single transaction over the bucketed key space.
type Tx interface {
	// Get returns a copy of the value or ErrKeyNotFound.
	Get(bucket string, key []byte) ([]byte, error)
	Put(bucket string, key, value []byte) error
	// Delete is a no-op for missing keys.
	Delete(bucket string, key []byte) error
	// Scan visits keys with the given prefix in byte order. key and value are valid
	// only for the duration of fn, and fn must not modify the bucket. Returning
	// ErrStopScan ends the scan early without error.
	Scan(bucket string, prefix []byte, fn func(key, value []byte) error) error
}

// Snapshotter copies the database file out and back in.
type Snapshotter interface {
	Backup(ctx context.Context, dst string) error
	Restore(ctx context.Context, src string) error
}

// KVStore provides key-value operations with expiry (cache backends).
type KVStore interface {
	Pinger
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}
