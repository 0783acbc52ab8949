package bolt

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	bbolt "go.etcd.io/bbolt"

	"github.com/kailas-cloud/mddb/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

const defaultOpenTimeout = 2 * time.Second

// Config holds bbolt open parameters.
type Config struct {
	Path        string
	OpenTimeout time.Duration
}

// Store implements db.Store on a single bbolt file.
// Restore swaps the underlying handle, so every access goes through mu.
type Store struct {
	mu   sync.RWMutex
	db   *bbolt.DB
	path string
	opts *bbolt.Options
}

// NewStore opens (or creates) the database file and ensures all buckets exist.
func NewStore(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("path is required")
	}
	timeout := cfg.OpenTimeout
	if timeout <= 0 {
		timeout = defaultOpenTimeout
	}

	s := &Store{
		path: cfg.Path,
		opts: &bbolt.Options{
			Timeout:        timeout,
			NoFreelistSync: true,
			FreelistType:   bbolt.FreelistMapType,
		},
	}
	bdb, err := s.open()
	if err != nil {
		return nil, err
	}
	s.db = bdb
	return s, nil
}

func (s *Store) open() (*bbolt.DB, error) {
	bdb, err := bbolt.Open(s.path, 0o600, s.opts)
	if err != nil {
		return nil, &db.Error{Op: db.OpOpen, Err: err}
	}
	err = bdb.Update(func(tx *bbolt.Tx) error {
		for _, name := range db.Buckets {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = bdb.Close()
		return nil, &db.Error{Op: db.OpOpen, Err: err}
	}
	return bdb, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Size returns the database file size in bytes.
func (s *Store) Size() (int64, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		return 0, &db.Error{Op: db.OpSize, Err: err}
	}
	return info.Size(), nil
}

// Ping verifies the handle is usable by running an empty read transaction.
func (s *Store) Ping(ctx context.Context) error {
	return s.View(ctx, func(db.Tx) error { return nil })
}

// View runs fn in a read-only transaction.
func (s *Store) View(ctx context.Context, fn func(db.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return db.ErrClosed
	}
	return s.db.View(func(btx *bbolt.Tx) error {
		return fn(&tx{tx: btx})
	})
}

// Update runs fn in a read-write transaction.
func (s *Store) Update(ctx context.Context, fn func(db.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return db.ErrClosed
	}
	return s.db.Update(func(btx *bbolt.Tx) error {
		return fn(&tx{tx: btx})
	})
}

// Backup writes a consistent snapshot of the database to dst.
// dst must not be the live file: the rename would detach the open handle from s.path.
func (s *Store) Backup(ctx context.Context, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return db.ErrClosed
	}
	// bbolt truncates the target, so write beside it and rename
	tmp := dst + ".tmp"
	err := s.db.View(func(btx *bbolt.Tx) error {
		return btx.CopyFile(tmp, 0o600)
	})
	if err == nil {
		err = os.Rename(tmp, dst)
	}
	if err != nil {
		_ = os.Remove(tmp)
		return &db.Error{Op: db.OpBackup, Err: err}
	}
	return nil
}

// Restore replaces the database file with src and reopens it.
// src is opened read-only first so a corrupt file never replaces live data.
func (s *Store) Restore(ctx context.Context, src string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := verify(src); err != nil {
		return &db.Error{Op: db.OpRestore, Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			return &db.Error{Op: db.OpRestore, Err: err}
		}
		s.db = nil
	}
	if err := db.CopyFile(src, s.path); err != nil {
		// keep serving the old file
		if bdb, openErr := s.open(); openErr == nil {
			s.db = bdb
		}
		return &db.Error{Op: db.OpRestore, Err: err}
	}
	bdb, err := s.open()
	if err != nil {
		return err
	}
	s.db = bdb
	return nil
}

func verify(path string) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}
	bdb, err := bbolt.Open(path, 0o600, &bbolt.Options{ReadOnly: true, Timeout: time.Second})
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	return bdb.Close()
}

// Close releases the file lock.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	if err != nil {
		return fmt.Errorf("close: %w", err)
	}
	return nil
}

type tx struct {
	tx *bbolt.Tx
}

func (t *tx) bucket(op, name string) (*bbolt.Bucket, error) {
	b := t.tx.Bucket([]byte(name))
	if b == nil {
		return nil, &db.Error{Op: op, Err: fmt.Errorf("%s: %w", name, db.ErrBucketNotFound)}
	}
	return b, nil
}

func (t *tx) Get(bucket string, key []byte) ([]byte, error) {
	b, err := t.bucket(db.OpGet, bucket)
	if err != nil {
		return nil, err
	}
	v := b.Get(key)
	if v == nil {
		return nil, db.ErrKeyNotFound
	}
	return bytes.Clone(v), nil
}

func (t *tx) Put(bucket string, key, value []byte) error {
	b, err := t.bucket(db.OpPut, bucket)
	if err != nil {
		return err
	}
	if err := b.Put(key, value); err != nil {
		return &db.Error{Op: db.OpPut, Err: err}
	}
	return nil
}

func (t *tx) Delete(bucket string, key []byte) error {
	b, err := t.bucket(db.OpDelete, bucket)
	if err != nil {
		return err
	}
	if err := b.Delete(key); err != nil {
		return &db.Error{Op: db.OpDelete, Err: err}
	}
	return nil
}

func (t *tx) Scan(bucket string, prefix []byte, fn func(key, value []byte) error) error {
	b, err := t.bucket(db.OpScan, bucket)
	if err != nil {
		return err
	}
	c := b.Cursor()
	for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
		if err := fn(k, v); err != nil {
			if errors.Is(err, db.ErrStopScan) {
				return nil
			}
			return err
		}
	}
	return nil
}
