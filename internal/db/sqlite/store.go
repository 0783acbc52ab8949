package sqlite

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3" // registers the sqlite3 driver

	"github.com/kailas-cloud/mddb/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

// Tables:
//
//	kv(bucket, key, value)  PRIMARY KEY (bucket, key)
const schema = `CREATE TABLE IF NOT EXISTS kv (
	bucket TEXT NOT NULL,
	key    BLOB NOT NULL,
	value  BLOB NOT NULL,
	PRIMARY KEY (bucket, key)
) WITHOUT ROWID`

// Config holds SQLite open parameters.
type Config struct {
	Path string
}

// Store implements db.Store on a single SQLite file in WAL mode.
// Buckets are rows of one kv table; prefix scans are key range queries.
type Store struct {
	mu   sync.RWMutex
	db   *sql.DB
	path string
}

// NewStore opens (or creates) the database file.
func NewStore(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("path is required")
	}
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, &db.Error{Op: db.OpOpen, Err: err}
		}
	}
	s := &Store{path: cfg.Path}
	sdb, err := s.open()
	if err != nil {
		return nil, err
	}
	s.db = sdb
	return s, nil
}

func (s *Store) open() (*sql.DB, error) {
	sdb, err := sql.Open("sqlite3", "file:"+s.path+"?_busy_timeout=5000")
	if err != nil {
		return nil, &db.Error{Op: db.OpOpen, Err: err}
	}
	// one writer at a time; readers share the same connection
	sdb.SetMaxOpenConns(1)
	if _, err := sdb.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = sdb.Close()
		return nil, &db.Error{Op: db.OpOpen, Err: err}
	}
	if _, err := sdb.Exec(schema); err != nil {
		_ = sdb.Close()
		return nil, &db.Error{Op: db.OpOpen, Err: err}
	}
	return sdb, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Size returns the size of the database file plus its write-ahead log.
func (s *Store) Size() (int64, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		return 0, &db.Error{Op: db.OpSize, Err: err}
	}
	size := info.Size()
	if wal, err := os.Stat(s.path + "-wal"); err == nil {
		size += wal.Size()
	}
	return size, nil
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return db.ErrClosed
	}
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// View runs fn in a transaction that is always rolled back.
func (s *Store) View(ctx context.Context, fn func(db.Tx) error) error {
	return s.run(ctx, db.OpView, false, fn)
}

// Update runs fn in a transaction committed on success.
func (s *Store) Update(ctx context.Context, fn func(db.Tx) error) error {
	return s.run(ctx, db.OpUpdate, true, fn)
}

func (s *Store) run(ctx context.Context, op string, commit bool, fn func(db.Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return db.ErrClosed
	}
	stx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &db.Error{Op: op, Err: err}
	}
	if err := fn(&tx{ctx: ctx, tx: stx}); err != nil {
		_ = stx.Rollback()
		return err
	}
	if !commit {
		_ = stx.Rollback()
		return nil
	}
	if err := stx.Commit(); err != nil {
		return &db.Error{Op: op, Err: err}
	}
	return nil
}

// Backup writes a compacted copy of the database to dst via VACUUM INTO.
func (s *Store) Backup(ctx context.Context, dst string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return db.ErrClosed
	}
	// VACUUM INTO refuses to overwrite
	if err := os.Remove(dst); err != nil && !errors.Is(err, os.ErrNotExist) {
		return &db.Error{Op: db.OpBackup, Err: err}
	}
	if _, err := s.db.ExecContext(ctx, "VACUUM INTO ?", dst); err != nil {
		return &db.Error{Op: db.OpBackup, Err: err}
	}
	return nil
}

// Restore replaces the database with src and reopens it.
func (s *Store) Restore(ctx context.Context, src string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := os.Stat(src); err != nil {
		return &db.Error{Op: db.OpRestore, Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		// fold the WAL back so the side files can go
		_, _ = s.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)")
		if err := s.db.Close(); err != nil {
			return &db.Error{Op: db.OpRestore, Err: err}
		}
		s.db = nil
	}
	copyErr := db.CopyFile(src, s.path)
	if copyErr == nil {
		for _, side := range []string{s.path + "-wal", s.path + "-shm"} {
			if err := os.Remove(side); err != nil && !errors.Is(err, os.ErrNotExist) {
				copyErr = err
				break
			}
		}
	}
	sdb, err := s.open()
	if err != nil {
		return err
	}
	s.db = sdb
	if copyErr != nil {
		return &db.Error{Op: db.OpRestore, Err: copyErr}
	}
	return nil
}

// Close closes the database.
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
	ctx context.Context //nolint:containedctx // scoped to one transaction
	tx  *sql.Tx
}

func (t *tx) Get(bucket string, key []byte) ([]byte, error) {
	var v []byte
	err := t.tx.QueryRowContext(t.ctx,
		"SELECT value FROM kv WHERE bucket = ? AND key = ?", bucket, key,
	).Scan(&v)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, db.ErrKeyNotFound
		}
		return nil, &db.Error{Op: db.OpGet, Err: err}
	}
	return v, nil
}

func (t *tx) Put(bucket string, key, value []byte) error {
	_, err := t.tx.ExecContext(t.ctx,
		`INSERT INTO kv (bucket, key, value) VALUES (?, ?, ?)
		 ON CONFLICT(bucket, key) DO UPDATE SET value = excluded.value`,
		bucket, key, value,
	)
	if err != nil {
		return &db.Error{Op: db.OpPut, Err: err}
	}
	return nil
}

func (t *tx) Delete(bucket string, key []byte) error {
	if _, err := t.tx.ExecContext(t.ctx, "DELETE FROM kv WHERE bucket = ? AND key = ?", bucket, key); err != nil {
		return &db.Error{Op: db.OpDelete, Err: err}
	}
	return nil
}

type row struct {
	key, value []byte
}

// Scan loads the matching range before calling fn, so fn may issue further
// statements on the same transaction.
func (t *tx) Scan(bucket string, prefix []byte, fn func(key, value []byte) error) error {
	rows, err := t.rangeQuery(bucket, prefix)
	if err != nil {
		return &db.Error{Op: db.OpScan, Err: err}
	}
	for _, r := range rows {
		if err := fn(r.key, r.value); err != nil {
			if errors.Is(err, db.ErrStopScan) {
				return nil
			}
			return err
		}
	}
	return nil
}

func (t *tx) rangeQuery(bucket string, prefix []byte) ([]row, error) {
	var (
		rs  *sql.Rows
		err error
	)
	// a nil blob binds as NULL, which compares false against every key
	if len(prefix) == 0 {
		rs, err = t.tx.QueryContext(t.ctx,
			"SELECT key, value FROM kv WHERE bucket = ? ORDER BY key", bucket)
	} else if end := prefixEnd(prefix); end != nil {
		rs, err = t.tx.QueryContext(t.ctx,
			"SELECT key, value FROM kv WHERE bucket = ? AND key >= ? AND key < ? ORDER BY key",
			bucket, prefix, end)
	} else {
		rs, err = t.tx.QueryContext(t.ctx,
			"SELECT key, value FROM kv WHERE bucket = ? AND key >= ? ORDER BY key",
			bucket, prefix)
	}
	if err != nil {
		return nil, err
	}
	defer func() { _ = rs.Close() }()

	var out []row
	for rs.Next() {
		var r row
		if err := rs.Scan(&r.key, &r.value); err != nil {
			return nil, err
		}
		if !bytes.HasPrefix(r.key, prefix) {
			break
		}
		out = append(out, r)
	}
	return out, rs.Err()
}

// prefixEnd returns the smallest key greater than every key with the prefix,
// or nil when the prefix is empty or all 0xff.
func prefixEnd(prefix []byte) []byte {
	end := bytes.Clone(prefix)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}
