// Package storetest holds the conformance suite every db.Store driver runs.
package storetest

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/kailas-cloud/mddb/internal/db"
)

// Factory opens a fresh store at path.
type Factory func(t *testing.T, path string) db.Store

// Run runs the common test suite against a driver.
func Run(t *testing.T, open Factory) {
	t.Helper()
	ctx := context.Background()

	t.Run("Put and Get", func(t *testing.T) {
		s := open(t, filepath.Join(t.TempDir(), "a.db"))
		put(t, s, db.BucketDocs, "doc|c|1", "one")

		err := s.View(ctx, func(tx db.Tx) error {
			v, err := tx.Get(db.BucketDocs, []byte("doc|c|1"))
			if err != nil {
				return err
			}
			if string(v) != "one" {
				t.Fatalf("expected one, got %q", v)
			}
			return nil
		})
		if err != nil {
			t.Fatal(err)
		}
	})

	t.Run("Get missing", func(t *testing.T) {
		s := open(t, filepath.Join(t.TempDir(), "a.db"))
		err := s.View(ctx, func(tx db.Tx) error {
			_, err := tx.Get(db.BucketDocs, []byte("nope"))
			return err
		})
		if !errors.Is(err, db.ErrKeyNotFound) {
			t.Fatalf("expected ErrKeyNotFound, got %v", err)
		}
	})

	t.Run("Put overwrites", func(t *testing.T) {
		s := open(t, filepath.Join(t.TempDir(), "a.db"))
		put(t, s, db.BucketByKey, "k", "v1")
		put(t, s, db.BucketByKey, "k", "v2")
		if got := get(t, s, db.BucketByKey, "k"); got != "v2" {
			t.Fatalf("expected v2, got %q", got)
		}
	})

	t.Run("Buckets are isolated", func(t *testing.T) {
		s := open(t, filepath.Join(t.TempDir(), "a.db"))
		put(t, s, db.BucketDocs, "k", "docs")
		put(t, s, db.BucketRevs, "k", "revs")
		if got := get(t, s, db.BucketDocs, "k"); got != "docs" {
			t.Fatalf("expected docs, got %q", got)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		s := open(t, filepath.Join(t.TempDir(), "a.db"))
		put(t, s, db.BucketDocs, "k", "v")
		err := s.Update(ctx, func(tx db.Tx) error {
			if err := tx.Delete(db.BucketDocs, []byte("k")); err != nil {
				return err
			}
			return tx.Delete(db.BucketDocs, []byte("missing"))
		})
		if err != nil {
			t.Fatal(err)
		}
		err = s.View(ctx, func(tx db.Tx) error {
			_, err := tx.Get(db.BucketDocs, []byte("k"))
			return err
		})
		if !errors.Is(err, db.ErrKeyNotFound) {
			t.Fatalf("expected ErrKeyNotFound after delete, got %v", err)
		}
	})

	t.Run("Update rolls back on error", func(t *testing.T) {
		s := open(t, filepath.Join(t.TempDir(), "a.db"))
		boom := errors.New("boom")
		err := s.Update(ctx, func(tx db.Tx) error {
			if err := tx.Put(db.BucketDocs, []byte("k"), []byte("v")); err != nil {
				return err
			}
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("expected boom, got %v", err)
		}
		err = s.View(ctx, func(tx db.Tx) error {
			_, err := tx.Get(db.BucketDocs, []byte("k"))
			return err
		})
		if !errors.Is(err, db.ErrKeyNotFound) {
			t.Fatalf("expected rolled back write, got %v", err)
		}
	})

	t.Run("Scan prefix in key order", func(t *testing.T) {
		s := open(t, filepath.Join(t.TempDir(), "a.db"))
		for _, k := range []string{"rev|c|1|03", "rev|c|1|01", "rev|c|2|01", "rev|c|1|02", "rev|d|1|01"} {
			put(t, s, db.BucketRevs, k, k)
		}

		got := scan(t, s, db.BucketRevs, "rev|c|1|")
		want := []string{"rev|c|1|01", "rev|c|1|02", "rev|c|1|03"}
		if len(got) != len(want) {
			t.Fatalf("expected %v, got %v", want, got)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("position %d: expected %s, got %s", i, want[i], got[i])
			}
		}

		if all := scan(t, s, db.BucketRevs, ""); len(all) != 5 {
			t.Fatalf("expected 5 keys for empty prefix, got %d", len(all))
		}
	})

	t.Run("Scan stops early", func(t *testing.T) {
		s := open(t, filepath.Join(t.TempDir(), "a.db"))
		put(t, s, db.BucketDocs, "doc|c|1", "1")
		put(t, s, db.BucketDocs, "doc|c|2", "2")
		n := 0
		err := s.View(ctx, func(tx db.Tx) error {
			return tx.Scan(db.BucketDocs, []byte("doc|"), func(_, _ []byte) error {
				n++
				return db.ErrStopScan
			})
		})
		if err != nil {
			t.Fatal(err)
		}
		if n != 1 {
			t.Fatalf("expected 1 visit, got %d", n)
		}
	})

	t.Run("Backup and Restore", func(t *testing.T) {
		dir := t.TempDir()
		s := open(t, filepath.Join(dir, "live.db"))
		put(t, s, db.BucketDocs, "k", "before")

		backup := filepath.Join(dir, "snap.db")
		if err := s.Backup(ctx, backup); err != nil {
			t.Fatalf("backup: %v", err)
		}

		put(t, s, db.BucketDocs, "k", "after")
		if err := s.Restore(ctx, backup); err != nil {
			t.Fatalf("restore: %v", err)
		}
		if got := get(t, s, db.BucketDocs, "k"); got != "before" {
			t.Fatalf("expected restored value before, got %q", got)
		}
	})

	t.Run("Restore missing file keeps data", func(t *testing.T) {
		dir := t.TempDir()
		s := open(t, filepath.Join(dir, "live.db"))
		put(t, s, db.BucketDocs, "k", "v")
		if err := s.Restore(ctx, filepath.Join(dir, "missing.db")); err == nil {
			t.Fatal("expected error for missing source")
		}
		if got := get(t, s, db.BucketDocs, "k"); got != "v" {
			t.Fatalf("expected data intact, got %q", got)
		}
	})

	t.Run("Size and Path", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "a.db")
		s := open(t, path)
		put(t, s, db.BucketDocs, "k", "v")
		if s.Path() != path {
			t.Fatalf("expected path %s, got %s", path, s.Path())
		}
		size, err := s.Size()
		if err != nil {
			t.Fatal(err)
		}
		if size <= 0 {
			t.Fatalf("expected positive size, got %d", size)
		}
	})

	t.Run("Closed store", func(t *testing.T) {
		s := open(t, filepath.Join(t.TempDir(), "a.db"))
		if err := s.Close(); err != nil {
			t.Fatal(err)
		}
		if err := s.Ping(ctx); !errors.Is(err, db.ErrClosed) {
			t.Fatalf("expected ErrClosed, got %v", err)
		}
	})
}

func put(t *testing.T, s db.Store, bucket, key, value string) {
	t.Helper()
	err := s.Update(context.Background(), func(tx db.Tx) error {
		return tx.Put(bucket, []byte(key), []byte(value))
	})
	if err != nil {
		t.Fatalf("put %s: %v", key, err)
	}
}

func get(t *testing.T, s db.Store, bucket, key string) string {
	t.Helper()
	var out string
	err := s.View(context.Background(), func(tx db.Tx) error {
		v, err := tx.Get(bucket, []byte(key))
		out = string(v)
		return err
	})
	if err != nil {
		t.Fatalf("get %s: %v", key, err)
	}
	return out
}

func scan(t *testing.T, s db.Store, bucket, prefix string) []string {
	t.Helper()
	var keys []string
	err := s.View(context.Background(), func(tx db.Tx) error {
		return tx.Scan(bucket, []byte(prefix), func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	if err != nil {
		t.Fatalf("scan %s: %v", prefix, err)
	}
	return keys
}
