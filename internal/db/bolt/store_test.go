package bolt_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kailas-cloud/mddb/internal/db"
	"github.com/kailas-cloud/mddb/internal/db/bolt"
	"github.com/kailas-cloud/mddb/internal/db/storetest"
)

func TestBoltStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T, path string) db.Store {
		s, err := bolt.NewStore(bolt.Config{Path: path})
		if err != nil {
			t.Fatalf("NewStore: %v", err)
		}
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestBoltStore_RequiresPath(t *testing.T) {
	if _, err := bolt.NewStore(bolt.Config{}); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestBoltStore_RestoreRejectsGarbage(t *testing.T) {
	dir := t.TempDir()
	s, err := bolt.NewStore(bolt.Config{Path: filepath.Join(dir, "live.db")})
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = s.Close() }()

	junk := filepath.Join(dir, "junk.db")
	if err := os.WriteFile(junk, []byte("not a bolt file"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := s.Restore(t.Context(), junk); err == nil {
		t.Fatal("expected error restoring a non-bolt file")
	}
	if err := s.Ping(t.Context()); err != nil {
		t.Fatalf("store must stay usable, got %v", err)
	}
}

func TestBoltStore_BackupReplacesTarget(t *testing.T) {
	dir := t.TempDir()
	s, err := bolt.NewStore(bolt.Config{Path: filepath.Join(dir, "live.db")})
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = s.Close() }()

	err = s.Update(t.Context(), func(tx db.Tx) error {
		return tx.Put(db.BucketDocs, []byte("k"), []byte("v"))
	})
	if err != nil {
		t.Fatal(err)
	}

	dst := filepath.Join(dir, "snap.db")
	if err := os.WriteFile(dst, []byte("stale"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := s.Backup(t.Context(), dst); err != nil {
		t.Fatalf("Backup: %v", err)
	}
	if _, err := os.Stat(dst + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind: %v", err)
	}

	snap, err := bolt.NewStore(bolt.Config{Path: dst})
	if err != nil {
		t.Fatalf("open snapshot: %v", err)
	}
	defer func() { _ = snap.Close() }()
	err = snap.View(t.Context(), func(tx db.Tx) error {
		v, err := tx.Get(db.BucketDocs, []byte("k"))
		if err == nil && string(v) != "v" {
			t.Errorf("unexpected value %q", v)
		}
		return err
	})
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
}
