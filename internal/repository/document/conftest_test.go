package document

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/kailas-cloud/mddb/internal/db"
	"github.com/kailas-cloud/mddb/internal/db/bolt"
	domdoc "github.com/kailas-cloud/mddb/internal/domain/document"
)

// failingStore fails every transaction with err.
type failingStore struct {
	err error
}

func (f *failingStore) View(_ context.Context, _ func(db.Tx) error) error { return f.err }
func (f *failingStore) Update(_ context.Context, _ func(db.Tx) error) error { return f.err }

func newTestRepo(t *testing.T) (*Repo, *bolt.Store) {
	t.Helper()
	s, err := bolt.NewStore(bolt.Config{Path: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return New(s), s
}

func testDocument(t *testing.T, key, lang string, meta domdoc.Meta, now int64) domdoc.Document {
	t.Helper()
	doc, err := domdoc.New("notes", key, lang, meta, "# "+key, now)
	if err != nil {
		t.Fatalf("new document: %v", err)
	}
	return doc
}

func countKeys(t *testing.T, s *bolt.Store, bucket, prefix string) int {
	t.Helper()
	var n int
	err := s.View(context.Background(), func(tx db.Tx) error {
		return tx.Scan(bucket, []byte(prefix), func(_, _ []byte) error {
			n++
			return nil
		})
	})
	if err != nil {
		t.Fatalf("scan %s: %v", bucket, err)
	}
	return n
}
