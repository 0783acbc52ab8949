package doccache

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/mddb/internal/db"
	domdoc "github.com/kailas-cloud/mddb/internal/domain/document"
)

// mockKVStore implements the consumer interface for tests.
type mockKVStore struct {
	getFn func(ctx context.Context, key string) ([]byte, error)
	setFn func(ctx context.Context, key string, value []byte, ttl time.Duration) error
	delFn func(ctx context.Context, keys ...string) error
}

func (m *mockKVStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockKVStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.setFn != nil {
		return m.setFn(ctx, key, value, ttl)
	}
	return nil
}

func (m *mockKVStore) Del(ctx context.Context, keys ...string) error {
	if m.delFn != nil {
		return m.delFn(ctx, keys...)
	}
	return nil
}

func newTestCache(t *testing.T) (*Cache, *mockKVStore) {
	t.Helper()
	ms := &mockKVStore{}
	c := New(ms, "mddb:", time.Minute, nil, zap.NewNop())
	c.gen.Store(1)
	return c, ms
}

func testDocument(t *testing.T) domdoc.Document {
	t.Helper()
	doc, err := domdoc.New("notes", "home", "en", domdoc.Meta{"tag": {"a", "b"}}, "# Hi %%name%%", 100)
	if err != nil {
		t.Fatal(err)
	}
	return doc
}
