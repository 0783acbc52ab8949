package document

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kailas-cloud/mddb/internal/domain"
	domdoc "github.com/kailas-cloud/mddb/internal/domain/document"
)

// --- Mocks ---

type mockDocRepo struct {
	upsertCreated bool
	upsertErr     error
	upserted      domdoc.Document
	getResult     domdoc.Document
	getErr        error
	getCalls      int
	deleteErr     error
	deletedCount  int
	revs          []domdoc.Document
	afterRead     func()
}

func (m *mockDocRepo) Upsert(_ context.Context, _ string, doc domdoc.Document) (domdoc.Document, bool, error) {
	m.upserted = doc
	return doc, m.upsertCreated, m.upsertErr
}
func (m *mockDocRepo) Get(_ context.Context, _, _, _ string) (domdoc.Document, error) {
	m.getCalls++
	res := m.getResult
	if m.afterRead != nil {
		m.afterRead()
	}
	return res, m.getErr
}
func (m *mockDocRepo) Delete(_ context.Context, _, _, _ string) error { return m.deleteErr }
func (m *mockDocRepo) DeleteCollection(_ context.Context, _ string) (int, error) {
	return m.deletedCount, m.deleteErr
}
func (m *mockDocRepo) Revisions(_ context.Context, _, _, _ string) ([]domdoc.Document, error) {
	return m.revs, m.getErr
}

type mockCache struct {
	entries     map[string]domdoc.Document
	invalidated []string
	flushed     int
	version     uint64
}

func newMockCache() *mockCache { return &mockCache{entries: map[string]domdoc.Document{}} }

func (m *mockCache) Get(_ context.Context, _, id string) (domdoc.Document, bool) {
	d, ok := m.entries[id]
	return d, ok
}
func (m *mockCache) Version() uint64 { return m.version }
func (m *mockCache) Put(_ context.Context, _ string, doc *domdoc.Document, ver uint64) {
	if ver == m.version {
		m.entries[doc.ID()] = *doc
	}
}
func (m *mockCache) Invalidate(_ context.Context, _ string, ids ...string) {
	m.version++
	m.invalidated = append(m.invalidated, ids...)
}
func (m *mockCache) Flush(context.Context) { m.version++; m.flushed++ }

func fixedClock() time.Time { return time.Unix(1700000000, 0) }

// --- Add ---

func TestAdd_Success(t *testing.T) {
	repo := &mockDocRepo{upsertCreated: true}
	cache := newMockCache()
	svc := New(repo).WithCache(cache).WithClock(fixedClock)

	doc, created, err := svc.Add(context.Background(), "notes", "Home", "en", domdoc.Meta{"t": {"a"}}, "# hi")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !created {
		t.Error("expected created=true")
	}
	if doc.ID() != "notes|home|en" || doc.UpdatedAt() != 1700000000 {
		t.Errorf("unexpected doc: id=%s updated=%d", doc.ID(), doc.UpdatedAt())
	}
	if len(cache.invalidated) != 1 || cache.invalidated[0] != "notes|home|en" {
		t.Errorf("expected cache invalidation, got %v", cache.invalidated)
	}
}

func TestAdd_Validation(t *testing.T) {
	svc := New(&mockDocRepo{})
	tests := []struct {
		name            string
		coll, key, lang string
		meta            domdoc.Meta
	}{
		{"missing collection", "", "k", "en", nil},
		{"missing key", "c", "", "en", nil},
		{"missing lang", "c", "k", "", nil},
		{"separator in key", "c", "a|b", "en", nil},
		{"separator in meta", "c", "k", "en", domdoc.Meta{"t": {"x|y"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.Add(context.Background(), tt.coll, tt.key, tt.lang, tt.meta, "")
			if !errors.Is(err, domain.ErrInvalidDocument) {
				t.Fatalf("expected ErrInvalidDocument, got %v", err)
			}
		})
	}
}

func TestAdd_ReadOnly(t *testing.T) {
	repo := &mockDocRepo{}
	svc := New(repo).WithMode(domain.ModeRead)
	_, _, err := svc.Add(context.Background(), "c", "k", "en", nil, "")
	if !errors.Is(err, domain.ErrReadOnly) {
		t.Fatalf("expected ErrReadOnly, got %v", err)
	}
	if repo.upserted.ID() != "" {
		t.Fatal("repository must not be called in read mode")
	}
}

func TestAdd_WriteOnlyModeAllowsWrites(t *testing.T) {
	svc := New(&mockDocRepo{}).WithMode(domain.ModeWrite)
	if _, _, err := svc.Add(context.Background(), "c", "k", "en", nil, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAdd_RepoError(t *testing.T) {
	svc := New(&mockDocRepo{upsertErr: errors.New("disk full")})
	if _, _, err := svc.Add(context.Background(), "c", "k", "en", nil, ""); err == nil {
		t.Fatal("expected error")
	}
}

// --- Get ---

func TestGet_RendersEnv(t *testing.T) {
	stored := domdoc.Reconstruct("c|k|en", "k", "en", nil, "Hello %%name%%, %%missing%%", 1, 2)
	svc := New(&mockDocRepo{getResult: stored})

	doc, err := svc.Get(context.Background(), "c", "k", "en", map[string]string{"name": "Ann"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.ContentMD() != "Hello Ann, %%missing%%" {
		t.Fatalf("unexpected content: %q", doc.ContentMD())
	}
}

func TestGet_CachesRawDocument(t *testing.T) {
	stored := domdoc.Reconstruct("c|k|en", "k", "en", nil, "Hi %%who%%", 1, 2)
	repo := &mockDocRepo{getResult: stored}
	cache := newMockCache()
	svc := New(repo).WithCache(cache)
	ctx := context.Background()

	first, err := svc.Get(ctx, "c", "k", "en", map[string]string{"who": "A"})
	if err != nil {
		t.Fatal(err)
	}
	second, err := svc.Get(ctx, "c", "k", "en", map[string]string{"who": "B"})
	if err != nil {
		t.Fatal(err)
	}

	if repo.getCalls != 1 {
		t.Errorf("expected 1 repo call, got %d", repo.getCalls)
	}
	if first.ContentMD() != "Hi A" || second.ContentMD() != "Hi B" {
		t.Errorf("cache must hold unrendered content: %q / %q", first.ContentMD(), second.ContentMD())
	}
}

func TestGet_RacingWriteIsNotCached(t *testing.T) {
	old := domdoc.Reconstruct("c|k|en", "k", "en", nil, "old", 1, 1)
	repo := &mockDocRepo{getResult: old}
	cache := newMockCache()
	svc := New(repo).WithCache(cache).WithClock(fixedClock)
	ctx := context.Background()

	// запись проходит между чтением из базы и заполнением кэша
	repo.afterRead = func() {
		repo.afterRead = nil
		if _, _, err := svc.Add(ctx, "c", "k", "en", nil, "new"); err != nil {
			t.Fatal(err)
		}
		repo.getResult = repo.upserted
	}

	got, err := svc.Get(ctx, "c", "k", "en", nil)
	if err != nil {
		t.Fatal(err)
	}
	if got.ContentMD() != "old" {
		t.Fatalf("raced read returns what it read, got %q", got.ContentMD())
	}
	if _, ok := cache.entries["c|k|en"]; ok {
		t.Fatal("stale document must not be cached after a concurrent write")
	}

	got, err = svc.Get(ctx, "c", "k", "en", nil)
	if err != nil {
		t.Fatal(err)
	}
	if got.ContentMD() != "new" || repo.getCalls != 2 {
		t.Fatalf("second read must hit the store: %q calls=%d", got.ContentMD(), repo.getCalls)
	}
	if cached, ok := cache.entries["c|k|en"]; !ok || cached.ContentMD() != "new" {
		t.Fatal("fresh read must be cached")
	}
}

func TestGet_NotFound(t *testing.T) {
	svc := New(&mockDocRepo{getErr: domain.ErrDocumentNotFound}).WithMode(domain.ModeRead)
	_, err := svc.Get(context.Background(), "c", "k", "en", nil)
	if !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
}

// --- Delete ---

func TestDelete(t *testing.T) {
	cache := newMockCache()
	svc := New(&mockDocRepo{}).WithCache(cache)
	if err := svc.Delete(context.Background(), "c", "K", "en"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cache.invalidated) != 1 || cache.invalidated[0] != "c|k|en" {
		t.Errorf("unexpected invalidation: %v", cache.invalidated)
	}
}

func TestDelete_NotFound(t *testing.T) {
	svc := New(&mockDocRepo{deleteErr: domain.ErrDocumentNotFound})
	err := svc.Delete(context.Background(), "c", "k", "en")
	if !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestDeleteCollection(t *testing.T) {
	cache := newMockCache()
	svc := New(&mockDocRepo{deletedCount: 7}).WithCache(cache)

	n, err := svc.DeleteCollection(context.Background(), "c")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 7 || cache.flushed != 1 {
		t.Errorf("n=%d flushed=%d", n, cache.flushed)
	}

	if _, err := svc.DeleteCollection(context.Background(), ""); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest, got %v", err)
	}
	if _, err := svc.WithMode(domain.ModeRead).DeleteCollection(context.Background(), "c"); !errors.Is(err, domain.ErrReadOnly) {
		t.Errorf("expected ErrReadOnly, got %v", err)
	}
}

func TestRevisions(t *testing.T) {
	revs := []domdoc.Document{domdoc.Reconstruct("c|k|en", "k", "en", nil, "v1", 1, 1)}
	svc := New(&mockDocRepo{revs: revs}).WithMode(domain.ModeRead)
	got, err := svc.Revisions(context.Background(), "c", "k", "en")
	if err != nil || len(got) != 1 {
		t.Fatalf("got %d revisions, err %v", len(got), err)
	}
}
