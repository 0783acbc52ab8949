package chi

import (
	"archive/zip"
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kailas-cloud/mddb/internal/db/bolt"
	"github.com/kailas-cloud/mddb/internal/domain"
	"github.com/kailas-cloud/mddb/internal/logger"
	docrepo "github.com/kailas-cloud/mddb/internal/repository/document"
	statsrepo "github.com/kailas-cloud/mddb/internal/repository/stats"
	adminuc "github.com/kailas-cloud/mddb/internal/usecase/admin"
	batchuc "github.com/kailas-cloud/mddb/internal/usecase/batch"
	documentuc "github.com/kailas-cloud/mddb/internal/usecase/document"
	healthuc "github.com/kailas-cloud/mddb/internal/usecase/health"
	searchuc "github.com/kailas-cloud/mddb/internal/usecase/search"
	statsuc "github.com/kailas-cloud/mddb/internal/usecase/stats"
)

type testEnv struct {
	handler   http.Handler
	backupDir string
}

func newTestServer(t *testing.T, mode domain.AccessMode) *testEnv {
	return newTestServerIn(t, mode, "backups")
}

// newTestServerIn keeps backups in the given subdirectory of the data dir, or next to mddb.db when sub is empty.
func newTestServerIn(t *testing.T, mode domain.AccessMode, sub string) *testEnv {
	t.Helper()
	dir := t.TempDir()
	store, err := bolt.NewStore(bolt.Config{Path: filepath.Join(dir, "mddb.db")})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	backupDir := filepath.Join(dir, sub)
	if err := os.MkdirAll(backupDir, 0o755); err != nil {
		t.Fatal(err)
	}

	repo := docrepo.New(store)
	srv := NewServer(
		documentuc.New(repo).WithMode(mode),
		searchuc.New(repo),
		batchuc.New(repo).WithMode(mode).WithMaxBatchSize(3),
		adminuc.New(store, repo).WithMode(mode).WithBackupDir(backupDir),
		statsuc.New(statsrepo.New(store), mode),
		healthuc.New(store, nil, mode),
		nil,
	)
	r := chi.NewRouter()
	srv.Routes(r)
	return &testEnv{handler: r, backupDir: backupDir}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, httptest.NewRequest(method, path, &buf))
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rr.Body.String())
	}
	return v
}

func expectError(t *testing.T, rr *httptest.ResponseRecorder, status int, code ErrorCode) {
	t.Helper()
	if rr.Code != status {
		t.Fatalf("expected status %d, got %d: %s", status, rr.Code, rr.Body.String())
	}
	if got := decodeBody[ErrorResponse](t, rr); got.Code != code {
		t.Fatalf("expected code %s, got %s (%s)", code, got.Code, got.Message)
	}
}

func seed(t *testing.T, e *testEnv, key string, meta map[string][]string, content string) {
	t.Helper()
	rr := e.do(t, http.MethodPost, "/v1/add", AddRequest{
		Collection: "notes", Key: key, Lang: "en", Meta: meta, ContentMD: content,
	})
	if rr.Code != http.StatusCreated && rr.Code != http.StatusOK {
		t.Fatalf("seed %s: %d %s", key, rr.Code, rr.Body.String())
	}
}

// --- Documents ---

func TestAddAndGet(t *testing.T) {
	e := newTestServer(t, domain.ModeReadWrite)

	rr := e.do(t, http.MethodPost, "/v1/add", AddRequest{
		Collection: "notes", Key: "home", Lang: "en",
		Meta: map[string][]string{"tag": {"a"}}, ContentMD: "Hello %%name%%",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	added := decodeBody[Document](t, rr)
	if added.ID != "notes|home|en" || added.AddedAt == 0 {
		t.Fatalf("unexpected document: %+v", added)
	}

	rr = e.do(t, http.MethodPost, "/v1/add", AddRequest{Collection: "notes", Key: "home", Lang: "en", ContentMD: "x"})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 on update, got %d", rr.Code)
	}

	seed(t, e, "tpl", nil, "Hello %%name%%, %%missing%%")
	rr = e.do(t, http.MethodPost, "/v1/get", GetRequest{
		Collection: "notes", Key: "tpl", Lang: "en", Env: map[string]string{"name": "Ann"},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if got := decodeBody[Document](t, rr); got.ContentMD != "Hello Ann, %%missing%%" {
		t.Fatalf("unexpected content: %q", got.ContentMD)
	}
}

func TestAdd_Errors(t *testing.T) {
	e := newTestServer(t, domain.ModeReadWrite)

	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/add", strings.NewReader("{broken")))
	expectError(t, rr, http.StatusBadRequest, CodeBadRequest)

	rr = e.do(t, http.MethodPost, "/v1/add", AddRequest{Collection: "notes", Lang: "en"})
	expectError(t, rr, http.StatusBadRequest, CodeValidationFailed)
}

func TestGet_NotFound(t *testing.T) {
	e := newTestServer(t, domain.ModeReadWrite)
	rr := e.do(t, http.MethodPost, "/v1/get", GetRequest{Collection: "notes", Key: "nope", Lang: "en"})
	expectError(t, rr, http.StatusNotFound, CodeDocumentNotFound)
}

func TestReadMode_RejectsWrites(t *testing.T) {
	e := newTestServer(t, domain.ModeRead)

	tests := []struct {
		path string
		body any
	}{
		{"/v1/add", AddRequest{Collection: "notes", Key: "a", Lang: "en"}},
		{"/v1/delete", DocumentRef{Collection: "notes", Key: "a", Lang: "en"}},
		{"/v1/delete-collection", CollectionRequest{Collection: "notes"}},
		{"/v1/add-batch", BatchRequest{Collection: "notes", Documents: []BatchDocument{{Key: "a", Lang: "en"}}}},
		{"/v1/restore", RestoreRequest{From: "x.db"}},
		{"/v1/truncate", map[string]any{"collection": "notes", "keep_revs": 1}},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			expectError(t, e.do(t, http.MethodPost, tt.path, tt.body), http.StatusForbidden, CodeReadOnly)
		})
	}

	// backup does not modify the database
	if rr := e.do(t, http.MethodGet, "/v1/backup?to=ro.db", nil); rr.Code != http.StatusOK {
		t.Fatalf("expected backup in read mode, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestDeleteAndRevisions(t *testing.T) {
	e := newTestServer(t, domain.ModeReadWrite)
	seed(t, e, "a", nil, "v1")
	seed(t, e, "b", nil, "v1")

	rr := e.do(t, http.MethodPost, "/v1/revisions", DocumentRef{Collection: "notes", Key: "a", Lang: "en"})
	if got := decodeBody[RevisionsResponse](t, rr); len(got.Revisions) != 1 {
		t.Fatalf("expected 1 revision, got %d", len(got.Revisions))
	}

	rr = e.do(t, http.MethodPost, "/v1/delete", DocumentRef{Collection: "notes", Key: "a", Lang: "en"})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	rr = e.do(t, http.MethodPost, "/v1/delete", DocumentRef{Collection: "notes", Key: "a", Lang: "en"})
	expectError(t, rr, http.StatusNotFound, CodeDocumentNotFound)

	rr = e.do(t, http.MethodPost, "/v1/delete-collection", CollectionRequest{Collection: "notes"})
	if got := decodeBody[map[string]any](t, rr); got["deleted_count"] != float64(1) {
		t.Fatalf("unexpected response: %v", got)
	}
}

// --- Search ---

func TestSearch(t *testing.T) {
	e := newTestServer(t, domain.ModeReadWrite)
	seed(t, e, "a", map[string][]string{"tag": {"go"}}, "a")
	seed(t, e, "b", map[string][]string{"tag": {"rust"}}, "b")
	seed(t, e, "c", map[string][]string{"tag": {"go"}}, "c")

	rr := e.do(t, http.MethodPost, "/v1/search", SearchRequest{
		Collection: "notes", FilterMeta: map[string][]string{"tag": {"go"}}, Sort: "key", Asc: true, Limit: 1,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	page := decodeBody[SearchResponse](t, rr)
	if page.Total != 2 || len(page.Documents) != 1 || page.Documents[0].Key != "a" {
		t.Fatalf("unexpected page: %+v", page)
	}

	rr = e.do(t, http.MethodPost, "/v1/search", SearchRequest{Collection: "notes", Sort: "size"})
	expectError(t, rr, http.StatusBadRequest, CodeValidationFailed)
}

func TestExport_NDJSON(t *testing.T) {
	e := newTestServer(t, domain.ModeReadWrite)
	seed(t, e, "a", nil, "# a")
	seed(t, e, "b", nil, "# b")

	rr := e.do(t, http.MethodPost, "/v1/export", ExportRequest{Collection: "notes"})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/x-ndjson" {
		t.Fatalf("unexpected content type %q", ct)
	}
	lines := 0
	sc := bufio.NewScanner(rr.Body)
	for sc.Scan() {
		lines++
	}
	if lines != 2 {
		t.Fatalf("expected 2 lines, got %d", lines)
	}
}

func TestExport_ZipViaQuery(t *testing.T) {
	e := newTestServer(t, domain.ModeReadWrite)
	rr := e.do(t, http.MethodPost, "/v1/add", AddRequest{Collection: "notes", Key: "a/b", Lang: "en", ContentMD: "# ab"})
	if rr.Code != http.StatusCreated {
		t.Fatal(rr.Body.String())
	}

	rr = e.do(t, http.MethodPost, "/v1/export?format=zip", ExportRequest{Collection: "notes", Format: "ndjson"})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	zr, err := zip.NewReader(bytes.NewReader(rr.Body.Bytes()), int64(rr.Body.Len()))
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	if len(zr.File) != 1 || zr.File[0].Name != "a-b.en.md" {
		t.Fatalf("unexpected archive entries: %v", zr.File)
	}
}

func TestExport_UnsupportedFormat(t *testing.T) {
	e := newTestServer(t, domain.ModeReadWrite)
	rr := e.do(t, http.MethodPost, "/v1/export?format=tar", ExportRequest{Collection: "notes"})
	expectError(t, rr, http.StatusBadRequest, CodeUnsupportedFormat)
}

// --- Batch ---

func TestBatch(t *testing.T) {
	e := newTestServer(t, domain.ModeReadWrite)
	seed(t, e, "a", nil, "a")

	rr := e.do(t, http.MethodPost, "/v1/add-batch", BatchRequest{Collection: "notes", Documents: []BatchDocument{
		{Key: "a", Lang: "en", ContentMD: "a2"},
		{Key: "b", Lang: "en", ContentMD: "b"},
		{Key: "", Lang: "en"},
	}})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	got := decodeBody[BatchResponse](t, rr)
	if got.Added != 1 || got.Updated != 1 || got.Failed != 1 || len(got.Errors) != 1 {
		t.Fatalf("unexpected add summary: %+v", got)
	}

	rr = e.do(t, http.MethodPost, "/v1/update-batch", BatchRequest{Collection: "notes", Documents: []BatchDocument{
		{Key: "zz", Lang: "en"},
	}})
	if got := decodeBody[BatchResponse](t, rr); got.NotFound != 1 {
		t.Fatalf("unexpected update summary: %+v", got)
	}

	rr = e.do(t, http.MethodPost, "/v1/delete-batch", BatchDeleteRequest{Collection: "notes", Keys: []BatchKey{
		{Key: "a", Lang: "en"}, {Key: "zz", Lang: "en"},
	}})
	if got := decodeBody[BatchResponse](t, rr); got.Deleted != 1 || got.NotFound != 1 {
		t.Fatalf("unexpected delete summary: %+v", got)
	}

	rr = e.do(t, http.MethodPost, "/v1/add-batch", BatchRequest{Collection: "notes", Documents: make([]BatchDocument, 4)})
	expectError(t, rr, http.StatusRequestEntityTooLarge, CodeBatchTooLarge)
}

// --- Admin ---

func TestBackupRestoreStats(t *testing.T) {
	e := newTestServer(t, domain.ModeReadWrite)
	seed(t, e, "a", map[string][]string{"k": {"v"}}, "a")

	rr := e.do(t, http.MethodPost, "/v1/backup?to=snap.db", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("backup: %d %s", rr.Code, rr.Body.String())
	}
	if got := decodeBody[map[string]string](t, rr); got["backup"] != filepath.Join(e.backupDir, "snap.db") {
		t.Fatalf("unexpected backup path: %v", got)
	}

	seed(t, e, "b", nil, "b")
	rr = e.do(t, http.MethodPost, "/v1/restore", RestoreRequest{From: "snap.db"})
	if rr.Code != http.StatusOK {
		t.Fatalf("restore: %d %s", rr.Code, rr.Body.String())
	}

	rr = e.do(t, http.MethodGet, "/v1/stats", nil)
	st := decodeBody[StatsResponse](t, rr)
	if st.TotalDocuments != 1 || len(st.Collections) != 1 || st.Collections[0].Name != "notes" {
		t.Fatalf("expected restored snapshot with one document, got %+v", st)
	}
	if st.Mode != "wr" || st.DatabaseSize == 0 {
		t.Fatalf("unexpected stats: %+v", st)
	}

	rr = e.do(t, http.MethodPost, "/v1/restore", RestoreRequest{From: "missing.db"})
	expectError(t, rr, http.StatusNotFound, CodeNotFound)

	rr = e.do(t, http.MethodPost, "/v1/backup?to=../escape.db", nil)
	expectError(t, rr, http.StatusBadRequest, CodeValidationFailed)
}

func TestBackup_LiveDatabaseRejected(t *testing.T) {
	e := newTestServerIn(t, domain.ModeReadWrite, "")
	seed(t, e, "a", nil, "a")

	rr := e.do(t, http.MethodGet, "/v1/backup?to=mddb.db", nil)
	expectError(t, rr, http.StatusBadRequest, CodeValidationFailed)

	rr = e.do(t, http.MethodPost, "/v1/get", GetRequest{Collection: "notes", Key: "a", Lang: "en"})
	if rr.Code != http.StatusOK {
		t.Fatalf("store must stay readable, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestTruncate(t *testing.T) {
	e := newTestServer(t, domain.ModeReadWrite)
	seed(t, e, "a", nil, "a")

	rr := e.do(t, http.MethodPost, "/v1/truncate", map[string]any{"collection": "notes"})
	expectError(t, rr, http.StatusBadRequest, CodeValidationFailed)

	rr = e.do(t, http.MethodPost, "/v1/truncate", map[string]any{"collection": "notes", "keep_revs": 0})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if got := decodeBody[map[string]any](t, rr); got["removed"] != float64(1) {
		t.Fatalf("unexpected response: %v", got)
	}
}

func TestHealth(t *testing.T) {
	e := newTestServer(t, domain.ModeRead)
	rr := e.do(t, http.MethodGet, "/health", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	got := decodeBody[HealthResponse](t, rr)
	if got.Status != "ok" || got.Mode != "read" || got.Checks["database"] != "ok" {
		t.Fatalf("unexpected health: %+v", got)
	}
}

func TestSafeDomainMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{domain.ErrReadOnly, "read-only mode"},
		{os.ErrPermission, "internal error"},
	}
	for _, tt := range tests {
		if got := safeDomainMessage(tt.err); got != tt.want {
			t.Errorf("safeDomainMessage(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestHandleDomainError_UsesRequestLogger(t *testing.T) {
	fallback, fallbackLogs := observer.New(zapcore.DebugLevel)
	core, logs := observer.New(zapcore.DebugLevel)
	srv := NewServer(nil, nil, nil, nil, nil, nil, zap.New(fallback))

	req := httptest.NewRequest(http.MethodPost, "/v1/add", http.NoBody)
	req = req.WithContext(logger.ContextWithLogger(req.Context(), zap.New(core).With(zap.String("request_id", "r-9"))))
	rr := httptest.NewRecorder()
	srv.handleDomainError(rr, req, errors.New("disk on fire"))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	entries := logs.FilterMessage("Internal error").All()
	if len(entries) != 1 || entries[0].ContextMap()["request_id"] != "r-9" {
		t.Fatalf("expected internal error on request logger, got %v", logs.All())
	}
	if fallbackLogs.Len() != 0 {
		t.Fatal("server logger must not be used when the request carries one")
	}

	// без логгера в контексте остается серверный
	srv.handleDomainError(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", http.NoBody), domain.ErrNotFound)
	if fallbackLogs.FilterMessage("Request rejected").Len() != 1 {
		t.Fatal("expected fallback logger for requests without one")
	}
}
