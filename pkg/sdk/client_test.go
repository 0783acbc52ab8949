package mddb

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)

	opts = append([]Option{WithEndpoint(ts.URL), WithReadinessTimeout(0)}, opts...)
	c, err := New(context.Background(), opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func writeBody(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func TestNew_EmptyEndpoint(t *testing.T) {
	if _, err := New(context.Background(), WithEndpoint(""), WithReadinessTimeout(0)); err == nil {
		t.Fatal("expected error for empty endpoint")
	}
}

func TestNew_WaitsForReady(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		// первые два раза сервер ещё не поднялся
		if calls.Add(1) < 3 {
			writeBody(w, http.StatusBadGateway, "starting")
			return
		}
		writeBody(w, http.StatusOK, `{"status":"ok","mode":"wr","checks":{"database":"ok"}}`)
	}))
	defer ts.Close()

	c, err := New(context.Background(), WithEndpoint(ts.URL+"/"), WithReadinessTimeout(5*time.Second))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	if got := calls.Load(); got < 3 {
		t.Errorf("health calls: got %d, want >= 3", got)
	}
	if c.Endpoint() != ts.URL {
		t.Errorf("endpoint: got %q, want trailing slash trimmed", c.Endpoint())
	}
}

func TestNew_ReadinessTimeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeBody(w, http.StatusBadGateway, "down")
	}))
	defer ts.Close()

	_, err := New(context.Background(), WithEndpoint(ts.URL), WithReadinessTimeout(250*time.Millisecond))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestClient_SendsHeaders(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("authorization: got %q", got)
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Error("missing X-Request-ID")
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("content type: got %q", got)
		}
		var body addRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body.Collection != "blog" || body.Key != "hello" || body.Meta["tag"][1] != "b" {
			t.Errorf("unexpected body: %+v", body)
		}
		writeBody(w, http.StatusCreated,
			`{"id":"blog|hello|en","key":"hello","lang":"en","meta":{"tag":["a","b"]},"content_md":"# hi","added_at":10,"updated_at":10}`)
	}, WithAPIKey("secret"))

	doc, err := c.Add(context.Background(), "blog", "hello", "en", map[string][]string{"tag": {"a", "b"}}, "# hi")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if doc.ID != "blog|hello|en" || doc.AddedAt != 10 {
		t.Errorf("unexpected document: %+v", doc)
	}
	if !doc.Added().Equal(time.Unix(10, 0)) {
		t.Errorf("Added: got %v", doc.Added())
	}
}

func TestClient_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
		code   string
	}{
		{"document not found", 404, `{"code":"document_not_found","message":"document not found"}`, ErrDocumentNotFound, "document_not_found"},
		{"not found", 404, `{"code":"not_found","message":"not found"}`, ErrNotFound, "not_found"},
		{"validation", 400, `{"code":"validation_failed","message":"key is required"}`, ErrInvalidRequest, "validation_failed"},
		{"bad json", 400, `{"code":"bad_request","message":"invalid JSON"}`, ErrInvalidRequest, "bad_request"},
		{"read only", 403, `{"code":"read_only","message":"read only"}`, ErrReadOnly, "read_only"},
		{"too large", 413, `{"code":"batch_too_large","message":"too many"}`, ErrBatchTooLarge, "batch_too_large"},
		{"format", 400, `{"code":"unsupported_format","message":"csv"}`, ErrUnsupportedFormat, "unsupported_format"},
		{"unauthorized", 401, `{"code":"unauthorized","message":"invalid API key"}`, ErrUnauthorized, "unauthorized"},
		{"internal", 500, `{"code":"internal_error","message":"internal server error"}`, ErrServerError, "internal_error"},
		{"proxy html", 502, `<html>bad gateway</html>`, ErrServerError, "internal_error"},
		{"proxy 404", 404, ``, ErrNotFound, "not_found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				writeBody(w, tt.status, tt.body)
			})

			_, err := c.Get(context.Background(), "blog", "hello", "en", nil)
			if !errors.Is(err, tt.want) {
				t.Fatalf("errors.Is(%v, %v) = false", err, tt.want)
			}
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *APIError, got %T", err)
			}
			if apiErr.StatusCode != tt.status || apiErr.Code != tt.code {
				t.Errorf("got %d/%s, want %d/%s", apiErr.StatusCode, apiErr.Code, tt.status, tt.code)
			}
			if apiErr.Message == "" {
				t.Error("empty message")
			}
		})
	}
}

func TestClient_Routes(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		body   string
		call   func(*Client) error
	}{
		{"delete", http.MethodPost, "/v1/delete", `{"status":"deleted"}`, func(c *Client) error {
			return c.Delete(context.Background(), "blog", "k", "en")
		}},
		{"delete collection", http.MethodPost, "/v1/delete-collection", `{"deleted_count":3}`, func(c *Client) error {
			n, err := c.DeleteCollection(context.Background(), "blog")
			if err == nil && n != 3 {
				t.Errorf("deleted: got %d", n)
			}
			return err
		}},
		{"revisions", http.MethodPost, "/v1/revisions", `{"revisions":[{"key":"k"},{"key":"k"}]}`, func(c *Client) error {
			revs, err := c.Revisions(context.Background(), "blog", "k", "en")
			if err == nil && len(revs) != 2 {
				t.Errorf("revisions: got %d", len(revs))
			}
			return err
		}},
		{"search", http.MethodPost, "/v1/search", `{"documents":[{"key":"a"}],"total":7,"limit":1,"offset":2}`, func(c *Client) error {
			res, err := c.Search(context.Background(), SearchRequest{Collection: "blog", Limit: 1, Offset: 2})
			if err == nil && (res.Total != 7 || len(res.Documents) != 1 || res.Offset != 2) {
				t.Errorf("search: got %+v", res)
			}
			return err
		}},
		{"update batch", http.MethodPost, "/v1/update-batch", `{"updated":1,"not_found":1}`, func(c *Client) error {
			res, err := c.UpdateBatch(context.Background(), "blog", []BatchDocument{{Key: "a"}, {Key: "b"}})
			if err == nil && (res.Updated != 1 || res.NotFound != 1) {
				t.Errorf("batch: got %+v", res)
			}
			return err
		}},
		{"delete batch", http.MethodPost, "/v1/delete-batch", `{"deleted":2}`, func(c *Client) error {
			res, err := c.DeleteBatch(context.Background(), "blog", []BatchKey{{Key: "a"}, {Key: "b"}})
			if err == nil && res.Deleted != 2 {
				t.Errorf("batch: got %+v", res)
			}
			return err
		}},
		{"stats", http.MethodGet, "/v1/stats", `{"total_documents":4,"mode":"wr"}`, func(c *Client) error {
			st, err := c.Stats(context.Background())
			if err == nil && st.TotalDocuments != 4 {
				t.Errorf("stats: got %+v", st)
			}
			return err
		}},
		{"restore", http.MethodPost, "/v1/restore", `{"restored":"snap.db"}`, func(c *Client) error {
			p, err := c.Restore(context.Background(), "snap.db")
			if err == nil && p != "snap.db" {
				t.Errorf("restore: got %q", p)
			}
			return err
		}},
		{"truncate", http.MethodPost, "/v1/truncate", `{"status":"truncated","removed":5}`, func(c *Client) error {
			n, err := c.Truncate(context.Background(), "blog", 0, true)
			if err == nil && n != 5 {
				t.Errorf("removed: got %d", n)
			}
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.Method != tt.method || r.URL.Path != tt.path {
					t.Errorf("got %s %s, want %s %s", r.Method, r.URL.Path, tt.method, tt.path)
				}
				writeBody(w, http.StatusOK, tt.body)
			})
			if err := tt.call(c); err != nil {
				t.Fatalf("call: %v", err)
			}
		})
	}
}

func TestClient_TruncateSendsZeroKeep(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(raw), `"keep_revs":0`) {
			t.Errorf("keep_revs must be sent explicitly: %s", raw)
		}
		writeBody(w, http.StatusOK, `{"removed":0}`)
	})
	if _, err := c.Truncate(context.Background(), "blog", 0, false); err != nil {
		t.Fatal(err)
	}
}

func TestClient_Backup(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("to"); got != "nightly 1.db" {
			t.Errorf("to: got %q", got)
		}
		writeBody(w, http.StatusOK, `{"backup":"nightly 1.db"}`)
	})
	res, err := c.Backup(context.Background(), "nightly 1.db")
	if err != nil {
		t.Fatal(err)
	}
	if res.Backup != "nightly 1.db" {
		t.Errorf("backup: got %q", res.Backup)
	}
}

func TestClient_Export(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("format"); got != FormatNDJSON {
			t.Errorf("format: got %q", got)
		}
		w.Header().Set("Content-Type", "application/x-ndjson")
		_, _ = io.WriteString(w, "{\"key\":\"a\"}\n{\"key\":\"b\"}\n")
	})

	rc, err := c.Export(context.Background(), ExportRequest{Collection: "blog", Format: FormatNDJSON})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	defer func() { _ = rc.Close() }()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Count(string(data), "\n"); got != 2 {
		t.Errorf("lines: got %d", got)
	}
}

func TestClient_ExportOutlivesTimeout(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		_, _ = io.WriteString(w, "{\"key\":\"a\"}\n")
		w.(http.Flusher).Flush()
		// тело идет дольше таймаута клиента
		time.Sleep(300 * time.Millisecond)
		_, _ = io.WriteString(w, "{\"key\":\"b\"}\n")
	}, WithTimeout(100*time.Millisecond))

	rc, err := c.Export(context.Background(), ExportRequest{Collection: "blog"})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	defer func() { _ = rc.Close() }()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read stream: %v", err)
	}
	if got := strings.Count(string(data), "\n"); got != 2 {
		t.Errorf("lines: got %d", got)
	}
}

func TestClient_TimeoutBoundsCalls(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
		writeBody(w, http.StatusOK, `{}`)
	}, WithTimeout(100*time.Millisecond))

	if _, err := c.Stats(context.Background()); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}
	if _, err := c.Export(context.Background(), ExportRequest{Collection: "blog"}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("export headers must respect the timeout, got %v", err)
	}
}

func TestClient_ExportError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeBody(w, http.StatusBadRequest, `{"code":"unsupported_format","message":"unsupported format: csv"}`)
	})
	_, err := c.Export(context.Background(), ExportRequest{Collection: "blog", Format: "csv"})
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestClient_HealthUnhealthyIsNotError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeBody(w, http.StatusServiceUnavailable, `{"status":"error","mode":"wr","checks":{"database":"error"}}`)
	})
	hs, err := c.Health(context.Background())
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if hs.Status != "error" || hs.Checks["database"] != "error" {
		t.Errorf("unexpected health: %+v", hs)
	}
}

func TestClient_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/get" {
			writeBody(w, http.StatusNotFound, `{"code":"document_not_found","message":"document not found"}`)
			return
		}
		writeBody(w, http.StatusOK, `{"total_documents":1}`)
	}, WithPrometheus(reg))

	_, _ = c.Stats(context.Background())
	_, _ = c.Get(context.Background(), "blog", "missing", "en", nil)

	m, err := newSDKMetrics(reg)
	if err != nil {
		t.Fatalf("reuse metrics: %v", err)
	}
	if got := testutil.ToFloat64(m.operations.WithLabelValues("stats", "ok")); got != 1 {
		t.Errorf("stats ok: got %v", got)
	}
	if got := testutil.ToFloat64(m.operations.WithLabelValues("get", "document_not_found")); got != 1 {
		t.Errorf("get not found: got %v", got)
	}
}

func TestOutcome(t *testing.T) {
	if got := outcome(nil); got != "ok" {
		t.Errorf("nil: got %q", got)
	}
	if got := outcome(errors.New("dial tcp: refused")); got != "transport" {
		t.Errorf("transport: got %q", got)
	}
	if got := outcome(&APIError{StatusCode: 403, Code: "read_only"}); got != "read_only" {
		t.Errorf("api: got %q", got)
	}
}
