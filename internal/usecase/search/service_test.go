package search

import (
	"archive/zip"
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/kailas-cloud/mddb/internal/domain"
	domdoc "github.com/kailas-cloud/mddb/internal/domain/document"
	"github.com/kailas-cloud/mddb/internal/domain/export"
)

// --- Mocks ---

type mockRepo struct {
	docs       []domdoc.Document
	err        error
	lastFilter domdoc.Meta
}

func (m *mockRepo) FindByMeta(_ context.Context, _ string, filter domdoc.Meta) ([]domdoc.Document, error) {
	m.lastFilter = filter
	out := make([]domdoc.Document, len(m.docs))
	copy(out, m.docs)
	return out, m.err
}

func seedDocs() []domdoc.Document {
	return []domdoc.Document{
		domdoc.Reconstruct("c|a|en", "a", "en", domdoc.Meta{"t": {"x"}}, "A", 10, 30),
		domdoc.Reconstruct("c|b|en", "b", "en", nil, "B", 20, 10),
		domdoc.Reconstruct("c|c|en", "c", "en", nil, "C", 30, 20),
	}
}

func keys(docs []domdoc.Document) string {
	parts := make([]string, len(docs))
	for i := range docs {
		parts[i] = docs[i].Key()
	}
	return strings.Join(parts, ",")
}

// --- Search ---

func TestSearch_SortAndPage(t *testing.T) {
	svc := New(&mockRepo{docs: seedDocs()})
	tests := []struct {
		name  string
		q     Query
		want  string
		limit int
	}{
		{"default updatedAt desc", Query{Collection: "c"}, "a,c,b", 50},
		{"addedAt asc", Query{Collection: "c", Sort: "addedAt", Asc: true}, "a,b,c", 50},
		{"key desc with limit", Query{Collection: "c", Sort: "key", Limit: 2}, "c,b", 2},
		{"offset", Query{Collection: "c", Sort: "key", Asc: true, Offset: 1}, "b,c", 50},
		{"offset past end", Query{Collection: "c", Offset: 10}, "", 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := svc.Search(context.Background(), tt.q)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := keys(page.Documents); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
			if page.Total != 3 {
				t.Errorf("expected total 3, got %d", page.Total)
			}
			if page.Limit != tt.limit {
				t.Errorf("expected limit %d, got %d", tt.limit, page.Limit)
			}
		})
	}
}

func TestSearch_LimitCapped(t *testing.T) {
	svc := New(&mockRepo{}).WithLimits(10, 100)
	page, err := svc.Search(context.Background(), Query{Collection: "c", Limit: 5000})
	if err != nil {
		t.Fatal(err)
	}
	if page.Limit != 100 {
		t.Fatalf("expected limit capped to 100, got %d", page.Limit)
	}
	page, _ = svc.Search(context.Background(), Query{Collection: "c"})
	if page.Limit != 10 {
		t.Fatalf("expected configured default 10, got %d", page.Limit)
	}
}

func TestSearch_InvalidRequest(t *testing.T) {
	svc := New(&mockRepo{})
	for _, q := range []Query{
		{},
		{Collection: "c", Sort: "score"},
		{Collection: "c", Offset: -1},
	} {
		if _, err := svc.Search(context.Background(), q); !errors.Is(err, domain.ErrInvalidRequest) {
			t.Errorf("query %+v: expected ErrInvalidRequest, got %v", q, err)
		}
	}
}

func TestSearch_PassesFilter(t *testing.T) {
	repo := &mockRepo{}
	svc := New(repo)
	if _, err := svc.Search(context.Background(), Query{Collection: "c", Filter: domdoc.Meta{"t": {"x", "y"}}}); err != nil {
		t.Fatal(err)
	}
	if len(repo.lastFilter["t"]) != 2 {
		t.Fatalf("filter not forwarded: %v", repo.lastFilter)
	}
}

func TestSearch_RepoError(t *testing.T) {
	svc := New(&mockRepo{err: errors.New("io")})
	if _, err := svc.Search(context.Background(), Query{Collection: "c"}); err == nil {
		t.Fatal("expected error")
	}
}

// --- Export ---

func TestWriteExport_NDJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteExport(&buf, export.FormatNDJSON, seedDocs()); err != nil {
		t.Fatal(err)
	}

	sc := bufio.NewScanner(&buf)
	var lines []ExportRecord
	for sc.Scan() {
		var r ExportRecord
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			t.Fatalf("line %q: %v", sc.Text(), err)
		}
		lines = append(lines, r)
	}
	if len(lines) != 3 || lines[0].Key != "a" || lines[0].Meta["t"][0] != "x" {
		t.Fatalf("unexpected export: %+v", lines)
	}
	if lines[1].Meta == nil {
		t.Error("empty meta must encode as an object")
	}
}

func TestWriteExport_Zip(t *testing.T) {
	docs := []domdoc.Document{domdoc.Reconstruct("c|my page|pt_BR", "my page", "pt_BR", nil, "# Olá", 1, 1)}
	var buf bytes.Buffer
	if err := WriteExport(&buf, export.FormatZip, docs); err != nil {
		t.Fatal(err)
	}

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatal(err)
	}
	if len(zr.File) != 1 || zr.File[0].Name != "my-page.pt_BR.md" {
		t.Fatalf("unexpected entries: %v", zr.File)
	}
	rc, err := zr.File[0].Open()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = rc.Close() }()
	body, _ := io.ReadAll(rc)
	if string(body) != "# Olá" {
		t.Fatalf("unexpected body: %q", body)
	}
}

func TestWriteExport_ZipCollidingNames(t *testing.T) {
	docs := []domdoc.Document{
		domdoc.Reconstruct("c|a-b|en", "a-b", "en", nil, "dash", 1, 1),
		domdoc.Reconstruct("c|a.b|en", "a.b", "en", nil, "dot", 1, 1),
		domdoc.Reconstruct("c|a/b|en", "a/b", "en", nil, "slash", 1, 1),
	}
	var buf bytes.Buffer
	if err := WriteExport(&buf, export.FormatZip, docs); err != nil {
		t.Fatal(err)
	}

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]string{"a-b.en.md": "dash", "a-b-2.en.md": "dot", "a-b-3.en.md": "slash"}
	if len(zr.File) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(zr.File))
	}
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		body, _ := io.ReadAll(rc)
		_ = rc.Close()
		if want[f.Name] != string(body) {
			t.Errorf("entry %s = %q, want %q", f.Name, body, want[f.Name])
		}
	}
}

func TestWriteExport_UnsupportedFormat(t *testing.T) {
	err := WriteExport(io.Discard, export.Format("tar"), nil)
	if !errors.Is(err, domain.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestMatches_RequiresCollection(t *testing.T) {
	svc := New(&mockRepo{})
	if _, err := svc.Matches(context.Background(), "", nil); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}
