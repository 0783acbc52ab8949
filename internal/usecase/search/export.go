package search

import (
	"archive/zip"
	"context"
	"fmt"
	"io"

	"github.com/goccy/go-json"

	"github.com/kailas-cloud/mddb/internal/domain"
	domdoc "github.com/kailas-cloud/mddb/internal/domain/document"
	"github.com/kailas-cloud/mddb/internal/domain/export"
)

// ExportRecord is one ndjson export line.
type ExportRecord struct {
	ID        string              `json:"id"`
	Key       string              `json:"key"`
	Lang      string              `json:"lang"`
	Meta      map[string][]string `json:"meta"`
	ContentMD string              `json:"content_md"`
	AddedAt   int64               `json:"added_at"`
	UpdatedAt int64               `json:"updated_at"`
}

// Matches returns every document of coll matching filter in id order.
// The caller validates the export format before any output is written.
func (s *Service) Matches(ctx context.Context, coll string, filter domdoc.Meta) ([]domdoc.Document, error) {
	if coll == "" {
		return nil, fmt.Errorf("collection is required: %w", domain.ErrInvalidRequest)
	}
	docs, err := s.repo.FindByMeta(ctx, coll, filter)
	if err != nil {
		return nil, fmt.Errorf("export %s: %w", coll, err)
	}
	return docs, nil
}

// WriteExport encodes docs to w in the given format.
func WriteExport(w io.Writer, format export.Format, docs []domdoc.Document) error {
	switch format {
	case export.FormatNDJSON:
		return writeNDJSON(w, docs)
	case export.FormatZip:
		return writeZip(w, docs)
	default:
		return fmt.Errorf("format %q: %w", format, domain.ErrUnsupportedFormat)
	}
}

func writeNDJSON(w io.Writer, docs []domdoc.Document) error {
	enc := json.NewEncoder(w)
	for i := range docs {
		d := &docs[i]
		meta := d.Meta()
		if meta == nil {
			meta = domdoc.Meta{}
		}
		if err := enc.Encode(ExportRecord{
			ID:        d.ID(),
			Key:       d.Key(),
			Lang:      d.Lang(),
			Meta:      meta,
			ContentMD: d.ContentMD(),
			AddedAt:   d.AddedAt(),
			UpdatedAt: d.UpdatedAt(),
		}); err != nil {
			return fmt.Errorf("encode %s: %w", d.ID(), err)
		}
	}
	return nil
}

func writeZip(w io.Writer, docs []domdoc.Document) error {
	zw := zip.NewWriter(w)
	names := export.NewNamer()
	for i := range docs {
		d := &docs[i]
		f, err := zw.Create(names.Name(d.Key(), d.Lang()))
		if err != nil {
			return fmt.Errorf("zip entry %s: %w", d.ID(), err)
		}
		if _, err := io.WriteString(f, d.ContentMD()); err != nil {
			return fmt.Errorf("zip write %s: %w", d.ID(), err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("zip close: %w", err)
	}
	return nil
}
