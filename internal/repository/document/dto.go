package document

import (
	"fmt"

	"github.com/goccy/go-json"

	domdoc "github.com/kailas-cloud/mddb/internal/domain/document"
)

// record is the stored JSON shape of a document and its revisions.
type record struct {
	ID        string              `json:"id"`
	Key       string              `json:"key"`
	Lang      string              `json:"lang"`
	Meta      map[string][]string `json:"meta"`
	ContentMD string              `json:"contentMd"`
	AddedAt   int64               `json:"addedAt"`
	UpdatedAt int64               `json:"updatedAt"`
}

func encode(doc *domdoc.Document) ([]byte, error) {
	meta := doc.Meta()
	if meta == nil {
		meta = domdoc.Meta{}
	}
	data, err := json.Marshal(record{
		ID:        doc.ID(),
		Key:       doc.Key(),
		Lang:      doc.Lang(),
		Meta:      meta,
		ContentMD: doc.ContentMD(),
		AddedAt:   doc.AddedAt(),
		UpdatedAt: doc.UpdatedAt(),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal document %s: %w", doc.ID(), err)
	}
	return data, nil
}

func decode(data []byte) (domdoc.Document, error) {
	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return domdoc.Document{}, fmt.Errorf("unmarshal document: %w", err)
	}
	var meta domdoc.Meta
	if len(r.Meta) > 0 {
		meta = r.Meta
	}
	return domdoc.Reconstruct(r.ID, r.Key, r.Lang, meta, r.ContentMD, r.AddedAt, r.UpdatedAt), nil
}
