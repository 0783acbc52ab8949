package chi

import (
	dombatch "github.com/kailas-cloud/mddb/internal/domain/batch"
	domdoc "github.com/kailas-cloud/mddb/internal/domain/document"
	domstats "github.com/kailas-cloud/mddb/internal/domain/stats"
	batchuc "github.com/kailas-cloud/mddb/internal/usecase/batch"
	healthuc "github.com/kailas-cloud/mddb/internal/usecase/health"
)

// AddRequest is the body of POST /v1/add.
type AddRequest struct {
	Collection string              `json:"collection"`
	Key        string              `json:"key"`
	Lang       string              `json:"lang"`
	Meta       map[string][]string `json:"meta,omitempty"`
	ContentMD  string              `json:"content_md"`
}

// GetRequest is the body of POST /v1/get.
type GetRequest struct {
	Collection string            `json:"collection"`
	Key        string            `json:"key"`
	Lang       string            `json:"lang"`
	Env        map[string]string `json:"env,omitempty"`
}

// DocumentRef addresses one document.
type DocumentRef struct {
	Collection string `json:"collection"`
	Key        string `json:"key"`
	Lang       string `json:"lang"`
}

// SearchRequest is the body of POST /v1/search.
type SearchRequest struct {
	Collection string              `json:"collection"`
	FilterMeta map[string][]string `json:"filter_meta,omitempty"`
	Sort       string              `json:"sort,omitempty"`
	Asc        bool                `json:"asc,omitempty"`
	Limit      int                 `json:"limit,omitempty"`
	Offset     int                 `json:"offset,omitempty"`
}

// ExportRequest is the body of POST /v1/export.
type ExportRequest struct {
	Collection string              `json:"collection"`
	FilterMeta map[string][]string `json:"filter_meta,omitempty"`
	Format     string              `json:"format,omitempty"`
}

// RestoreRequest is the body of POST /v1/restore.
type RestoreRequest struct {
	From string `json:"from"`
}

// TruncateRequest is the body of POST /v1/truncate.
type TruncateRequest struct {
	Collection string `json:"collection"`
	KeepRevs   *int   `json:"keep_revs"`
	DropCache  bool   `json:"drop_cache,omitempty"`
}

// CollectionRequest is the body of POST /v1/delete-collection.
type CollectionRequest struct {
	Collection string `json:"collection"`
}

// BatchDocument is one item of an add or update batch.
type BatchDocument struct {
	Key          string              `json:"key"`
	Lang         string              `json:"lang"`
	Meta         map[string][]string `json:"meta,omitempty"`
	ContentMD    string              `json:"content_md"`
	SaveRevision bool                `json:"save_revision,omitempty"`
}

// BatchRequest is the body of POST /v1/add-batch and /v1/update-batch.
type BatchRequest struct {
	Collection string          `json:"collection"`
	Documents  []BatchDocument `json:"documents"`
}

// BatchKey is one item of a delete batch.
type BatchKey struct {
	Key  string `json:"key"`
	Lang string `json:"lang"`
}

// BatchDeleteRequest is the body of POST /v1/delete-batch.
type BatchDeleteRequest struct {
	Collection string     `json:"collection"`
	Keys       []BatchKey `json:"keys"`
}

// Document is the wire form of a stored document.
type Document struct {
	ID        string              `json:"id"`
	Key       string              `json:"key"`
	Lang      string              `json:"lang"`
	Meta      map[string][]string `json:"meta"`
	ContentMD string              `json:"content_md"`
	AddedAt   int64               `json:"added_at"`
	UpdatedAt int64               `json:"updated_at"`
}

// SearchResponse is a page of search results.
type SearchResponse struct {
	Documents []Document `json:"documents"`
	Total     int        `json:"total"`
	Limit     int        `json:"limit"`
	Offset    int        `json:"offset"`
}

// RevisionsResponse lists the stored revisions of one document, oldest first.
type RevisionsResponse struct {
	Revisions []Document `json:"revisions"`
}

// BatchItemResult is the outcome of one batch item.
type BatchItemResult struct {
	Key    string `json:"key"`
	Lang   string `json:"lang"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// BatchResponse summarizes a batch.
type BatchResponse struct {
	Added    int               `json:"added"`
	Updated  int               `json:"updated"`
	Deleted  int               `json:"deleted"`
	NotFound int               `json:"not_found"`
	Failed   int               `json:"failed"`
	Errors   []string          `json:"errors"`
	Results  []BatchItemResult `json:"results"`
}

// CollectionStats holds per-collection counters.
type CollectionStats struct {
	Name           string `json:"name"`
	DocumentCount  int    `json:"document_count"`
	RevisionCount  int    `json:"revision_count"`
	MetaIndexCount int    `json:"meta_index_count"`
}

// StatsResponse is the body of GET /v1/stats.
type StatsResponse struct {
	DatabasePath     string            `json:"database_path"`
	DatabaseSize     int64             `json:"database_size"`
	Mode             string            `json:"mode"`
	TotalDocuments   int               `json:"total_documents"`
	TotalRevisions   int               `json:"total_revisions"`
	TotalMetaIndices int               `json:"total_meta_indices"`
	Uptime           string            `json:"uptime"`
	UptimeSeconds    int64             `json:"uptime_seconds"`
	Collections      []CollectionStats `json:"collections"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Mode   string            `json:"mode"`
	Checks map[string]string `json:"checks"`
}

func documentToDTO(d *domdoc.Document) Document {
	meta := map[string][]string(d.Meta())
	if meta == nil {
		meta = map[string][]string{}
	}
	return Document{
		ID:        d.ID(),
		Key:       d.Key(),
		Lang:      d.Lang(),
		Meta:      meta,
		ContentMD: d.ContentMD(),
		AddedAt:   d.AddedAt(),
		UpdatedAt: d.UpdatedAt(),
	}
}

func documentsToDTO(docs []domdoc.Document) []Document {
	out := make([]Document, len(docs))
	for i := range docs {
		out[i] = documentToDTO(&docs[i])
	}
	return out
}

func batchInputs(docs []BatchDocument) []batchuc.Input {
	out := make([]batchuc.Input, len(docs))
	for i, d := range docs {
		out[i] = batchuc.Input{
			Key:          d.Key,
			Lang:         d.Lang,
			Meta:         domdoc.Meta(d.Meta),
			ContentMD:    d.ContentMD,
			SaveRevision: d.SaveRevision,
		}
	}
	return out
}

func batchRefs(keys []BatchKey) []dombatch.Ref {
	out := make([]dombatch.Ref, len(keys))
	for i, k := range keys {
		out[i] = dombatch.Ref{Key: k.Key, Lang: k.Lang}
	}
	return out
}

func batchToDTO(s dombatch.Summary) BatchResponse {
	resp := BatchResponse{
		Added:    s.Added,
		Updated:  s.Updated,
		Deleted:  s.Deleted,
		NotFound: s.NotFound,
		Failed:   s.Failed,
		Errors:   s.Errors,
		Results:  make([]BatchItemResult, len(s.Results)),
	}
	if resp.Errors == nil {
		resp.Errors = []string{}
	}
	for i, r := range s.Results {
		item := BatchItemResult{Key: r.Key(), Lang: r.Lang(), Status: string(r.Status())}
		if r.Err() != nil {
			item.Error = safeDomainMessage(r.Err())
		}
		resp.Results[i] = item
	}
	return resp
}

func statsToDTO(s domstats.Stats) StatsResponse {
	cols := make([]CollectionStats, len(s.Collections))
	for i, c := range s.Collections {
		cols[i] = CollectionStats{
			Name:           c.Name,
			DocumentCount:  c.DocumentCount,
			RevisionCount:  c.RevisionCount,
			MetaIndexCount: c.MetaIndexCount,
		}
	}
	return StatsResponse{
		DatabasePath:     s.DatabasePath,
		DatabaseSize:     s.DatabaseSize,
		Mode:             s.Mode,
		TotalDocuments:   s.TotalDocuments,
		TotalRevisions:   s.TotalRevisions,
		TotalMetaIndices: s.TotalMetaIndices,
		Uptime:           s.Uptime.String(),
		UptimeSeconds:    int64(s.Uptime.Seconds()),
		Collections:      cols,
	}
}

func healthToDTO(r healthuc.Report) HealthResponse {
	checks := make(map[string]string, len(r.Checks))
	for k, v := range r.Checks {
		checks[k] = string(v)
	}
	return HealthResponse{Status: string(r.Status), Mode: r.Mode.String(), Checks: checks}
}
