package mddb

import "time"

// Sort fields accepted by Search.
const (
	SortAddedAt   = "addedAt"
	SortUpdatedAt = "updatedAt"
	SortKey       = "key"
)

// Export formats.
const (
	FormatNDJSON = "ndjson"
	FormatZip    = "zip"
)

// Document is a stored markdown document. Timestamps are unix seconds.
type Document struct {
	ID        string              `json:"id"`
	Key       string              `json:"key"`
	Lang      string              `json:"lang"`
	Meta      map[string][]string `json:"meta"`
	ContentMD string              `json:"content_md"`
	AddedAt   int64               `json:"added_at"`
	UpdatedAt int64               `json:"updated_at"`
}

// Added returns AddedAt as time.
func (d Document) Added() time.Time { return time.Unix(d.AddedAt, 0) }

// Updated returns UpdatedAt as time.
func (d Document) Updated() time.Time { return time.Unix(d.UpdatedAt, 0) }

// SearchRequest selects documents of one collection.
// FilterMeta is AND over keys and OR over the values of one key.
type SearchRequest struct {
	Collection string              `json:"collection"`
	FilterMeta map[string][]string `json:"filter_meta,omitempty"`
	Sort       string              `json:"sort,omitempty"`
	Asc        bool                `json:"asc,omitempty"`
	Limit      int                 `json:"limit,omitempty"`
	Offset     int                 `json:"offset,omitempty"`
}

// SearchResult is one page of matches. Total counts all matches.
type SearchResult struct {
	Documents []Document `json:"documents"`
	Total     int        `json:"total"`
	Limit     int        `json:"limit"`
	Offset    int        `json:"offset"`
}

// ExportRequest selects documents to stream.
type ExportRequest struct {
	Collection string              `json:"collection"`
	FilterMeta map[string][]string `json:"filter_meta,omitempty"`
	Format     string              `json:"format,omitempty"`
}

// CollectionStats holds per-collection counters.
type CollectionStats struct {
	Name           string `json:"name"`
	DocumentCount  int    `json:"document_count"`
	RevisionCount  int    `json:"revision_count"`
	MetaIndexCount int    `json:"meta_index_count"`
}

// Stats is the server-wide statistics snapshot.
type Stats struct {
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

// BackupResult names the written snapshot.
type BackupResult struct {
	Backup string `json:"backup"`
}

// HealthStatus represents the aggregated server health.
type HealthStatus struct {
	Status string            `json:"status"` // "ok", "degraded", "error"
	Mode   string            `json:"mode"`
	Checks map[string]string `json:"checks"` // component → "ok"/"error"
}

// BatchDocument is one item of AddBatch or UpdateBatch.
type BatchDocument struct {
	Key          string              `json:"key"`
	Lang         string              `json:"lang"`
	Meta         map[string][]string `json:"meta,omitempty"`
	ContentMD    string              `json:"content_md"`
	SaveRevision bool                `json:"save_revision,omitempty"`
}

// BatchKey is one item of DeleteBatch.
type BatchKey struct {
	Key  string `json:"key"`
	Lang string `json:"lang"`
}

// BatchItemResult is the outcome of one batch item.
type BatchItemResult struct {
	Key    string `json:"key"`
	Lang   string `json:"lang"`
	Status string `json:"status"` // added, updated, deleted, not_found, error
	Error  string `json:"error,omitempty"`
}

// BatchResult summarizes a batch.
type BatchResult struct {
	Added    int               `json:"added"`
	Updated  int               `json:"updated"`
	Deleted  int               `json:"deleted"`
	NotFound int               `json:"not_found"`
	Failed   int               `json:"failed"`
	Errors   []string          `json:"errors"`
	Results  []BatchItemResult `json:"results"`
}

// wire bodies

type addRequest struct {
	Collection string              `json:"collection"`
	Key        string              `json:"key"`
	Lang       string              `json:"lang"`
	Meta       map[string][]string `json:"meta,omitempty"`
	ContentMD  string              `json:"content_md"`
}

type getRequest struct {
	Collection string            `json:"collection"`
	Key        string            `json:"key"`
	Lang       string            `json:"lang"`
	Env        map[string]string `json:"env,omitempty"`
}

type refRequest struct {
	Collection string `json:"collection"`
	Key        string `json:"key"`
	Lang       string `json:"lang"`
}

type collectionRequest struct {
	Collection string `json:"collection"`
}

type batchRequest struct {
	Collection string          `json:"collection"`
	Documents  []BatchDocument `json:"documents"`
}

type batchDeleteRequest struct {
	Collection string     `json:"collection"`
	Keys       []BatchKey `json:"keys"`
}

type truncateRequest struct {
	Collection string `json:"collection"`
	KeepRevs   int    `json:"keep_revs"`
	DropCache  bool   `json:"drop_cache"`
}
