package mcp

import (
	"context"
	"io"

	mddb "github.com/kailas-cloud/mddb/pkg/sdk"
)

// Backend is the part of the MDDB client the bridge calls. *mddb.Client implements it.
type Backend interface {
	Add(ctx context.Context, collection, key, lang string, meta map[string][]string, contentMD string) (mddb.Document, error)
	Get(ctx context.Context, collection, key, lang string, env map[string]string) (mddb.Document, error)
	Delete(ctx context.Context, collection, key, lang string) error
	Revisions(ctx context.Context, collection, key, lang string) ([]mddb.Document, error)
	Search(ctx context.Context, req mddb.SearchRequest) (mddb.SearchResult, error)
	Export(ctx context.Context, req mddb.ExportRequest) (io.ReadCloser, error)
	AddBatch(ctx context.Context, collection string, docs []mddb.BatchDocument) (mddb.BatchResult, error)
	DeleteBatch(ctx context.Context, collection string, keys []mddb.BatchKey) (mddb.BatchResult, error)
	Stats(ctx context.Context) (mddb.Stats, error)
	Backup(ctx context.Context, to string) (mddb.BackupResult, error)
	Restore(ctx context.Context, from string) (string, error)
	Health(ctx context.Context) (mddb.HealthStatus, error)
}

// Compile-time check: the SDK client is a Backend.
var _ Backend = (*mddb.Client)(nil)
