package document

import (
	"context"

	domdoc "github.com/kailas-cloud/mddb/internal/domain/document"
)

// Repository defines the storage contract for documents.
type Repository interface {
	Upsert(ctx context.Context, coll string, doc domdoc.Document) (stored domdoc.Document, created bool, err error)
	Get(ctx context.Context, coll, key, lang string) (domdoc.Document, error)
	Delete(ctx context.Context, coll, key, lang string) error
	DeleteCollection(ctx context.Context, coll string) (int, error)
	Revisions(ctx context.Context, coll, key, lang string) ([]domdoc.Document, error)
}

// Cache is an optional read-through document cache.
// Version changes on every Invalidate and Flush; Put drops doc when the
// version moved past ver, so a read that raced a write is never cached.
type Cache interface {
	Get(ctx context.Context, coll, id string) (domdoc.Document, bool)
	Version() uint64
	Put(ctx context.Context, coll string, doc *domdoc.Document, ver uint64)
	Invalidate(ctx context.Context, coll string, ids ...string)
	Flush(ctx context.Context)
}
