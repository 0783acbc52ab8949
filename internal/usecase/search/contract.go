package search

import (
	"context"

	domdoc "github.com/kailas-cloud/mddb/internal/domain/document"
)

// Repository defines the storage contract for metadata search.
type Repository interface {
	FindByMeta(ctx context.Context, coll string, filter domdoc.Meta) ([]domdoc.Document, error)
}
