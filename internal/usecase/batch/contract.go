package batch

import (
	"context"

	dombatch "github.com/kailas-cloud/mddb/internal/domain/batch"
)

// Repository writes and deletes documents in a single transaction per batch.
type Repository interface {
	UpsertMany(ctx context.Context, coll string, items []dombatch.Item) ([]dombatch.Result, error)
	DeleteMany(ctx context.Context, coll string, refs []dombatch.Ref) ([]dombatch.Result, error)
}

// Invalidator drops cached documents after a batch write.
type Invalidator interface {
	Invalidate(ctx context.Context, coll string, ids ...string)
}
