package stats

import (
	"context"

	domstats "github.com/kailas-cloud/mddb/internal/domain/stats"
)

// Repository reads storage-level counters.
type Repository interface {
	Collections(ctx context.Context) ([]domstats.Collection, error)
	Path() string
	Size() (int64, error)
}
