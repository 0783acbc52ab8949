package stats

import (
	"context"
	"fmt"
	"strings"

	"github.com/kailas-cloud/mddb/internal/db"
	domdoc "github.com/kailas-cloud/mddb/internal/domain/document"
	domstats "github.com/kailas-cloud/mddb/internal/domain/stats"
)

// store is the consumer interface for statistics (ISP).
type store interface {
	View(ctx context.Context, fn func(db.Tx) error) error
	Path() string
	Size() (int64, error)
}

// Repo counts stored entries per collection.
type Repo struct {
	store store
}

// New creates a statistics repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Collections scans every bucket once and returns counters sorted by collection name.
func (r *Repo) Collections(ctx context.Context) ([]domstats.Collection, error) {
	counts := domstats.NewCounts()
	err := r.store.View(ctx, func(tx db.Tx) error {
		for bucket, add := range map[string]func(string){
			db.BucketDocs: counts.AddDocument,
			db.BucketRevs: counts.AddRevision,
			db.BucketMeta: counts.AddMetaIndex,
		} {
			err := tx.Scan(bucket, nil, func(key, _ []byte) error {
				if coll, ok := collectionOf(key); ok {
					add(coll)
				}
				return nil
			})
			if err != nil {
				return fmt.Errorf("scan %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("collect stats: %w", err)
	}
	return counts.Collections(), nil
}

// Path returns the database file location.
func (r *Repo) Path() string { return r.store.Path() }

// Size returns the database size in bytes.
func (r *Repo) Size() (int64, error) {
	n, err := r.store.Size()
	if err != nil {
		return 0, fmt.Errorf("database size: %w", err)
	}
	return n, nil
}

// collectionOf returns the second segment of a "<kind>|<coll>|..." key.
func collectionOf(key []byte) (string, bool) {
	parts := strings.SplitN(string(key), domdoc.Separator, 3)
	if len(parts) < 3 || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
