package admin

import "context"

// Snapshotter copies the database file out and back in.
type Snapshotter interface {
	Backup(ctx context.Context, dst string) error
	Restore(ctx context.Context, src string) error
	Path() string
}

// Truncater drops old document revisions.
type Truncater interface {
	Truncate(ctx context.Context, coll string, keepRevs int) (int, error)
}

// Flusher empties the document cache.
type Flusher interface {
	Flush(ctx context.Context)
}
