package admin

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kailas-cloud/mddb/internal/domain"
)

// Service handles backup, restore and revision truncation.
type Service struct {
	snap      Snapshotter
	trunc     Truncater
	cache     Flusher
	mode      domain.AccessMode
	now       func() time.Time
	backupDir string
}

// New creates an admin service.
func New(snap Snapshotter, trunc Truncater) *Service {
	return &Service{
		snap:  snap,
		trunc: trunc,
		mode:  domain.ModeReadWrite,
		now:   time.Now,
	}
}

// WithCache flushes the document cache after restore and on request after truncate.
func (s *Service) WithCache(c Flusher) *Service {
	s.cache = c
	return s
}

// WithMode sets the server access mode.
func (s *Service) WithMode(m domain.AccessMode) *Service {
	s.mode = m
	return s
}

// WithClock overrides the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// WithBackupDir confines backup and restore files to dir. Names must then be plain file names.
func (s *Service) WithBackupDir(dir string) *Service {
	s.backupDir = dir
	return s
}

// Backup writes a snapshot to `to` (default backup-<unix>.db) and returns the path written.
// Allowed in every mode.
func (s *Service) Backup(ctx context.Context, to string) (string, error) {
	if to == "" {
		to = fmt.Sprintf("backup-%d.db", s.now().Unix())
	}
	path, err := s.resolve(to)
	if err != nil {
		return "", err
	}
	if samePath(path, s.snap.Path()) {
		return "", fmt.Errorf("backup target %q is the live database: %w", to, domain.ErrInvalidRequest)
	}
	if err := s.snap.Backup(ctx, path); err != nil {
		return "", fmt.Errorf("backup: %w", err)
	}
	return path, nil
}

// Restore replaces the live database with the file at from.
func (s *Service) Restore(ctx context.Context, from string) (string, error) {
	if err := s.mode.RequireWrite(); err != nil {
		return "", err
	}
	if from == "" {
		return "", fmt.Errorf("from is required: %w", domain.ErrInvalidRequest)
	}
	path, err := s.resolve(from)
	if err != nil {
		return "", err
	}
	if err := s.snap.Restore(ctx, path); err != nil {
		return "", fmt.Errorf("restore: %w", err)
	}
	if s.cache != nil {
		s.cache.Flush(ctx)
	}
	return path, nil
}

// Truncate keeps the newest keepRevs revisions per document and returns how many were removed.
func (s *Service) Truncate(ctx context.Context, coll string, keepRevs int, dropCache bool) (int, error) {
	if err := s.mode.RequireWrite(); err != nil {
		return 0, err
	}
	if coll == "" {
		return 0, fmt.Errorf("collection is required: %w", domain.ErrInvalidRequest)
	}
	if keepRevs < 0 {
		return 0, fmt.Errorf("keep_revs must be >= 0: %w", domain.ErrInvalidRequest)
	}
	removed, err := s.trunc.Truncate(ctx, coll, keepRevs)
	if err != nil {
		return 0, fmt.Errorf("truncate: %w", err)
	}
	if dropCache && s.cache != nil {
		s.cache.Flush(ctx)
	}
	return removed, nil
}

func (s *Service) resolve(name string) (string, error) {
	if s.backupDir == "" {
		return name, nil
	}
	if filepath.Base(name) != name || name == "." || name == ".." {
		return "", fmt.Errorf("file name %q must not contain a directory: %w", name, domain.ErrInvalidRequest)
	}
	return filepath.Join(s.backupDir, name), nil
}

// samePath reports whether a and b name the same file, following symlinks and hard links when both exist.
func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA == nil && errB == nil && absA == absB {
		return true
	}
	infoA, err := os.Stat(a)
	if err != nil {
		return false
	}
	infoB, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(infoA, infoB)
}
