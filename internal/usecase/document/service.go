package document

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/mddb/internal/domain"
	domdoc "github.com/kailas-cloud/mddb/internal/domain/document"
)

// Service handles single-document reads and writes.
type Service struct {
	repo  Repository
	cache Cache
	mode  domain.AccessMode
	now   func() time.Time
}

// New creates a document service in read-write mode without a cache.
func New(repo Repository) *Service {
	return &Service{
		repo: repo,
		mode: domain.ModeReadWrite,
		now:  time.Now,
	}
}

// WithCache enables the read-through cache.
func (s *Service) WithCache(c Cache) *Service {
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

// Add upserts a document. Returns the stored document and true if it was created.
func (s *Service) Add(
	ctx context.Context, coll, key, lang string, meta domdoc.Meta, contentMD string,
) (domdoc.Document, bool, error) {
	if err := s.mode.RequireWrite(); err != nil {
		return domdoc.Document{}, false, err
	}
	doc, err := domdoc.New(coll, key, lang, meta, contentMD, s.now().Unix())
	if err != nil {
		return domdoc.Document{}, false, err
	}

	stored, created, err := s.repo.Upsert(ctx, coll, doc)
	if err != nil {
		return domdoc.Document{}, false, fmt.Errorf("add document: %w", err)
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, coll, stored.ID())
	}
	return stored, created, nil
}

// Get returns a document with env placeholders substituted in its content.
func (s *Service) Get(ctx context.Context, coll, key, lang string, env map[string]string) (domdoc.Document, error) {
	if err := domdoc.ValidateRef(coll, key, lang); err != nil {
		return domdoc.Document{}, err
	}

	id := domdoc.GenID(coll, key, lang)
	var ver uint64
	if s.cache != nil {
		if doc, ok := s.cache.Get(ctx, coll, id); ok {
			return doc.Render(env), nil
		}
		// версия берется до чтения из базы
		ver = s.cache.Version()
	}

	doc, err := s.repo.Get(ctx, coll, key, lang)
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("get document: %w", err)
	}
	if s.cache != nil {
		s.cache.Put(ctx, coll, &doc, ver)
	}
	return doc.Render(env), nil
}

// Delete removes a document with its revisions and index entries.
func (s *Service) Delete(ctx context.Context, coll, key, lang string) error {
	if err := s.mode.RequireWrite(); err != nil {
		return err
	}
	if err := domdoc.ValidateRef(coll, key, lang); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, coll, key, lang); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, coll, domdoc.GenID(coll, key, lang))
	}
	return nil
}

// DeleteCollection removes every document of coll and returns how many were deleted.
func (s *Service) DeleteCollection(ctx context.Context, coll string) (int, error) {
	if err := s.mode.RequireWrite(); err != nil {
		return 0, err
	}
	if coll == "" {
		return 0, fmt.Errorf("collection is required: %w", domain.ErrInvalidRequest)
	}
	n, err := s.repo.DeleteCollection(ctx, coll)
	if err != nil {
		return 0, fmt.Errorf("delete collection: %w", err)
	}
	if s.cache != nil {
		s.cache.Flush(ctx)
	}
	return n, nil
}

// Revisions returns the stored history of a document, oldest first.
func (s *Service) Revisions(ctx context.Context, coll, key, lang string) ([]domdoc.Document, error) {
	if err := domdoc.ValidateRef(coll, key, lang); err != nil {
		return nil, err
	}
	revs, err := s.repo.Revisions(ctx, coll, key, lang)
	if err != nil {
		return nil, fmt.Errorf("list revisions: %w", err)
	}
	return revs, nil
}
