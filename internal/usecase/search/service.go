package search

import (
	"context"
	"fmt"

	domdoc "github.com/kailas-cloud/mddb/internal/domain/document"
	domsearch "github.com/kailas-cloud/mddb/internal/domain/search"
)

// DefaultMaxLimit caps the page size when no limit is configured.
const DefaultMaxLimit = 1000

// Query holds raw search parameters as received from a client.
type Query struct {
	Collection string
	Filter     domdoc.Meta
	Sort       string
	Asc        bool
	Limit      int
	Offset     int
}

// Page is one page of search results with the effective paging parameters.
type Page struct {
	domsearch.Result
	Limit  int
	Offset int
}

// Service handles metadata search and export.
type Service struct {
	repo         Repository
	defaultLimit int
	maxLimit     int
}

// New creates a search service.
func New(repo Repository) *Service {
	return &Service{
		repo:         repo,
		defaultLimit: domsearch.DefaultLimit,
		maxLimit:     DefaultMaxLimit,
	}
}

// WithLimits configures the default and maximum page size.
func (s *Service) WithLimits(defaultLimit, maxLimit int) *Service {
	if defaultLimit > 0 {
		s.defaultLimit = defaultLimit
	}
	if maxLimit > 0 {
		s.maxLimit = maxLimit
	}
	return s
}

// Search returns the requested page of documents matching the metadata filter.
func (s *Service) Search(ctx context.Context, q Query) (Page, error) {
	if q.Limit <= 0 {
		q.Limit = s.defaultLimit
	}
	req, err := domsearch.NewRequest(q.Collection, q.Filter, q.Sort, q.Asc, q.Limit, q.Offset)
	if err != nil {
		return Page{}, err
	}
	req = req.WithMaxLimit(s.maxLimit)

	docs, err := s.repo.FindByMeta(ctx, req.Collection(), req.Filter())
	if err != nil {
		return Page{}, fmt.Errorf("search %s: %w", req.Collection(), err)
	}
	return Page{Result: req.Paginate(docs), Limit: req.Limit(), Offset: req.Offset()}, nil
}
