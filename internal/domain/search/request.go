package search

import (
	"fmt"

	"github.com/kailas-cloud/mddb/internal/domain"
	domdoc "github.com/kailas-cloud/mddb/internal/domain/document"
)

// DefaultLimit is the page size used when a request leaves it unset.
const DefaultLimit = 50

// Request is a validated metadata search over one collection.
type Request struct {
	collection string
	filter     domdoc.Meta
	sort       SortField
	asc        bool
	limit      int
	offset     int
}

// NewRequest validates search parameters. limit <= 0 selects DefaultLimit.
func NewRequest(collection string, filter domdoc.Meta, sort string, asc bool, limit, offset int) (Request, error) {
	if collection == "" {
		return Request{}, fmt.Errorf("collection is required: %w", domain.ErrInvalidRequest)
	}
	field, err := ParseSort(sort)
	if err != nil {
		return Request{}, err
	}
	if offset < 0 {
		return Request{}, fmt.Errorf("offset must be >= 0: %w", domain.ErrInvalidRequest)
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	return Request{
		collection: collection,
		filter:     filter.Clone(),
		sort:       field,
		asc:        asc,
		limit:      limit,
		offset:     offset,
	}, nil
}

// Collection returns the searched collection.
func (r Request) Collection() string { return r.collection }

// Filter returns the metadata filter: AND over keys, OR over the values of one key.
func (r Request) Filter() domdoc.Meta { return r.filter }

// Sort returns the sort field.
func (r Request) Sort() SortField { return r.sort }

// Asc reports ascending order.
func (r Request) Asc() bool { return r.asc }

// Limit returns the page size.
func (r Request) Limit() int { return r.limit }

// Offset returns the number of matches to skip.
func (r Request) Offset() int { return r.offset }

// WithMaxLimit returns a copy with the limit capped at maxLimit.
func (r Request) WithMaxLimit(maxLimit int) Request {
	if maxLimit > 0 && r.limit > maxLimit {
		r.limit = maxLimit
	}
	return r
}

// Result is one page of matches plus the total match count before paging.
type Result struct {
	Documents []domdoc.Document
	Total     int
}

// Paginate sorts docs in place per the request and cuts the requested page.
func (r Request) Paginate(docs []domdoc.Document) Result {
	Sort(docs, r.sort, r.asc)

	start := min(r.offset, len(docs))
	end := min(start+r.limit, len(docs))
	page := make([]domdoc.Document, end-start)
	copy(page, docs[start:end])
	return Result{Documents: page, Total: len(docs)}
}
