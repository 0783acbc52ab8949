package search

import (
	"fmt"
	"sort"

	"github.com/kailas-cloud/mddb/internal/domain"
	domdoc "github.com/kailas-cloud/mddb/internal/domain/document"
)

// SortField selects the ordering of search results.
type SortField string

// Sort fields.
const (
	SortAddedAt   SortField = "addedAt"
	SortUpdatedAt SortField = "updatedAt"
	SortKey       SortField = "key"
)

// ParseSort accepts the camelCase names and their snake_case aliases. Empty means updatedAt.
func ParseSort(s string) (SortField, error) {
	switch s {
	case "", string(SortUpdatedAt), "updated_at":
		return SortUpdatedAt, nil
	case string(SortAddedAt), "added_at":
		return SortAddedAt, nil
	case string(SortKey):
		return SortKey, nil
	default:
		return "", fmt.Errorf("unknown sort %q (want addedAt, updatedAt or key): %w", s, domain.ErrInvalidRequest)
	}
}

// Sort orders docs by field; equal values fall back to the document ID
// in the same direction so pages never shuffle between calls.
func Sort(docs []domdoc.Document, field SortField, asc bool) {
	sort.SliceStable(docs, func(i, j int) bool {
		a, b := &docs[i], &docs[j]
		var c int
		switch field {
		case SortAddedAt:
			c = cmpInt(a.AddedAt(), b.AddedAt())
		case SortKey:
			c = cmpString(a.Key(), b.Key())
		default:
			c = cmpInt(a.UpdatedAt(), b.UpdatedAt())
		}
		if c == 0 {
			c = cmpString(a.ID(), b.ID())
		}
		if asc {
			return c < 0
		}
		return c > 0
	})
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmpString(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
