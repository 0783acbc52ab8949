package batch

import (
	"errors"
	"fmt"

	"github.com/kailas-cloud/mddb/internal/domain"
	domdoc "github.com/kailas-cloud/mddb/internal/domain/document"
)

// ItemStatus is the processing outcome of a single batch item.
type ItemStatus string

// Batch item status values.
const (
	StatusAdded    ItemStatus = "added"
	StatusUpdated  ItemStatus = "updated"
	StatusDeleted  ItemStatus = "deleted"
	StatusNotFound ItemStatus = "not_found"
	StatusError    ItemStatus = "error"
)

// Result is the outcome of processing one item in a batch operation.
type Result struct {
	key    string
	lang   string
	status ItemStatus
	err    error
}

// NewResult creates a batch result with the given status.
func NewResult(key, lang string, status ItemStatus) Result {
	return Result{key: key, lang: lang, status: status}
}

// NewError creates a failed batch result. Missing documents are reported as not_found.
func NewError(key, lang string, err error) Result {
	if errors.Is(err, domain.ErrDocumentNotFound) {
		return Result{key: key, lang: lang, status: StatusNotFound, err: err}
	}
	return Result{key: key, lang: lang, status: StatusError, err: err}
}

// Key returns the item key.
func (r Result) Key() string { return r.key }

// Lang returns the item language.
func (r Result) Lang() string { return r.lang }

// Status returns the processing outcome.
func (r Result) Status() ItemStatus { return r.status }

// Err returns the error, if any.
func (r Result) Err() error { return r.err }

// Summary counts batch outcomes.
type Summary struct {
	Added    int
	Updated  int
	Deleted  int
	NotFound int
	Failed   int
	Errors   []string
	Results  []Result
}

// Summarize counts results by status; failures are listed as "<key>/<lang>: <message>".
func Summarize(results []Result) Summary {
	s := Summary{Results: results}
	for _, r := range results {
		switch r.status {
		case StatusAdded:
			s.Added++
		case StatusUpdated:
			s.Updated++
		case StatusDeleted:
			s.Deleted++
		case StatusNotFound:
			s.NotFound++
		case StatusError:
			s.Failed++
			s.Errors = append(s.Errors, fmt.Sprintf("%s/%s: %v", r.key, r.lang, r.err))
		}
	}
	return s
}

// Item is one prepared document of a batch write.
type Item struct {
	Doc          domdoc.Document
	SaveRevision bool
	// MustExist rejects the item as not_found when the document is absent.
	MustExist bool
}

// Ref addresses a document of a batch delete by its natural key.
type Ref struct {
	Key  string
	Lang string
}
