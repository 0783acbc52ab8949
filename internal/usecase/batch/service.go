package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/mddb/internal/domain"
	dombatch "github.com/kailas-cloud/mddb/internal/domain/batch"
	domdoc "github.com/kailas-cloud/mddb/internal/domain/document"
)

// Defaults for batch limits.
const (
	DefaultMaxBatchSize = 1000
	DefaultWorkers      = 4
)

// Input is one raw document of a batch add or update.
type Input struct {
	Key          string
	Lang         string
	Meta         domdoc.Meta
	ContentMD    string
	SaveRevision bool
}

// Service handles batch document operations with per-item error reporting.
type Service struct {
	repo         Repository
	cache        Invalidator
	mode         domain.AccessMode
	now          func() time.Time
	maxBatchSize int
	workers      int
	itemsTotal   *prometheus.CounterVec
}

// New creates a batch service.
func New(repo Repository) *Service {
	return &Service{
		repo:         repo,
		mode:         domain.ModeReadWrite,
		now:          time.Now,
		maxBatchSize: DefaultMaxBatchSize,
		workers:      DefaultWorkers,
	}
}

// WithMaxBatchSize configures the maximum batch size.
func (s *Service) WithMaxBatchSize(size int) *Service {
	if size > 0 {
		s.maxBatchSize = size
	}
	return s
}

// WithWorkers configures how many items are prepared concurrently.
func (s *Service) WithWorkers(n int) *Service {
	if n > 0 {
		s.workers = n
	}
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

// WithCache invalidates cached documents after writes.
func (s *Service) WithCache(c Invalidator) *Service {
	s.cache = c
	return s
}

// WithMetrics counts items by operation and status (labels "op", "status").
func (s *Service) WithMetrics(itemsTotal *prometheus.CounterVec) *Service {
	s.itemsTotal = itemsTotal
	return s
}

// Add upserts documents in one transaction.
func (s *Service) Add(ctx context.Context, coll string, inputs []Input) (dombatch.Summary, error) {
	return s.write(ctx, "add", coll, inputs, false)
}

// Update overwrites existing documents; missing ones are reported as not_found.
func (s *Service) Update(ctx context.Context, coll string, inputs []Input) (dombatch.Summary, error) {
	return s.write(ctx, "update", coll, inputs, true)
}

// Delete removes documents by natural key; missing ones are reported as not_found.
func (s *Service) Delete(ctx context.Context, coll string, refs []dombatch.Ref) (dombatch.Summary, error) {
	if err := s.check(coll, len(refs)); err != nil {
		return dombatch.Summary{}, err
	}

	results := make([]dombatch.Result, len(refs))
	valid := make([]dombatch.Ref, 0, len(refs))
	validIdx := make([]int, 0, len(refs))
	for i, ref := range refs {
		if err := domdoc.ValidateRef(coll, ref.Key, ref.Lang); err != nil {
			results[i] = dombatch.NewError(ref.Key, ref.Lang, err)
			continue
		}
		valid = append(valid, ref)
		validIdx = append(validIdx, i)
	}

	if len(valid) > 0 {
		done, err := s.repo.DeleteMany(ctx, coll, valid)
		if err != nil {
			return dombatch.Summary{}, fmt.Errorf("delete batch: %w", err)
		}
		ids := make([]string, 0, len(done))
		for j, r := range done {
			results[validIdx[j]] = r
			if r.Status() == dombatch.StatusDeleted {
				ids = append(ids, domdoc.GenID(coll, r.Key(), r.Lang()))
			}
		}
		s.invalidate(ctx, coll, ids)
	}

	return s.summarize("delete", results), nil
}

func (s *Service) write(
	ctx context.Context, op, coll string, inputs []Input, mustExist bool,
) (dombatch.Summary, error) {
	if err := s.check(coll, len(inputs)); err != nil {
		return dombatch.Summary{}, err
	}

	items, failures, err := s.prepare(ctx, coll, inputs, mustExist)
	if err != nil {
		return dombatch.Summary{}, err
	}

	results := make([]dombatch.Result, len(inputs))
	valid := make([]dombatch.Item, 0, len(inputs))
	validIdx := make([]int, 0, len(inputs))
	for i := range inputs {
		if failures[i] != nil {
			results[i] = dombatch.NewError(inputs[i].Key, inputs[i].Lang, failures[i])
			continue
		}
		valid = append(valid, items[i])
		validIdx = append(validIdx, i)
	}

	if len(valid) > 0 {
		done, err := s.repo.UpsertMany(ctx, coll, valid)
		if err != nil {
			return dombatch.Summary{}, fmt.Errorf("%s batch: %w", op, err)
		}
		ids := make([]string, 0, len(done))
		for j, r := range done {
			results[validIdx[j]] = r
			if r.Status() == dombatch.StatusAdded || r.Status() == dombatch.StatusUpdated {
				ids = append(ids, valid[j].Doc.ID())
			}
		}
		s.invalidate(ctx, coll, ids)
	}

	return s.summarize(op, results), nil
}

// prepare validates inputs on a bounded worker pool. failures[i] is set for rejected items.
func (s *Service) prepare(
	ctx context.Context, coll string, inputs []Input, mustExist bool,
) ([]dombatch.Item, []error, error) {
	items := make([]dombatch.Item, len(inputs))
	failures := make([]error, len(inputs))
	now := s.now().Unix()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i := range inputs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			in := &inputs[i]
			doc, err := domdoc.New(coll, in.Key, in.Lang, in.Meta, in.ContentMD, now)
			if err != nil {
				failures[i] = err
				return nil
			}
			items[i] = dombatch.Item{Doc: doc, SaveRevision: in.SaveRevision, MustExist: mustExist}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("prepare batch: %w", err)
	}
	return items, failures, nil
}

func (s *Service) check(coll string, n int) error {
	if err := s.mode.RequireWrite(); err != nil {
		return err
	}
	if coll == "" {
		return fmt.Errorf("collection is required: %w", domain.ErrInvalidRequest)
	}
	if n > s.maxBatchSize {
		return fmt.Errorf("%d items, limit %d: %w", n, s.maxBatchSize, domain.ErrBatchTooLarge)
	}
	return nil
}

func (s *Service) invalidate(ctx context.Context, coll string, ids []string) {
	if s.cache != nil && len(ids) > 0 {
		s.cache.Invalidate(ctx, coll, ids...)
	}
}

func (s *Service) summarize(op string, results []dombatch.Result) dombatch.Summary {
	if s.itemsTotal != nil {
		for _, r := range results {
			s.itemsTotal.WithLabelValues(op, string(r.Status())).Inc()
		}
	}
	return dombatch.Summarize(results)
}
