package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/mddb/internal/domain"
	domstats "github.com/kailas-cloud/mddb/internal/domain/stats"
)

// Service reports database statistics.
type Service struct {
	repo      Repository
	mode      domain.AccessMode
	startedAt time.Time
	now       func() time.Time
}

// New creates a stats service; uptime is counted from now.
func New(repo Repository, mode domain.AccessMode) *Service {
	return &Service{repo: repo, mode: mode, startedAt: time.Now(), now: time.Now}
}

// WithClock overrides the time source and restarts the uptime counter.
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
		s.startedAt = now()
	}
	return s
}

// Stats collects per-collection counters, file size and uptime.
func (s *Service) Stats(ctx context.Context) (domstats.Stats, error) {
	cols, err := s.repo.Collections(ctx)
	if err != nil {
		return domstats.Stats{}, fmt.Errorf("stats: %w", err)
	}
	size, err := s.repo.Size()
	if err != nil {
		return domstats.Stats{}, fmt.Errorf("stats: %w", err)
	}
	uptime := s.now().Sub(s.startedAt).Truncate(time.Second)
	return domstats.New(s.repo.Path(), size, s.mode.String(), cols, uptime), nil
}
