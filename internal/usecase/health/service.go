package health

import (
	"context"

	"github.com/kailas-cloud/mddb/internal/domain"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates the cache failed while the store is fine.
	Degraded Status = "degraded"
	// Unhealthy indicates the store failed.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Mode   domain.AccessMode
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	db    Pinger
	cache Pinger
	mode  domain.AccessMode
}

// New creates a Service. cache can be nil.
func New(db, cache Pinger, mode domain.AccessMode) *Service {
	return &Service{db: db, cache: cache, mode: mode}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := map[string]CheckResult{"database": ping(ctx, s.db)}
	if s.cache != nil {
		checks["cache"] = ping(ctx, s.cache)
	}

	status := Healthy
	switch {
	case checks["database"] == CheckError:
		status = Unhealthy
	case checks["cache"] == CheckError:
		status = Degraded
	}
	return Report{Status: status, Mode: s.mode, Checks: checks}
}

func ping(ctx context.Context, p Pinger) CheckResult {
	if err := p.Ping(ctx); err != nil {
		return CheckError
	}
	return CheckOK
}
