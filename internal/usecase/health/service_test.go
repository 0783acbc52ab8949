package health

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/mddb/internal/domain"
)

// --- Mocks ---

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(_ context.Context) error { return m.err }

// --- Tests ---

func TestCheck(t *testing.T) {
	down := &mockPinger{err: errors.New("conn refused")}
	tests := []struct {
		name      string
		db, cache Pinger
		status    Status
		checks    map[string]CheckResult
	}{
		{"all healthy", &mockPinger{}, &mockPinger{}, Healthy,
			map[string]CheckResult{"database": CheckOK, "cache": CheckOK}},
		{"no cache", &mockPinger{}, nil, Healthy,
			map[string]CheckResult{"database": CheckOK}},
		{"cache down", &mockPinger{}, down, Degraded,
			map[string]CheckResult{"database": CheckOK, "cache": CheckError}},
		{"database down", down, &mockPinger{}, Unhealthy,
			map[string]CheckResult{"database": CheckError, "cache": CheckOK}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(tt.db, tt.cache, domain.ModeRead).Check(context.Background())
			if r.Status != tt.status {
				t.Errorf("expected %q, got %q", tt.status, r.Status)
			}
			if r.Mode != domain.ModeRead {
				t.Errorf("expected mode read, got %q", r.Mode)
			}
			if len(r.Checks) != len(tt.checks) {
				t.Fatalf("expected %d checks, got %v", len(tt.checks), r.Checks)
			}
			for k, v := range tt.checks {
				if r.Checks[k] != v {
					t.Errorf("check %s: expected %q, got %q", k, v, r.Checks[k])
				}
			}
		})
	}
}
