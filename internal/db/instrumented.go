package db

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// InstrumentedStore wraps a Store with operation timing and failure logging.
type InstrumentedStore struct {
	Store
	duration *prometheus.HistogramVec
	logger   *zap.Logger
}

// Instrument decorates s. duration is a histogram vec with labels "op" and "status";
// nil disables metrics.
func Instrument(s Store, duration *prometheus.HistogramVec, logger *zap.Logger) *InstrumentedStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InstrumentedStore{Store: s, duration: duration, logger: logger}
}

// View runs a read-only transaction.
func (s *InstrumentedStore) View(ctx context.Context, fn func(Tx) error) error {
	return s.observe(OpView, func() error { return s.Store.View(ctx, fn) })
}

// Update runs a read-write transaction.
func (s *InstrumentedStore) Update(ctx context.Context, fn func(Tx) error) error {
	return s.observe(OpUpdate, func() error { return s.Store.Update(ctx, fn) })
}

// Backup copies the database to dst.
func (s *InstrumentedStore) Backup(ctx context.Context, dst string) error {
	return s.observe(OpBackup, func() error { return s.Store.Backup(ctx, dst) })
}

// Restore replaces the database with src.
func (s *InstrumentedStore) Restore(ctx context.Context, src string) error {
	return s.observe(OpRestore, func() error { return s.Store.Restore(ctx, src) })
}

func (s *InstrumentedStore) observe(op string, call func() error) error {
	start := time.Now()
	err := call()
	elapsed := time.Since(start)

	status := "ok"
	var dbErr *Error
	switch {
	case err == nil:
	case errors.As(err, &dbErr) || errors.Is(err, ErrClosed):
		status = "error"
		s.logger.Warn("Store operation failed",
			zap.String("op", op),
			zap.Duration("duration", elapsed),
			zap.Error(err),
		)
	default:
		// fn вернула ошибку сама, транзакция откатилась
		status = "aborted"
	}
	if s.duration != nil {
		s.duration.WithLabelValues(op, status).Observe(elapsed.Seconds())
	}
	return err
}
