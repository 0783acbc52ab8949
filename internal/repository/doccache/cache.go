package doccache

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/mddb/internal/db"
	domdoc "github.com/kailas-cloud/mddb/internal/domain/document"
)

// DefaultTTL bounds how long a cached document may outlive a missed invalidation.
const DefaultTTL = 5 * time.Minute

// store is the consumer interface for the document cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// Cache is a read-through document cache in a key-value store.
// Failures are logged and counted, never returned.
type Cache struct {
	store      store
	prefix     string
	ttl        time.Duration
	gen        atomic.Int64
	writes     atomic.Uint64
	mu         sync.RWMutex
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a document cache.
// cacheTotal is a counter vec with label "result" (hit, miss, error or stale), passed explicitly.
func New(
	s store,
	prefix string,
	ttl time.Duration,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Cache{
		store:      s,
		prefix:     prefix,
		ttl:        ttl,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
	// поколение от времени старта: записи прошлого процесса не видны
	c.gen.Store(time.Now().UnixNano())
	return c
}

type entry struct {
	ID        string              `json:"id"`
	Key       string              `json:"key"`
	Lang      string              `json:"lang"`
	Meta      map[string][]string `json:"meta,omitempty"`
	ContentMD string              `json:"content_md"`
	AddedAt   int64               `json:"added_at"`
	UpdatedAt int64               `json:"updated_at"`
}

// Get returns the cached document for (coll, id).
func (c *Cache) Get(ctx context.Context, coll, id string) (domdoc.Document, bool) {
	key := c.key(coll, id)
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			c.inc("miss")
		} else {
			c.inc("error")
			c.logger.Warn("Failed to get cached document", zap.String("key", key), zap.Error(err))
		}
		return domdoc.Document{}, false
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		c.inc("error")
		c.logger.Warn("Failed to parse cached document", zap.String("key", key), zap.Error(err))
		return domdoc.Document{}, false
	}
	c.inc("hit")
	return domdoc.Reconstruct(e.ID, e.Key, e.Lang, e.Meta, e.ContentMD, e.AddedAt, e.UpdatedAt), true
}

// Version returns the write counter; load it before reading the document
// from the store and hand it to Put.
func (c *Cache) Version() uint64 { return c.writes.Load() }

// Put stores doc under (coll, doc.ID()) unless an Invalidate or Flush ran
// after ver was taken.
func (c *Cache) Put(ctx context.Context, coll string, doc *domdoc.Document, ver uint64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.writes.Load() != ver {
		c.inc("stale")
		return
	}
	key := c.key(coll, doc.ID())
	data, err := json.Marshal(entry{
		ID:        doc.ID(),
		Key:       doc.Key(),
		Lang:      doc.Lang(),
		Meta:      doc.Meta(),
		ContentMD: doc.ContentMD(),
		AddedAt:   doc.AddedAt(),
		UpdatedAt: doc.UpdatedAt(),
	})
	if err != nil {
		c.logger.Warn("Failed to encode document for cache", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.store.SetWithTTL(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("Failed to cache document", zap.String("key", key), zap.Error(err))
	}
}

// Invalidate drops cached entries for the given document ids.
func (c *Cache) Invalidate(ctx context.Context, coll string, ids ...string) {
	if len(ids) == 0 {
		return
	}
	// ждем незавершенные Put, новые увидят сдвиг версии
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes.Add(1)
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = c.key(coll, id)
	}
	if err := c.store.Del(ctx, keys...); err != nil {
		c.logger.Warn("Failed to invalidate cached documents",
			zap.String("collection", coll), zap.Int("count", len(keys)), zap.Error(err))
	}
}

// Flush makes every existing entry unreachable; old entries expire by TTL.
func (c *Cache) Flush(_ context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes.Add(1)
	c.gen.Add(1)
	c.logger.Info("Document cache flushed", zap.Int64("generation", c.gen.Load()))
}

func (c *Cache) key(coll, id string) string {
	return c.prefix + "doc:" + strconv.FormatInt(c.gen.Load(), 10) + ":" + coll + domdoc.Separator + id
}

func (c *Cache) inc(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}
