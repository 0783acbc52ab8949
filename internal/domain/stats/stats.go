package stats

import (
	"sort"
	"time"
)

// Collection holds per-collection counters.
type Collection struct {
	Name           string
	DocumentCount  int
	RevisionCount  int
	MetaIndexCount int
}

// Counts aggregates raw counters by collection.
type Counts struct {
	byName map[string]*Collection
}

// NewCounts creates an empty counter set.
func NewCounts() *Counts {
	return &Counts{byName: make(map[string]*Collection)}
}

func (c *Counts) get(name string) *Collection {
	col, ok := c.byName[name]
	if !ok {
		col = &Collection{Name: name}
		c.byName[name] = col
	}
	return col
}

// AddDocument counts one document in a collection.
func (c *Counts) AddDocument(name string) { c.get(name).DocumentCount++ }

// AddRevision counts one revision in a collection.
func (c *Counts) AddRevision(name string) { c.get(name).RevisionCount++ }

// AddMetaIndex counts one meta index entry in a collection.
func (c *Counts) AddMetaIndex(name string) { c.get(name).MetaIndexCount++ }

// Collections returns the counters sorted by name.
func (c *Counts) Collections() []Collection {
	out := make([]Collection, 0, len(c.byName))
	for _, col := range c.byName {
		out = append(out, *col)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Stats is the server-wide statistics snapshot.
type Stats struct {
	DatabasePath     string
	DatabaseSize     int64
	Mode             string
	Collections      []Collection
	TotalDocuments   int
	TotalRevisions   int
	TotalMetaIndices int
	Uptime           time.Duration
}

// New builds a snapshot and its totals from per-collection counters.
func New(path string, size int64, mode string, cols []Collection, uptime time.Duration) Stats {
	s := Stats{
		DatabasePath: path,
		DatabaseSize: size,
		Mode:         mode,
		Collections:  cols,
		Uptime:       uptime,
	}
	if s.Collections == nil {
		s.Collections = []Collection{}
	}
	for _, c := range cols {
		s.TotalDocuments += c.DocumentCount
		s.TotalRevisions += c.RevisionCount
		s.TotalMetaIndices += c.MetaIndexCount
	}
	return s
}
