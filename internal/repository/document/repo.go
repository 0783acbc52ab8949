package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/kailas-cloud/mddb/internal/db"
	"github.com/kailas-cloud/mddb/internal/domain"
	"github.com/kailas-cloud/mddb/internal/domain/batch"
	domdoc "github.com/kailas-cloud/mddb/internal/domain/document"
)

// store is the consumer interface for documents (ISP).
type store interface {
	View(ctx context.Context, fn func(db.Tx) error) error
	Update(ctx context.Context, fn func(db.Tx) error) error
}

// Repo implements the document, search and admin repositories over a bucketed KV store.
type Repo struct {
	store store
}

// New creates a document repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Upsert stores doc and writes a revision. Returns the stored document and true if created.
func (r *Repo) Upsert(ctx context.Context, coll string, doc domdoc.Document) (domdoc.Document, bool, error) {
	var (
		stored  domdoc.Document
		created bool
	)
	err := r.store.Update(ctx, func(tx db.Tx) error {
		var err error
		stored, created, err = upsert(tx, coll, doc, true)
		return err
	})
	if err != nil {
		return domdoc.Document{}, false, fmt.Errorf("upsert %s: %w", doc.ID(), err)
	}
	return stored, created, nil
}

// UpsertMany writes all items in a single transaction.
// Per-item outcomes are returned in input order; a storage failure aborts the whole batch.
func (r *Repo) UpsertMany(ctx context.Context, coll string, items []batch.Item) ([]batch.Result, error) {
	results := make([]batch.Result, 0, len(items))
	err := r.store.Update(ctx, func(tx db.Tx) error {
		results = results[:0]
		for i := range items {
			it := &items[i]
			key, lang := it.Doc.Key(), it.Doc.Lang()
			if it.MustExist {
				if _, err := loadDoc(tx, coll, it.Doc.ID()); err != nil {
					if !errors.Is(err, domain.ErrDocumentNotFound) {
						return err
					}
					results = append(results, batch.NewError(key, lang, err))
					continue
				}
			}
			_, created, err := upsert(tx, coll, it.Doc, it.SaveRevision)
			if err != nil {
				return err
			}
			status := batch.StatusUpdated
			if created {
				status = batch.StatusAdded
			}
			results = append(results, batch.NewResult(key, lang, status))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("upsert batch %s: %w", coll, err)
	}
	return results, nil
}

func upsert(tx db.Tx, coll string, doc domdoc.Document, saveRevision bool) (domdoc.Document, bool, error) {
	prev, err := loadDoc(tx, coll, doc.ID())
	created := errors.Is(err, domain.ErrDocumentNotFound)
	if err != nil && !created {
		return domdoc.Document{}, false, err
	}

	if !created {
		doc = doc.WithAddedAt(prev.AddedAt())
	}
	if created || !prev.Meta().Equal(doc.Meta()) {
		if !created {
			if err := removeMeta(tx, coll, &prev); err != nil {
				return domdoc.Document{}, false, err
			}
		}
		for _, p := range doc.Meta().Pairs() {
			if err := tx.Put(db.BucketMeta, metaKey(coll, p.Key, p.Value, doc.ID()), []byte("1")); err != nil {
				return domdoc.Document{}, false, err
			}
		}
	}

	data, err := encode(&doc)
	if err != nil {
		return domdoc.Document{}, false, err
	}
	if err := tx.Put(db.BucketDocs, docKey(coll, doc.ID()), data); err != nil {
		return domdoc.Document{}, false, err
	}
	if err := tx.Put(db.BucketByKey, byKeyKey(coll, doc.Key(), doc.Lang()), []byte(doc.ID())); err != nil {
		return domdoc.Document{}, false, err
	}
	if saveRevision {
		if err := tx.Put(db.BucketRevs, revKey(coll, doc.ID(), doc.UpdatedAt()), data); err != nil {
			return domdoc.Document{}, false, err
		}
	}
	return doc, created, nil
}

// Get returns the document addressed by (coll, key, lang).
func (r *Repo) Get(ctx context.Context, coll, key, lang string) (domdoc.Document, error) {
	var doc domdoc.Document
	err := r.store.View(ctx, func(tx db.Tx) error {
		var err error
		doc, err = lookup(tx, coll, key, lang)
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrDocumentNotFound) {
			return domdoc.Document{}, domain.ErrDocumentNotFound
		}
		return domdoc.Document{}, fmt.Errorf("get %s/%s/%s: %w", coll, key, lang, err)
	}
	return doc, nil
}

// Delete removes a document with its index entries and revisions.
func (r *Repo) Delete(ctx context.Context, coll, key, lang string) error {
	err := r.store.Update(ctx, func(tx db.Tx) error {
		doc, err := lookup(tx, coll, key, lang)
		if err != nil {
			return err
		}
		return deleteDoc(tx, coll, &doc, key, lang)
	})
	if err != nil {
		if errors.Is(err, domain.ErrDocumentNotFound) {
			return domain.ErrDocumentNotFound
		}
		return fmt.Errorf("delete %s/%s/%s: %w", coll, key, lang, err)
	}
	return nil
}

// DeleteMany removes documents in one transaction; missing ones are reported as not_found.
func (r *Repo) DeleteMany(ctx context.Context, coll string, refs []batch.Ref) ([]batch.Result, error) {
	results := make([]batch.Result, 0, len(refs))
	err := r.store.Update(ctx, func(tx db.Tx) error {
		results = results[:0]
		for _, ref := range refs {
			doc, err := lookup(tx, coll, ref.Key, ref.Lang)
			if err != nil {
				if !errors.Is(err, domain.ErrDocumentNotFound) {
					return err
				}
				results = append(results, batch.NewError(ref.Key, ref.Lang, err))
				continue
			}
			if err := deleteDoc(tx, coll, &doc, ref.Key, ref.Lang); err != nil {
				return err
			}
			results = append(results, batch.NewResult(ref.Key, ref.Lang, batch.StatusDeleted))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("delete batch %s: %w", coll, err)
	}
	return results, nil
}

// DeleteCollection removes every entry of a collection and returns the number of documents deleted.
func (r *Repo) DeleteCollection(ctx context.Context, coll string) (int, error) {
	var deleted int
	err := r.store.Update(ctx, func(tx db.Tx) error {
		for _, target := range []struct {
			bucket string
			prefix []byte
		}{
			{db.BucketDocs, docPrefix(coll)},
			{db.BucketByKey, byKeyPrefix(coll)},
			{db.BucketMeta, metaPrefix(coll)},
			{db.BucketRevs, revPrefix(coll)},
		} {
			keys, err := collectKeys(tx, target.bucket, target.prefix)
			if err != nil {
				return err
			}
			if target.bucket == db.BucketDocs {
				deleted = len(keys)
			}
			for _, k := range keys {
				if err := tx.Delete(target.bucket, k); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("delete collection %s: %w", coll, err)
	}
	return deleted, nil
}

// List returns every document of a collection in id order.
func (r *Repo) List(ctx context.Context, coll string) ([]domdoc.Document, error) {
	var docs []domdoc.Document
	err := r.store.View(ctx, func(tx db.Tx) error {
		return tx.Scan(db.BucketDocs, docPrefix(coll), func(_, value []byte) error {
			doc, err := decode(value)
			if err != nil {
				return err
			}
			docs = append(docs, doc)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", coll, err)
	}
	return docs, nil
}

// FindByMeta returns documents matching filter through the meta index:
// any value of a key matches, every key must match. An empty filter lists the collection.
func (r *Repo) FindByMeta(ctx context.Context, coll string, filter domdoc.Meta) ([]domdoc.Document, error) {
	if len(filter) == 0 {
		return r.List(ctx, coll)
	}

	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var docs []domdoc.Document
	err := r.store.View(ctx, func(tx db.Tx) error {
		var matched map[string]struct{}
		for _, k := range keys {
			union := make(map[string]struct{})
			for _, v := range filter[k] {
				prefix := metaValuePrefix(coll, k, v)
				err := tx.Scan(db.BucketMeta, prefix, func(key, _ []byte) error {
					union[string(bytes.TrimPrefix(key, prefix))] = struct{}{}
					return nil
				})
				if err != nil {
					return err
				}
			}
			matched = intersect(matched, union)
			if len(matched) == 0 {
				return nil
			}
		}

		ids := make([]string, 0, len(matched))
		for id := range matched {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		for _, id := range ids {
			doc, err := loadDoc(tx, coll, id)
			if errors.Is(err, domain.ErrDocumentNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			docs = append(docs, doc)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("find %s by meta: %w", coll, err)
	}
	return docs, nil
}

// Truncate keeps the newest keepRevs revisions of every document in coll.
// Returns the number of revisions removed.
func (r *Repo) Truncate(ctx context.Context, coll string, keepRevs int) (int, error) {
	if keepRevs < 0 {
		return 0, fmt.Errorf("keep_revs must be >= 0: %w", domain.ErrInvalidRequest)
	}

	var removed int
	err := r.store.Update(ctx, func(tx db.Tx) error {
		byDoc := make(map[string][][]byte)
		var order []string
		err := tx.Scan(db.BucketRevs, revPrefix(coll), func(key, _ []byte) error {
			id := revOwner(coll, key)
			if _, ok := byDoc[id]; !ok {
				order = append(order, id)
			}
			byDoc[id] = append(byDoc[id], bytes.Clone(key))
			return nil
		})
		if err != nil {
			return err
		}

		// ключи ревизий отсортированы по времени, старые в начале
		for _, id := range order {
			revs := byDoc[id]
			if len(revs) <= keepRevs {
				continue
			}
			for _, k := range revs[:len(revs)-keepRevs] {
				if err := tx.Delete(db.BucketRevs, k); err != nil {
					return err
				}
				removed++
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("truncate %s: %w", coll, err)
	}
	return removed, nil
}

// Revisions returns the stored snapshots of one document, oldest first.
func (r *Repo) Revisions(ctx context.Context, coll, key, lang string) ([]domdoc.Document, error) {
	var revs []domdoc.Document
	err := r.store.View(ctx, func(tx db.Tx) error {
		doc, err := lookup(tx, coll, key, lang)
		if err != nil {
			return err
		}
		return tx.Scan(db.BucketRevs, revDocPrefix(coll, doc.ID()), func(_, value []byte) error {
			rev, err := decode(value)
			if err != nil {
				return err
			}
			revs = append(revs, rev)
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, domain.ErrDocumentNotFound) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("revisions %s/%s/%s: %w", coll, key, lang, err)
	}
	return revs, nil
}

// lookup resolves the bykey index and falls back to the derived id.
func lookup(tx db.Tx, coll, key, lang string) (domdoc.Document, error) {
	id, err := tx.Get(db.BucketByKey, byKeyKey(coll, key, lang))
	switch {
	case errors.Is(err, db.ErrKeyNotFound):
		return loadDoc(tx, coll, domdoc.GenID(coll, key, lang))
	case err != nil:
		return domdoc.Document{}, err
	}
	return loadDoc(tx, coll, string(id))
}

func loadDoc(tx db.Tx, coll, id string) (domdoc.Document, error) {
	data, err := tx.Get(db.BucketDocs, docKey(coll, id))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domdoc.Document{}, domain.ErrDocumentNotFound
		}
		return domdoc.Document{}, err
	}
	return decode(data)
}

func deleteDoc(tx db.Tx, coll string, doc *domdoc.Document, key, lang string) error {
	if err := tx.Delete(db.BucketDocs, docKey(coll, doc.ID())); err != nil {
		return err
	}
	if err := tx.Delete(db.BucketByKey, byKeyKey(coll, doc.Key(), doc.Lang())); err != nil {
		return err
	}
	if err := tx.Delete(db.BucketByKey, byKeyKey(coll, key, lang)); err != nil {
		return err
	}
	if err := removeMeta(tx, coll, doc); err != nil {
		return err
	}
	revs, err := collectKeys(tx, db.BucketRevs, revDocPrefix(coll, doc.ID()))
	if err != nil {
		return err
	}
	for _, k := range revs {
		if err := tx.Delete(db.BucketRevs, k); err != nil {
			return err
		}
	}
	return nil
}

func removeMeta(tx db.Tx, coll string, doc *domdoc.Document) error {
	for _, p := range doc.Meta().Pairs() {
		if err := tx.Delete(db.BucketMeta, metaKey(coll, p.Key, p.Value, doc.ID())); err != nil {
			return err
		}
	}
	return nil
}

// collectKeys gathers keys first; a scan callback must not modify its bucket.
func collectKeys(tx db.Tx, bucket string, prefix []byte) ([][]byte, error) {
	var keys [][]byte
	err := tx.Scan(bucket, prefix, func(key, _ []byte) error {
		keys = append(keys, bytes.Clone(key))
		return nil
	})
	return keys, err
}

func intersect(acc, next map[string]struct{}) map[string]struct{} {
	if acc == nil {
		return next
	}
	for id := range acc {
		if _, ok := next[id]; !ok {
			delete(acc, id)
		}
	}
	return acc
}
