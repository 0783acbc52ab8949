package document

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/mddb/internal/domain"
)

// Separator joins the parts of identifiers and storage keys.
const Separator = "|"

// Document is a markdown document within a collection (immutable value object).
type Document struct {
	id        string
	key       string
	lang      string
	meta      Meta
	contentMD string
	addedAt   int64
	updatedAt int64
}

// New validates and creates a Document written at now (unix seconds).
// collection, key and lang are required and must not contain the separator.
// addedAt starts equal to updatedAt; storage keeps the original on upsert.
func New(collection, key, lang string, meta Meta, contentMD string, now int64) (Document, error) {
	if err := ValidateRef(collection, key, lang); err != nil {
		return Document{}, err
	}
	if err := meta.Validate(); err != nil {
		return Document{}, fmt.Errorf("%w: %w", domain.ErrInvalidDocument, err)
	}
	return Document{
		id:        GenID(collection, key, lang),
		key:       key,
		lang:      lang,
		meta:      meta.Clone(),
		contentMD: contentMD,
		addedAt:   now,
		updatedAt: now,
	}, nil
}

// Reconstruct creates a Document without validation (storage hydration).
func Reconstruct(id, key, lang string, meta Meta, contentMD string, addedAt, updatedAt int64) Document {
	return Document{
		id: id, key: key, lang: lang, meta: meta, contentMD: contentMD,
		addedAt: addedAt, updatedAt: updatedAt,
	}
}

// ValidateRef checks the (collection, key, lang) triple addressing a document.
func ValidateRef(collection, key, lang string) error {
	for _, p := range []struct{ name, value string }{
		{"collection", collection}, {"key", key}, {"lang", lang},
	} {
		if p.value == "" {
			return fmt.Errorf("%s is required: %w", p.name, domain.ErrInvalidDocument)
		}
		if strings.Contains(p.value, Separator) {
			return fmt.Errorf("%s must not contain %q: %w", p.name, Separator, domain.ErrInvalidDocument)
		}
	}
	return nil
}

// GenID derives the deterministic document ID: lowercase parts joined by the separator.
// Only ASCII letters are folded.
func GenID(collection, key, lang string) string {
	parts := [3]string{collection, key, lang}
	var b strings.Builder
	b.Grow(len(collection) + len(key) + len(lang) + 2)
	for i, part := range parts {
		if i > 0 {
			b.WriteString(Separator)
		}
		for j := 0; j < len(part); j++ {
			c := part[j]
			if c >= 'A' && c <= 'Z' {
				c += 'a' - 'A'
			}
			b.WriteByte(c)
		}
	}
	return b.String()
}

// ID returns the deterministic document identifier.
func (d Document) ID() string { return d.id }

// Key returns the document key.
func (d Document) Key() string { return d.key }

// Lang returns the language code.
func (d Document) Lang() string { return d.lang }

// Meta returns the metadata map.
func (d Document) Meta() Meta { return d.meta }

// ContentMD returns the raw markdown.
func (d Document) ContentMD() string { return d.contentMD }

// AddedAt returns the first insert time in unix seconds.
func (d Document) AddedAt() int64 { return d.addedAt }

// UpdatedAt returns the last write time in unix seconds.
func (d Document) UpdatedAt() int64 { return d.updatedAt }

// WithAddedAt returns a copy carrying the original insert time.
func (d Document) WithAddedAt(addedAt int64) Document {
	if addedAt > 0 {
		d.addedAt = addedAt
	}
	return d
}

// Render returns a copy with every %%name%% placeholder replaced by env[name].
// Placeholders without a matching entry are left untouched.
func (d Document) Render(env map[string]string) Document {
	if len(env) == 0 || d.contentMD == "" {
		return d
	}
	pairs := make([]string, 0, len(env)*2)
	for k, v := range env {
		pairs = append(pairs, "%%"+k+"%%", v)
	}
	d.contentMD = strings.NewReplacer(pairs...).Replace(d.contentMD)
	return d
}
