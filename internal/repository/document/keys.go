package document

import (
	"fmt"
	"strings"

	domdoc "github.com/kailas-cloud/mddb/internal/domain/document"
)

const sep = domdoc.Separator

func join(parts ...string) []byte {
	return []byte(strings.Join(parts, sep))
}

// doc|<coll>|<id>
func docKey(coll, id string) []byte { return join("doc", coll, id) }

func docPrefix(coll string) []byte { return join("doc", coll, "") }

// meta|<coll>|<mkey>|<mval>|<id>
func metaKey(coll, mk, mv, id string) []byte { return join("meta", coll, mk, mv, id) }

func metaValuePrefix(coll, mk, mv string) []byte { return join("meta", coll, mk, mv, "") }

func metaPrefix(coll string) []byte { return join("meta", coll, "") }

// rev|<coll>|<id>|<ts>, ts zero-padded so keys sort by time.
func revKey(coll, id string, ts int64) []byte {
	return join("rev", coll, id, fmt.Sprintf("%020d", ts))
}

func revDocPrefix(coll, id string) []byte { return join("rev", coll, id, "") }

func revPrefix(coll string) []byte { return join("rev", coll, "") }

// bykey|<coll>|<key>|<lang>
func byKeyKey(coll, key, lang string) []byte { return join("bykey", coll, key, lang) }

func byKeyPrefix(coll string) []byte { return join("bykey", coll, "") }

// revOwner extracts the document id from a revision key under revPrefix(coll).
func revOwner(coll string, key []byte) string {
	rest := strings.TrimPrefix(string(key), string(revPrefix(coll)))
	if i := strings.LastIndex(rest, sep); i >= 0 {
		return rest[:i]
	}
	return rest
}
