package document

import (
	"fmt"
	"sort"
	"strings"
)

// Meta maps a metadata field to its values. Value order is significant.
type Meta map[string][]string

// Clone returns a deep copy. An empty Meta clones to nil.
func (m Meta) Clone() Meta {
	if len(m) == 0 {
		return nil
	}
	out := make(Meta, len(m))
	for k, vals := range m {
		out[k] = append([]string(nil), vals...)
	}
	return out
}

// Equal reports whether both maps hold the same keys with the same values in the same order.
func (m Meta) Equal(other Meta) bool {
	if len(m) != len(other) {
		return false
	}
	for k, a := range m {
		b, ok := other[k]
		if !ok || len(a) != len(b) {
			return false
		}
		for i := range a {
			if a[i] != b[i] {
				return false
			}
		}
	}
	return true
}

// Pair is one key/value entry of a Meta map.
type Pair struct {
	Key   string
	Value string
}

// Pairs flattens the map into key/value pairs sorted by key, values in stored order.
func (m Meta) Pairs() []Pair {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []Pair
	for _, k := range keys {
		for _, v := range m[k] {
			out = append(out, Pair{Key: k, Value: v})
		}
	}
	return out
}

// Validate rejects keys and values that would break the index key layout.
func (m Meta) Validate() error {
	for k, vals := range m {
		if k == "" {
			return fmt.Errorf("meta key is empty")
		}
		if strings.Contains(k, Separator) {
			return fmt.Errorf("meta key %q must not contain %q", k, Separator)
		}
		for _, v := range vals {
			if strings.Contains(v, Separator) {
				return fmt.Errorf("meta %s value %q must not contain %q", k, v, Separator)
			}
		}
	}
	return nil
}
