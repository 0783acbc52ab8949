package export

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kailas-cloud/mddb/internal/domain"
)

// Format is an export encoding.
type Format string

// Export formats.
const (
	FormatNDJSON Format = "ndjson"
	FormatZip    Format = "zip"
)

// ParseFormat parses a format name. Empty means ndjson.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatNDJSON:
		return FormatNDJSON, nil
	case FormatZip:
		return FormatZip, nil
	default:
		return "", fmt.Errorf("%q: %w", s, domain.ErrUnsupportedFormat)
	}
}

// ContentType returns the HTTP media type of the format.
func (f Format) ContentType() string {
	if f == FormatZip {
		return "application/zip"
	}
	return "application/x-ndjson"
}

// FileName names a document inside a zip archive: <key>.<lang>.md.
func FileName(key, lang string) string {
	return SafeName(key) + "." + SafeName(lang) + ".md"
}

// Namer hands out unique zip entry names. Keys that map to the same SafeName
// ("a.b" and "a-b") get a numeric suffix: a-b.en.md, a-b-2.en.md.
type Namer struct {
	used map[string]struct{}
}

// NewNamer creates an empty Namer.
func NewNamer() *Namer {
	return &Namer{used: map[string]struct{}{}}
}

// Name returns FileName(key, lang) or, if taken, the first free suffixed variant.
func (n *Namer) Name(key, lang string) string {
	name := FileName(key, lang)
	base, ext := SafeName(key), "."+SafeName(lang)+".md"
	for i := 2; ; i++ {
		if _, taken := n.used[name]; !taken {
			break
		}
		name = base + "-" + strconv.Itoa(i) + ext
	}
	n.used[name] = struct{}{}
	return name
}

// SafeName maps every rune outside [A-Za-z0-9_-] to '-'.
func SafeName(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '-'
	}, s)
}
