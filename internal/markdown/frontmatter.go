// Package markdown turns markdown files with YAML frontmatter into MDDB documents.
package markdown

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrUnclosedFrontmatter is returned when the opening "---" has no closing delimiter.
var ErrUnclosedFrontmatter = errors.New("frontmatter started but no closing delimiter found")

// File is a parsed markdown source.
type File struct {
	Meta map[string][]string
	Body string
}

// Parse splits data into frontmatter and body. Files without frontmatter have empty meta.
func Parse(data []byte) (File, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	f := File{Meta: map[string][]string{}}

	var rest []byte
	switch {
	case bytes.HasPrefix(data, []byte("---\n")):
		rest = data[4:]
	case bytes.HasPrefix(data, []byte("---\r\n")):
		rest = data[5:]
	default:
		f.Body = string(data)
		return f, nil
	}

	head, body, ok := cutDelimiter(rest)
	if !ok {
		return File{}, ErrUnclosedFrontmatter
	}

	var raw map[string]any
	if err := yaml.Unmarshal(head, &raw); err != nil {
		return File{}, fmt.Errorf("invalid frontmatter: %w", err)
	}
	for k, v := range raw {
		flatten(f.Meta, k, v)
	}
	f.Body = string(body)
	return f, nil
}

// cutDelimiter finds the closing "---" line.
func cutDelimiter(rest []byte) (head, body []byte, ok bool) {
	if bytes.HasPrefix(rest, []byte("---")) {
		return nil, skipLine(rest[3:]), true
	}
	for _, sep := range [][]byte{[]byte("\n---\n"), []byte("\r\n---\r\n"), []byte("\n---\r\n")} {
		if i := bytes.Index(rest, sep); i >= 0 {
			return rest[:i], rest[i+len(sep):], true
		}
	}
	// closing delimiter at EOF
	for _, sep := range [][]byte{[]byte("\n---"), []byte("\r\n---")} {
		if bytes.HasSuffix(rest, sep) {
			return rest[:len(rest)-len(sep)], nil, true
		}
	}
	return nil, nil, false
}

func skipLine(b []byte) []byte {
	if i := bytes.IndexByte(b, '\n'); i >= 0 {
		return b[i+1:]
	}
	return nil
}

// flatten maps a YAML value onto string lists. Nested maps become dotted keys; nulls are dropped.
func flatten(dst map[string][]string, key string, v any) {
	switch val := v.(type) {
	case nil:
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			flatten(dst, key+"."+k, val[k])
		}
	case []any:
		for _, item := range val {
			if s, ok := scalar(item); ok {
				dst[key] = append(dst[key], s)
			}
		}
	default:
		if s, ok := scalar(val); ok {
			dst[key] = append(dst[key], s)
		}
	}
}

func scalar(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case bool:
		return strconv.FormatBool(val), true
	case int:
		return strconv.Itoa(val), true
	case int64:
		return strconv.FormatInt(val, 10), true
	case uint64:
		return strconv.FormatUint(val, 10), true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case time.Time:
		if val.Hour() == 0 && val.Minute() == 0 && val.Second() == 0 && val.Nanosecond() == 0 {
			return val.Format(time.DateOnly), true
		}
		return val.Format(time.RFC3339), true
	default:
		return "", false
	}
}

var langSuffix = regexp.MustCompile(`^[a-z]{2,3}(-[A-Za-z]{2,4})?$`)

// KeyLang derives a document key and language from a file path:
// "guide/intro.en.md" -> ("intro", "en"), "intro.md" -> ("intro", fallback).
func KeyLang(path, fallback string) (key, lang string) {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	if i := strings.LastIndexByte(name, '.'); i > 0 && langSuffix.MatchString(name[i+1:]) {
		return name[:i], name[i+1:]
	}
	return name, fallback
}
