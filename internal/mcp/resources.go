package mcp

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"

	mddb "github.com/kailas-cloud/mddb/pkg/sdk"
)

// DefaultLang is used by document URIs without ?lang=.
const DefaultLang = "en_US"

// ReadResource resolves one resource URI:
//
//	mddb://health
//	mddb://stats
//	mddb://{collection}/{key}?lang={lang}&env.{name}={value}
//	mddb-search://{collection}?meta.{key}={value}&sort=&asc=&limit=&offset=
func (s *Service) ReadResource(ctx context.Context, uri string) (ReadResult, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return ReadResult{}, &argError{err: fmt.Errorf("parse uri: %w", err)}
	}
	// mddb://notes/home: host is the collection, path the key
	path := strings.Trim(u.Host+u.Path, "/")

	switch u.Scheme {
	case "mddb":
		switch path {
		case "health":
			hs, err := s.backend.Health(ctx)
			if err != nil {
				return ReadResult{}, err
			}
			return jsonContents(uri, hs)
		case "stats":
			st, err := s.backend.Stats(ctx)
			if err != nil {
				return ReadResult{}, err
			}
			return jsonContents(uri, st)
		}
		return s.readDocument(ctx, uri, path, u.Query())
	case "mddb-search":
		return s.readSearch(ctx, uri, path, u.Query())
	default:
		return ReadResult{}, &argError{err: fmt.Errorf("unsupported uri scheme %q", u.Scheme)}
	}
}

func (s *Service) readDocument(ctx context.Context, uri, path string, q url.Values) (ReadResult, error) {
	coll, key, ok := strings.Cut(path, "/")
	if !ok || coll == "" || key == "" || strings.Contains(key, "/") {
		return ReadResult{}, &argError{err: fmt.Errorf("document uri must be mddb://{collection}/{key}, got %q", uri)}
	}
	lang := q.Get("lang")
	if lang == "" {
		lang = DefaultLang
	}
	env := make(map[string]string)
	for k, v := range q {
		if name, ok := strings.CutPrefix(k, "env."); ok && len(v) > 0 {
			env[name] = v[0]
		}
	}

	doc, err := s.backend.Get(ctx, coll, key, lang, env)
	if err != nil {
		return ReadResult{}, err
	}
	return ReadResult{Contents: []ResourceContents{{URI: uri, MimeType: "text/markdown", Text: doc.ContentMD}}}, nil
}

func (s *Service) readSearch(ctx context.Context, uri, coll string, q url.Values) (ReadResult, error) {
	if coll == "" || strings.Contains(coll, "/") {
		return ReadResult{}, &argError{err: fmt.Errorf("search uri must be mddb-search://{collection}, got %q", uri)}
	}
	req := mddb.SearchRequest{Collection: coll, Sort: q.Get("sort")}
	for k, v := range q {
		if key, ok := strings.CutPrefix(k, "meta."); ok {
			if req.FilterMeta == nil {
				req.FilterMeta = make(map[string][]string)
			}
			req.FilterMeta[key] = v
		}
	}
	var err error
	if req.Asc, err = boolParam(q, "asc"); err != nil {
		return ReadResult{}, err
	}
	if req.Limit, err = intParam(q, "limit"); err != nil {
		return ReadResult{}, err
	}
	if req.Offset, err = intParam(q, "offset"); err != nil {
		return ReadResult{}, err
	}

	res, err := s.backend.Search(ctx, req)
	if err != nil {
		return ReadResult{}, err
	}
	return jsonContents(uri, res)
}

func intParam(q url.Values, name string) (int, error) {
	v := q.Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, &argError{err: fmt.Errorf("%s must be a non-negative integer, got %q", name, v)}
	}
	return n, nil
}

func boolParam(q url.Values, name string) (bool, error) {
	v := q.Get(name)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, &argError{err: fmt.Errorf("%s must be a boolean, got %q", name, v)}
	}
	return b, nil
}

func jsonContents(uri string, v any) (ReadResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return ReadResult{}, fmt.Errorf("encode %s: %w", uri, err)
	}
	return ReadResult{Contents: []ResourceContents{{URI: uri, MimeType: "application/json", Text: string(data)}}}, nil
}
