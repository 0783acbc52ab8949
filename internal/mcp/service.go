package mcp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	mddb "github.com/kailas-cloud/mddb/pkg/sdk"
)

// maxExportBytes caps export_documents output; the tool result is a single text block.
const maxExportBytes = 4 << 20

type toolFunc func(ctx context.Context, args json.RawMessage) (string, error)

// Service maps MCP tools and resources onto MDDB calls.
type Service struct {
	backend Backend
	logger  *zap.Logger
	tools   map[string]toolFunc
}

// NewService creates the bridge service.
func NewService(backend Backend, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{backend: backend, logger: logger}
	s.tools = map[string]toolFunc{
		"add_document":           s.addDocument,
		"get_document":           s.getDocument,
		"delete_document":        s.deleteDocument,
		"list_revisions":         s.listRevisions,
		"search_documents":       s.searchDocuments,
		"export_documents":       s.exportDocuments,
		"add_documents_batch":    s.addBatch,
		"delete_documents_batch": s.deleteBatch,
		"get_stats":              s.getStats,
		"create_backup":          s.createBackup,
		"restore_backup":         s.restoreBackup,
	}
	return s
}

// Tools lists the callable tools.
func (s *Service) Tools() []Tool { return tools }

// Resources lists the readable resources.
func (s *Service) Resources() []Resource { return resources }

// Health reports the health of the MDDB server behind the bridge.
func (s *Service) Health(ctx context.Context) (mddb.HealthStatus, error) {
	return s.backend.Health(ctx)
}

// CallTool runs one tool. Unknown tools and undecodable arguments are errors;
// a failing MDDB call is reported in the result with IsError set.
func (s *Service) CallTool(ctx context.Context, name string, args json.RawMessage) (ToolResult, error) {
	fn, ok := s.tools[name]
	if !ok {
		return ToolResult{}, fmt.Errorf("%s: %w", name, ErrUnknownTool)
	}
	text, err := fn(ctx, args)
	if err != nil {
		if isArgError(err) {
			return ToolResult{}, err
		}
		s.logger.Debug("Tool call failed", zap.String("tool", name), zap.Error(err))
		return errorResult(err), nil
	}
	return textResult(text), nil
}

// --- argument types ---

// metaArg accepts {"k": "v"} as well as {"k": ["v1", "v2"]}.
type metaArg map[string][]string

func (m *metaArg) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(metaArg, len(raw))
	for k, v := range raw {
		var one string
		if err := json.Unmarshal(v, &one); err == nil {
			out[k] = []string{one}
			continue
		}
		var many []string
		if err := json.Unmarshal(v, &many); err != nil {
			return fmt.Errorf("meta %q: want a string or an array of strings", k)
		}
		out[k] = many
	}
	*m = out
	return nil
}

type refArgs struct {
	Collection string `json:"collection"`
	Key        string `json:"key"`
	Lang       string `json:"lang"`
}

type addArgs struct {
	refArgs
	ContentMD string  `json:"content_md"`
	Meta      metaArg `json:"meta"`
}

type getArgs struct {
	refArgs
	Env map[string]string `json:"env"`
}

type searchArgs struct {
	Collection string  `json:"collection"`
	FilterMeta metaArg `json:"filter_meta"`
	Sort       string  `json:"sort"`
	Asc        bool    `json:"asc"`
	Limit      int     `json:"limit"`
	Offset     int     `json:"offset"`
}

type batchArgs struct {
	Collection string `json:"collection"`
	Documents  []struct {
		Key       string  `json:"key"`
		Lang      string  `json:"lang"`
		ContentMD string  `json:"content_md"`
		Meta      metaArg `json:"meta"`
	} `json:"documents"`
}

type argError struct{ err error }

func (e *argError) Error() string { return e.err.Error() }
func (e *argError) Unwrap() error { return ErrInvalidArguments }

func isArgError(err error) bool {
	var ae *argError
	return errors.As(err, &ae)
}

func decodeArgs(args json.RawMessage, v any) error {
	if len(bytes.TrimSpace(args)) == 0 || bytes.Equal(bytes.TrimSpace(args), []byte("null")) {
		args = json.RawMessage("{}")
	}
	if err := json.Unmarshal(args, v); err != nil {
		return &argError{err: fmt.Errorf("decode arguments: %w", err)}
	}
	return nil
}

func pretty(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode result: %w", err)
	}
	return string(data), nil
}

// --- tools ---

func (s *Service) addDocument(ctx context.Context, raw json.RawMessage) (string, error) {
	var a addArgs
	if err := decodeArgs(raw, &a); err != nil {
		return "", err
	}
	doc, err := s.backend.Add(ctx, a.Collection, a.Key, a.Lang, a.Meta, a.ContentMD)
	if err != nil {
		return "", err
	}
	return pretty(doc)
}

func (s *Service) getDocument(ctx context.Context, raw json.RawMessage) (string, error) {
	var a getArgs
	if err := decodeArgs(raw, &a); err != nil {
		return "", err
	}
	doc, err := s.backend.Get(ctx, a.Collection, a.Key, a.Lang, a.Env)
	if err != nil {
		return "", err
	}
	return pretty(doc)
}

func (s *Service) deleteDocument(ctx context.Context, raw json.RawMessage) (string, error) {
	var a refArgs
	if err := decodeArgs(raw, &a); err != nil {
		return "", err
	}
	if err := s.backend.Delete(ctx, a.Collection, a.Key, a.Lang); err != nil {
		return "", err
	}
	return fmt.Sprintf("deleted %s/%s (%s)", a.Collection, a.Key, a.Lang), nil
}

func (s *Service) listRevisions(ctx context.Context, raw json.RawMessage) (string, error) {
	var a refArgs
	if err := decodeArgs(raw, &a); err != nil {
		return "", err
	}
	revs, err := s.backend.Revisions(ctx, a.Collection, a.Key, a.Lang)
	if err != nil {
		return "", err
	}
	return pretty(revs)
}

func (s *Service) searchDocuments(ctx context.Context, raw json.RawMessage) (string, error) {
	var a searchArgs
	if err := decodeArgs(raw, &a); err != nil {
		return "", err
	}
	res, err := s.backend.Search(ctx, mddb.SearchRequest{
		Collection: a.Collection,
		FilterMeta: a.FilterMeta,
		Sort:       a.Sort,
		Asc:        a.Asc,
		Limit:      a.Limit,
		Offset:     a.Offset,
	})
	if err != nil {
		return "", err
	}
	return pretty(res)
}

func (s *Service) exportDocuments(ctx context.Context, raw json.RawMessage) (string, error) {
	var a searchArgs
	if err := decodeArgs(raw, &a); err != nil {
		return "", err
	}
	rc, err := s.backend.Export(ctx, mddb.ExportRequest{
		Collection: a.Collection,
		FilterMeta: a.FilterMeta,
		Format:     mddb.FormatNDJSON,
	})
	if err != nil {
		return "", err
	}
	defer func() { _ = rc.Close() }()

	data, err := io.ReadAll(io.LimitReader(rc, maxExportBytes+1))
	if err != nil {
		return "", fmt.Errorf("read export: %w", err)
	}
	if len(data) > maxExportBytes {
		// режем по последней целой строке
		data = data[:bytes.LastIndexByte(data[:maxExportBytes], '\n')+1]
		return string(data) + fmt.Sprintf("... truncated at %d bytes, use search_documents with offset\n", len(data)), nil
	}
	return string(data), nil
}

func (s *Service) addBatch(ctx context.Context, raw json.RawMessage) (string, error) {
	var a batchArgs
	if err := decodeArgs(raw, &a); err != nil {
		return "", err
	}
	docs := make([]mddb.BatchDocument, len(a.Documents))
	for i, d := range a.Documents {
		docs[i] = mddb.BatchDocument{Key: d.Key, Lang: d.Lang, ContentMD: d.ContentMD, Meta: d.Meta}
	}
	res, err := s.backend.AddBatch(ctx, a.Collection, docs)
	if err != nil {
		return "", err
	}
	return pretty(res)
}

func (s *Service) deleteBatch(ctx context.Context, raw json.RawMessage) (string, error) {
	var a batchArgs
	if err := decodeArgs(raw, &a); err != nil {
		return "", err
	}
	keys := make([]mddb.BatchKey, len(a.Documents))
	for i, d := range a.Documents {
		keys[i] = mddb.BatchKey{Key: d.Key, Lang: d.Lang}
	}
	res, err := s.backend.DeleteBatch(ctx, a.Collection, keys)
	if err != nil {
		return "", err
	}
	return pretty(res)
}

func (s *Service) getStats(ctx context.Context, _ json.RawMessage) (string, error) {
	st, err := s.backend.Stats(ctx)
	if err != nil {
		return "", err
	}
	return pretty(st)
}

func (s *Service) createBackup(ctx context.Context, raw json.RawMessage) (string, error) {
	var a struct {
		To string `json:"to"`
	}
	if err := decodeArgs(raw, &a); err != nil {
		return "", err
	}
	res, err := s.backend.Backup(ctx, a.To)
	if err != nil {
		return "", err
	}
	return "backup written to " + res.Backup, nil
}

func (s *Service) restoreBackup(ctx context.Context, raw json.RawMessage) (string, error) {
	var a struct {
		From string `json:"from"`
	}
	if err := decodeArgs(raw, &a); err != nil {
		return "", err
	}
	path, err := s.backend.Restore(ctx, a.From)
	if err != nil {
		return "", err
	}
	return "database restored from " + path, nil
}
