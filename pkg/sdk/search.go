package mddb

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Search returns one page of documents matching the metadata filter.
func (c *Client) Search(ctx context.Context, req SearchRequest) (SearchResult, error) {
	var res SearchResult
	err := c.call(ctx, "search", http.MethodPost, "/v1/search", req, &res)
	return res, err
}

// Export streams every match in the requested format (ndjson by default).
// The client timeout covers only the wait for response headers; the body is
// bounded by ctx alone. The caller must close the returned reader.
func (c *Client) Export(ctx context.Context, req ExportRequest) (_ io.ReadCloser, err error) {
	start := time.Now()
	defer func() { c.obs.observe("export", start, err) }()

	path := "/v1/export"
	if req.Format != "" {
		path += "?format=" + url.QueryEscape(req.Format)
	}

	ctx, cancel := context.WithCancel(ctx)
	var timer *time.Timer
	if c.timeout > 0 {
		timer = time.AfterFunc(c.timeout, cancel)
	}
	resp, err := c.send(ctx, http.MethodPost, path, req)
	if timer != nil && !timer.Stop() {
		// таймер успел сработать, тело уже не прочитать
		if err == nil {
			_ = resp.Body.Close()
		}
		err = fmt.Errorf("waiting for response headers: %w", context.DeadlineExceeded)
	}
	if err != nil {
		cancel()
		return nil, fmt.Errorf("export: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer cancel()
		defer func() { _ = resp.Body.Close() }()
		return nil, fmt.Errorf("export: %w", decodeError(resp))
	}
	return &streamBody{ReadCloser: resp.Body, cancel: cancel}, nil
}

// streamBody releases the request context when the body is closed.
type streamBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *streamBody) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}
