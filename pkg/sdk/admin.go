package mddb

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	json "github.com/goccy/go-json"
)

// Stats returns server-wide statistics.
func (c *Client) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := c.call(ctx, "stats", http.MethodGet, "/v1/stats", nil, &st)
	return st, err
}

// Backup writes a database snapshot on the server. An empty to picks backup-<unix>.db.
func (c *Client) Backup(ctx context.Context, to string) (BackupResult, error) {
	path := "/v1/backup"
	if to != "" {
		path += "?to=" + url.QueryEscape(to)
	}
	var res BackupResult
	err := c.call(ctx, "backup", http.MethodPost, path, nil, &res)
	return res, err
}

// Restore replaces the server database with a snapshot and returns its path.
func (c *Client) Restore(ctx context.Context, from string) (string, error) {
	var resp struct {
		Restored string `json:"restored"`
	}
	err := c.call(ctx, "restore", http.MethodPost, "/v1/restore",
		struct {
			From string `json:"from"`
		}{From: from}, &resp)
	return resp.Restored, err
}

// Truncate keeps the newest keepRevs revisions per document and returns how many were removed.
func (c *Client) Truncate(ctx context.Context, collection string, keepRevs int, dropCache bool) (int, error) {
	var resp struct {
		Removed int `json:"removed"`
	}
	err := c.call(ctx, "truncate", http.MethodPost, "/v1/truncate", truncateRequest{
		Collection: collection,
		KeepRevs:   keepRevs,
		DropCache:  dropCache,
	}, &resp)
	return resp.Removed, err
}

// Health reports server health. A 503 still carries a status body and is not an error.
func (c *Client) Health(ctx context.Context) (_ HealthStatus, err error) {
	start := time.Now()
	defer func() { c.obs.observe("health", start, err) }()

	hs, err := c.health(ctx)
	if err != nil {
		return HealthStatus{}, fmt.Errorf("health: %w", err)
	}
	return hs, nil
}

func (c *Client) health(ctx context.Context) (HealthStatus, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.send(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return HealthStatus{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusServiceUnavailable {
		return HealthStatus{}, decodeError(resp)
	}
	var hs HealthStatus
	if err := json.NewDecoder(resp.Body).Decode(&hs); err != nil {
		return HealthStatus{}, fmt.Errorf("decode health: %w", err)
	}
	return hs, nil
}
