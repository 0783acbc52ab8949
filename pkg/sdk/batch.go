package mddb

import (
	"context"
	"net/http"
)

// AddBatch upserts documents in one server-side transaction.
func (c *Client) AddBatch(ctx context.Context, collection string, docs []BatchDocument) (BatchResult, error) {
	var res BatchResult
	err := c.call(ctx, "add_batch", http.MethodPost, "/v1/add-batch",
		batchRequest{Collection: collection, Documents: docs}, &res)
	return res, err
}

// UpdateBatch overwrites existing documents; unknown ones are reported as not_found.
func (c *Client) UpdateBatch(ctx context.Context, collection string, docs []BatchDocument) (BatchResult, error) {
	var res BatchResult
	err := c.call(ctx, "update_batch", http.MethodPost, "/v1/update-batch",
		batchRequest{Collection: collection, Documents: docs}, &res)
	return res, err
}

// DeleteBatch removes documents by key; unknown ones are reported as not_found.
func (c *Client) DeleteBatch(ctx context.Context, collection string, keys []BatchKey) (BatchResult, error) {
	var res BatchResult
	err := c.call(ctx, "delete_batch", http.MethodPost, "/v1/delete-batch",
		batchDeleteRequest{Collection: collection, Keys: keys}, &res)
	return res, err
}
