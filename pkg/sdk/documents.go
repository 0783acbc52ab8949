package mddb

import (
	"context"
	"net/http"
)

// Add creates or replaces the document (collection, key, lang) and returns the stored version.
func (c *Client) Add(
	ctx context.Context, collection, key, lang string, meta map[string][]string, contentMD string,
) (Document, error) {
	var doc Document
	err := c.call(ctx, "add", http.MethodPost, "/v1/add", addRequest{
		Collection: collection,
		Key:        key,
		Lang:       lang,
		Meta:       meta,
		ContentMD:  contentMD,
	}, &doc)
	return doc, err
}

// Get returns a document. Each %%name%% in its content is replaced by env[name].
func (c *Client) Get(ctx context.Context, collection, key, lang string, env map[string]string) (Document, error) {
	var doc Document
	err := c.call(ctx, "get", http.MethodPost, "/v1/get", getRequest{
		Collection: collection,
		Key:        key,
		Lang:       lang,
		Env:        env,
	}, &doc)
	return doc, err
}

// Delete removes a document with its revisions and index entries.
func (c *Client) Delete(ctx context.Context, collection, key, lang string) error {
	return c.call(ctx, "delete", http.MethodPost, "/v1/delete",
		refRequest{Collection: collection, Key: key, Lang: lang}, nil)
}

// DeleteCollection removes every document of a collection and returns how many were deleted.
func (c *Client) DeleteCollection(ctx context.Context, collection string) (int, error) {
	var resp struct {
		DeletedCount int `json:"deleted_count"`
	}
	err := c.call(ctx, "delete_collection", http.MethodPost, "/v1/delete-collection",
		collectionRequest{Collection: collection}, &resp)
	return resp.DeletedCount, err
}

// Revisions returns the stored snapshots of a document, oldest first.
func (c *Client) Revisions(ctx context.Context, collection, key, lang string) ([]Document, error) {
	var resp struct {
		Revisions []Document `json:"revisions"`
	}
	err := c.call(ctx, "revisions", http.MethodPost, "/v1/revisions",
		refRequest{Collection: collection, Key: key, Lang: lang}, &resp)
	return resp.Revisions, err
}
