package mcp

import json "github.com/goccy/go-json"

var resources = []Resource{
	{
		URI:         "mddb://health",
		Name:        "MDDB Health",
		Description: "Health status of the MDDB server",
		MimeType:    "application/json",
	},
	{
		URI:         "mddb://stats",
		Name:        "MDDB Statistics",
		Description: "Server and per-collection statistics",
		MimeType:    "application/json",
	},
	{
		URI:         "mddb://{collection}/{key}?lang={lang}",
		Name:        "MDDB Document",
		Description: "Markdown of one document. env.<name>=<value> query parameters fill %%name%% placeholders",
		MimeType:    "text/markdown",
	},
	{
		URI:         "mddb-search://{collection}",
		Name:        "MDDB Search",
		Description: "Search a collection. Query: meta.<key>=<value>, sort, asc, limit, offset",
		MimeType:    "application/json",
	},
}

const (
	refProps = `"collection":{"type":"string"},"key":{"type":"string"},"lang":{"type":"string"}`
	metaProp = `"meta":{"type":"object","additionalProperties":{"type":["string","array"],"items":{"type":"string"}}}`
)

var tools = []Tool{
	{
		Name:        "add_document",
		Description: "Add or replace a markdown document",
		InputSchema: schema(`{"type":"object","properties":{` + refProps + `,"content_md":{"type":"string"},` + metaProp + `},` +
			`"required":["collection","key","lang","content_md"]}`),
	},
	{
		Name:        "get_document",
		Description: "Get a document; env values fill %%name%% placeholders in its content",
		InputSchema: schema(`{"type":"object","properties":{` + refProps + `,"env":{"type":"object","additionalProperties":{"type":"string"}}},` +
			`"required":["collection","key","lang"]}`),
	},
	{
		Name:        "delete_document",
		Description: "Delete a document with its revisions",
		InputSchema: schema(`{"type":"object","properties":{` + refProps + `},"required":["collection","key","lang"]}`),
	},
	{
		Name:        "list_revisions",
		Description: "List stored revisions of a document, oldest first",
		InputSchema: schema(`{"type":"object","properties":{` + refProps + `},"required":["collection","key","lang"]}`),
	},
	{
		Name:        "search_documents",
		Description: "Search a collection by metadata. AND over keys, OR over the values of one key",
		InputSchema: schema(`{"type":"object","properties":{"collection":{"type":"string"},` +
			`"filter_meta":{"type":"object","additionalProperties":{"type":["string","array"],"items":{"type":"string"}}},` +
			`"sort":{"type":"string","enum":["addedAt","updatedAt","key"]},"asc":{"type":"boolean"},` +
			`"limit":{"type":"integer","minimum":0},"offset":{"type":"integer","minimum":0}},"required":["collection"]}`),
	},
	{
		Name:        "export_documents",
		Description: "Export matching documents as NDJSON text",
		InputSchema: schema(`{"type":"object","properties":{"collection":{"type":"string"},` +
			`"filter_meta":{"type":"object","additionalProperties":{"type":["string","array"],"items":{"type":"string"}}}},` +
			`"required":["collection"]}`),
	},
	{
		Name:        "add_documents_batch",
		Description: "Add or replace many documents of one collection",
		InputSchema: schema(`{"type":"object","properties":{"collection":{"type":"string"},"documents":{"type":"array","items":` +
			`{"type":"object","properties":{"key":{"type":"string"},"lang":{"type":"string"},"content_md":{"type":"string"},` + metaProp + `},` +
			`"required":["key","lang","content_md"]}}},"required":["collection","documents"]}`),
	},
	{
		Name:        "delete_documents_batch",
		Description: "Delete many documents of one collection",
		InputSchema: schema(`{"type":"object","properties":{"collection":{"type":"string"},"documents":{"type":"array","items":` +
			`{"type":"object","properties":{"key":{"type":"string"},"lang":{"type":"string"}},"required":["key","lang"]}}},` +
			`"required":["collection","documents"]}`),
	},
	{
		Name:        "get_stats",
		Description: "Get server and per-collection statistics",
		InputSchema: schema(`{"type":"object","properties":{}}`),
	},
	{
		Name:        "create_backup",
		Description: "Write a database snapshot on the server",
		InputSchema: schema(`{"type":"object","properties":{"to":{"type":"string"}}}`),
	},
	{
		Name:        "restore_backup",
		Description: "Replace the server database with a snapshot",
		InputSchema: schema(`{"type":"object","properties":{"from":{"type":"string"}},"required":["from"]}`),
	},
}

// schema panics on malformed literals.
func schema(s string) json.RawMessage {
	if !json.Valid([]byte(s)) {
		panic("mcp: invalid input schema: " + s)
	}
	return json.RawMessage(s)
}
