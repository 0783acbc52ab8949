package mcp

import (
	"errors"

	json "github.com/goccy/go-json"
)

// ProtocolVersion is the MCP revision announced on initialize.
const ProtocolVersion = "2024-11-05"

var (
	// ErrUnknownTool means tools/call named a tool the bridge does not have.
	ErrUnknownTool = errors.New("unknown tool")
	// ErrInvalidArguments covers undecodable tool arguments and malformed resource URIs.
	ErrInvalidArguments = errors.New("invalid arguments")
)

// Resource describes a readable URI or URI template.
type Resource struct {
	URI         string `json:"uri"`
	Name        string `json:"name"`
	Description string `json:"description"`
	MimeType    string `json:"mimeType"`
}

// Tool describes a callable tool and its JSON Schema input.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// Content is one block of a tool result. The bridge only produces text.
type Content struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ToolResult is the tools/call result. Backend failures set IsError instead of failing the call.
type ToolResult struct {
	Content []Content `json:"content"`
	IsError bool      `json:"isError,omitempty"`
}

// ResourceContents is the body of one read resource.
type ResourceContents struct {
	URI      string `json:"uri"`
	MimeType string `json:"mimeType"`
	Text     string `json:"text"`
}

// ReadResult is the resources/read result.
type ReadResult struct {
	Contents []ResourceContents `json:"contents"`
}

// ReadRequest is the resources/read params.
type ReadRequest struct {
	URI string `json:"uri"`
}

// CallRequest is the tools/call params.
type CallRequest struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

func textResult(text string) ToolResult {
	return ToolResult{Content: []Content{{Type: "text", Text: text}}}
}

func errorResult(err error) ToolResult {
	r := textResult(err.Error())
	r.IsError = true
	return r
}
