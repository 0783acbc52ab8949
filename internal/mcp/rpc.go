package mcp

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	mddb "github.com/kailas-cloud/mddb/pkg/sdk"
)

// JSON-RPC 2.0 error codes. -32002 is the MCP code for a missing resource.
const (
	CodeParseError       = -32700
	CodeInvalidRequest   = -32600
	CodeMethodNotFound   = -32601
	CodeInvalidParams    = -32602
	CodeInternalError    = -32603
	CodeResourceNotFound = -32002
)

// maxMessageBytes bounds one stdio line.
const maxMessageBytes = 16 << 20

// Request is a JSON-RPC request. A request without id is a notification.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is a JSON-RPC response. Exactly one of Result and Error is set.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is the error member of a Response.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type serverInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type initializeResult struct {
	ProtocolVersion string         `json:"protocolVersion"`
	Capabilities    map[string]any `json:"capabilities"`
	ServerInfo      serverInfo     `json:"serverInfo"`
}

// Handler speaks MCP JSON-RPC on top of a Service.
type Handler struct {
	svc     *Service
	logger  *zap.Logger
	version string
}

// NewHandler creates a JSON-RPC handler. version is reported in serverInfo.
func NewHandler(svc *Service, logger *zap.Logger, version string) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger, version: version}
}

// Handle processes one encoded message and returns the encoded response,
// or nil for notifications.
func (h *Handler) Handle(ctx context.Context, raw []byte) []byte {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '[' {
		return h.encode(Response{Error: &RPCError{Code: CodeInvalidRequest, Message: "batch requests are not supported"}})
	}

	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return h.encode(Response{Error: &RPCError{Code: CodeParseError, Message: "parse error: " + err.Error()}})
	}
	if req.JSONRPC != "2.0" || req.Method == "" {
		return h.encode(Response{ID: req.ID, Error: &RPCError{Code: CodeInvalidRequest, Message: "invalid request"}})
	}

	result, rpcErr := h.dispatch(ctx, req)
	if len(req.ID) == 0 {
		if rpcErr != nil {
			h.logger.Debug("Notification failed", zap.String("method", req.Method), zap.String("error", rpcErr.Message))
		}
		return nil
	}
	return h.encode(Response{ID: req.ID, Result: result, Error: rpcErr})
}

func (h *Handler) dispatch(ctx context.Context, req Request) (any, *RPCError) {
	switch req.Method {
	case "initialize":
		return initializeResult{
			ProtocolVersion: ProtocolVersion,
			Capabilities: map[string]any{
				"resources": map[string]bool{"subscribe": false, "listChanged": false},
				"tools":     map[string]bool{"listChanged": false},
			},
			ServerInfo: serverInfo{Name: "mddb-mcp", Version: h.version},
		}, nil
	case "ping", "notifications/initialized", "notifications/cancelled":
		return struct{}{}, nil
	case "resources/list":
		return map[string]any{"resources": h.svc.Resources()}, nil
	case "resources/read":
		var p ReadRequest
		if err := decodeParams(req.Params, &p); err != nil {
			return nil, err
		}
		res, err := h.svc.ReadResource(ctx, p.URI)
		if err != nil {
			return nil, toRPCError(err)
		}
		return res, nil
	case "tools/list":
		return map[string]any{"tools": h.svc.Tools()}, nil
	case "tools/call":
		var p CallRequest
		if err := decodeParams(req.Params, &p); err != nil {
			return nil, err
		}
		res, err := h.svc.CallTool(ctx, p.Name, p.Arguments)
		if err != nil {
			return nil, toRPCError(err)
		}
		return res, nil
	default:
		return nil, &RPCError{Code: CodeMethodNotFound, Message: "method not found: " + req.Method}
	}
}

func decodeParams(params json.RawMessage, v any) *RPCError {
	if len(params) == 0 {
		return &RPCError{Code: CodeInvalidParams, Message: "params are required"}
	}
	if err := json.Unmarshal(params, v); err != nil {
		return &RPCError{Code: CodeInvalidParams, Message: "invalid params: " + err.Error()}
	}
	return nil
}

func toRPCError(err error) *RPCError {
	switch {
	case errors.Is(err, ErrUnknownTool), errors.Is(err, ErrInvalidArguments):
		return &RPCError{Code: CodeInvalidParams, Message: err.Error()}
	case errors.Is(err, mddb.ErrNotFound), errors.Is(err, mddb.ErrDocumentNotFound):
		return &RPCError{Code: CodeResourceNotFound, Message: err.Error()}
	default:
		return &RPCError{Code: CodeInternalError, Message: err.Error()}
	}
}

func (h *Handler) encode(resp Response) []byte {
	resp.JSONRPC = "2.0"
	if len(resp.ID) == 0 {
		resp.ID = json.RawMessage("null")
	}
	data, err := json.Marshal(resp)
	if err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
		data, _ = json.Marshal(Response{
			JSONRPC: "2.0",
			ID:      resp.ID,
			Error:   &RPCError{Code: CodeInternalError, Message: "encode response"},
		})
	}
	return data
}

// ServeStdio reads newline-delimited messages from in and writes responses to out
// until in is exhausted or ctx is done.
func (h *Handler) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64<<10), maxMessageBytes)
	w := bufio.NewWriter(out)

	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return nil
		}
		line := sc.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		resp := h.Handle(ctx, line)
		if resp == nil {
			continue
		}
		if _, err := w.Write(append(resp, '\n')); err != nil {
			return fmt.Errorf("write response: %w", err)
		}
		if err := w.Flush(); err != nil {
			return fmt.Errorf("flush response: %w", err)
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read request: %w", err)
	}
	return nil
}
