package mcp

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	mddb "github.com/kailas-cloud/mddb/pkg/sdk"
)

const maxBodyBytes = 16 << 20

// Routes registers the HTTP transport:
//
//	POST /mcp                 JSON-RPC, one message per request
//	GET  /mcp/resources       resource list
//	POST /mcp/resources/read  {"uri": ...}
//	GET  /mcp/tools           tool list
//	POST /mcp/tools/call      {"name": ..., "arguments": {...}}
//	GET  /health              health of the MDDB server behind the bridge
func (h *Handler) Routes(r chi.Router) {
	r.Post("/mcp", h.rpc)
	r.Get("/mcp/resources", h.listResources)
	r.Post("/mcp/resources/read", h.readResource)
	r.Get("/mcp/tools", h.listTools)
	r.Post("/mcp/tools/call", h.callTool)
	r.Get("/health", h.health)
}

func (h *Handler) rpc(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "bad_request", "request body too large")
		return
	}
	resp := h.Handle(r.Context(), body)
	if resp == nil {
		w.WriteHeader(http.StatusAccepted)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(resp)
}

func (h *Handler) listResources(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"resources": h.svc.Resources()})
}

func (h *Handler) listTools(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tools": h.svc.Tools()})
}

func (h *Handler) readResource(w http.ResponseWriter, r *http.Request) {
	var req ReadRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := h.svc.ReadResource(r.Context(), req.URI)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) callTool(w http.ResponseWriter, r *http.Request) {
	var req CallRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := h.svc.CallTool(r.Context(), req.Name, req.Arguments)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	hs, err := h.svc.Health(r.Context())
	if err != nil {
		h.logger.Warn("MDDB server unreachable", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "unavailable", "mddb server unreachable")
		return
	}
	status := http.StatusOK
	if hs.Status == "error" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, hs)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidArguments):
		writeError(w, http.StatusBadRequest, "invalid_arguments", err.Error())
	case errors.Is(err, ErrUnknownTool):
		writeError(w, http.StatusNotFound, "unknown_tool", err.Error())
	case errors.Is(err, mddb.ErrNotFound), errors.Is(err, mddb.ErrDocumentNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, mddb.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
	default:
		h.logger.Error("MDDB call failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "upstream_error", err.Error())
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"code": code, "message": message})
}
