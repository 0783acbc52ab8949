package chi

import (
	"fmt"
	"net/http"

	"github.com/oapi-codegen/runtime"
)

// Backup handles GET and POST /v1/backup?to=<file>.
func (s *Server) Backup(w http.ResponseWriter, r *http.Request) {
	var to *string
	if err := runtime.BindQueryParameter("form", true, false, "to", r.URL.Query(), &to); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid to parameter: "+err.Error())
		return
	}
	dst := ""
	if to != nil {
		dst = *to
	}

	path, err := s.admin.Backup(r.Context(), dst)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"backup": path})
}

// Restore handles POST /v1/restore.
func (s *Server) Restore(w http.ResponseWriter, r *http.Request) {
	var req RestoreRequest
	if !s.decode(w, r, &req) {
		return
	}

	path, err := s.admin.Restore(r.Context(), req.From)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"restored": path})
}

// Truncate handles POST /v1/truncate.
func (s *Server) Truncate(w http.ResponseWriter, r *http.Request) {
	var req TruncateRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.KeepRevs == nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "keep_revs is required")
		return
	}

	removed, err := s.admin.Truncate(r.Context(), req.Collection, *req.KeepRevs, req.DropCache)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  fmt.Sprintf("truncated %s to %d revisions", req.Collection, *req.KeepRevs),
		"removed": removed,
	})
}

// Stats handles GET /v1/stats.
func (s *Server) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := s.stats.Stats(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statsToDTO(st))
}
