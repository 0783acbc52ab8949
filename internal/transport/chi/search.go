package chi

import (
	"fmt"
	"net/http"

	"github.com/oapi-codegen/runtime"
	"go.uber.org/zap"

	domdoc "github.com/kailas-cloud/mddb/internal/domain/document"
	"github.com/kailas-cloud/mddb/internal/domain/export"
	searchuc "github.com/kailas-cloud/mddb/internal/usecase/search"
)

// Search handles POST /v1/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if !s.decode(w, r, &req) {
		return
	}

	page, err := s.search.Search(r.Context(), searchuc.Query{
		Collection: req.Collection,
		Filter:     domdoc.Meta(req.FilterMeta),
		Sort:       req.Sort,
		Asc:        req.Asc,
		Limit:      req.Limit,
		Offset:     req.Offset,
	})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{
		Documents: documentsToDTO(page.Documents),
		Total:     page.Total,
		Limit:     page.Limit,
		Offset:    page.Offset,
	})
}

// Export handles POST /v1/export. The format query parameter overrides the body.
func (s *Server) Export(w http.ResponseWriter, r *http.Request) {
	var req ExportRequest
	if !s.decode(w, r, &req) {
		return
	}

	var override *string
	if err := runtime.BindQueryParameter("form", true, false, "format", r.URL.Query(), &override); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid format parameter: "+err.Error())
		return
	}
	if override != nil {
		req.Format = *override
	}
	format, err := export.ParseFormat(req.Format)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	docs, err := s.search.Matches(r.Context(), req.Collection, domdoc.Meta(req.FilterMeta))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", export.SafeName(req.Collection)+"."+string(format)))
	w.WriteHeader(http.StatusOK)
	// заголовки уже отправлены, остается только залогировать
	if err := searchuc.WriteExport(w, format, docs); err != nil {
		s.requestLogger(r).Warn("Failed to stream export",
			zap.String("collection", req.Collection),
			zap.String("format", string(format)),
			zap.Error(err),
		)
	}
}
