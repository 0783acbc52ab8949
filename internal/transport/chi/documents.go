package chi

import (
	"net/http"

	domdoc "github.com/kailas-cloud/mddb/internal/domain/document"
)

// Add handles POST /v1/add.
func (s *Server) Add(w http.ResponseWriter, r *http.Request) {
	var req AddRequest
	if !s.decode(w, r, &req) {
		return
	}

	doc, created, err := s.documents.Add(r.Context(), req.Collection, req.Key, req.Lang, domdoc.Meta(req.Meta), req.ContentMD)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, documentToDTO(&doc))
}

// Get handles POST /v1/get.
func (s *Server) Get(w http.ResponseWriter, r *http.Request) {
	var req GetRequest
	if !s.decode(w, r, &req) {
		return
	}

	doc, err := s.documents.Get(r.Context(), req.Collection, req.Key, req.Lang, req.Env)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, documentToDTO(&doc))
}

// Delete handles POST /v1/delete.
func (s *Server) Delete(w http.ResponseWriter, r *http.Request) {
	var req DocumentRef
	if !s.decode(w, r, &req) {
		return
	}

	if err := s.documents.Delete(r.Context(), req.Collection, req.Key, req.Lang); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":     "deleted",
		"collection": req.Collection,
		"key":        req.Key,
		"lang":       req.Lang,
	})
}

// DeleteCollection handles POST /v1/delete-collection.
func (s *Server) DeleteCollection(w http.ResponseWriter, r *http.Request) {
	var req CollectionRequest
	if !s.decode(w, r, &req) {
		return
	}

	n, err := s.documents.DeleteCollection(r.Context(), req.Collection)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "deleted",
		"collection":    req.Collection,
		"deleted_count": n,
	})
}

// Revisions handles POST /v1/revisions.
func (s *Server) Revisions(w http.ResponseWriter, r *http.Request) {
	var req DocumentRef
	if !s.decode(w, r, &req) {
		return
	}

	revs, err := s.documents.Revisions(r.Context(), req.Collection, req.Key, req.Lang)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, RevisionsResponse{Revisions: documentsToDTO(revs)})
}
