package chi

import "net/http"

// AddBatch handles POST /v1/add-batch.
func (s *Server) AddBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if !s.decode(w, r, &req) {
		return
	}

	summary, err := s.batch.Add(r.Context(), req.Collection, batchInputs(req.Documents))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, batchToDTO(summary))
}

// UpdateBatch handles POST /v1/update-batch. Items that do not exist are reported as not_found.
func (s *Server) UpdateBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if !s.decode(w, r, &req) {
		return
	}

	summary, err := s.batch.Update(r.Context(), req.Collection, batchInputs(req.Documents))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, batchToDTO(summary))
}

// DeleteBatch handles POST /v1/delete-batch.
func (s *Server) DeleteBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchDeleteRequest
	if !s.decode(w, r, &req) {
		return
	}

	summary, err := s.batch.Delete(r.Context(), req.Collection, batchRefs(req.Keys))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, batchToDTO(summary))
}
