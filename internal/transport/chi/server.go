package chi

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	logpkg "github.com/kailas-cloud/mddb/internal/logger"
	adminuc "github.com/kailas-cloud/mddb/internal/usecase/admin"
	batchuc "github.com/kailas-cloud/mddb/internal/usecase/batch"
	documentuc "github.com/kailas-cloud/mddb/internal/usecase/document"
	healthuc "github.com/kailas-cloud/mddb/internal/usecase/health"
	searchuc "github.com/kailas-cloud/mddb/internal/usecase/search"
	statsuc "github.com/kailas-cloud/mddb/internal/usecase/stats"
)

// DefaultMaxBodyBytes caps request bodies.
const DefaultMaxBodyBytes int64 = 32 << 20

// Server serves the HTTP/JSON API.
type Server struct {
	documents     *documentuc.Service
	search        *searchuc.Service
	batch         *batchuc.Service
	admin         *adminuc.Service
	stats         *statsuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	maxBodyBytes  int64
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	documents *documentuc.Service,
	search *searchuc.Service,
	batch *batchuc.Service,
	admin *adminuc.Service,
	stats *statsuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		documents:     documents,
		search:        search,
		batch:         batch,
		admin:         admin,
		stats:         stats,
		health:        health,
		logger:        logger,
		maxBodyBytes:  DefaultMaxBodyBytes,
		errorHandlers: defaultErrorHandlers(),
	}
}

// WithMaxBodyBytes overrides the request body limit.
func (s *Server) WithMaxBodyBytes(n int64) *Server {
	if n > 0 {
		s.maxBodyBytes = n
	}
	return s
}

// requestLogger prefers the request-scoped logger so lines carry request_id.
func (s *Server) requestLogger(r *http.Request) *zap.Logger {
	if l, ok := logpkg.Lookup(r.Context()); ok {
		return l
	}
	return s.logger
}

// Routes registers every endpoint on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/add", s.Add)
		r.Post("/get", s.Get)
		r.Post("/delete", s.Delete)
		r.Post("/delete-collection", s.DeleteCollection)
		r.Post("/revisions", s.Revisions)

		r.Post("/search", s.Search)
		r.Post("/export", s.Export)

		r.Post("/add-batch", s.AddBatch)
		r.Post("/update-batch", s.UpdateBatch)
		r.Post("/delete-batch", s.DeleteBatch)

		r.Get("/backup", s.Backup)
		r.Post("/backup", s.Backup)
		r.Post("/restore", s.Restore)
		r.Post("/truncate", s.Truncate)
		r.Get("/stats", s.Stats)
	})
}

// Health handles GET /health.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	status := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, healthToDTO(report))
}

// decode reads a JSON body into v. On failure it writes the error response and returns false.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, CodeBadRequest, "request body too large")
		return false
	}
	writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
	return false
}
