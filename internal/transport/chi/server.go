package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ajjswift/gcselog-search-new/internal/domain"
	"github.com/ajjswift/gcselog-search-new/internal/domain/search/request"
	"github.com/ajjswift/gcselog-search-new/internal/domain/search/result"
	logpkg "github.com/ajjswift/gcselog-search-new/internal/logger"
	healthuc "github.com/ajjswift/gcselog-search-new/internal/usecase/health"
)

// Error codes returned in ErrorResponse.Code.
const (
	CodeInvalidRequest          = "invalid_request"
	CodeEmbeddingServiceFailure = "embedding_service_failure"
	CodeStoreQueryFailure       = "store_query_failure"
	CodeInternalError           = "internal_error"
)

// Searcher runs a normalized search request.
type Searcher interface {
	Search(ctx context.Context, req *request.Request) (result.Envelope, error)
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// HitResponse is a single search hit.
type HitResponse struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	AverageRating float64  `json:"averageRating"`
	Subject       string   `json:"subject"`
	ExamBoard     string   `json:"examBoard"`
	Level         string   `json:"level"`
	Type          string   `json:"type"`
	Score         *float64 `json:"score,omitempty"`
}

// SearchResponse is the search result envelope.
type SearchResponse struct {
	Hits             []HitResponse `json:"hits"`
	TotalHits        int           `json:"totalHits"`
	ProcessingTimeMs int64         `json:"processingTimeMs"`
	FuzzyEnabled     bool          `json:"fuzzyEnabled"`
	SemanticEnabled  bool          `json:"semanticEnabled"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Server serves the search HTTP API.
type Server struct {
	search        Searcher
	health        HealthChecker
	limits        request.Limits
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(search Searcher, health HealthChecker, limits request.Limits, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		search: search,
		health: health,
		limits: limits,
		logger: logger,
	}
	s.errorHandlers = []errorHandler{
		fieldErrorHandler,
		sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, CodeInvalidRequest),
		sentinelHandler(domain.ErrEmbeddingServiceFailure, http.StatusBadGateway, CodeEmbeddingServiceFailure),
		sentinelHandler(domain.ErrStoreQueryFailure, http.StatusInternalServerError, CodeStoreQueryFailure),
	}
	return s
}

// Mount registers the API routes on r.
func (s *Server) Mount(r chi.Router) {
	r.Get("/api/v1/search", s.Search)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// Search handles GET /api/v1/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	req, err := request.Parse(request.FromValues(r.URL.Query()), s.limits)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	env, err := s.search.Search(ctx, &req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, envelopeToResponse(&env))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.EmbeddingUsage) {
	if usage != nil && usage.Used {
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(usage.TotalTokens))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidRequest,
		domain.ErrEmbeddingServiceFailure,
		domain.ErrStoreQueryFailure,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// fieldErrorHandler reports which parameter was rejected and why.
func fieldErrorHandler(w http.ResponseWriter, err error, _ string) bool {
	var fe *domain.FieldError
	if !errors.As(err, &fe) {
		return false
	}
	writeError(w, http.StatusBadRequest, CodeInvalidRequest, fe.Error())
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.FromContext(r.Context(), s.logger)
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			log.Warn("domain error", zap.Error(err))
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}

func envelopeToResponse(env *result.Envelope) SearchResponse {
	hits := make([]HitResponse, len(env.Hits))
	for i := range env.Hits {
		hits[i] = hitToResponse(&env.Hits[i])
	}
	return SearchResponse{
		Hits:             hits,
		TotalHits:        env.TotalHits,
		ProcessingTimeMs: env.ProcessingTimeMs,
		FuzzyEnabled:     env.FuzzyEnabled,
		SemanticEnabled:  env.SemanticEnabled,
	}
}

func hitToResponse(h *result.Hit) HitResponse {
	res := h.Resource()
	item := HitResponse{
		ID:            res.ID(),
		Title:         res.Title(),
		Description:   res.Description(),
		AverageRating: res.AverageRating(),
		Subject:       res.Subject(),
		ExamBoard:     res.ExamBoard(),
		Level:         res.Level(),
		Type:          res.Type(),
	}
	if score, ok := h.Score(); ok {
		item.Score = &score
	}
	return item
}
