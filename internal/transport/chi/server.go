package chi

import (
	"context"
	"encoding/json"
	"net/http"

	chirouter "github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/shirokane-labs/cardex/internal/domain/query"
	"github.com/shirokane-labs/cardex/internal/domain/search"
	healthuc "github.com/shirokane-labs/cardex/internal/usecase/health"
	hybriduc "github.com/shirokane-labs/cardex/internal/usecase/hybrid"
)

// lowConfidenceScore marks merged results whose mean score warrants a
// disclaimer in the generated answer.
const lowConfidenceScore = 0.5

// Searcher is the retrieval entry point the HTTP layer exposes.
type Searcher interface {
	Search(ctx context.Context, rawQuery string, topK int) hybriduc.Result
}

// CorpusManager reloads the card corpus and reports its size.
type CorpusManager interface {
	Reload(ctx context.Context) error
	Len() int
}

// Server exposes the hybrid search orchestrator over HTTP.
type Server struct {
	searcher Searcher
	corpus   CorpusManager
	health   *healthuc.Service
	logger   *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(searcher Searcher, corpus CorpusManager, health *healthuc.Service, logger *zap.Logger) *Server {
	return &Server{searcher: searcher, corpus: corpus, health: health, logger: logger}
}

// Routes mounts all handlers on the router.
func (s *Server) Routes(r chirouter.Router) {
	r.Post("/search", s.handleSearch)
	r.Post("/corpus/reload", s.handleCorpusReload)
	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
}

type searchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

type classificationDTO struct {
	QueryType      string   `json:"query_type"`
	Confidence     float64  `json:"confidence"`
	Summary        string   `json:"summary,omitempty"`
	FilterKeywords []string `json:"filter_keywords"`
	SearchKeywords []string `json:"search_keywords"`
	Reasoning      string   `json:"reasoning,omitempty"`
}

type contextItemDTO struct {
	Title string  `json:"title"`
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

type qualityDTO struct {
	ResultCount   int     `json:"result_count"`
	OverallScore  float64 `json:"overall_score"`
	LowConfidence bool    `json:"low_confidence"`
}

type searchResponse struct {
	Classification classificationDTO `json:"classification"`
	DBResults      []contextItemDTO  `json:"db_results"`
	VectorResults  []contextItemDTO  `json:"vector_results"`
	MergedResults  []contextItemDTO  `json:"merged_results"`
	SearchQuality  qualityDTO        `json:"search_quality"`
}

// handleSearch handles POST /search.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}

	res := s.searcher.Search(r.Context(), req.Query, req.TopK)
	writeJSON(w, http.StatusOK, searchToDTO(res))
}

type reloadResponse struct {
	Status  string `json:"status"`
	Records int    `json:"records"`
}

// handleCorpusReload handles POST /corpus/reload.
func (s *Server) handleCorpusReload(w http.ResponseWriter, r *http.Request) {
	if err := s.corpus.Reload(r.Context()); err != nil {
		s.logger.Error("Corpus reload failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "corpus_error", "Corpus reload failed: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, reloadResponse{Status: "ok", Records: s.corpus.Len()})
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for name, result := range report.Checks {
		checks[name] = string(result)
	}

	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, healthResponse{Status: string(report.Status), Checks: checks})
}

func searchToDTO(res hybriduc.Result) searchResponse {
	return searchResponse{
		Classification: classificationToDTO(res.Classification),
		DBResults:      itemsToDTO(res.DBResults),
		VectorResults:  itemsToDTO(res.VectorResults),
		MergedResults:  itemsToDTO(res.Merged),
		SearchQuality: qualityDTO{
			ResultCount:   res.Quality.ResultCount,
			OverallScore:  res.Quality.OverallScore,
			LowConfidence: res.Quality.ResultCount > 0 && res.Quality.OverallScore < lowConfidenceScore,
		},
	}
}

func classificationToDTO(c query.Classification) classificationDTO {
	filterKw := c.FilterKeywords()
	if filterKw == nil {
		filterKw = []string{}
	}
	searchKw := c.SearchKeywords()
	if searchKw == nil {
		searchKw = []string{}
	}
	return classificationDTO{
		QueryType:      string(c.QueryType()),
		Confidence:     c.Confidence(),
		Summary:        c.Summary(),
		FilterKeywords: filterKw,
		SearchKeywords: searchKw,
		Reasoning:      c.Reasoning(),
	}
}

func itemsToDTO(items []search.ContextItem) []contextItemDTO {
	out := make([]contextItemDTO, 0, len(items))
	for i := range items {
		out = append(out, contextItemDTO{
			Title: items[i].Title(),
			Text:  items[i].Text(),
			Score: items[i].Score(),
		})
	}
	return out
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}
