package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	chirouter "github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/shirokane-labs/cardex/internal/domain/query"
	"github.com/shirokane-labs/cardex/internal/domain/search"
	healthuc "github.com/shirokane-labs/cardex/internal/usecase/health"
	hybriduc "github.com/shirokane-labs/cardex/internal/usecase/hybrid"
)

type stubSearcher struct {
	result    hybriduc.Result
	lastQuery string
	lastTopK  int
}

func (s *stubSearcher) Search(_ context.Context, rawQuery string, topK int) hybriduc.Result {
	s.lastQuery = rawQuery
	s.lastTopK = topK
	return s.result
}

type stubCorpusManager struct {
	err error
	n   int
}

func (c *stubCorpusManager) Reload(_ context.Context) error { return c.err }
func (c *stubCorpusManager) Len() int      { return c.n }

type stubPinger struct{ err error }

func (p *stubPinger) Ping(_ context.Context) error { return p.err }

func newTestServer(searcher *stubSearcher, corpus *stubCorpusManager, pinger *stubPinger) http.Handler {
	srv := NewServer(searcher, corpus, healthuc.New(pinger, nil, nil), zap.NewNop())
	r := chirouter.NewRouter()
	srv.Routes(r)
	return r
}

func TestHandleSearch(t *testing.T) {
	items := []search.ContextItem{search.NewContextItem("ゴブリン", "突撃を持つ", 0.9)}
	searcher := &stubSearcher{result: hybriduc.Result{
		Classification: query.NewClassification(query.Semantic, 0.8, "summary", nil, []string{"突撃"}, ""),
		VectorResults:  items,
		Merged:         items,
		Quality:        search.Quality{ResultCount: 1, OverallScore: 0.9},
	}}
	handler := newTestServer(searcher, &stubCorpusManager{}, &stubPinger{})

	body := strings.NewReader(`{"query": "突撃を持つカード", "top_k": 5}`)
	req := httptest.NewRequest("POST", "/search", body)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if searcher.lastQuery != "突撃を持つカード" || searcher.lastTopK != 5 {
		t.Errorf("searcher got %q/%d", searcher.lastQuery, searcher.lastTopK)
	}

	var resp searchResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Classification.QueryType != "semantic" {
		t.Errorf("query_type = %s, want semantic", resp.Classification.QueryType)
	}
	if len(resp.MergedResults) != 1 || resp.MergedResults[0].Title != "ゴブリン" {
		t.Errorf("merged_results = %v", resp.MergedResults)
	}
	if resp.SearchQuality.LowConfidence {
		t.Error("low_confidence = true for a 0.9 mean score")
	}
	if resp.Classification.FilterKeywords == nil {
		t.Error("filter_keywords must serialize as [], not null")
	}
}

func TestHandleSearch_LowConfidenceFlag(t *testing.T) {
	items := []search.ContextItem{search.NewContextItem("a", "t", 0.2)}
	searcher := &stubSearcher{result: hybriduc.Result{
		Classification: query.NewClassification(query.Semantic, 0.5, "", nil, nil, ""),
		Merged:         items,
		Quality:        search.Quality{ResultCount: 1, OverallScore: 0.2},
	}}
	handler := newTestServer(searcher, &stubCorpusManager{}, &stubPinger{})

	req := httptest.NewRequest("POST", "/search", strings.NewReader(`{"query": "q"}`))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	var resp searchResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.SearchQuality.LowConfidence {
		t.Error("low_confidence = false for a 0.2 mean score")
	}
}

func TestHandleSearch_InvalidBody(t *testing.T) {
	handler := newTestServer(&stubSearcher{}, &stubCorpusManager{}, &stubPinger{})

	req := httptest.NewRequest("POST", "/search", strings.NewReader("{not json"))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestHandleCorpusReload(t *testing.T) {
	handler := newTestServer(&stubSearcher{}, &stubCorpusManager{n: 120}, &stubPinger{})

	req := httptest.NewRequest("POST", "/corpus/reload", http.NoBody)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var resp reloadResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Records != 120 {
		t.Errorf("records = %d, want 120", resp.Records)
	}
}

func TestHandleCorpusReload_Failure(t *testing.T) {
	handler := newTestServer(&stubSearcher{}, &stubCorpusManager{err: errors.New("missing file")}, &stubPinger{})

	req := httptest.NewRequest("POST", "/corpus/reload", http.NoBody)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}
}

func TestHandleHealth(t *testing.T) {
	handler := newTestServer(&stubSearcher{}, &stubCorpusManager{}, &stubPinger{})

	req := httptest.NewRequest("GET", "/health", http.NoBody)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
}

func TestHandleHealth_Degraded(t *testing.T) {
	handler := newTestServer(&stubSearcher{}, &stubCorpusManager{}, &stubPinger{err: errors.New("refused")})

	req := httptest.NewRequest("GET", "/health", http.NoBody)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rr.Code)
	}
}
