package hybrid

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/shirokane-labs/cardex/internal/domain"
	"github.com/shirokane-labs/cardex/internal/domain/card"
	"github.com/shirokane-labs/cardex/internal/domain/query"
	"github.com/shirokane-labs/cardex/internal/domain/search"
	"github.com/shirokane-labs/cardex/internal/usecase/vector"
)

type stubClassifier struct{ result query.Classification }

func (c *stubClassifier) Classify(_ context.Context, _ string) query.Classification {
	return c.result
}

type stubFilter struct {
	items       []search.ContextItem
	filterCalls int
}

func (f *stubFilter) Filter(_ context.Context, _ string, _ query.Classification, _ int) []search.ContextItem {
	f.filterCalls++
	return f.items
}

type stubVector struct {
	matches []search.Match
	calls   int
}

func (v *stubVector) Search(_ context.Context, _ vector.Request) []search.Match {
	v.calls++
	return v.matches
}

type stubEmbedder struct{ err error }

func (e *stubEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	if e.err != nil {
		return domain.EmbeddingResult{}, e.err
	}
	return domain.EmbeddingResult{Embedding: []float32{0.1, 0.2}}, nil
}

type stubCorpus struct{ records []card.Record }

func (c *stubCorpus) Records() ([]card.Record, error) { return c.records, nil }

func classified(t query.Type) *stubClassifier {
	return &stubClassifier{result: query.NewClassification(t, 0.9, "", nil, nil, "")}
}

func newService(cls Classifier, filter *stubFilter, vec *stubVector, emb domain.Embedder) *Service {
	return New(cls, filter, vec, emb, &stubCorpus{}, 0, zap.NewNop())
}

func item(title string, score float64) search.ContextItem {
	return search.NewContextItem(title, title+" text", score)
}

func TestSearch_GreetingSkipsBothEngines(t *testing.T) {
	filter := &stubFilter{items: []search.ContextItem{item("a", 1)}}
	vec := &stubVector{matches: []search.Match{{Title: "b", Score: 0.9}}}
	svc := newService(classified(query.Greeting), filter, vec, &stubEmbedder{})

	res := svc.Search(context.Background(), "こんにちは", 5)
	if len(res.Merged) != 0 {
		t.Fatalf("merged = %v, want empty for a greeting", res.Merged)
	}
	if filter.filterCalls != 0 || vec.calls != 0 {
		t.Errorf("engine calls = %d/%d, want 0/0", filter.filterCalls, vec.calls)
	}
}

func TestSearch_FilterableUsesOnlyFilterEngine(t *testing.T) {
	filter := &stubFilter{items: []search.ContextItem{item("a", 1)}}
	vec := &stubVector{matches: []search.Match{{Title: "b", Score: 0.9}}}
	svc := newService(classified(query.Filterable), filter, vec, &stubEmbedder{})

	res := svc.Search(context.Background(), "HP150以上", 5)
	if vec.calls != 0 {
		t.Error("vector engine must not run when the filter pass has results")
	}
	if len(res.Merged) != 1 || res.Merged[0].Title() != "a" {
		t.Fatalf("merged = %v, want [a]", res.Merged)
	}
}

func TestSearch_FilterableFallsBackToVectorOnZeroResults(t *testing.T) {
	filter := &stubFilter{}
	vec := &stubVector{matches: []search.Match{{Title: "b", Score: 0.9}}}
	svc := newService(classified(query.Filterable), filter, vec, &stubEmbedder{})

	res := svc.Search(context.Background(), "HP9999以上", 5)
	if vec.calls != 1 {
		t.Fatal("expected a vector fallback pass")
	}
	if len(res.Merged) != 1 || res.Merged[0].Title() != "b" {
		t.Fatalf("merged = %v, want [b]", res.Merged)
	}
}

func TestSearch_SemanticUsesOnlyVectorEngine(t *testing.T) {
	filter := &stubFilter{items: []search.ContextItem{item("a", 1)}}
	vec := &stubVector{matches: []search.Match{{Title: "b", Score: 0.9}}}
	svc := newService(classified(query.Semantic), filter, vec, &stubEmbedder{})

	res := svc.Search(context.Background(), "凍結効果のカード", 5)
	if filter.filterCalls != 0 {
		t.Error("filter engine must not run for a semantic query")
	}
	if len(res.Merged) != 1 || res.Merged[0].Title() != "b" {
		t.Fatalf("merged = %v, want [b]", res.Merged)
	}
}

func TestSearch_HybridRunsBothAndMergesMaxScore(t *testing.T) {
	filter := &stubFilter{items: []search.ContextItem{item("shared", 0.6), item("db-only", 0.5)}}
	vec := &stubVector{matches: []search.Match{{Title: "shared", Score: 0.9}, {Title: "vec-only", Score: 0.4}}}
	svc := newService(classified(query.Hybrid), filter, vec, &stubEmbedder{})

	res := svc.Search(context.Background(), "コスト3以下で強いカード", 5)
	if filter.filterCalls != 1 || vec.calls != 1 {
		t.Fatalf("engine calls = %d/%d, want 1/1", filter.filterCalls, vec.calls)
	}
	if len(res.Merged) != 3 {
		t.Fatalf("merged = %v, want 3 deduplicated items", res.Merged)
	}
	if res.Merged[0].Title() != "shared" || res.Merged[0].Score() != 0.9 {
		t.Fatalf("top = %s/%g, want shared with the max score 0.9", res.Merged[0].Title(), res.Merged[0].Score())
	}
	// First occurrence wins the text.
	if res.Merged[0].Text() != "shared text" {
		t.Errorf("text = %q, want the filter engine's text", res.Merged[0].Text())
	}
}

func TestSearch_EmbeddingFailureYieldsZeroVectorResults(t *testing.T) {
	filter := &stubFilter{items: []search.ContextItem{item("a", 1)}}
	vec := &stubVector{matches: []search.Match{{Title: "b", Score: 0.9}}}
	svc := newService(classified(query.Hybrid), filter, vec, &stubEmbedder{err: errors.New("provider down")})

	res := svc.Search(context.Background(), "強いカード", 5)
	if vec.calls != 0 {
		t.Error("vector engine must not run without an embedding")
	}
	if len(res.Merged) != 1 || res.Merged[0].Title() != "a" {
		t.Fatalf("merged = %v, want the filter result alone", res.Merged)
	}
}

func TestSearch_QualityReportsMeanScore(t *testing.T) {
	filter := &stubFilter{items: []search.ContextItem{item("a", 1.0), item("b", 0.5)}}
	svc := newService(classified(query.Filterable), filter, &stubVector{}, &stubEmbedder{})

	res := svc.Search(context.Background(), "HP150以上", 5)
	if res.Quality.ResultCount != 2 {
		t.Fatalf("result count = %d, want 2", res.Quality.ResultCount)
	}
	if res.Quality.OverallScore != 0.75 {
		t.Errorf("overall score = %g, want 0.75", res.Quality.OverallScore)
	}
}

func TestSearch_VectorTextResolvedFromCorpus(t *testing.T) {
	rec := card.New("ゴブリン", nil, nil, []string{"突撃を持つ"}, nil, nil, "")
	vec := &stubVector{matches: []search.Match{{Title: "ゴブリン", Score: 0.8}}}
	svc := New(classified(query.Semantic), &stubFilter{}, vec, &stubEmbedder{},
		&stubCorpus{records: []card.Record{rec}}, 0, zap.NewNop())

	res := svc.Search(context.Background(), "突撃", 5)
	if len(res.Merged) != 1 {
		t.Fatalf("merged = %v, want 1 item", res.Merged)
	}
	if res.Merged[0].Text() == "ゴブリン" {
		t.Error("text should be resolved from the corpus, not fall back to the title")
	}
}
