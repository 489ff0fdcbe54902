package hybrid

import (
	"context"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/shirokane-labs/cardex/internal/domain"
	"github.com/shirokane-labs/cardex/internal/domain/query"
	"github.com/shirokane-labs/cardex/internal/domain/search"
	"github.com/shirokane-labs/cardex/internal/metrics"
	"github.com/shirokane-labs/cardex/internal/usecase/vector"
)

// DefaultTopK bounds the merged context list when the caller passes no limit.
const DefaultTopK = 10

// Result is the orchestrator's response: the routing decision, both raw
// result sets, and the merged ranked context list.
type Result struct {
	Classification query.Classification
	DBResults      []search.ContextItem
	VectorResults  []search.ContextItem
	Merged         []search.ContextItem
	Quality        search.Quality
}

// Service routes a classified query to the filter engine, the vector
// engine, or both, and merges their results. A failing engine contributes
// zero results; the orchestrator always returns a well-formed Result.
type Service struct {
	classifier Classifier
	filter     FilterEngine
	vector     VectorEngine
	embedder   domain.Embedder
	corpus     CorpusReader
	minScore   float64
	logger     *zap.Logger
}

// New creates a hybrid search orchestrator. minScore filters vector matches
// before merging; zero disables the floor.
func New(
	classifier Classifier, filter FilterEngine, vectorEngine VectorEngine,
	embedder domain.Embedder, corpus CorpusReader,
	minScore float64, logger *zap.Logger,
) *Service {
	return &Service{
		classifier: classifier,
		filter:     filter,
		vector:     vectorEngine,
		embedder:   embedder,
		corpus:     corpus,
		minScore:   minScore,
		logger:     logger,
	}
}

// Search is the sole public retrieval entry point: classify, dispatch per
// the decision table, merge, and report quality.
func (s *Service) Search(ctx context.Context, rawQuery string, topK int) Result {
	if topK <= 0 {
		topK = DefaultTopK
	}

	cls := s.classifier.Classify(ctx, rawQuery)
	metrics.SearchesTotal.WithLabelValues(string(cls.QueryType())).Inc()
	res := Result{Classification: cls}

	switch cls.QueryType() {
	case query.Greeting:
		// Pleasantries need no retrieval evidence.

	case query.Filterable:
		res.DBResults = s.filter.Filter(ctx, rawQuery, cls, topK)
		if len(res.DBResults) == 0 {
			metrics.EngineFallbacksTotal.WithLabelValues("filter_to_vector").Inc()
			s.logger.Info("Filter pass empty, falling back to vector retrieval",
				zap.String("query", rawQuery),
			)
			res.VectorResults = s.vectorPass(ctx, rawQuery, cls, topK)
		}

	case query.Semantic:
		res.VectorResults = s.vectorPass(ctx, rawQuery, cls, topK)

	case query.Hybrid:
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			res.DBResults = s.filter.Filter(gctx, rawQuery, cls, topK)
			return nil
		})
		g.Go(func() error {
			res.VectorResults = s.vectorPass(gctx, rawQuery, cls, topK)
			return nil
		})
		_ = g.Wait()

	default:
		res.VectorResults = s.vectorPass(ctx, rawQuery, cls, topK)
	}

	res.Merged = mergeByTitle(res.DBResults, res.VectorResults, topK)
	res.Quality = search.EvaluateQuality(res.Merged)
	return res
}

// vectorPass embeds the query and runs similarity retrieval. An embedding
// failure is absorbed here: this source simply contributes nothing.
func (s *Service) vectorPass(
	ctx context.Context, rawQuery string, cls query.Classification, topK int,
) []search.ContextItem {
	emb, err := s.embedder.Embed(ctx, rawQuery)
	if err != nil {
		s.logger.Warn("Embedding unavailable, skipping vector retrieval", zap.Error(err))
		return nil
	}

	matches := s.vector.Search(ctx, vector.Request{
		Vector:    emb.Embedding,
		TopK:      topK,
		QueryType: cls.QueryType(),
		MinScore:  s.minScore,
	})
	if len(matches) == 0 {
		return nil
	}

	texts := s.contextTexts()
	items := make([]search.ContextItem, 0, len(matches))
	for _, m := range matches {
		items = append(items, search.NewContextItem(m.Title, texts[m.Title], m.Score))
	}
	return items
}

// contextTexts resolves card context texts by title. A missing corpus
// degrades to an empty map: items then fall back to their titles.
func (s *Service) contextTexts() map[string]string {
	records, err := s.corpus.Records()
	if err != nil {
		return nil
	}
	texts := make(map[string]string, len(records))
	for _, rec := range records {
		texts[rec.Title()] = rec.ContextText()
	}
	return texts
}

// mergeByTitle unions both result sets. The first occurrence of a title
// keeps its text; the score is the max across sources.
func mergeByTitle(db, vec []search.ContextItem, topK int) []search.ContextItem {
	merged := make([]search.ContextItem, 0, len(db)+len(vec))
	pos := make(map[string]int, len(db)+len(vec))

	for _, src := range [][]search.ContextItem{db, vec} {
		for i := range src {
			item := src[i]
			if at, ok := pos[item.Title()]; ok {
				if item.Score() > merged[at].Score() {
					merged[at] = merged[at].WithScore(item.Score())
				}
				continue
			}
			pos[item.Title()] = len(merged)
			merged = append(merged, item)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Score() > merged[j].Score() })
	if len(merged) > topK {
		merged = merged[:topK]
	}
	return merged
}
