package vector

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/shirokane-labs/cardex/internal/domain"
	"github.com/shirokane-labs/cardex/internal/domain/query"
	"github.com/shirokane-labs/cardex/internal/domain/search"
	"github.com/shirokane-labs/cardex/internal/metrics"
)

// Default plateau thresholds. Scores this close among the top three matches
// mean the per-field partitions failed to discriminate.
const (
	DefaultStdDevThreshold = 0.002
	DefaultSpreadThreshold = 0.003
)

// Options configures the retrieval engine.
type Options struct {
	StdDevThreshold float64
	SpreadThreshold float64
	Namespaces      Namespaces
	Parallel        bool
}

// Service queries the multi-namespace similarity index with score-plateau
// escalation. Retrieval failure never propagates: every error path degrades
// to fewer or zero matches.
type Service struct {
	index           Index
	stddevThreshold float64
	spreadThreshold float64
	namespaces      Namespaces
	parallel        bool
	logger          *zap.Logger
}

// New creates a vector retrieval service. Zero thresholds fall back to the
// package defaults; an empty namespace layout falls back to the standard one.
func New(index Index, opts Options, logger *zap.Logger) *Service {
	if opts.StdDevThreshold <= 0 {
		opts.StdDevThreshold = DefaultStdDevThreshold
	}
	if opts.SpreadThreshold <= 0 {
		opts.SpreadThreshold = DefaultSpreadThreshold
	}
	if len(opts.Namespaces.Effects) == 0 || opts.Namespaces.Combined == "" {
		opts.Namespaces = DefaultNamespaces()
	}
	return &Service{
		index:           index,
		stddevThreshold: opts.StdDevThreshold,
		spreadThreshold: opts.SpreadThreshold,
		namespaces:      opts.Namespaces,
		parallel:        opts.Parallel,
		logger:          logger,
	}
}

// Request carries one search call's parameters. Namespaces overrides the
// stage-0 set derived from QueryType when non-empty.
type Request struct {
	Vector     []float32
	TopK       int
	Namespaces []string
	QueryType  query.Type
	MinScore   float64
}

// Search queries the stage-0 namespaces, checks the top-3 score
// distribution, escalates to the combined partition on a plateau, and
// returns matches merged by title (max score per title), sorted descending,
// truncated to TopK.
func (s *Service) Search(ctx context.Context, req Request) []search.Match {
	diag := &VectorSearchParams{
		StdDevThreshold: s.stddevThreshold,
		SpreadThreshold: s.spreadThreshold,
		Scores:          map[string]float64{},
	}
	defer func() { recordSearch(diag) }()

	if s.index == nil {
		s.logger.Warn("Vector search skipped", zap.Error(domain.ErrIndexUnavailable))
		return nil
	}
	if len(req.Vector) == 0 || req.TopK <= 0 {
		return nil
	}

	stage0 := req.Namespaces
	if len(stage0) == 0 {
		stage0 = s.namespaces.Stage0(req.QueryType)
	}
	stage0 = exclude(stage0, s.namespaces.Combined)
	if len(stage0) == 0 {
		return nil
	}

	scores := s.queryNamespaces(ctx, stage0, req.Vector, req.TopK)
	diag.UsedNamespaces = append([]string(nil), stage0...)

	if stats, ok := calcTop3Stats(scoreValues(scores)); ok && stats.Count >= 2 &&
		(stats.StdDev <= s.stddevThreshold || stats.Spread <= s.spreadThreshold) {
		diag.PlateauTriggered = true
		metrics.PlateauTriggeredTotal.Inc()
		s.logger.Info("Score plateau detected, escalating to combined namespace",
			zap.Float64("stddev", stats.StdDev),
			zap.Float64("spread", stats.Spread),
		)

		combined := s.queryNamespaces(ctx, []string{s.namespaces.Combined}, req.Vector, req.TopK)
		for title, score := range combined {
			if cur, ok := scores[title]; !ok || score > cur {
				scores[title] = score
			}
		}
		diag.UsedNamespaces = append([]string{s.namespaces.Combined}, diag.UsedNamespaces...)
	}

	// Raw merged scores, before the floor and truncation, so dropped
	// candidates stay inspectable.
	for title, score := range scores {
		diag.Scores[title] = score
	}

	results := rank(scores)
	if req.MinScore > 0 {
		kept := results[:0]
		for _, m := range results {
			if m.Score >= req.MinScore {
				kept = append(kept, m)
			}
		}
		results = kept
	}
	if len(results) > req.TopK {
		results = results[:req.TopK]
	}
	return results
}

// queryNamespaces fans the same vector out across namespaces and merges the
// hits by title, keeping the best score per title. Per-namespace errors are
// logged and skipped; a total failure yields an empty map.
func (s *Service) queryNamespaces(
	ctx context.Context, namespaces []string, vector []float32, topK int,
) map[string]float64 {
	if s.parallel {
		return s.queryParallel(ctx, namespaces, vector, topK)
	}
	return s.querySequential(ctx, namespaces, vector, topK)
}

func (s *Service) querySequential(
	ctx context.Context, namespaces []string, vector []float32, topK int,
) map[string]float64 {
	scores := make(map[string]float64)
	for _, ns := range namespaces {
		matches, err := s.index.Query(ctx, ns, vector, topK)
		if err != nil {
			s.skipNamespace(ns, err)
			continue
		}
		mergeMatches(scores, matches)
	}
	return scores
}

// queryParallel issues the namespace queries concurrently. The merge is
// identical to the sequential path, so for the same inputs the final ranked
// output is indistinguishable.
func (s *Service) queryParallel(
	ctx context.Context, namespaces []string, vector []float32, topK int,
) map[string]float64 {
	scores := make(map[string]float64)
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, ns := range namespaces {
		ns := ns
		g.Go(func() error {
			matches, err := s.index.Query(gctx, ns, vector, topK)
			if err != nil {
				s.skipNamespace(ns, err)
				return nil
			}
			mu.Lock()
			mergeMatches(scores, matches)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return scores
}

func (s *Service) skipNamespace(ns string, err error) {
	metrics.NamespaceQueryErrorsTotal.WithLabelValues(ns).Inc()
	s.logger.Warn("Namespace query failed, skipping",
		zap.String("namespace", ns),
		zap.Error(err),
	)
}

func mergeMatches(scores map[string]float64, matches []search.Match) {
	for _, m := range matches {
		if m.Title == "" {
			continue
		}
		if cur, ok := scores[m.Title]; !ok || m.Score > cur {
			scores[m.Title] = m.Score
		}
	}
}

// rank converts the merged score map into a deterministic descending order:
// score first, title as the tie-break.
func rank(scores map[string]float64) []search.Match {
	out := make([]search.Match, 0, len(scores))
	for title, score := range scores {
		out = append(out, search.Match{Title: title, Score: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Title < out[j].Title
	})
	return out
}

func scoreValues(scores map[string]float64) []float64 {
	out := make([]float64, 0, len(scores))
	for _, s := range scores {
		out = append(out, s)
	}
	return out
}

func exclude(namespaces []string, drop string) []string {
	out := make([]string, 0, len(namespaces))
	for _, ns := range namespaces {
		if ns != drop {
			out = append(out, ns)
		}
	}
	return out
}
