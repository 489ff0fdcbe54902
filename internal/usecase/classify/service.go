package classify

import (
	"context"

	"go.uber.org/zap"

	"github.com/shirokane-labs/cardex/internal/domain/query"
	"github.com/shirokane-labs/cardex/internal/metrics"
)

// Service classifies queries, preferring the configured provider and falling
// back to the lexical heuristic when the provider is unreachable.
type Service struct {
	provider  Provider
	heuristic *Heuristic
	logger    *zap.Logger
}

// New creates a classification service. provider may be nil for pure
// heuristic mode.
func New(provider Provider, heuristic *Heuristic, logger *zap.Logger) *Service {
	return &Service{provider: provider, heuristic: heuristic, logger: logger}
}

// Classify assigns a retrieval strategy to a raw query. It never fails:
// provider errors degrade silently to the heuristic path.
func (s *Service) Classify(ctx context.Context, rawQuery string) query.Classification {
	if s.provider != nil {
		c, err := s.provider.Classify(ctx, rawQuery)
		if err == nil {
			return c
		}
		metrics.EngineFallbacksTotal.WithLabelValues("classifier_heuristic").Inc()
		s.logger.Warn("Classification provider unavailable, using heuristic",
			zap.Error(err),
		)
	}
	return s.heuristic.Classify(rawQuery)
}
