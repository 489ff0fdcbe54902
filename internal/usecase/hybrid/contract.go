package hybrid

import (
	"context"

	"github.com/shirokane-labs/cardex/internal/domain/card"
	"github.com/shirokane-labs/cardex/internal/domain/query"
	"github.com/shirokane-labs/cardex/internal/domain/search"
	"github.com/shirokane-labs/cardex/internal/usecase/vector"
)

// Classifier assigns a retrieval strategy to a raw query.
type Classifier interface {
	Classify(ctx context.Context, rawQuery string) query.Classification
}

// FilterEngine evaluates structured filters over the corpus.
type FilterEngine interface {
	Filter(ctx context.Context, rawQuery string, cls query.Classification, topK int) []search.ContextItem
}

// VectorEngine runs multi-namespace similarity retrieval.
type VectorEngine interface {
	Search(ctx context.Context, req vector.Request) []search.Match
}

// CorpusReader supplies card records for resolving context texts.
type CorpusReader interface {
	Records() ([]card.Record, error)
}
