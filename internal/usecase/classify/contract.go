package classify

import (
	"context"

	"github.com/shirokane-labs/cardex/internal/domain/query"
)

// Provider produces a classification for a raw query, typically backed by a
// remote reasoning model.
type Provider interface {
	Classify(ctx context.Context, rawQuery string) (query.Classification, error)
}
