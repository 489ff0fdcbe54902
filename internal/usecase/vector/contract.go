package vector

import (
	"context"

	"github.com/shirokane-labs/cardex/internal/domain/search"
)

// Index queries one similarity-index namespace.
type Index interface {
	Query(ctx context.Context, namespace string, vector []float32, topK int) ([]search.Match, error)
}
