package index

import (
	"context"
	"fmt"
	"strings"

	"github.com/shirokane-labs/cardex/internal/db"
	"github.com/shirokane-labs/cardex/internal/domain/search"
)

// KeyPrefix namespaces every cardex index in the backend.
const KeyPrefix = "cardex:"

// store is the consumer interface for index queries (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// Repo implements the vector usecase's Index contract over a Redis
// FT index per namespace.
type Repo struct {
	store store
}

// New creates a similarity index repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Query runs a KNN search against one namespace's index and resolves
// titles from entry metadata.
func (r *Repo) Query(ctx context.Context, namespace string, vector []float32, topK int) ([]search.Match, error) {
	q := &db.KNNQuery{
		IndexName:    indexName(namespace),
		Vector:       vector,
		K:            topK,
		ReturnFields: []string{"title", "__vector_score"},
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query namespace %s: %w", namespace, err)
	}

	matches := make([]search.Match, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		title := e.Fields["title"]
		if title == "" {
			// Key layout is cardex:ns:<namespace>:<title>.
			if idx := strings.LastIndex(e.Key, ":"); idx >= 0 {
				title = e.Key[idx+1:]
			}
		}
		if title == "" {
			continue
		}
		matches = append(matches, search.Match{Title: title, Score: e.Score})
	}
	return matches, nil
}

func indexName(namespace string) string {
	return fmt.Sprintf("%sns:%s:idx", KeyPrefix, namespace)
}
