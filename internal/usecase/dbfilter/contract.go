package dbfilter

import "github.com/shirokane-labs/cardex/internal/domain/card"

// CorpusReader supplies the current card corpus snapshot.
type CorpusReader interface {
	Records() ([]card.Record, error)
}
