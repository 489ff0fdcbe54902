package health

import "context"

// DBPinger checks similarity-index backend availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}

// CorpusChecker reports how many card records are loaded.
type CorpusChecker interface {
	Len() int
}
