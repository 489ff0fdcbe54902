package domain

import "errors"

var (
	// ErrCorpusNotLoaded signals that no card corpus snapshot is available yet.
	ErrCorpusNotLoaded = errors.New("corpus not loaded")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrClassifierUnavailable signals that the remote classification provider failed.
	ErrClassifierUnavailable = errors.New("classification provider unavailable")
	// ErrIndexUnavailable signals that no similarity index backend is configured or reachable.
	ErrIndexUnavailable = errors.New("similarity index unavailable")
)
