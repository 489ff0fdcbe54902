package domain

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
)

// Embedder is the shared text vectorization contract between layers.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// HealthChecker verifies embedding provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingResult carries the embedding vector and token usage through the decorator chain.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// InstructionEmbedder is a domain decorator that prepends instruction text before embedding.
type InstructionEmbedder struct {
	inner       Embedder
	instruction string
}

// NewInstructionEmbedder creates a decorator that prepends instruction text.
func NewInstructionEmbedder(inner Embedder, instruction string) *InstructionEmbedder {
	return &InstructionEmbedder{inner: inner, instruction: instruction}
}

// Embed prepends instruction and delegates to inner embedder.
func (e *InstructionEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	result, err := e.inner.Embed(ctx, e.instruction+text)
	if err != nil {
		return EmbeddingResult{}, fmt.Errorf("instruction embed: %w", err)
	}
	return result, nil
}

// PseudoEmbedder derives a deterministic unit vector from the text digest.
// It stands in for a real provider in tests and offline setups; the retrieval
// pipeline behaves identically with either implementation.
type PseudoEmbedder struct {
	dimensions int
}

// NewPseudoEmbedder creates a deterministic embedding substitute.
func NewPseudoEmbedder(dimensions int) *PseudoEmbedder {
	if dimensions <= 0 {
		dimensions = 64
	}
	return &PseudoEmbedder{dimensions: dimensions}
}

// Embed hashes the text and expands the digest into a normalized vector.
// Never fails: the caller's control flow must not depend on provider availability.
func (e *PseudoEmbedder) Embed(_ context.Context, text string) (EmbeddingResult, error) {
	vec := make([]float32, e.dimensions)
	seed := sha256.Sum256([]byte(text))

	var norm float64
	digest := seed
	for i := range vec {
		if i%len(digest) == 0 && i > 0 {
			digest = sha256.Sum256(digest[:])
		}
		bits := binary.LittleEndian.Uint32(digest[(i*4)%(len(digest)-3):])
		v := float64(bits)/float64(math.MaxUint32)*2 - 1
		vec[i] = float32(v)
		norm += v * v
	}

	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}

	return EmbeddingResult{Embedding: vec}, nil
}
