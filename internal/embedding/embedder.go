// Package embedding provides text embedding backends (ONNX, OpenAI, mock) and caching.
package embedding

import "context"

// Embedder produces vector embeddings for text. EmbedBatch is order-preserving:
// the vector at position i is the embedding of texts[i], regardless of internal
// batching. Implementations must embed the empty string like any other text so
// callers never have to special-case it.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}
