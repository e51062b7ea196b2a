package embedding

import (
	"context"
	"fmt"
	"sort"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const (
	defaultBatchSize  = 32
	defaultMaxRetries = 3
	defaultRetryDelay = 2 * time.Second
	requestTimeout    = 30 * time.Second
)

// OpenAIEmbedder produces embeddings via the OpenAI embeddings API.
// Texts are embedded in fixed-size batches; the result order always matches
// the input order regardless of batch size. API responses are best-effort
// deterministic; the index never relies on re-embedding to recover alignment.
type OpenAIEmbedder struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
	batchSize  int
	maxRetries int
	retryDelay time.Duration
	cache      *EmbeddingCache
}

// NewOpenAIEmbedder creates an embedder for the given model and dimensions.
// dimensions is passed through to the API so reduced-dimension variants
// (e.g. 384) of text-embedding-3-small can be requested directly.
func NewOpenAIEmbedder(apiKey, model string, dimensions, batchSize, cacheSize int) (*OpenAIEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive, got %d", dimensions)
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &OpenAIEmbedder{
		client:     openai.NewClient(apiKey),
		model:      openai.EmbeddingModel(model),
		dimensions: dimensions,
		batchSize:  batchSize,
		maxRetries: defaultMaxRetries,
		retryDelay: defaultRetryDelay,
		cache:      NewEmbeddingCache(cacheSize),
	}, nil
}

// Embed returns the embedding for a single text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if cached, ok := e.cache.Get(text); ok {
		return cached, nil
	}
	vecs, err := e.embedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	e.cache.Set(text, vecs[0])
	return vecs[0], nil
}

// EmbedBatch embeds texts in batches of at most batchSize, preserving input order.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		end := start + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := e.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embed batch [%d:%d]: %w", start, end, err)
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (e *OpenAIEmbedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var lastErr error
	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(e.retryDelay * time.Duration(attempt)):
			}
		}

		reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
		resp, err := e.client.CreateEmbeddings(reqCtx, openai.EmbeddingRequestStrings{
			Input:      texts,
			Model:      e.model,
			Dimensions: e.dimensions,
		})
		cancel()

		if err != nil {
			lastErr = fmt.Errorf("attempt %d: %w", attempt+1, err)
			continue
		}
		if len(resp.Data) != len(texts) {
			lastErr = fmt.Errorf("attempt %d: got %d embeddings for %d inputs", attempt+1, len(resp.Data), len(texts))
			continue
		}

		// The API reports each vector's input position; order by it so the
		// returned slice is index-aligned with texts.
		sort.Slice(resp.Data, func(i, j int) bool { return resp.Data[i].Index < resp.Data[j].Index })
		vecs := make([][]float32, len(texts))
		for i, d := range resp.Data {
			if len(d.Embedding) != e.dimensions {
				return nil, fmt.Errorf("embedding dimension mismatch: got %d, expected %d", len(d.Embedding), e.dimensions)
			}
			vec := make([]float32, e.dimensions)
			copy(vec, d.Embedding)
			vecs[i] = vec
		}
		return vecs, nil
	}
	return nil, fmt.Errorf("failed to embed after %d attempts: %w", e.maxRetries+1, lastErr)
}

// Dimensions returns the embedding dimension.
func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op for OpenAIEmbedder.
func (e *OpenAIEmbedder) Close() error {
	return nil
}
