package retrieval

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/finsight/cardadvisor/internal/embedding"
	"github.com/finsight/cardadvisor/internal/models"
)

// DefaultOverfetch is how many times k the retriever fetches when a card
// filter is active, so filtering still leaves enough candidates.
const DefaultOverfetch = 3

// Retriever answers similarity queries against the current index. The index
// is swappable at runtime (rebuilds replace it atomically under the lock);
// a retriever with no index answers every query with empty results rather
// than an error.
type Retriever struct {
	embedder  embedding.Embedder
	overfetch int
	logger    *zap.Logger

	mu    sync.RWMutex
	index *Index
}

// NewRetriever creates a retriever. index may be nil when no corpus has been
// ingested yet.
func NewRetriever(embedder embedding.Embedder, index *Index, overfetch int, logger *zap.Logger) *Retriever {
	if overfetch < 1 {
		overfetch = DefaultOverfetch
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retriever{
		embedder:  embedder,
		overfetch: overfetch,
		logger:    logger,
		index:     index,
	}
}

// Ready reports whether the retriever has a non-empty index.
func (r *Retriever) Ready() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.index.Size() > 0
}

// IndexSize returns the number of indexed chunks, zero when no index is loaded.
func (r *Retriever) IndexSize() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.index.Size()
}

// ReplaceIndex swaps in a freshly built index. In-flight searches finish
// against the old index.
func (r *Retriever) ReplaceIndex(index *Index) {
	r.mu.Lock()
	r.index = index
	r.mu.Unlock()
	r.logger.Info("index replaced", zap.Int("chunks", index.Size()))
}

// Search returns the k most similar chunks for the query. When cardFilter is
// non-empty only chunks whose card name contains the filter
// (case-insensitive) are returned; the retriever fetches overfetch*k raw
// candidates in that case so the filter still has enough to choose from.
// An empty or unloaded index yields empty results, not an error.
func (r *Retriever) Search(ctx context.Context, query string, k int, cardFilter string) ([]models.SearchResult, error) {
	if k <= 0 {
		return nil, nil
	}

	r.mu.RLock()
	index := r.index
	r.mu.RUnlock()
	if index.Size() == 0 {
		return nil, nil
	}

	start := time.Now()
	queryVec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	fetch := k
	if cardFilter != "" {
		fetch = k * r.overfetch
	}
	hits, err := index.search(queryVec, fetch)
	if err != nil {
		return nil, err
	}

	filter := strings.ToLower(cardFilter)
	results := make([]models.SearchResult, 0, k)
	for _, hit := range hits {
		chunk := index.chunks[hit.Position]
		if filter != "" && !strings.Contains(strings.ToLower(chunk.CardName), filter) {
			continue
		}
		results = append(results, models.SearchResult{
			Chunk:     chunk,
			Distance:  hit.Distance,
			Relevance: 1.0 / (1.0 + hit.Distance),
			Rank:      len(results) + 1,
		})
		if len(results) == k {
			break
		}
	}

	r.logger.Debug("search complete",
		zap.String("query", query),
		zap.Int("k", k),
		zap.String("card_filter", cardFilter),
		zap.Int("results", len(results)),
		zap.Duration("took", time.Since(start)))
	return results, nil
}
