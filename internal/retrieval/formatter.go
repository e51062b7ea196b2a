package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/finsight/cardadvisor/internal/models"
)

// NoContextSentinel is the exact string produced when a query matches
// nothing. Downstream prompts check for it verbatim, so it must not change.
const NoContextSentinel = "No relevant information found."

// FormatContext renders search results as a numbered context block for
// prompt assembly. Empty results produce NoContextSentinel.
func FormatContext(results []models.SearchResult) string {
	if len(results) == 0 {
		return NoContextSentinel
	}
	var b strings.Builder
	b.WriteString("RELEVANT INFORMATION FROM CREDIT CARD DOCUMENTS:\n\n")
	for i, res := range results {
		fmt.Fprintf(&b, "[Source %d: %s - Relevance: %.2f]\n%s\n\n", i+1, res.Chunk.CardName, res.Relevance, res.Chunk.Text)
	}
	return b.String()
}

// ContextForQuery searches and formats in one step.
func (r *Retriever) ContextForQuery(ctx context.Context, query string, k int, cardFilter string) (string, error) {
	results, err := r.Search(ctx, query, k, cardFilter)
	if err != nil {
		return "", err
	}
	return FormatContext(results), nil
}
