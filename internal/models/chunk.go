// Package models defines core data structures for card documents, chunks, and search results.
package models

// Chunk is a bounded contiguous span of card-agreement text carrying retrieval
// metadata. Chunk IDs are sequential from 0 across the indexed corpus, and the
// chunk at position i of an index's chunk list always corresponds to the
// vector at position i of the vector index.
type Chunk struct {
	ID         int    `json:"chunk_id"`
	Text       string `json:"text"`
	Length     int    `json:"length"`
	CardName   string `json:"card_name"`
	SourceFile string `json:"source_file"`
}
