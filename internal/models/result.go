package models

// SearchResult is a single retrieval hit. Chunk is a copy, never an alias into
// the index's chunk list, so callers may mutate it freely.
type SearchResult struct {
	Chunk Chunk `json:"chunk"`
	// Distance is the raw squared-L2 distance (non-negative, lower = closer).
	Distance float64 `json:"distance"`
	// Relevance is 1/(1+distance): strictly in (0,1], decreasing in distance.
	Relevance float64 `json:"relevance"`
	Rank      int     `json:"rank"`
}

// SearchRequest is the body for search and context requests.
type SearchRequest struct {
	Query      string `json:"query"`
	K          int    `json:"k,omitempty"`
	CardFilter string `json:"card_filter,omitempty"`
}

// SearchResponse is the response for a search request.
type SearchResponse struct {
	Results   []SearchResult `json:"results"`
	Total     int            `json:"total"`
	QueryTime int64          `json:"query_time_ms"`
	Query     string         `json:"query"`
}

// ContextResponse carries the formatted context block for a query.
type ContextResponse struct {
	Context string `json:"context"`
	Query   string `json:"query"`
}
