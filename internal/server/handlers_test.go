package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/finsight/cardadvisor/internal/config"
	"github.com/finsight/cardadvisor/internal/embedding"
	"github.com/finsight/cardadvisor/internal/models"
	"github.com/finsight/cardadvisor/internal/retrieval"
	"github.com/finsight/cardadvisor/internal/storage"
)

type stubStore struct {
	cards  []models.CardDocument
	chunks []models.Chunk
}

func (s *stubStore) ReplaceCorpus(context.Context, []models.CardDocument, []models.Chunk) error {
	return nil
}

func (s *stubStore) GetCard(_ context.Context, name string) (*models.CardDocument, error) {
	for i := range s.cards {
		if s.cards[i].Name == name {
			return &s.cards[i], nil
		}
	}
	return nil, storage.ErrCardNotFound
}

func (s *stubStore) ListCards(context.Context) ([]models.CardDocument, error) { return s.cards, nil }

func (s *stubStore) GetChunksByCard(_ context.Context, name string) ([]models.Chunk, error) {
	var out []models.Chunk
	for _, c := range s.chunks {
		if c.CardName == name {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *stubStore) CountCards(context.Context) (int, error)  { return len(s.cards), nil }
func (s *stubStore) CountChunks(context.Context) (int, error) { return len(s.chunks), nil }
func (s *stubStore) Close() error                             { return nil }

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)

	emb := embedding.NewMockEmbedder(16)
	chunks := []models.Chunk{
		{ID: 0, Text: "The Chase Freedom Flex has no annual fee.", Length: 41, CardName: "Chase Freedom Flex", SourceFile: "chase_freedom_flex.pdf"},
		{ID: 1, Text: "Amex Gold earns 4x points at restaurants.", Length: 41, CardName: "Amex Gold", SourceFile: "amex_gold.pdf"},
	}
	idx, err := retrieval.BuildIndex(context.Background(), chunks, emb)
	if err != nil {
		t.Fatal(err)
	}
	retriever := retrieval.NewRetriever(emb, idx, retrieval.DefaultOverfetch, nil)

	store := &stubStore{
		cards: []models.CardDocument{
			{Name: "Amex Gold", SourceFile: "amex_gold.pdf", NumChunks: 1},
			{Name: "Chase Freedom Flex", SourceFile: "chase_freedom_flex.pdf", NumChunks: 1},
		},
		chunks: chunks,
	}
	return New(cfg, retriever, store, nil, nil)
}

func postJSON(t *testing.T, h http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandleSearch(t *testing.T) {
	s := newTestServer(t)
	rec := postJSON(t, s.Handler(), "/api/v1/search", models.SearchRequest{Query: "annual fee", K: 2})
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	var resp models.SearchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Total != 2 || len(resp.Results) != 2 {
		t.Errorf("total=%d results=%d", resp.Total, len(resp.Results))
	}
	if resp.Results[0].Rank != 1 {
		t.Errorf("rank=%d", resp.Results[0].Rank)
	}
}

func TestHandleSearchCardFilter(t *testing.T) {
	s := newTestServer(t)
	rec := postJSON(t, s.Handler(), "/api/v1/search", models.SearchRequest{Query: "rewards", K: 5, CardFilter: "amex"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	var resp models.SearchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Total != 1 || resp.Results[0].Chunk.CardName != "Amex Gold" {
		t.Errorf("resp=%+v", resp)
	}
}

func TestHandleSearchMissingQuery(t *testing.T) {
	s := newTestServer(t)
	rec := postJSON(t, s.Handler(), "/api/v1/search", models.SearchRequest{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status=%d", rec.Code)
	}
}

func TestHandleContext(t *testing.T) {
	s := newTestServer(t)
	rec := postJSON(t, s.Handler(), "/api/v1/context", models.SearchRequest{Query: "annual fee", K: 1})
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	var resp models.ContextResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Context == "" || resp.Context == retrieval.NoContextSentinel {
		t.Errorf("context=%q", resp.Context)
	}
}

func TestHandleContextNoMatchesSentinel(t *testing.T) {
	s := newTestServer(t)
	rec := postJSON(t, s.Handler(), "/api/v1/context", models.SearchRequest{Query: "anything", K: 3, CardFilter: "discover"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	var resp models.ContextResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Context != retrieval.NoContextSentinel {
		t.Errorf("context=%q", resp.Context)
	}
}

func TestHandleCards(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cards", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	var resp struct {
		Cards []models.CardDocument `json:"cards"`
		Total int                   `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Total != 2 {
		t.Errorf("total=%d", resp.Total)
	}
}

func TestHandleCardNotFound(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cards/Nope", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status=%d", rec.Code)
	}
}

func TestHandleStatus(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	var resp statusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Ready || resp.IndexSize != 2 || resp.Advisor {
		t.Errorf("resp=%+v", resp)
	}
}

func TestHandleAdviseUnavailable(t *testing.T) {
	s := newTestServer(t)
	rec := postJSON(t, s.Handler(), "/api/v1/advise", adviseRequest{SpendingDescription: "dining"})
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status=%d", rec.Code)
	}
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status=%d", rec.Code)
	}
}
