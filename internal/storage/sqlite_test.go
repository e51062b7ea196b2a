package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/finsight/cardadvisor/internal/models"
)

func openTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	s, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "cards.db"), nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedCorpus(t *testing.T, s *SQLiteStorage) {
	t.Helper()
	cards := []models.CardDocument{
		{Name: "Chase Freedom Flex", SourceFile: "chase_freedom_flex.pdf", FullTextLength: 1200, NumChunks: 2},
		{Name: "Amex Gold", SourceFile: "amex_gold.pdf", FullTextLength: 800, NumChunks: 1},
	}
	chunks := []models.Chunk{
		{ID: 0, Text: "No annual fee.", Length: 14, CardName: "Chase Freedom Flex", SourceFile: "chase_freedom_flex.pdf"},
		{ID: 1, Text: "5% rotating categories.", Length: 23, CardName: "Chase Freedom Flex", SourceFile: "chase_freedom_flex.pdf"},
		{ID: 2, Text: "4x at restaurants.", Length: 18, CardName: "Amex Gold", SourceFile: "amex_gold.pdf"},
	}
	if err := s.ReplaceCorpus(context.Background(), cards, chunks); err != nil {
		t.Fatal(err)
	}
}

func TestReplaceCorpusAndCounts(t *testing.T) {
	s := openTestStorage(t)
	seedCorpus(t, s)
	ctx := context.Background()

	nCards, err := s.CountCards(ctx)
	if err != nil {
		t.Fatal(err)
	}
	nChunks, err := s.CountChunks(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if nCards != 2 || nChunks != 3 {
		t.Errorf("cards=%d chunks=%d", nCards, nChunks)
	}
}

func TestReplaceCorpusReplacesOldRows(t *testing.T) {
	s := openTestStorage(t)
	seedCorpus(t, s)
	ctx := context.Background()

	newCards := []models.CardDocument{{Name: "Citi Double Cash", SourceFile: "citi_double_cash.pdf", FullTextLength: 400, NumChunks: 1}}
	newChunks := []models.Chunk{{ID: 0, Text: "2% everywhere.", Length: 14, CardName: "Citi Double Cash", SourceFile: "citi_double_cash.pdf"}}
	if err := s.ReplaceCorpus(ctx, newCards, newChunks); err != nil {
		t.Fatal(err)
	}

	if _, err := s.GetCard(ctx, "Amex Gold"); !errors.Is(err, ErrCardNotFound) {
		t.Errorf("old card still present: err=%v", err)
	}
	cards, err := s.ListCards(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(cards) != 1 || cards[0].Name != "Citi Double Cash" {
		t.Errorf("cards=%+v", cards)
	}
}

func TestGetCard(t *testing.T) {
	s := openTestStorage(t)
	seedCorpus(t, s)
	ctx := context.Background()

	card, err := s.GetCard(ctx, "Amex Gold")
	if err != nil {
		t.Fatal(err)
	}
	if card.SourceFile != "amex_gold.pdf" || card.NumChunks != 1 {
		t.Errorf("card=%+v", card)
	}
	if card.CreatedAt.IsZero() || card.UpdatedAt.IsZero() {
		t.Error("timestamps should be set on insert")
	}

	if _, err := s.GetCard(ctx, "Nonexistent"); !errors.Is(err, ErrCardNotFound) {
		t.Errorf("err=%v", err)
	}
}

func TestListCardsOrdered(t *testing.T) {
	s := openTestStorage(t)
	seedCorpus(t, s)

	cards, err := s.ListCards(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(cards) != 2 || cards[0].Name != "Amex Gold" || cards[1].Name != "Chase Freedom Flex" {
		t.Errorf("cards=%+v", cards)
	}
}

func TestGetChunksByCard(t *testing.T) {
	s := openTestStorage(t)
	seedCorpus(t, s)

	chunks, err := s.GetChunksByCard(context.Background(), "Chase Freedom Flex")
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks", len(chunks))
	}
	if chunks[0].ID != 0 || chunks[1].ID != 1 {
		t.Errorf("chunks out of order: %+v", chunks)
	}
	if chunks[0].Text != "No annual fee." {
		t.Errorf("chunk text=%q", chunks[0].Text)
	}
}
