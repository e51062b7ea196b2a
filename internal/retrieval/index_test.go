package retrieval

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/finsight/cardadvisor/internal/embedding"
	"github.com/finsight/cardadvisor/internal/models"
)

func TestBuildIndexEmpty(t *testing.T) {
	_, err := BuildIndex(context.Background(), nil, embedding.NewMockEmbedder(8))
	if !errors.Is(err, ErrEmptyIndex) {
		t.Errorf("err=%v", err)
	}
}

func TestIndexSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	emb := embedding.NewMockEmbedder(16)
	chunks := testChunks()

	idx, err := BuildIndex(context.Background(), chunks, emb)
	if err != nil {
		t.Fatal(err)
	}
	if err := idx.Save(dir); err != nil {
		t.Fatal(err)
	}

	loaded, err := LoadIndex(dir, 16)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Size() != len(chunks) {
		t.Fatalf("size=%d", loaded.Size())
	}
	for i, c := range loaded.chunks {
		if c.ID != chunks[i].ID || c.Text != chunks[i].Text || c.CardName != chunks[i].CardName {
			t.Errorf("chunk %d mismatch after reload: %+v", i, c)
		}
	}

	// A retriever over the reloaded index ranks identically to one over the original.
	orig := NewRetriever(emb, idx, DefaultOverfetch, nil)
	reloaded := NewRetriever(emb, loaded, DefaultOverfetch, nil)
	query := "annual fee dining"
	a, err := orig.Search(context.Background(), query, 3, "")
	if err != nil {
		t.Fatal(err)
	}
	b, err := reloaded.Search(context.Background(), query, 3, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(a) != len(b) {
		t.Fatalf("lens %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].Chunk.ID != b[i].Chunk.ID || a[i].Distance != b[i].Distance {
			t.Errorf("result %d differs after reload", i)
		}
	}
}

func TestLoadIndexMissing(t *testing.T) {
	_, err := LoadIndex(t.TempDir(), 16)
	if !errors.Is(err, ErrIndexMissing) {
		t.Errorf("err=%v", err)
	}
}

func TestLoadIndexMissingChunkFile(t *testing.T) {
	dir := t.TempDir()
	emb := embedding.NewMockEmbedder(8)
	idx, err := BuildIndex(context.Background(), testChunks(), emb)
	if err != nil {
		t.Fatal(err)
	}
	if err := idx.Save(dir); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(filepath.Join(dir, chunksFile)); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadIndex(dir, 8); !errors.Is(err, ErrIndexMissing) {
		t.Errorf("err=%v", err)
	}
}

func TestLoadIndexCountMismatch(t *testing.T) {
	dir := t.TempDir()
	emb := embedding.NewMockEmbedder(8)
	idx, err := BuildIndex(context.Background(), testChunks(), emb)
	if err != nil {
		t.Fatal(err)
	}
	if err := idx.Save(dir); err != nil {
		t.Fatal(err)
	}
	// Overwrite the metadata with fewer chunks than there are vectors.
	if err := os.WriteFile(filepath.Join(dir, chunksFile), []byte(`[{"chunk_id":0,"text":"x"}]`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadIndex(dir, 8); !errors.Is(err, ErrIndexCorrupt) {
		t.Errorf("err=%v", err)
	}
}

func TestLoadIndexDimensionMismatch(t *testing.T) {
	dir := t.TempDir()
	emb := embedding.NewMockEmbedder(8)
	idx, err := BuildIndex(context.Background(), testChunks(), emb)
	if err != nil {
		t.Fatal(err)
	}
	if err := idx.Save(dir); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadIndex(dir, 384); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("err=%v", err)
	}
}

func TestLoadIndexCorruptJSON(t *testing.T) {
	dir := t.TempDir()
	emb := embedding.NewMockEmbedder(8)
	idx, err := BuildIndex(context.Background(), []models.Chunk{{ID: 0, Text: "x", Length: 1}}, emb)
	if err != nil {
		t.Fatal(err)
	}
	if err := idx.Save(dir); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, chunksFile), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadIndex(dir, 8); !errors.Is(err, ErrIndexCorrupt) {
		t.Errorf("err=%v", err)
	}
}
