package retrieval

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/finsight/cardadvisor/internal/embedding"
	"github.com/finsight/cardadvisor/internal/models"
	"github.com/finsight/cardadvisor/internal/vector"
)

const (
	vectorsFile = "vectors.bin"
	chunksFile  = "chunks.json"
)

// Index pairs an exact vector index with the chunk metadata it was built
// from. Position i in the vector index always corresponds to chunks[i]; the
// two are persisted together and validated against each other on load, so a
// vector can never resolve to the wrong chunk.
type Index struct {
	flat   *vector.FlatIndex
	chunks []models.Chunk
}

// BuildIndex embeds every chunk's text and builds an index over the result.
// The embedding batch preserves input order, which is what keeps vector
// positions aligned with chunk positions.
func BuildIndex(ctx context.Context, chunks []models.Chunk, embedder embedding.Embedder) (*Index, error) {
	if len(chunks) == 0 {
		return nil, ErrEmptyIndex
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	flat, err := vector.NewFlatIndex(vectors)
	if err != nil {
		return nil, fmt.Errorf("build vector index: %w", err)
	}
	stored := make([]models.Chunk, len(chunks))
	copy(stored, chunks)
	return &Index{flat: flat, chunks: stored}, nil
}

// LoadIndex reads a persisted index pair from dir and validates it against
// the configured embedding dimension. Both files must be present; a missing
// pair is ErrIndexMissing, anything undecodable or inconsistent is
// ErrIndexCorrupt.
func LoadIndex(dir string, dimensions int) (*Index, error) {
	vecPath := filepath.Join(dir, vectorsFile)
	chunkPath := filepath.Join(dir, chunksFile)

	if _, err := os.Stat(vecPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrIndexMissing, vecPath)
	}
	if _, err := os.Stat(chunkPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrIndexMissing, chunkPath)
	}

	flat, err := vector.Load(vecPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexCorrupt, err)
	}

	data, err := os.ReadFile(chunkPath)
	if err != nil {
		return nil, fmt.Errorf("read chunk metadata: %w", err)
	}
	var chunks []models.Chunk
	if err := json.Unmarshal(data, &chunks); err != nil {
		return nil, fmt.Errorf("%w: decode chunk metadata: %v", ErrIndexCorrupt, err)
	}

	if len(chunks) != flat.Size() {
		return nil, fmt.Errorf("%w: %d vectors but %d chunks", ErrIndexCorrupt, flat.Size(), len(chunks))
	}
	if dimensions > 0 && flat.Dimensions() != dimensions {
		return nil, fmt.Errorf("%w: index has %d, configured %d", ErrDimensionMismatch, flat.Dimensions(), dimensions)
	}
	return &Index{flat: flat, chunks: chunks}, nil
}

// Save persists the index pair to dir. Each file is written atomically; a
// crash mid-save leaves the previous pair intact.
func (idx *Index) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create index directory: %w", err)
	}
	if err := idx.flat.Save(filepath.Join(dir, vectorsFile)); err != nil {
		return fmt.Errorf("save vectors: %w", err)
	}

	data, err := json.MarshalIndent(idx.chunks, "", "  ")
	if err != nil {
		return fmt.Errorf("encode chunk metadata: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".chunks-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp metadata file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write chunk metadata: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp metadata file: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(dir, chunksFile)); err != nil {
		return fmt.Errorf("replace chunk metadata: %w", err)
	}
	return nil
}

// Size returns the number of indexed chunks.
func (idx *Index) Size() int {
	if idx == nil {
		return 0
	}
	return len(idx.chunks)
}

// Dimensions returns the vector dimension of the index.
func (idx *Index) Dimensions() int {
	if idx == nil {
		return 0
	}
	return idx.flat.Dimensions()
}

// search runs a raw nearest-neighbor query and resolves hits to chunks.
func (idx *Index) search(query []float32, limit int) ([]vector.Hit, error) {
	hits, err := idx.flat.Search(query, limit)
	if err != nil {
		if errors.Is(err, vector.ErrDimensionMismatch) {
			return nil, fmt.Errorf("%w: %v", ErrDimensionMismatch, err)
		}
		return nil, err
	}
	return hits, nil
}
