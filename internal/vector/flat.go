package vector

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
)

var (
	// ErrNoVectors is returned when an index is built from an empty vector set.
	ErrNoVectors = errors.New("no vectors to index")
	// ErrDimensionMismatch is returned when a vector's dimension does not match the index.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

const (
	indexMagic   uint32 = 0x43414456 // "CADV"
	indexVersion uint32 = 1
)

// FlatIndex is an exact nearest-neighbor index over a fixed set of vectors.
// Search computes squared L2 distance against every stored vector; no
// approximation, no training step. Positions are assigned by insertion order
// and are stable across Save/Load.
type FlatIndex struct {
	dimensions int
	vectors    [][]float32
}

// Hit is a single search result: the position of the vector in the index and
// its squared L2 distance from the query.
type Hit struct {
	Position int
	Distance float64
}

// NewFlatIndex builds an index over the given vectors. All vectors must share
// the same dimension; the set must be non-empty.
func NewFlatIndex(vectors [][]float32) (*FlatIndex, error) {
	if len(vectors) == 0 {
		return nil, ErrNoVectors
	}
	dim := len(vectors[0])
	if dim == 0 {
		return nil, fmt.Errorf("%w: zero-dimensional vector at position 0", ErrDimensionMismatch)
	}
	stored := make([][]float32, len(vectors))
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("%w: vector %d has dimension %d, expected %d", ErrDimensionMismatch, i, len(v), dim)
		}
		vec := make([]float32, dim)
		copy(vec, v)
		stored[i] = vec
	}
	return &FlatIndex{dimensions: dim, vectors: stored}, nil
}

// Search returns up to limit hits ordered by ascending distance. Ties are
// broken by lower position. limit larger than the index size is capped.
func (idx *FlatIndex) Search(query []float32, limit int) ([]Hit, error) {
	if len(query) != idx.dimensions {
		return nil, fmt.Errorf("%w: query has dimension %d, index has %d", ErrDimensionMismatch, len(query), idx.dimensions)
	}
	if limit <= 0 {
		return nil, nil
	}
	if limit > len(idx.vectors) {
		limit = len(idx.vectors)
	}

	hits := make([]Hit, len(idx.vectors))
	for i, vec := range idx.vectors {
		var dist float64
		for j, q := range query {
			d := float64(q - vec[j])
			dist += d * d
		}
		hits[i] = Hit{Position: i, Distance: dist}
	}
	sort.SliceStable(hits, func(a, b int) bool {
		if hits[a].Distance != hits[b].Distance {
			return hits[a].Distance < hits[b].Distance
		}
		return hits[a].Position < hits[b].Position
	})
	return hits[:limit], nil
}

// Size returns the number of stored vectors.
func (idx *FlatIndex) Size() int {
	return len(idx.vectors)
}

// Dimensions returns the vector dimension.
func (idx *FlatIndex) Dimensions() int {
	return idx.dimensions
}

// Save writes the index to path. The file is written to a temp file in the
// same directory and renamed into place so a crash never leaves a partial
// index behind.
//
// Layout (little-endian): magic, version, dimensions, count as uint32,
// then count*dimensions float32 values.
func (idx *FlatIndex) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create index directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".index-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp index file: %w", err)
	}
	defer os.Remove(tmp.Name())

	header := []uint32{indexMagic, indexVersion, uint32(idx.dimensions), uint32(len(idx.vectors))}
	for _, v := range header {
		if err := binary.Write(tmp, binary.LittleEndian, v); err != nil {
			tmp.Close()
			return fmt.Errorf("write index header: %w", err)
		}
	}
	for _, vec := range idx.vectors {
		if err := binary.Write(tmp, binary.LittleEndian, vec); err != nil {
			tmp.Close()
			return fmt.Errorf("write index vectors: %w", err)
		}
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp index file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace index file: %w", err)
	}
	return nil
}

// Load reads an index written by Save. Truncated or malformed files are
// reported as errors, never as an empty index.
func Load(path string) (*FlatIndex, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var magic, version, dims, count uint32
	for _, v := range []*uint32{&magic, &version, &dims, &count} {
		if err := binary.Read(f, binary.LittleEndian, v); err != nil {
			return nil, fmt.Errorf("read index header: %w", err)
		}
	}
	if magic != indexMagic {
		return nil, fmt.Errorf("not an index file: bad magic 0x%08x", magic)
	}
	if version != indexVersion {
		return nil, fmt.Errorf("unsupported index version %d", version)
	}
	if dims == 0 || count == 0 {
		return nil, fmt.Errorf("invalid index header: dimensions=%d count=%d", dims, count)
	}

	vectors := make([][]float32, count)
	for i := range vectors {
		vec := make([]float32, dims)
		if err := binary.Read(f, binary.LittleEndian, vec); err != nil {
			return nil, fmt.Errorf("read vector %d: %w", i, err)
		}
		vectors[i] = vec
	}
	// Anything left over means the header lied about the count.
	var trailing [1]byte
	if _, err := f.Read(trailing[:]); err != io.EOF {
		return nil, fmt.Errorf("index file has trailing data")
	}
	return &FlatIndex{dimensions: int(dims), vectors: vectors}, nil
}
