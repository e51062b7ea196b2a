package ingest

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/finsight/cardadvisor/internal/models"
)

// ErrBadChunkConfig is returned when chunk size and overlap cannot produce
// forward progress (overlap >= size, or non-positive size).
var ErrBadChunkConfig = errors.New("invalid chunk configuration")

// Chunker splits extracted card text into overlapping chunks for embedding.
// Splitting is sentence-first: text is divided on ". " boundaries and
// sentences are packed into chunks of at most chunkSize characters. Each
// chunk after the first begins with the last overlap characters of the
// previous chunk so that facts spanning a boundary stay retrievable.
type Chunker struct {
	chunkSize int
	overlap   int
}

// NewChunker validates the configuration and returns a Chunker.
func NewChunker(chunkSize, overlap int) (*Chunker, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", ErrBadChunkConfig, chunkSize)
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("%w: overlap %d must be in [0, %d)", ErrBadChunkConfig, overlap, chunkSize)
	}
	return &Chunker{chunkSize: chunkSize, overlap: overlap}, nil
}

// Chunk splits text into chunks. Empty or whitespace-only input yields no
// chunks. Input shorter than the chunk size comes back as a single chunk
// equal to the trimmed input. Chunk IDs are sequential from zero.
func (c *Chunker) Chunk(text string) ([]models.Chunk, error) {
	normalized := strings.ReplaceAll(text, "\n", " ")
	if strings.TrimSpace(normalized) == "" {
		return nil, nil
	}

	units := strings.Split(normalized, ". ")
	// Splitting consumed the separator; restore it so reassembled chunks
	// read as the original text did.
	for i := 0; i < len(units)-1; i++ {
		units[i] += ". "
	}

	var texts []string
	buf := ""

	emit := func() {
		chunk := strings.TrimSpace(buf)
		if chunk == "" {
			buf = ""
			return
		}
		texts = append(texts, chunk)
		if c.overlap > 0 && len(chunk) > c.overlap {
			// Overlap is measured in bytes; back the seed up to a rune start
			// so a boundary inside a multi-byte rune never produces a chunk
			// beginning with invalid UTF-8.
			start := len(chunk) - c.overlap
			for start > 0 && !utf8.RuneStart(chunk[start]) {
				start--
			}
			buf = chunk[start:]
		} else if c.overlap > 0 {
			buf = chunk
		} else {
			buf = ""
		}
	}

	add := func(piece string) {
		if buf != "" && len(buf)+len(piece) > c.chunkSize {
			emit()
		}
		buf += piece
	}

	for _, unit := range units {
		if len(unit) <= c.chunkSize {
			add(unit)
			continue
		}
		// A sentence longer than the chunk size cannot be packed whole;
		// fall back to word boundaries. A single word longer than the
		// chunk size is emitted as its own oversized piece.
		for _, word := range strings.Fields(unit) {
			add(word + " ")
		}
	}
	if strings.TrimSpace(buf) != "" {
		texts = append(texts, strings.TrimSpace(buf))
	}

	chunks := make([]models.Chunk, len(texts))
	for i, t := range texts {
		chunks[i] = models.Chunk{
			ID:     i,
			Text:   t,
			Length: len(t),
		}
	}
	return chunks, nil
}
