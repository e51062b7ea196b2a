package storage

import (
	"context"
	"errors"

	"github.com/finsight/cardadvisor/internal/models"
)

// ErrCardNotFound is returned when a card name has no row.
var ErrCardNotFound = errors.New("card not found")

// Storage persists the ingested corpus: one row per card document plus the
// chunks derived from it. The chunk table mirrors the vector index metadata
// so card listings and status queries never need the index on disk.
type Storage interface {
	// ReplaceCorpus atomically replaces all cards and chunks with the given
	// set. Ingestion is whole-corpus; partial corpora are never visible.
	ReplaceCorpus(ctx context.Context, cards []models.CardDocument, chunks []models.Chunk) error

	GetCard(ctx context.Context, name string) (*models.CardDocument, error)
	ListCards(ctx context.Context) ([]models.CardDocument, error)
	GetChunksByCard(ctx context.Context, cardName string) ([]models.Chunk, error)

	CountCards(ctx context.Context) (int, error)
	CountChunks(ctx context.Context) (int, error)

	Close() error
}
