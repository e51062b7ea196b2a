package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/finsight/cardadvisor/internal/models"
)

// SQLiteStorage implements Storage backed by a local SQLite database.
type SQLiteStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteStorage opens (creating if needed) the database at dbPath and
// ensures the schema exists.
func NewSQLiteStorage(dbPath string, logger *zap.Logger) (*SQLiteStorage, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLiteStorage{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStorage) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS cards (
		name TEXT PRIMARY KEY,
		source_file TEXT NOT NULL,
		full_text_length INTEGER NOT NULL,
		num_chunks INTEGER NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);
	CREATE TABLE IF NOT EXISTS card_chunks (
		chunk_id INTEGER PRIMARY KEY,
		card_name TEXT NOT NULL,
		source_file TEXT NOT NULL,
		text TEXT NOT NULL,
		length INTEGER NOT NULL,
		FOREIGN KEY (card_name) REFERENCES cards(name) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_chunks_card ON card_chunks(card_name);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// ReplaceCorpus deletes all rows and inserts the new corpus in one transaction.
func (s *SQLiteStorage) ReplaceCorpus(ctx context.Context, cards []models.CardDocument, chunks []models.Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM card_chunks"); err != nil {
		return fmt.Errorf("clear chunks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM cards"); err != nil {
		return fmt.Errorf("clear cards: %w", err)
	}

	now := time.Now().UTC()
	cardStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO cards (name, source_file, full_text_length, num_chunks, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare card insert: %w", err)
	}
	defer cardStmt.Close()
	for _, c := range cards {
		created := c.CreatedAt
		if created.IsZero() {
			created = now
		}
		if _, err := cardStmt.ExecContext(ctx, c.Name, c.SourceFile, c.FullTextLength, c.NumChunks, created, now); err != nil {
			return fmt.Errorf("insert card %q: %w", c.Name, err)
		}
	}

	chunkStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO card_chunks (chunk_id, card_name, source_file, text, length)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare chunk insert: %w", err)
	}
	defer chunkStmt.Close()
	for _, ch := range chunks {
		if _, err := chunkStmt.ExecContext(ctx, ch.ID, ch.CardName, ch.SourceFile, ch.Text, ch.Length); err != nil {
			return fmt.Errorf("insert chunk %d: %w", ch.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit corpus: %w", err)
	}
	s.logger.Info("corpus replaced", zap.Int("cards", len(cards)), zap.Int("chunks", len(chunks)))
	return nil
}

// GetCard returns the card with the given name, or ErrCardNotFound.
func (s *SQLiteStorage) GetCard(ctx context.Context, name string) (*models.CardDocument, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT name, source_file, full_text_length, num_chunks, created_at, updated_at
		FROM cards WHERE name = ?`, name)
	var c models.CardDocument
	err := row.Scan(&c.Name, &c.SourceFile, &c.FullTextLength, &c.NumChunks, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrCardNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get card: %w", err)
	}
	return &c, nil
}

// ListCards returns all cards ordered by name.
func (s *SQLiteStorage) ListCards(ctx context.Context) ([]models.CardDocument, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, source_file, full_text_length, num_chunks, created_at, updated_at
		FROM cards ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	defer rows.Close()

	var cards []models.CardDocument
	for rows.Next() {
		var c models.CardDocument
		if err := rows.Scan(&c.Name, &c.SourceFile, &c.FullTextLength, &c.NumChunks, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

// GetChunksByCard returns the chunks for a card ordered by chunk ID.
func (s *SQLiteStorage) GetChunksByCard(ctx context.Context, cardName string) ([]models.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT chunk_id, card_name, source_file, text, length
		FROM card_chunks WHERE card_name = ? ORDER BY chunk_id`, cardName)
	if err != nil {
		return nil, fmt.Errorf("get chunks: %w", err)
	}
	defer rows.Close()

	var chunks []models.Chunk
	for rows.Next() {
		var ch models.Chunk
		if err := rows.Scan(&ch.ID, &ch.CardName, &ch.SourceFile, &ch.Text, &ch.Length); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		chunks = append(chunks, ch)
	}
	return chunks, rows.Err()
}

// CountCards returns the number of card rows.
func (s *SQLiteStorage) CountCards(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM cards").Scan(&n); err != nil {
		return 0, fmt.Errorf("count cards: %w", err)
	}
	return n, nil
}

// CountChunks returns the number of chunk rows.
func (s *SQLiteStorage) CountChunks(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM card_chunks").Scan(&n); err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return n, nil
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
