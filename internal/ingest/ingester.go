package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/finsight/cardadvisor/internal/embedding"
	"github.com/finsight/cardadvisor/internal/extract"
	"github.com/finsight/cardadvisor/internal/models"
	"github.com/finsight/cardadvisor/internal/retrieval"
	"github.com/finsight/cardadvisor/internal/storage"
)

// Report summarizes one ingestion run.
type Report struct {
	RunID      string        `json:"run_id"`
	Cards      int           `json:"cards"`
	Chunks     int           `json:"chunks"`
	Skipped    []string      `json:"skipped,omitempty"`
	Duration   time.Duration `json:"-"`
	DurationMS int64         `json:"duration_ms"`
}

// Ingester builds the corpus from a directory of card documents: extract
// text per file, chunk it, persist cards and chunks, embed everything and
// write the index pair. Ingestion is whole-corpus; each run replaces the
// previous corpus and index.
type Ingester struct {
	extractor  *extract.Extractor
	chunker    *Chunker
	embedder   embedding.Embedder
	store      storage.Storage
	extensions map[string]bool
	indexDir   string
	logger     *zap.Logger
}

// NewIngester wires an ingester. extensions lists allowed file suffixes
// (".pdf", ".txt", ...); indexDir is where the index pair is persisted.
func NewIngester(extractor *extract.Extractor, chunker *Chunker, embedder embedding.Embedder, store storage.Storage, extensions []string, indexDir string, logger *zap.Logger) *Ingester {
	if logger == nil {
		logger = zap.NewNop()
	}
	allowed := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		allowed[strings.ToLower(ext)] = true
	}
	return &Ingester{
		extractor:  extractor,
		chunker:    chunker,
		embedder:   embedder,
		store:      store,
		extensions: allowed,
		indexDir:   indexDir,
		logger:     logger,
	}
}

// IngestDirectory processes every supported file under dir and returns the
// freshly built index along with a run report. Files that fail extraction
// are skipped and reported, not fatal; an empty resulting corpus is an error.
func (ing *Ingester) IngestDirectory(ctx context.Context, dir string) (*retrieval.Index, *Report, error) {
	report := &Report{RunID: uuid.New().String()}
	start := time.Now()
	ing.logger.Info("ingestion started", zap.String("run_id", report.RunID), zap.String("dir", dir))

	files, err := ing.listFiles(dir)
	if err != nil {
		return nil, nil, err
	}

	var (
		cards     []models.CardDocument
		allChunks []models.Chunk
	)
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		text, err := ing.extractor.Extract(path)
		if err != nil {
			ing.logger.Warn("extraction failed, skipping", zap.String("file", path), zap.Error(err))
			report.Skipped = append(report.Skipped, filepath.Base(path))
			continue
		}
		text = Preprocess(text)
		cardName := extract.CardNameFromPath(path)

		chunks, err := ing.chunker.Chunk(text)
		if err != nil {
			return nil, nil, fmt.Errorf("chunk %s: %w", path, err)
		}
		if len(chunks) == 0 {
			ing.logger.Warn("no text extracted, skipping", zap.String("file", path))
			report.Skipped = append(report.Skipped, filepath.Base(path))
			continue
		}

		sourceFile := filepath.Base(path)
		for i := range chunks {
			chunks[i].ID = len(allChunks) + i
			chunks[i].CardName = cardName
			chunks[i].SourceFile = sourceFile
		}
		allChunks = append(allChunks, chunks...)
		cards = append(cards, models.CardDocument{
			Name:           cardName,
			SourceFile:     sourceFile,
			FullTextLength: len(text),
			NumChunks:      len(chunks),
		})
		ing.logger.Info("card processed", zap.String("card", cardName), zap.Int("chunks", len(chunks)))
	}

	if len(allChunks) == 0 {
		return nil, nil, fmt.Errorf("no ingestable documents in %s", dir)
	}

	index, err := retrieval.BuildIndex(ctx, allChunks, ing.embedder)
	if err != nil {
		return nil, nil, fmt.Errorf("build index: %w", err)
	}
	if err := index.Save(ing.indexDir); err != nil {
		return nil, nil, fmt.Errorf("save index: %w", err)
	}
	if err := ing.store.ReplaceCorpus(ctx, cards, allChunks); err != nil {
		return nil, nil, fmt.Errorf("store corpus: %w", err)
	}

	report.Cards = len(cards)
	report.Chunks = len(allChunks)
	report.Duration = time.Since(start)
	report.DurationMS = report.Duration.Milliseconds()
	ing.logger.Info("ingestion finished",
		zap.String("run_id", report.RunID),
		zap.Int("cards", report.Cards),
		zap.Int("chunks", report.Chunks),
		zap.Duration("took", report.Duration))
	return index, report, nil
}

// listFiles returns the supported files directly under dir, sorted by name
// so chunk IDs are stable across runs on the same corpus.
func (ing *Ingester) listFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read card directory: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ing.extensions[ext] {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}
