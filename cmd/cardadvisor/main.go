package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/finsight/cardadvisor/internal/advisor"
	"github.com/finsight/cardadvisor/internal/config"
	"github.com/finsight/cardadvisor/internal/embedding"
	"github.com/finsight/cardadvisor/internal/extract"
	"github.com/finsight/cardadvisor/internal/ingest"
	"github.com/finsight/cardadvisor/internal/retrieval"
	"github.com/finsight/cardadvisor/internal/server"
	"github.com/finsight/cardadvisor/internal/storage"
	"github.com/finsight/cardadvisor/internal/watcher"
	"github.com/finsight/cardadvisor/pkg/utils"
)

var version = "0.3.0"

func main() {
	godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "server":
		err = runServer(os.Args[2:])
	case "ingest":
		err = runIngest(os.Args[2:])
	case "search":
		err = runSearch(os.Args[2:])
	case "context":
		err = runContext(os.Args[2:])
	case "advise":
		err = runAdvise(os.Args[2:])
	case "status":
		err = runStatus(os.Args[2:])
	case "version":
		fmt.Printf("cardadvisor %s\n", version)
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`cardadvisor - credit card document retrieval and advice

Usage:
  cardadvisor <command> [flags]

Commands:
  server    Run the HTTP API server
  ingest    Ingest card documents and build the index
  search    Search the indexed card documents
  context   Print the formatted context block for a query
  advise    Run the card recommendation pipeline
  status    Show corpus and index status
  version   Print version
  help      Show this help

Common flags:
  -config path    Config file (default: ./config.yaml)`)
}

// loadConfig loads the config file, falling back to defaults when the
// default path does not exist.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	if _, err := os.Stat("config.yaml"); err == nil {
		return config.Load("config.yaml")
	}
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	return cfg, nil
}

// components holds everything a command needs wired together.
type components struct {
	cfg       *config.Config
	logger    *zap.Logger
	store     storage.Storage
	embedder  embedding.Embedder
	retriever *retrieval.Retriever
	ingester  *ingest.Ingester
	advisor   *advisor.Orchestrator
}

func initComponents(configPath string, needIndex bool) (*components, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath, logger)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	embedder, err := newEmbedder(cfg, logger)
	if err != nil {
		store.Close()
		return nil, err
	}

	var index *retrieval.Index
	index, err = retrieval.LoadIndex(cfg.Storage.EmbeddingsDir, cfg.Embedding.Dimensions)
	if err != nil {
		if !errors.Is(err, retrieval.ErrIndexMissing) {
			store.Close()
			embedder.Close()
			return nil, fmt.Errorf("load index: %w", err)
		}
		if needIndex {
			store.Close()
			embedder.Close()
			return nil, fmt.Errorf("no index found in %s; run 'cardadvisor ingest' first", cfg.Storage.EmbeddingsDir)
		}
		logger.Info("no index on disk yet", zap.String("dir", cfg.Storage.EmbeddingsDir))
	}
	retriever := retrieval.NewRetriever(embedder, index, cfg.Retrieval.OverfetchMultiplier, logger)

	chunker, err := ingest.NewChunker(cfg.Retrieval.ChunkSize, cfg.Retrieval.ChunkOverlap)
	if err != nil {
		store.Close()
		embedder.Close()
		return nil, err
	}
	ingester := ingest.NewIngester(extract.NewExtractor(), chunker, embedder, store,
		cfg.Watch.Extensions, cfg.Storage.EmbeddingsDir, logger)

	var orch *advisor.Orchestrator
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		chat, err := advisor.NewOpenAIChatClient(apiKey, cfg.Advisor.MaxRetries,
			time.Duration(cfg.Advisor.RetryDelaySec)*time.Second,
			time.Duration(cfg.Advisor.TimeoutSec)*time.Second)
		if err != nil {
			store.Close()
			embedder.Close()
			return nil, err
		}
		orch = advisor.NewOrchestrator(chat, retriever, cfg.Advisor.ChatModel, cfg.Advisor.SelectorModel, logger)
	} else {
		logger.Warn("OPENAI_API_KEY not set, advisor pipeline disabled")
	}

	return &components{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		embedder:  embedder,
		retriever: retriever,
		ingester:  ingester,
		advisor:   orch,
	}, nil
}

func (c *components) close() {
	c.embedder.Close()
	c.store.Close()
	c.logger.Sync()
}

// newEmbedder picks the embedding backend. An unavailable ONNX runtime falls
// back to the mock embedder so local development works without native deps.
func newEmbedder(cfg *config.Config, logger *zap.Logger) (embedding.Embedder, error) {
	switch cfg.Embedding.Backend {
	case "onnx":
		emb, err := embedding.NewONNXEmbedder(cfg.Embedding.ModelPath,
			cfg.Embedding.Dimensions, cfg.Embedding.MaxTokens, cfg.Embedding.CacheSize)
		if err != nil {
			logger.Warn("ONNX embedder unavailable, using mock embedder", zap.Error(err))
			return embedding.NewMockEmbedder(cfg.Embedding.Dimensions), nil
		}
		return emb, nil
	case "openai":
		return embedding.NewOpenAIEmbedder(os.Getenv("OPENAI_API_KEY"), cfg.Embedding.Model,
			cfg.Embedding.Dimensions, cfg.Embedding.BatchSize, cfg.Embedding.CacheSize)
	case "mock":
		return embedding.NewMockEmbedder(cfg.Embedding.Dimensions), nil
	default:
		return nil, fmt.Errorf("unknown embedding backend %q", cfg.Embedding.Backend)
	}
}

func runServer(args []string) error {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", "", "config file path")
	fs.Parse(args)

	c, err := initComponents(*configPath, false)
	if err != nil {
		return err
	}
	defer c.close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.New(c.cfg, c.retriever, c.store, c.advisor, c.logger)

	if c.cfg.Watch.Enabled {
		w := watcher.New(c.cfg.Storage.CardsDir, c.cfg.Watch.Extensions,
			time.Duration(c.cfg.Watch.DebounceSec)*time.Second,
			func(ctx context.Context) {
				index, report, err := c.ingester.IngestDirectory(ctx, c.cfg.Storage.CardsDir)
				if err != nil {
					c.logger.Error("rebuild failed", zap.Error(err))
					return
				}
				c.retriever.ReplaceIndex(index)
				c.logger.Info("corpus rebuilt",
					zap.Int("cards", report.Cards), zap.Int("chunks", report.Chunks))
			}, c.logger)
		go func() {
			if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				c.logger.Error("watcher stopped", zap.Error(err))
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Stop(shutdownCtx)
}

func runIngest(args []string) error {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", "", "config file path")
	dir := fs.String("dir", "", "card document directory (default: storage.cards_dir)")
	fs.Parse(args)

	c, err := initComponents(*configPath, false)
	if err != nil {
		return err
	}
	defer c.close()

	cardsDir := *dir
	if cardsDir == "" {
		cardsDir = c.cfg.Storage.CardsDir
	}

	_, report, err := c.ingester.IngestDirectory(context.Background(), cardsDir)
	if err != nil {
		return err
	}
	fmt.Printf("Ingested %d cards (%d chunks) in %s\n", report.Cards, report.Chunks, report.Duration.Round(time.Millisecond))
	if len(report.Skipped) > 0 {
		fmt.Printf("Skipped: %s\n", strings.Join(report.Skipped, ", "))
	}
	return nil
}

func runSearch(args []string) error {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", "", "config file path")
	k := fs.Int("k", 0, "number of results (default: retrieval.default_k)")
	card := fs.String("card", "", "restrict results to cards whose name contains this")
	asJSON := fs.Bool("json", false, "output JSON")
	fs.Parse(args)
	if fs.NArg() == 0 {
		return fmt.Errorf("usage: cardadvisor search [flags] <query>")
	}
	query := strings.Join(fs.Args(), " ")

	c, err := initComponents(*configPath, true)
	if err != nil {
		return err
	}
	defer c.close()

	topK := *k
	if topK <= 0 {
		topK = c.cfg.Retrieval.DefaultK
	}
	results, err := c.retriever.Search(context.Background(), query, topK, *card)
	if err != nil {
		return err
	}

	if *asJSON {
		return json.NewEncoder(os.Stdout).Encode(results)
	}
	if len(results) == 0 {
		fmt.Println("No results.")
		return nil
	}
	for _, res := range results {
		fmt.Printf("%d. [%s] relevance %.3f\n   %s\n", res.Rank, res.Chunk.CardName, res.Relevance, utils.Truncate(res.Chunk.Text, 160))
	}
	return nil
}

func runContext(args []string) error {
	fs := flag.NewFlagSet("context", flag.ExitOnError)
	configPath := fs.String("config", "", "config file path")
	k := fs.Int("k", 0, "number of chunks (default: retrieval.default_k)")
	card := fs.String("card", "", "restrict to cards whose name contains this")
	fs.Parse(args)
	if fs.NArg() == 0 {
		return fmt.Errorf("usage: cardadvisor context [flags] <query>")
	}
	query := strings.Join(fs.Args(), " ")

	c, err := initComponents(*configPath, true)
	if err != nil {
		return err
	}
	defer c.close()

	topK := *k
	if topK <= 0 {
		topK = c.cfg.Retrieval.DefaultK
	}
	block, err := c.retriever.ContextForQuery(context.Background(), query, topK, *card)
	if err != nil {
		return err
	}
	fmt.Println(block)
	return nil
}

func runAdvise(args []string) error {
	fs := flag.NewFlagSet("advise", flag.ExitOnError)
	configPath := fs.String("config", "", "config file path")
	cardsFlag := fs.String("cards", "", "comma-separated card names (default: all ingested cards)")
	fs.Parse(args)
	if fs.NArg() == 0 {
		return fmt.Errorf("usage: cardadvisor advise [flags] <spending description>")
	}
	description := strings.Join(fs.Args(), " ")

	c, err := initComponents(*configPath, true)
	if err != nil {
		return err
	}
	defer c.close()

	if c.advisor == nil {
		return fmt.Errorf("advisor requires OPENAI_API_KEY")
	}

	var cards []string
	if *cardsFlag != "" {
		for _, name := range strings.Split(*cardsFlag, ",") {
			if name = strings.TrimSpace(name); name != "" {
				cards = append(cards, name)
			}
		}
	} else {
		stored, err := c.store.ListCards(context.Background())
		if err != nil {
			return err
		}
		for _, card := range stored {
			cards = append(cards, card.Name)
		}
	}

	result, err := c.advisor.Advise(context.Background(), description, cards)
	if err != nil {
		var parseErr *advisor.ParseError
		if errors.As(err, &parseErr) {
			return fmt.Errorf("%s returned an unparseable response:\n%s", parseErr.Agent, parseErr.RawResponse)
		}
		return err
	}

	for _, pick := range result.Recommendations.Picks {
		fmt.Printf("%d. %s (net value $%.0f/yr)\n   %s\n", pick.Rank, pick.CardName, pick.NetValue, pick.Rationale)
	}
	if result.Recommendations.Summary != "" {
		fmt.Printf("\n%s\n", result.Recommendations.Summary)
	}
	fmt.Printf("\nTokens: %d (est. cost $%.4f)\n", result.Usage.TotalTokens, result.CostUSD)
	return nil
}

func runStatus(args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", "", "config file path")
	fs.Parse(args)

	c, err := initComponents(*configPath, false)
	if err != nil {
		return err
	}
	defer c.close()

	ctx := context.Background()
	nCards, err := c.store.CountCards(ctx)
	if err != nil {
		return err
	}
	nChunks, err := c.store.CountChunks(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Backend:    %s (%d dimensions)\n", c.cfg.Embedding.Backend, c.cfg.Embedding.Dimensions)
	fmt.Printf("Cards:      %d\n", nCards)
	fmt.Printf("Chunks:     %d\n", nChunks)
	fmt.Printf("Index:      %d vectors", c.retriever.IndexSize())
	if !c.retriever.Ready() {
		fmt.Printf(" (not ready, run 'cardadvisor ingest')")
	}
	fmt.Println()
	fmt.Printf("Index dir:  %s (%d bytes)\n", c.cfg.Storage.EmbeddingsDir, storage.DiskUsageBytes(c.cfg.Storage.EmbeddingsDir))
	fmt.Printf("Advisor:    %v\n", c.advisor != nil)
	return nil
}
