package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "./data/db/cards.db"
	}
	if cfg.Storage.EmbeddingsDir == "" {
		cfg.Storage.EmbeddingsDir = "./data/embeddings"
	}
	if cfg.Storage.CardsDir == "" {
		cfg.Storage.CardsDir = "./data/cards"
	}
	if cfg.Embedding.Backend == "" {
		cfg.Embedding.Backend = "onnx"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "text-embedding-3-small"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = 32
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Retrieval.ChunkSize == 0 {
		cfg.Retrieval.ChunkSize = 500
	}
	if cfg.Retrieval.ChunkOverlap == 0 {
		cfg.Retrieval.ChunkOverlap = 100
	}
	if cfg.Retrieval.DefaultK == 0 {
		cfg.Retrieval.DefaultK = 3
	}
	if cfg.Retrieval.MaxK == 0 {
		cfg.Retrieval.MaxK = 50
	}
	if cfg.Retrieval.OverfetchMultiplier == 0 {
		cfg.Retrieval.OverfetchMultiplier = 3
	}
	if cfg.Advisor.ChatModel == "" {
		cfg.Advisor.ChatModel = "gpt-4o-mini"
	}
	if cfg.Advisor.SelectorModel == "" {
		cfg.Advisor.SelectorModel = "gpt-4o"
	}
	if cfg.Advisor.MaxRetries == 0 {
		cfg.Advisor.MaxRetries = 3
	}
	if cfg.Advisor.RetryDelaySec == 0 {
		cfg.Advisor.RetryDelaySec = 2
	}
	if cfg.Advisor.TimeoutSec == 0 {
		cfg.Advisor.TimeoutSec = 60
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".pdf", ".txt", ".md", ".docx", ".xlsx"}
	}
	if cfg.Watch.DebounceSec == 0 {
		cfg.Watch.DebounceSec = 2
	}
}
