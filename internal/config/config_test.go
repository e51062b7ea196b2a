package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: 9090
embedding:
  backend: mock
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Port=%d", cfg.Server.Port)
	}
	if cfg.Server.Host != "localhost" {
		t.Errorf("Host default missing: %q", cfg.Server.Host)
	}
	if cfg.Retrieval.ChunkSize != 500 || cfg.Retrieval.ChunkOverlap != 100 {
		t.Errorf("chunking defaults: size=%d overlap=%d", cfg.Retrieval.ChunkSize, cfg.Retrieval.ChunkOverlap)
	}
	if cfg.Embedding.Dimensions != 384 {
		t.Errorf("Dimensions=%d", cfg.Embedding.Dimensions)
	}
	if cfg.Retrieval.OverfetchMultiplier != 3 {
		t.Errorf("OverfetchMultiplier=%d", cfg.Retrieval.OverfetchMultiplier)
	}
}

func TestLoadRejectsOverlapNotSmallerThanChunkSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
embedding:
  backend: mock
retrieval:
  chunk_size: 100
  chunk_overlap: 100
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected validation error for overlap >= chunk_size")
	}
	if !strings.Contains(err.Error(), "chunk_overlap") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("embedding:\n  backend: hnsw\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestExpandPathRelativeToConfigDir(t *testing.T) {
	got := expandPath("./data/embeddings", "/etc/cardadvisor")
	if got != "/etc/cardadvisor/data/embeddings" {
		t.Errorf("expandPath=%q", got)
	}
	if expandPath("/abs/path", "/etc/cardadvisor") != "/abs/path" {
		t.Error("absolute path should be unchanged")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
