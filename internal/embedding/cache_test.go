package embedding

import "testing"

func TestEmbeddingCacheLRU(t *testing.T) {
	c := NewEmbeddingCache(2)
	c.Set("a", []float32{1})
	c.Set("b", []float32{2})

	if _, ok := c.Get("a"); !ok {
		t.Fatal("a should be cached")
	}
	// a is now most recent; adding c should evict b
	c.Set("c", []float32{3})
	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("a should still be cached")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("c should be cached")
	}
}

func TestEmbeddingCacheOverwrite(t *testing.T) {
	c := NewEmbeddingCache(2)
	c.Set("k", []float32{1})
	c.Set("k", []float32{9})
	v, ok := c.Get("k")
	if !ok || v[0] != 9 {
		t.Errorf("Get=%v ok=%v", v, ok)
	}
}
