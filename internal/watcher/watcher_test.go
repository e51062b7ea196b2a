package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestWatcherDebouncesBurst(t *testing.T) {
	dir := t.TempDir()
	var rebuilds atomic.Int32
	w := New(dir, []string{".txt"}, 150*time.Millisecond, func(context.Context) {
		rebuilds.Add(1)
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()
	time.Sleep(100 * time.Millisecond) // let the watch register

	for i := 0; i < 5; i++ {
		name := filepath.Join(dir, "card.txt")
		if err := os.WriteFile(name, []byte("updated terms"), 0o644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	time.Sleep(500 * time.Millisecond)
	if got := rebuilds.Load(); got != 1 {
		t.Errorf("rebuilds=%d, want exactly 1 for a burst of writes", got)
	}

	cancel()
	<-done
}

func TestWatcherSerializesRebuilds(t *testing.T) {
	var (
		current   atomic.Int32
		maxSeen   atomic.Int32
		completed atomic.Int32
	)
	w := New(t.TempDir(), []string{".txt"}, 50*time.Millisecond, func(context.Context) {
		n := current.Add(1)
		for {
			m := maxSeen.Load()
			if n <= m || maxSeen.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(300 * time.Millisecond) // slow, embedding-bound rebuild
		current.Add(-1)
		completed.Add(1)
	}, nil)

	ctx := context.Background()
	w.schedule(ctx)
	time.Sleep(150 * time.Millisecond) // first rebuild is now running
	w.schedule(ctx)                    // change arrives mid-rebuild
	w.schedule(ctx)                    // and another; both collapse to one follow-up

	deadline := time.After(2 * time.Second)
	for completed.Load() < 2 {
		select {
		case <-deadline:
			t.Fatalf("rebuilds completed=%d, want 2 (one run plus one queued follow-up)", completed.Load())
		case <-time.After(20 * time.Millisecond):
		}
	}
	if got := maxSeen.Load(); got != 1 {
		t.Errorf("max concurrent rebuilds=%d, rebuilds must never overlap", got)
	}
	time.Sleep(400 * time.Millisecond)
	if got := completed.Load(); got != 2 {
		t.Errorf("rebuilds=%d, changes during a rebuild must queue exactly one follow-up", got)
	}
}

func TestWatcherIgnoresUnsupportedExtensions(t *testing.T) {
	dir := t.TempDir()
	var rebuilds atomic.Int32
	w := New(dir, []string{".pdf"}, 100*time.Millisecond, func(context.Context) {
		rebuilds.Add(1)
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(filepath.Join(dir, "notes.tmp"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(300 * time.Millisecond)
	if got := rebuilds.Load(); got != 0 {
		t.Errorf("rebuilds=%d for an ignored file", got)
	}
}
