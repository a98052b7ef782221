package cache

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore(10, time.Minute)
	ctx := context.Background()

	if _, err := store.Get(ctx, "missing"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound for missing key, got %v", err)
	}

	if err := store.Put(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	data, err := store.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(data) != "v" {
		t.Errorf("expected %q, got %q", "v", data)
	}

	exists, err := store.Exists(ctx, "k")
	if err != nil || !exists {
		t.Errorf("expected key to exist, got exists=%v err=%v", exists, err)
	}
}

func TestMemoryStoreEvictsOldest(t *testing.T) {
	store := NewMemoryStore(2, time.Minute)
	ctx := context.Background()

	store.Put(ctx, "a", []byte("1"))
	store.Put(ctx, "b", []byte("2"))

	// Touch "a" so "b" becomes the eviction candidate.
	store.Get(ctx, "a")

	store.Put(ctx, "c", []byte("3"))

	if _, err := store.Get(ctx, "b"); err != ErrNotFound {
		t.Error("expected least recently used key to be evicted")
	}
	if _, err := store.Get(ctx, "a"); err != nil {
		t.Errorf("expected recently used key to survive, got %v", err)
	}
	if _, err := store.Get(ctx, "c"); err != nil {
		t.Errorf("expected new key to be present, got %v", err)
	}
}

func TestMemoryStoreConcurrentGetKeepsOrderConsistent(t *testing.T) {
	store := NewMemoryStore(16, time.Minute)
	ctx := context.Background()

	store.Put(ctx, "hot", []byte("v"))
	for i := 0; i < 4; i++ {
		store.Put(ctx, string(rune('a'+i)), []byte("x"))
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				store.Get(ctx, "hot")
				store.Put(ctx, "churn", []byte("y"))
			}
		}()
	}
	wg.Wait()

	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.order) != len(store.entries) {
		t.Fatalf("order list out of sync: %d order entries for %d map entries",
			len(store.order), len(store.entries))
	}
	seen := make(map[string]bool)
	for _, k := range store.order {
		if seen[k] {
			t.Fatalf("key %q duplicated in LRU order", k)
		}
		seen[k] = true
	}
}

func TestMemoryStoreExpires(t *testing.T) {
	store := NewMemoryStore(10, 10*time.Millisecond)
	ctx := context.Background()

	store.Put(ctx, "k", []byte("v"))
	time.Sleep(25 * time.Millisecond)

	if _, err := store.Get(ctx, "k"); err != ErrNotFound {
		t.Errorf("expected expired entry to be gone, got %v", err)
	}
	exists, _ := store.Exists(ctx, "k")
	if exists {
		t.Error("expected expired entry to not exist")
	}
}
