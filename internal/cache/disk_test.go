package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestDiskStoreRoundTrip(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDiskStore failed: %v", err)
	}
	ctx := context.Background()
	key := Key("https://example.com/cat.jpg")

	if _, err := store.Get(ctx, key); err != ErrNotFound {
		t.Errorf("expected ErrNotFound before Put, got %v", err)
	}

	payload := []byte("png bytes")
	if err := store.Put(ctx, key, payload); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	data, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(data) != string(payload) {
		t.Errorf("payload mismatch: %q", data)
	}

	exists, err := store.Exists(ctx, key)
	if err != nil || !exists {
		t.Errorf("expected entry to exist, got exists=%v err=%v", exists, err)
	}
}

func TestDiskStoreShardsByPrefix(t *testing.T) {
	root := t.TempDir()
	store, err := NewDiskStore(root)
	if err != nil {
		t.Fatalf("NewDiskStore failed: %v", err)
	}

	key := Key("https://example.com/dog.png")
	if err := store.Put(context.Background(), key, []byte("x")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(root, key[:2], key)); err != nil {
		t.Errorf("expected sharded path %s/%s to exist: %v", key[:2], key, err)
	}
}

func TestKeyIsStable(t *testing.T) {
	a := Key("https://example.com/cat.jpg")
	b := Key("https://example.com/cat.jpg")
	c := Key("https://example.com/other.jpg")

	if a != b {
		t.Error("expected identical URLs to produce identical keys")
	}
	if a == c {
		t.Error("expected different URLs to produce different keys")
	}
	if len(a) != 32 {
		t.Errorf("expected 32-char hex key, got %d chars", len(a))
	}
}
