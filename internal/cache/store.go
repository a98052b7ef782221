// Package cache provides the byte-oriented key-value stores the pipeline
// depends on: the content-addressed image cache and the analysis result
// cache. Backends are interchangeable behind Store so tests can substitute
// the in-memory one.
package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
)

// ErrNotFound is returned by Get when the key has no value.
var ErrNotFound = errors.New("cache: key not found")

// Store is a minimal byte KV. Writers to the same key are not coordinated;
// callers use content-addressed keys so duplicate writes are benign.
type Store interface {
	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores value under key, overwriting any previous value.
	Put(ctx context.Context, key string, value []byte) error

	// Exists reports whether key has a value.
	Exists(ctx context.Context, key string) (bool, error)
}

// Key derives the content-addressed cache key for a source URL.
func Key(url string) string {
	sum := md5.Sum([]byte(url))
	return hex.EncodeToString(sum[:])
}

// shard prefixes a key with its first two hex characters, spreading
// entries across directories or object prefixes.
func shard(key string) string {
	if len(key) < 2 {
		return key
	}
	return key[:2] + "/" + key
}
