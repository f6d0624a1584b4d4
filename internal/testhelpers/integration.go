//go:build integration
// +build integration

package testhelpers

import (
	"os"
	"testing"
	"time"

	"github.com/mwellman/weatherbatch/internal/blob"
)

// MemcachedAddrs returns the memcached address list for integration tests,
// defaulting to a local instance.
func MemcachedAddrs() string {
	if v := os.Getenv("MEMCACHED_ADDRS"); v != "" {
		return v
	}
	return "localhost:11211"
}

// SetupMemcachedStore creates a MemcachedStore or skips the test when
// memcached is unreachable. Returns the store and a cleanup function.
func SetupMemcachedStore(t *testing.T) (*blob.MemcachedStore, func()) {
	t.Helper()

	store, err := blob.NewMemcachedStore(MemcachedAddrs(), 500*time.Millisecond, 2)
	if err != nil {
		t.Fatalf("NewMemcachedStore() error = %v", err)
	}
	if err := store.Ping(); err != nil {
		store.Close()
		t.Skipf("memcached not reachable at %s: %v", MemcachedAddrs(), err)
	}
	return store, func() { _ = store.Close() }
}
