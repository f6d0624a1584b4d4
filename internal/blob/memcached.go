package blob

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
)

const memcachedKeyPrefix = "weatherbatch:"

// MemcachedStore keeps the cache blob in memcached under a single key.
// Memcached may evict under memory pressure, so durability is best-effort;
// a missing blob simply means every location reads as stale.
type MemcachedStore struct {
	client *memcache.Client
	key    string
}

// NewMemcachedStore creates a MemcachedStore. addrs is a comma-separated list
// (e.g. "localhost:11211" or "host1:11211,host2:11211"). timeout and
// maxIdleConns configure the client; both use package defaults if zero.
func NewMemcachedStore(addrs string, timeout time.Duration, maxIdleConns int) (*MemcachedStore, error) {
	servers := parseAddrs(addrs)
	if len(servers) == 0 {
		servers = []string{"localhost:11211"}
	}
	client := memcache.New(servers...)
	if timeout > 0 {
		client.Timeout = timeout
	}
	if maxIdleConns > 0 {
		client.MaxIdleConns = maxIdleConns
	}
	return &MemcachedStore{client: client, key: memcachedKeyPrefix + DefaultKey}, nil
}

func parseAddrs(s string) []string {
	var out []string
	for _, a := range strings.Split(s, ",") {
		a = strings.TrimSpace(a)
		if a != "" {
			out = append(out, a)
		}
	}
	return out
}

// Name implements Store.
func (s *MemcachedStore) Name() string {
	return "memcached"
}

// Read implements Store.
func (s *MemcachedStore) Read(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	item, err := s.client.Get(s.key)
	if err != nil {
		if err == memcache.ErrCacheMiss {
			return nil, fmt.Errorf("%w: %s", ErrNotExist, s.key)
		}
		return nil, fmt.Errorf("read cache blob: %w", err)
	}
	return item.Value, nil
}

// Exists implements Store.
func (s *MemcachedStore) Exists(ctx context.Context) (bool, error) {
	_, err := s.Read(ctx)
	if err != nil {
		if errors.Is(err, ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Write implements Store. The blob never expires; it is replaced wholesale
// on the next write.
func (s *MemcachedStore) Write(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.client.Set(&memcache.Item{
		Key:   s.key,
		Value: data,
	})
	if err != nil {
		return fmt.Errorf("write cache blob: %w", err)
	}
	return nil
}

// Ping checks if memcached is reachable. Used to gate integration tests.
func (s *MemcachedStore) Ping() error {
	return s.client.Ping()
}

// Close closes the memcached client connections.
func (s *MemcachedStore) Close() error {
	return s.client.Close()
}
