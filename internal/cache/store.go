// Package cache owns the in-memory weather batch and its durable shadow
// blob. It answers freshness questions, partitions location batches, and is
// the only mutation path for both copies.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mwellman/weatherbatch/internal/blob"
	"github.com/mwellman/weatherbatch/internal/models"
	"github.com/mwellman/weatherbatch/internal/observability"
)

// FreshnessWindow is the fixed period after which a cached record is stale.
const FreshnessWindow = time.Hour

// Store holds the in-memory batch plus its durable blob. All methods are
// safe for concurrent use; MergeAndPersist is additionally serialized by the
// service layer so partition+fetch+persist acts as one unit.
type Store struct {
	mu     sync.RWMutex
	blob   blob.Store
	mem    models.Batch
	logger *zap.Logger
	now    func() time.Time
}

// NewStore creates a Store backed by b and primes the in-memory batch from
// the durable blob. A missing blob starts the store empty; an unreadable or
// unparsable blob is logged and likewise starts empty, leaning toward
// re-fetching rather than serving garbage.
func NewStore(ctx context.Context, b blob.Store, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		blob:   b,
		mem:    models.Batch{},
		logger: logger,
		now:    time.Now,
	}
	s.load(ctx)
	return s
}

// load reads the persisted blob back into memory.
func (s *Store) load(ctx context.Context) {
	data, err := s.blob.Read(ctx)
	if err != nil {
		if errors.Is(err, blob.ErrNotExist) {
			observability.CacheBlobReadsTotal.WithLabelValues(s.blob.Name(), "miss").Inc()
			s.logger.Debug("no persisted cache blob, starting empty")
			return
		}
		observability.CacheBlobReadsTotal.WithLabelValues(s.blob.Name(), "error").Inc()
		s.logger.Warn("cache blob unreadable, starting empty", zap.Error(err))
		return
	}

	var batch models.Batch
	if err := json.Unmarshal(data, &batch); err != nil {
		observability.CacheBlobReadsTotal.WithLabelValues(s.blob.Name(), "error").Inc()
		s.logger.Warn("cache blob unparsable, starting empty", zap.Error(err))
		return
	}

	observability.CacheBlobReadsTotal.WithLabelValues(s.blob.Name(), "success").Inc()
	s.logger.Info("cache blob loaded", zap.Int("entries", len(batch)))
	s.mem = batch
}

// IsFresh reports whether loc has a cached record observed less than
// FreshnessWindow ago. Any error computing this (missing record, unparsable
// timestamp) counts as not fresh, so the location gets re-fetched.
func (s *Store) IsFresh(loc models.Location) bool {
	s.mu.RLock()
	rec, ok := s.mem[loc.Key()]
	s.mu.RUnlock()
	if !ok {
		return false
	}

	observed, err := rec.ObservedTime()
	if err != nil {
		s.logger.Debug("unparsable observation time, treating as stale",
			zap.String("location", loc.Key()), zap.Error(err))
		return false
	}
	return observed.Add(FreshnessWindow).After(s.now().UTC())
}

// Partition splits locations into those needing a remote fetch and those
// servable from cache. Order within each list follows input order and
// duplicates are preserved.
func (s *Store) Partition(locations []models.Location) (stale, fresh []models.Location) {
	for _, loc := range locations {
		if s.IsFresh(loc) {
			fresh = append(fresh, loc)
		} else {
			stale = append(stale, loc)
		}
	}
	observability.CacheHitsTotal.Add(float64(len(fresh)))
	observability.CacheMissesTotal.Add(float64(len(stale)))
	return stale, fresh
}

// ReadFresh projects the in-memory batch down to the given locations.
// Locations absent from the cache are omitted; this never fails.
func (s *Store) ReadFresh(locations []models.Location) models.Batch {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(models.Batch, len(locations))
	for _, loc := range locations {
		if rec, ok := s.mem[loc.Key()]; ok {
			out[loc.Key()] = rec
		}
	}
	return out
}

// MergeAndPersist unions the current in-memory batch with fetched (fetched
// wins on collision), overwrites the durable blob with the union, and then
// sets the in-memory batch to the just-fetched records only — the merged set
// exists solely in the durable copy written by this call. On write failure
// the in-memory batch is left unchanged and the error surfaces to the caller.
func (s *Store) MergeAndPersist(ctx context.Context, fetched models.Batch) (models.Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	merged := s.mem.Merge(fetched)
	data, err := json.MarshalIndent(merged, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("serialize cache: %w", err)
	}

	if err := s.blob.Write(ctx, data); err != nil {
		observability.CacheBlobWritesTotal.WithLabelValues(s.blob.Name(), "error").Inc()
		return nil, fmt.Errorf("persist cache: %w", err)
	}
	observability.CacheBlobWritesTotal.WithLabelValues(s.blob.Name(), "success").Inc()

	s.mem = fetched.Merge(nil)
	s.logger.Debug("cache persisted",
		zap.Int("fetched", len(fetched)), zap.Int("merged", len(merged)))
	return fetched, nil
}
