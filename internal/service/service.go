// Package service orchestrates the weather batch flow: validate, partition
// against the cache, fetch stale locations remotely, merge-and-persist, and
// return the combined batch.
package service

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mwellman/weatherbatch/internal/cache"
	"github.com/mwellman/weatherbatch/internal/client"
	"github.com/mwellman/weatherbatch/internal/models"
	"github.com/mwellman/weatherbatch/internal/observability"
	"github.com/mwellman/weatherbatch/internal/validation"
)

// ErrMissingAPIKey is returned when no credential is configured. This check
// runs before input validation, so a credential failure always wins.
var ErrMissingAPIKey = errors.New("please supply a valid api key")

// Error is the uniform error surfaced by GetWeatherData. Whatever stage
// failed, callers see this one shape carrying the original message text.
type Error struct {
	msg string
}

func (e *Error) Error() string {
	return e.msg
}

func wrapErr(err error) error {
	return &Error{msg: err.Error()}
}

// CacheStore is the cache contract the orchestrator needs.
type CacheStore interface {
	Partition(locations []models.Location) (stale, fresh []models.Location)
	ReadFresh(locations []models.Location) models.Batch
	MergeAndPersist(ctx context.Context, fetched models.Batch) (models.Batch, error)
}

// WeatherService is the sole public entry point for weather lookups. It owns
// its credential and cache store as fields; each instance is independent, so
// tests get fresh state instead of mutating shared globals.
type WeatherService struct {
	// mu serializes partition+fetch+merge+persist as one unit; the in-memory
	// batch and the durable blob are shared state with no other coordination.
	mu      sync.Mutex
	apiKey  string
	fetcher client.WeatherFetcher
	store   CacheStore
	logger  *zap.Logger
}

// NewWeatherService creates a WeatherService with the given credential,
// fetcher, and cache store. A nil logger disables logging.
func NewWeatherService(apiKey string, fetcher client.WeatherFetcher, store CacheStore, logger *zap.Logger) *WeatherService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WeatherService{
		apiKey:  apiKey,
		fetcher: fetcher,
		store:   store,
		logger:  logger,
	}
}

var _ CacheStore = (*cache.Store)(nil)

// GetWeatherData resolves current weather for a batch of locations (city
// names or zip codes). Fresh cache entries are served locally; the rest are
// fetched remotely, persisted, and merged in. Either the full batch succeeds
// or the whole call fails — no partial results.
func (s *WeatherService) GetWeatherData(ctx context.Context, locations []any) (models.Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	observability.WeatherBatchesTotal.Inc()
	logger := s.logger.With(zap.String("batch_id", uuid.NewString()))

	if strings.TrimSpace(s.apiKey) == "" {
		return nil, wrapErr(ErrMissingAPIKey)
	}

	if err := validation.ValidateBatch(locations); err != nil {
		return nil, wrapErr(err)
	}

	locs := make([]models.Location, 0, len(locations))
	for _, v := range locations {
		loc, err := models.NewLocation(v)
		if err != nil {
			return nil, wrapErr(err)
		}
		locs = append(locs, loc)
	}

	stale, fresh := s.store.Partition(locs)
	logger.Debug("batch partitioned",
		zap.Int("stale", len(stale)), zap.Int("fresh", len(fresh)))

	var fetched models.Batch
	if len(stale) > 0 {
		var err error
		fetched, err = s.fetcher.FetchAll(ctx, stale)
		if err != nil {
			logger.Warn("remote fetch failed", zap.Error(err))
			return nil, wrapErr(err)
		}
		fetched, err = s.store.MergeAndPersist(ctx, fetched)
		if err != nil {
			logger.Error("cache persist failed", zap.Error(err))
			return nil, wrapErr(err)
		}
	}

	result := s.store.ReadFresh(fresh).Merge(fetched)
	logger.Debug("weather batch served",
		zap.Int("locations", len(locs)), zap.Int("fetched", len(fetched)))
	return result, nil
}
