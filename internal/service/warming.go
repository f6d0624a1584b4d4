package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mwellman/weatherbatch/internal/models"
	"github.com/mwellman/weatherbatch/internal/observability"
	"github.com/mwellman/weatherbatch/internal/validation"
)

// WeatherProvider is implemented by WeatherService. Declared here so the
// warmer can be tested against a stub.
type WeatherProvider interface {
	GetWeatherData(ctx context.Context, locations []any) (models.Batch, error)
}

// Warmer primes the cache by prefetching weather for a list of locations,
// splitting them into batches that respect the per-call ceiling.
type Warmer struct {
	provider WeatherProvider
	logger   *zap.Logger
}

// NewWarmer creates a Warmer that fetches through the given provider.
func NewWarmer(provider WeatherProvider, logger *zap.Logger) *Warmer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Warmer{provider: provider, logger: logger}
}

// Warm fetches weather for the locations in batches of at most the allowed
// size. Batches run sequentially; a failing batch is recorded and the rest
// still run. Returns an aggregated error if any batch failed.
func (w *Warmer) Warm(ctx context.Context, locations []any) error {
	start := time.Now()
	observability.CacheWarmingTotal.Inc()
	w.logger.Info("warming cache", zap.Int("locations", len(locations)))

	var errs []error
	for i := 0; i < len(locations); i += validation.MaxBatchSize {
		end := min(i+validation.MaxBatchSize, len(locations))
		if _, err := w.provider.GetWeatherData(ctx, locations[i:end]); err != nil {
			errs = append(errs, fmt.Errorf("warm batch %d: %w", i/validation.MaxBatchSize, err))
		}
	}

	w.logger.Info("cache warming complete",
		zap.Int("locations", len(locations)),
		zap.Int("errors", len(errs)),
		zap.Duration("duration", time.Since(start)))
	if len(errs) > 0 {
		observability.CacheWarmingErrorsTotal.Inc()
		return fmt.Errorf("cache warming: %v", errs)
	}
	return nil
}

// WarmPeriodic runs an initial Warm, then refreshes at the given interval
// until ctx is done.
func (w *Warmer) WarmPeriodic(ctx context.Context, locations []any, interval time.Duration) error {
	if err := w.Warm(ctx, locations); err != nil {
		w.logger.Warn("initial cache warm failed", zap.Error(err))
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.Warm(ctx, locations); err != nil {
				w.logger.Warn("periodic cache warm failed", zap.Error(err))
			}
		}
	}
}
