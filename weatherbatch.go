// Package weatherbatch resolves current-weather data for batches of
// locations (city names or zip codes), serving what it can from a durable,
// time-boxed cache and fetching the rest from the remote weather API.
//
// The library has no CLI and starts no listener. Construct a Service with
// New and call GetWeatherData:
//
//	cfg, err := config.Load()
//	svc, err := weatherbatch.New(ctx, cfg, logger)
//	batch, err := svc.GetWeatherData(ctx, []any{"New York", 10005, "Austin"})
package weatherbatch

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/mwellman/weatherbatch/config"
	"github.com/mwellman/weatherbatch/internal/blob"
	"github.com/mwellman/weatherbatch/internal/cache"
	"github.com/mwellman/weatherbatch/internal/client"
	"github.com/mwellman/weatherbatch/internal/models"
	"github.com/mwellman/weatherbatch/internal/observability"
	"github.com/mwellman/weatherbatch/internal/service"
)

// Public names for the domain types.
type (
	// Location identifies a place to fetch weather for.
	Location = models.Location
	// WeatherRecord is one location's current-conditions snapshot.
	WeatherRecord = models.WeatherRecord
	// Batch maps a location key to its weather record.
	Batch = models.Batch
	// Service is the weather client. Its GetWeatherData method is the sole
	// entry point.
	Service = service.WeatherService
	// Warmer prefetches weather to prime the cache.
	Warmer = service.Warmer
)

// New wires a Service from configuration: blob backend, cache store, remote
// client. A nil logger disables logging; NewLogger builds the standard one.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var blobStore blob.Store
	switch cfg.CacheBackend {
	case "memcached":
		mc, err := blob.NewMemcachedStore(cfg.MemcachedAddrs, cfg.MemcachedTimeout, cfg.MemcachedMaxIdleConns)
		if err != nil {
			return nil, fmt.Errorf("memcached backend: %w", err)
		}
		blobStore = mc
		logger.Info("cache backend: memcached", zap.String("addrs", cfg.MemcachedAddrs))
	case "s3":
		ms, err := blob.NewMinioStore(ctx, blob.MinioConfig{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			UseSSL:    cfg.S3UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("s3 backend: %w", err)
		}
		blobStore = ms
		logger.Info("cache backend: s3", zap.String("endpoint", cfg.S3Endpoint), zap.String("bucket", cfg.S3Bucket))
	default:
		fs := blob.NewFileStore(cfg.CacheFile)
		blobStore = fs
		logger.Info("cache backend: file", zap.String("path", fs.Path()))
	}

	store := cache.NewStore(ctx, blobStore, logger)
	fetcher := client.NewWeatherbitClient(cfg.APIKey, cfg.APIURL, cfg.HTTPTimeout)

	return service.NewWeatherService(cfg.APIKey, fetcher, store, logger), nil
}

// NewWarmer creates a Warmer that prefetches through svc.
func NewWarmer(svc *Service, logger *zap.Logger) *Warmer {
	return service.NewWarmer(svc, logger)
}

// NewLogger builds the standard structured logger (level from LOG_LEVEL).
func NewLogger() (*zap.Logger, error) {
	return observability.NewLogger()
}

// MetricsHandler returns an http.Handler serving the client's Prometheus
// metrics, for embedding into an application's mux.
func MetricsHandler() http.Handler {
	return observability.MetricsHandler()
}
