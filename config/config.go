// Package config loads client configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything needed to construct a weather client.
type Config struct {
	// APIKey is the upstream credential. An empty key is not a load error;
	// the service reports it on the first call instead.
	APIKey string
	// APIURL overrides the upstream endpoint, mainly for tests.
	APIURL string
	// HTTPTimeout bounds each upstream request. Zero means no timeout.
	HTTPTimeout time.Duration

	// CacheBackend selects the durable blob backend: "file", "memcached" or "s3".
	CacheBackend string

	// CacheFile is the blob path for the file backend (empty = user cache dir).
	CacheFile string

	MemcachedAddrs        string
	MemcachedTimeout      time.Duration
	MemcachedMaxIdleConns int

	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3UseSSL    bool
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		APIKey:       os.Getenv("WEATHERBIT_API_KEY"),
		APIURL:       os.Getenv("WEATHERBIT_API_URL"),
		CacheBackend: getenvDefault("CACHE_BACKEND", "file"),
		CacheFile:    os.Getenv("CACHE_FILE"),

		MemcachedAddrs:        getenvDefault("MEMCACHED_ADDRS", "localhost:11211"),
		MemcachedMaxIdleConns: getenvInt("MEMCACHED_MAX_IDLE_CONNS", 0),

		S3Endpoint:  os.Getenv("S3_ENDPOINT"),
		S3AccessKey: os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey: os.Getenv("S3_SECRET_KEY"),
		S3Bucket:    getenvDefault("S3_BUCKET", "weatherbatch"),
		S3UseSSL:    getenvBool("S3_USE_SSL", false),
	}

	var err error
	cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}
	cfg.MemcachedTimeout, err = getenvDuration("MEMCACHED_TIMEOUT", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid MEMCACHED_TIMEOUT: %w", err)
	}

	switch cfg.CacheBackend {
	case "file", "memcached", "s3":
	default:
		return nil, fmt.Errorf("invalid CACHE_BACKEND %q (want file, memcached or s3)", cfg.CacheBackend)
	}

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	return time.ParseDuration(v)
}
