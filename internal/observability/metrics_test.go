package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// TestMetricsHandler verifies the registry serves the application counters
// alongside runtime metrics.
func TestMetricsHandler(t *testing.T) {
	WeatherBatchesTotal.Inc()
	CacheHitsTotal.Add(2)
	WeatherAPICallsTotal.WithLabelValues("success").Inc()
	CacheBlobWritesTotal.WithLabelValues("file", "success").Inc()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	MetricsHandler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, metric := range []string{
		"weatherBatchesTotal",
		"cacheHitsTotal",
		"cacheMissesTotal",
		"weatherApiCallsTotal",
		"cacheBlobWritesTotal",
	} {
		if !strings.Contains(body, metric) {
			t.Errorf("metrics output missing %q", metric)
		}
	}
}

func TestStatusLabel(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{200, "success"},
		{204, "success"},
		{404, "client_error"},
		{429, "rate_limited"},
		{500, "server_error"},
		{0, "error"},
	}
	for _, tc := range tests {
		if got := StatusLabel(tc.code); got != tc.want {
			t.Errorf("StatusLabel(%d) = %q, want %q", tc.code, got, tc.want)
		}
	}
}
