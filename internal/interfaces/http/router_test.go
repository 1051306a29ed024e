package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/smartscanon/internal/application/canonicalization"
	"github.com/turtacn/smartscanon/internal/config"
	"github.com/turtacn/smartscanon/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/smartscanon/internal/interfaces/http/handlers"
	"github.com/turtacn/smartscanon/internal/interfaces/http/middleware"
)

func testRouter(t *testing.T, rl middleware.RateLimitConfig) (http.Handler, *prometheus.Collector) {
	t.Helper()
	collector, err := prometheus.NewCollector(prometheus.CollectorConfig{Namespace: "smartscanon_test"}, nil)
	require.NoError(t, err)
	metrics := prometheus.NewCanonMetrics(collector)

	svc, err := canonicalization.NewService(config.CanonConfig{
		DefaultEmbedding: config.DefaultEmbedding,
		Remap:            true,
		MaxAtoms:         config.DefaultMaxAtoms,
		BatchWorkers:     2,
		BatchLimit:       10,
		CacheTTL:         time.Minute,
	}, canonicalization.Deps{Metrics: metrics})
	require.NoError(t, err)

	return NewRouter(RouterConfig{
		CanonHandler:  handlers.NewCanonHandler(svc, nil, nil, 0),
		HealthHandler: handlers.NewHealthHandler("test"),
		Logging:       middleware.DefaultLoggingConfig(),
		RateLimit:     rl,
		Metrics:       metrics,
		Collector:     collector,
	}), collector
}

func post(h http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.RemoteAddr = "192.0.2.10:4000"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = "192.0.2.10:4000"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestNewRouter_Routes(t *testing.T) {
	h, _ := testRouter(t, middleware.RateLimitConfig{})

	rec := post(h, "/api/v1/patterns/canonicalize", `{"pattern":"OC"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"canonical":"[O][C]"`)
	assert.NotEmpty(t, rec.Header().Get("Content-Type"))

	assert.Equal(t, http.StatusOK, get(h, "/healthz").Code)
	assert.Equal(t, http.StatusOK, get(h, "/readyz").Code)

	rec = get(h, "/api/v1/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "COMMON_005")

	rec = get(h, "/api/v1/patterns/canonicalize")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNewRouter_RuleRoutesUnmountedWithoutHandler(t *testing.T) {
	h, _ := testRouter(t, middleware.RateLimitConfig{})
	assert.Equal(t, http.StatusNotFound, get(h, "/api/v1/rules").Code)
}

func TestNewRouter_RequestIDInBody(t *testing.T) {
	h, _ := testRouter(t, middleware.RateLimitConfig{})
	rec := post(h, "/api/v1/patterns/canonicalize", `{"pattern":"C("}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body struct {
		RequestID string `json:"request_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body.RequestID)
}

func TestNewRouter_MetricsExposed(t *testing.T) {
	h, _ := testRouter(t, middleware.RateLimitConfig{})
	post(h, "/api/v1/patterns/canonicalize", `{"pattern":"CC"}`)

	rec := get(h, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "smartscanon_test_http_requests_total")
	assert.Contains(t, body, `route="/api/v1/patterns/canonicalize"`)
	assert.Contains(t, body, "smartscanon_test_canon_requests_total")
}

func TestNewRouter_RateLimited(t *testing.T) {
	h, _ := testRouter(t, middleware.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 2, SkipPaths: []string{"/healthz"}})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, post(h, "/api/v1/patterns/canonicalize", `{"pattern":"CC"}`).Code)
	}
	assert.Equal(t, []int{200, 200, 429}, codes)
	assert.Equal(t, http.StatusOK, get(h, "/healthz").Code)
}

func TestNewRouter_RecoversPanics(t *testing.T) {
	r := NewRouter(RouterConfig{})
	inner, ok := r.(interface {
		Get(string, http.HandlerFunc)
	})
	require.True(t, ok)
	inner.Get("/boom", func(http.ResponseWriter, *http.Request) { panic("boom") })

	rec := get(r, "/boom")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.False(t, strings.Contains(rec.Body.String(), "goroutine"))
}

//Personal.AI order the ending
