package main

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"librarymanager/internal/config"
	"librarymanager/internal/httpx"
	"librarymanager/internal/metrics"
	"librarymanager/internal/rating"
	"librarymanager/internal/store"
)

func testConfig() config.Config {
	return config.Config{
		Scoring: rating.StrategyRecompute,
		HTTP: config.HTTPConfig{
			MaxBodyBytes:   1 << 10,
			RateLimitRPS:   100,
			RateLimitBurst: 100,
		},
	}
}

func TestBuildHandler_WiresRoutesAndMiddleware(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	limiter := httpx.NewRateLimitMiddleware(100, 100)
	defer limiter.Stop()
	recorder := metrics.NewRecorder()

	h := buildHandler(testConfig(), store.NewMemoryStore(), logger, recorder, nil, limiter)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/books", strings.NewReader(`{"name":"Dune"}`)))
	require.Equal(t, http.StatusCreated, w.Code)
	assert.NotEmpty(t, w.Header().Get(httpx.RequestIDHeader))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(`{"name":"Alice"}`)))
	require.Equal(t, http.StatusCreated, w.Code)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/users/1/borrow/1", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 1, recorder.Snapshot("borrow").Total)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBuildHandler_RejectsOversizedBody(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	limiter := httpx.NewRateLimitMiddleware(100, 100)
	defer limiter.Stop()

	h := buildHandler(testConfig(), store.NewMemoryStore(), logger, nil, nil, limiter)

	body := `{"name":"` + strings.Repeat("a", 2048) + `"}`
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(body)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}
