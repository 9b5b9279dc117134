package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zsiec/vidqa/internal/config"
	apperrors "github.com/zsiec/vidqa/internal/errors"
	"github.com/zsiec/vidqa/internal/logger"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestRequestIDMiddleware(t *testing.T) {
	server := New(testConfig(), quietLogger(), nil)

	handler := server.requestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get(logger.RequestIDHeader))
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/test", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.NotEmpty(t, rr.Header().Get(logger.RequestIDHeader))

	req = httptest.NewRequest("GET", "/test", nil)
	req.Header.Set(logger.RequestIDHeader, "test-request-id")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, "test-request-id", rr.Header().Get(logger.RequestIDHeader))
}

func TestCORSMiddleware(t *testing.T) {
	t.Run("wildcard", func(t *testing.T) {
		server := New(testConfig(), quietLogger(), nil)
		handler := server.corsMiddleware(okHandler)

		req := httptest.NewRequest("GET", "/test", nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "GET, POST, OPTIONS", rr.Header().Get("Access-Control-Allow-Methods"))

		req = httptest.NewRequest("OPTIONS", "/test", nil)
		rr = httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusNoContent, rr.Code)
	})

	t.Run("explicit origins", func(t *testing.T) {
		cfg := testConfig()
		cfg.CORS.AllowedOrigins = []string{"https://qa.example.com"}
		server := New(cfg, quietLogger(), nil)
		handler := server.corsMiddleware(okHandler)

		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set("Origin", "https://qa.example.com")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		assert.Equal(t, "https://qa.example.com", rr.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "Origin", rr.Header().Get("Vary"))

		req = httptest.NewRequest("GET", "/test", nil)
		req.Header.Set("Origin", "https://elsewhere.example.com")
		rr = httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestRecoveryMiddleware(t *testing.T) {
	server := New(testConfig(), quietLogger(), nil)

	handler := server.recoveryMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("test panic")
	}))

	req := httptest.NewRequest("GET", "/test", nil)
	rr := httptest.NewRecorder()
	assert.NotPanics(t, func() { handler.ServeHTTP(rr, req) })

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	var resp apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, apperrors.ErrorTypeInternal, resp.Error.Type)
}

func TestRateLimitMiddleware(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		server := New(testConfig(), quietLogger(), nil)
		handler := server.rateLimitMiddleware(okHandler)

		for i := 0; i < 10; i++ {
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, httptest.NewRequest("GET", "/test", nil))
			assert.Equal(t, http.StatusOK, rr.Code)
		}
	})

	t.Run("per client", func(t *testing.T) {
		cfg := testConfig()
		cfg.RateLimit = config.RateLimitConfig{Enabled: true, RequestsPerSecond: 0.001, Burst: 2}
		server := New(cfg, quietLogger(), nil)
		handler := server.rateLimitMiddleware(okHandler)

		send := func(ip string) *httptest.ResponseRecorder {
			req := httptest.NewRequest("GET", "/test", nil)
			req.Header.Set("X-Forwarded-For", ip)
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			return rr
		}

		assert.Equal(t, http.StatusOK, send("10.0.0.1").Code)
		assert.Equal(t, http.StatusOK, send("10.0.0.1").Code)

		limited := send("10.0.0.1")
		assert.Equal(t, http.StatusTooManyRequests, limited.Code)
		assert.Equal(t, "1", limited.Header().Get("Retry-After"))
		var resp apperrors.ErrorResponse
		require.NoError(t, json.Unmarshal(limited.Body.Bytes(), &resp))
		assert.Equal(t, apperrors.ErrorTypeRateLimit, resp.Error.Type)

		assert.Equal(t, http.StatusOK, send("10.0.0.2").Code)
	})
}

func TestClientLimiterEvict(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	limiter := newClientLimiter(10, 1)
	limiter.now = func() time.Time { return now }

	limiter.allow("a")
	now = now.Add(2 * time.Minute)
	limiter.allow("b")

	assert.Equal(t, 2, limiter.size())
	assert.Equal(t, 1, limiter.evict(time.Minute))
	assert.Equal(t, 1, limiter.size())
}

func TestClientLimiterMinimumBurst(t *testing.T) {
	limiter := newClientLimiter(0, 0)
	assert.True(t, limiter.allow("a"))
	assert.False(t, limiter.allow("a"))
}
