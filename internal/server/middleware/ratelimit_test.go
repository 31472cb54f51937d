package middleware

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewLimiter(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	limiter := NewLimiter(10, time.Minute, logger)
	defer limiter.Stop()

	assert.NotNil(t, limiter)
	assert.Equal(t, 10, limiter.limit)
	assert.Equal(t, time.Minute, limiter.window)
	assert.NotNil(t, limiter.clients)
}

func TestLimiter_Allow(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("requests within limit are allowed", func(t *testing.T) {
		limiter := NewLimiter(5, time.Minute, logger)
		defer limiter.Stop()

		for i := 0; i < 5; i++ {
			ok, _ := limiter.Allow("192.168.1.1")
			assert.True(t, ok, fmt.Sprintf("request %d should be allowed", i+1))
		}
	})

	t.Run("requests over limit are denied with retry hint", func(t *testing.T) {
		limiter := NewLimiter(3, time.Minute, logger)
		defer limiter.Stop()

		for i := 0; i < 3; i++ {
			ok, _ := limiter.Allow("192.168.1.2")
			assert.True(t, ok)
		}

		ok, retryAfter := limiter.Allow("192.168.1.2")
		assert.False(t, ok, "request over limit should be denied")
		// До сброса окна должно оставаться что-то близкое к минуте
		assert.Greater(t, retryAfter, 50*time.Second)
		assert.LessOrEqual(t, retryAfter, time.Minute)
	})

	t.Run("clients are tracked separately", func(t *testing.T) {
		limiter := NewLimiter(2, time.Minute, logger)
		defer limiter.Stop()

		allow := func(key string) bool {
			ok, _ := limiter.Allow(key)
			return ok
		}

		assert.True(t, allow("192.168.1.1"))
		assert.True(t, allow("192.168.1.1"))
		assert.False(t, allow("192.168.1.1"), "first client over limit")

		// Второй клиент лимит первого не делит
		assert.True(t, allow("192.168.1.2"))
		assert.True(t, allow("192.168.1.2"))
		assert.False(t, allow("192.168.1.2"), "second client over limit")
	})

	t.Run("window resets after it expires", func(t *testing.T) {
		limiter := NewLimiter(2, 50*time.Millisecond, logger)
		defer limiter.Stop()

		ok, _ := limiter.Allow("192.168.1.3")
		assert.True(t, ok)
		ok, _ = limiter.Allow("192.168.1.3")
		assert.True(t, ok)
		ok, _ = limiter.Allow("192.168.1.3")
		assert.False(t, ok, "should be rate limited")

		time.Sleep(60 * time.Millisecond)

		ok, _ = limiter.Allow("192.168.1.3")
		assert.True(t, ok, "new window should start after the old one expires")
		ok, _ = limiter.Allow("192.168.1.3")
		assert.True(t, ok)
	})
}

func TestLimiter_EvictStale(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	limiter := NewLimiter(10, time.Minute, logger)
	defer limiter.Stop()

	limiter.Allow("192.168.1.1")
	limiter.Allow("192.168.1.2")
	limiter.Allow("192.168.1.3")

	limiter.mu.Lock()
	assert.Len(t, limiter.clients, 3)
	limiter.mu.Unlock()

	// Сразу после запросов окна свежие, уборка их не трогает
	limiter.evictStale(time.Now())
	limiter.mu.Lock()
	assert.Len(t, limiter.clients, 3)
	limiter.mu.Unlock()

	// А спустя два окна все трое считаются неактивными
	limiter.evictStale(time.Now().Add(3 * time.Minute))
	limiter.mu.Lock()
	assert.Empty(t, limiter.clients, "idle clients should be evicted")
	limiter.mu.Unlock()
}

func TestRateLimitMiddleware(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("requests within limit pass through", func(t *testing.T) {
		middleware := RateLimitMiddleware(5, time.Minute, logger)
		handler := middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("success"))
		}))

		for i := 0; i < 5; i++ {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/changes:pull", nil)
			req.RemoteAddr = "192.168.1.1:12345"
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, http.StatusOK, w.Code, fmt.Sprintf("request %d should pass", i+1))
			assert.Equal(t, "success", w.Body.String())
		}
	})

	t.Run("requests over limit get 429 with Retry-After", func(t *testing.T) {
		middleware := RateLimitMiddleware(3, time.Minute, logger)
		handler := middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		for i := 0; i < 3; i++ {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/changes:push", nil)
			req.RemoteAddr = "192.168.1.2:12345"
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)
			assert.Equal(t, http.StatusOK, w.Code)
		}

		req := httptest.NewRequest(http.MethodPost, "/api/v1/changes:push", nil)
		req.RemoteAddr = "192.168.1.2:12345"
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
		assert.NotEmpty(t, w.Header().Get("Retry-After"))
		assert.Contains(t, w.Body.String(), "rate limit exceeded")
	})

	t.Run("reopened connections of one client share the window", func(t *testing.T) {
		middleware := RateLimitMiddleware(2, time.Minute, logger)
		handler := middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		// Один и тот же хост с разных портов
		for _, addr := range []string{"192.168.1.1:1001", "192.168.1.1:1002"} {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/changes:pull", nil)
			req.RemoteAddr = addr
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			assert.Equal(t, http.StatusOK, w.Code)
		}

		req := httptest.NewRequest(http.MethodGet, "/api/v1/changes:pull", nil)
		req.RemoteAddr = "192.168.1.1:1003"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
	})

	t.Run("different clients are tracked separately", func(t *testing.T) {
		middleware := RateLimitMiddleware(2, time.Minute, logger)
		handler := middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		for _, ip := range []string{"192.168.1.1", "192.168.1.2"} {
			for i := 0; i < 2; i++ {
				req := httptest.NewRequest(http.MethodGet, "/api/v1/changes:pull", nil)
				req.RemoteAddr = ip + ":12345"
				w := httptest.NewRecorder()
				handler.ServeHTTP(w, req)
				assert.Equal(t, http.StatusOK, w.Code)
			}
		}

		// Оба клиента выбрали лимит
		for _, ip := range []string{"192.168.1.1", "192.168.1.2"} {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/changes:pull", nil)
			req.RemoteAddr = ip + ":12345"
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			assert.Equal(t, http.StatusTooManyRequests, w.Code)
		}
	})
}

func TestClientKey(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		xRealIP    string
		expected   string
	}{
		{
			name:       "X-Forwarded-For with single IP",
			remoteAddr: "10.0.0.1:12345",
			xff:        "192.168.1.1",
			expected:   "192.168.1.1",
		},
		{
			name:       "X-Forwarded-For takes the first hop",
			remoteAddr: "10.0.0.1:12345",
			xff:        "192.168.1.1, 10.0.0.2, 10.0.0.3",
			expected:   "192.168.1.1",
		},
		{
			name:       "X-Real-IP when X-Forwarded-For is empty",
			remoteAddr: "10.0.0.1:12345",
			xRealIP:    "192.168.2.1",
			expected:   "192.168.2.1",
		},
		{
			name:       "RemoteAddr without port when headers are empty",
			remoteAddr: "192.168.3.1:54321",
			expected:   "192.168.3.1",
		},
		{
			name:       "RemoteAddr without port is used as-is",
			remoteAddr: "192.168.3.1",
			expected:   "192.168.3.1",
		},
		{
			name:       "X-Forwarded-For takes precedence over X-Real-IP",
			remoteAddr: "10.0.0.1:12345",
			xff:        "192.168.1.1",
			xRealIP:    "192.168.2.1",
			expected:   "192.168.1.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xRealIP != "" {
				req.Header.Set("X-Real-IP", tt.xRealIP)
			}

			assert.Equal(t, tt.expected, clientKey(req))
		})
	}
}

func TestRateLimitMiddleware_LogsLimitedRequests(t *testing.T) {
	var logBuf strings.Builder
	logger := slog.New(slog.NewTextHandler(&logBuf, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	middleware := RateLimitMiddleware(1, time.Minute, logger)
	handler := middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req1 := httptest.NewRequest(http.MethodPost, "/api/v1/changes:push", nil)
	req1.RemoteAddr = "192.168.1.1:12345"
	w1 := httptest.NewRecorder()
	handler.ServeHTTP(w1, req1)

	req2 := httptest.NewRequest(http.MethodPost, "/api/v1/changes:push", nil)
	req2.RemoteAddr = "192.168.1.1:12345"
	w2 := httptest.NewRecorder()
	handler.ServeHTTP(w2, req2)

	assert.Equal(t, http.StatusTooManyRequests, w2.Code)

	logOutput := logBuf.String()
	assert.Contains(t, logOutput, "request rate limited")
	assert.Contains(t, logOutput, "192.168.1.1")
	assert.Contains(t, logOutput, "/api/v1/changes:push")
	assert.Contains(t, logOutput, "POST")
}
