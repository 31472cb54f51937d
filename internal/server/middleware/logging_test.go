package middleware

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusRecorder(t *testing.T) {
	t.Run("captures explicit status code", func(t *testing.T) {
		w := httptest.NewRecorder()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		rec.WriteHeader(http.StatusNotFound)

		assert.Equal(t, http.StatusNotFound, rec.status)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("keeps default 200 when handler never calls WriteHeader", func(t *testing.T) {
		w := httptest.NewRecorder()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		_, err := rec.Write([]byte("implicit ok"))
		assert.NoError(t, err)
		assert.Equal(t, http.StatusOK, rec.status)
	})

	t.Run("counts bytes across writes", func(t *testing.T) {
		w := httptest.NewRecorder()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		_, _ = rec.Write([]byte("hello "))
		_, _ = rec.Write([]byte("world"))

		assert.Equal(t, int64(11), rec.bytes)
		assert.Equal(t, "hello world", w.Body.String())
	})
}

func TestLoggingMiddleware(t *testing.T) {
	t.Run("logs successful request at info", func(t *testing.T) {
		var logBuf strings.Builder
		logger := slog.New(slog.NewTextHandler(&logBuf, nil))

		handler := LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"entities":[]}`))
		}))

		req := httptest.NewRequest(http.MethodGet, "/api/v1/changes:pull?entity_type=project&since=0", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		req.Header.Set("User-Agent", "fieldsync-client/1.0")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		logOutput := logBuf.String()
		assert.Contains(t, logOutput, "level=INFO")
		assert.Contains(t, logOutput, "http request")
		assert.Contains(t, logOutput, "method=GET")
		assert.Contains(t, logOutput, "/api/v1/changes:pull")
		assert.Contains(t, logOutput, "status=200")
		assert.Contains(t, logOutput, "192.168.1.1:12345")
		assert.Contains(t, logOutput, "fieldsync-client/1.0")
		assert.Contains(t, logOutput, "duration=")
		assert.Contains(t, logOutput, "bytes=15")
		// В лог уходит путь без query-параметров
		assert.NotContains(t, logOutput, "entity_type=project")
	})

	t.Run("logs client error at warn", func(t *testing.T) {
		var logBuf strings.Builder
		logger := slog.New(slog.NewTextHandler(&logBuf, nil))

		handler := LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
		}))

		req := httptest.NewRequest(http.MethodPost, "/api/v1/changes:push", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		logOutput := logBuf.String()
		assert.Contains(t, logOutput, "level=WARN")
		assert.Contains(t, logOutput, "status=400")
	})

	t.Run("logs server error at error", func(t *testing.T) {
		var logBuf strings.Builder
		logger := slog.New(slog.NewTextHandler(&logBuf, nil))

		handler := LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))

		req := httptest.NewRequest(http.MethodPost, "/api/v1/changes:push", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		logOutput := logBuf.String()
		assert.Contains(t, logOutput, "level=ERROR")
		assert.Contains(t, logOutput, "status=500")
	})

	t.Run("does not log authorization header", func(t *testing.T) {
		var logBuf strings.Builder
		logger := slog.New(slog.NewTextHandler(&logBuf, nil))

		handler := LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodGet, "/api/v1/changes:pull", nil)
		req.Header.Set("Authorization", "Bearer super-secret-token")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.NotContains(t, logBuf.String(), "super-secret-token")
	})
}

func TestLoggingWithSkip(t *testing.T) {
	var logBuf strings.Builder
	logger := slog.New(slog.NewTextHandler(&logBuf, nil))

	handler := LoggingWithSkip(logger, "/api/v1/health")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}))

	t.Run("skipped path is not logged", func(t *testing.T) {
		logBuf.Reset()

		req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, logBuf.String(), "health check should not be logged")
	})

	t.Run("other paths are logged as usual", func(t *testing.T) {
		logBuf.Reset()

		req := httptest.NewRequest(http.MethodGet, "/api/v1/changes:pull", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, logBuf.String(), "http request")
		assert.Contains(t, logBuf.String(), "/api/v1/changes:pull")
	})
}
