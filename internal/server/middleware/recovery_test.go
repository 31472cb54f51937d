package middleware

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecoveryMiddleware(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		panicValue any
		name       string
	}{
		{name: "panic with string", panicValue: "something went wrong"},
		{name: "panic with error", panicValue: errors.New("database exploded")},
		{name: "panic with struct", panicValue: struct{ Code int }{Code: 42}},
		{name: "panic with integer", panicValue: 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := RecoveryMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				panic(tt.panicValue)
			}))

			req := httptest.NewRequest(http.MethodPost, "/api/v1/changes:push", nil)
			w := httptest.NewRecorder()

			// Паника не должна дойти до теста
			assert.NotPanics(t, func() {
				handler.ServeHTTP(w, req)
			})

			assert.Equal(t, http.StatusInternalServerError, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			assert.Contains(t, w.Body.String(), "internal error")
			// Детали паники в ответ не утекают
			assert.NotContains(t, w.Body.String(), "exploded")
		})
	}
}

func TestRecoveryMiddleware_NoPanicPassesThrough(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	handler := RecoveryMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("created"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "created", w.Body.String())
}

func TestRecoveryMiddleware_LogsStackTrace(t *testing.T) {
	var logBuf strings.Builder
	logger := slog.New(slog.NewTextHandler(&logBuf, nil))

	handler := RecoveryMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("kaboom")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/changes:pull", nil)
	req.RemoteAddr = "192.168.1.7:4242"
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	logOutput := logBuf.String()
	assert.Contains(t, logOutput, "panic in handler")
	assert.Contains(t, logOutput, "kaboom")
	assert.Contains(t, logOutput, "goroutine", "log should carry the stack trace")
	assert.Contains(t, logOutput, "/api/v1/changes:pull")
	assert.Contains(t, logOutput, "192.168.1.7:4242")
}

func TestRecoveryMiddleware_ChainWithOtherMiddleware(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var callOrder []string

	outer := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			callOrder = append(callOrder, "outer-before")
			next.ServeHTTP(w, r)
			callOrder = append(callOrder, "outer-after")
		})
	}

	handler := outer(RecoveryMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		callOrder = append(callOrder, "handler")
		panic("mid-chain panic")
	})))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	w := httptest.NewRecorder()

	// Recovery гасит панику, так что внешний middleware дорабатывает до конца
	assert.NotPanics(t, func() {
		handler.ServeHTTP(w, req)
	})

	assert.Equal(t, []string{"outer-before", "handler", "outer-after"}, callOrder)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
