package middleware

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/iudanet/fieldsync/pkg/api"
)

// Limiter ограничивает частоту запросов по фиксированным окнам: каждому
// клиенту разрешено limit запросов в течение window, после чего счетчик
// сбрасывается. Полевой клиент за один цикл синхронизации делает один push
// и по одному pull на тип сущности, так что лимит задается с большим запасом.
type Limiter struct {
	clients map[string]*clientWindow
	logger  *slog.Logger
	done    chan struct{}
	limit   int
	window  time.Duration
	mu      sync.Mutex
}

type clientWindow struct {
	start time.Time
	count int
}

// NewLimiter создает limiter и запускает фоновую уборку неактивных клиентов.
func NewLimiter(limit int, window time.Duration, logger *slog.Logger) *Limiter {
	l := &Limiter{
		clients: make(map[string]*clientWindow),
		limit:   limit,
		window:  window,
		logger:  logger,
		done:    make(chan struct{}),
	}

	go l.sweep()

	return l
}

func (l *Limiter) sweep() {
	ticker := time.NewTicker(l.window * 2)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.evictStale(time.Now())
		case <-l.done:
			return
		}
	}
}

// evictStale удаляет клиентов, чье окно закончилось больше window назад.
func (l *Limiter) evictStale(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for key, c := range l.clients {
		if now.Sub(c.start) > l.window*2 {
			delete(l.clients, key)
		}
	}
}

// Stop останавливает фоновую уборку.
func (l *Limiter) Stop() {
	close(l.done)
}

// Allow отвечает, пропускать ли запрос клиента key. При отказе вторым
// значением возвращается время до сброса окна, оно уходит в Retry-After.
func (l *Limiter) Allow(key string) (bool, time.Duration) {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.clients[key]
	if !ok || now.Sub(c.start) >= l.window {
		// Новое окно
		l.clients[key] = &clientWindow{start: now, count: 1}
		return true, 0
	}

	if c.count < l.limit {
		c.count++
		return true, 0
	}

	return false, c.start.Add(l.window).Sub(now)
}

// RateLimitMiddleware отвечает 429 клиентам, превысившим limit запросов за window.
func RateLimitMiddleware(limit int, window time.Duration, logger *slog.Logger) func(http.Handler) http.Handler {
	limiter := NewLimiter(limit, window, logger)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientKey(r)

			ok, retryAfter := limiter.Allow(key)
			if !ok {
				logger.Warn("request rate limited",
					"client", key,
					"method", r.Method,
					"path", r.URL.Path,
				)

				seconds := int(retryAfter.Seconds())
				if seconds < 1 {
					seconds = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(seconds))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(api.ErrorResponse{
					Error:   "rate limit exceeded",
					Message: "retry after the window resets",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientKey определяет клиента для лимитера. За прокси берется первый адрес
// из X-Forwarded-For, иначе X-Real-IP, иначе хост из RemoteAddr. Порт
// отбрасывается, чтобы переоткрытые соединения одного клиента делили окно.
func clientKey(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
