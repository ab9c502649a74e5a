package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"taskManager/internal/logger"
	"time"

	"go.uber.org/zap"
)

// LimitResult - решение лимитера по одному запросу.
type LimitResult struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Limiter считает запросы по ключу в пределах окна.
type Limiter interface {
	Allow(ctx context.Context, key string) (*LimitResult, error)
}

// KeyFunc выбирает ключ ограничения для запроса.
type KeyFunc func(r *http.Request) string

// ByIP ограничивает по адресу клиента, с префиксом группы маршрутов.
func ByIP(prefix string) KeyFunc {
	return func(r *http.Request) string {
		return prefix + clientIP(r)
	}
}

// RateLimit отвечает 429 при превышении лимита. Если лимитер недоступен,
// запрос пропускается: отказ хранилища счётчиков не должен блокировать вход.
func RateLimit(limiter Limiter, key KeyFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, err := limiter.Allow(r.Context(), key(r))
			if err != nil {
				logger.Error("Middleware: Ошибка лимитера, запрос пропущен", err,
					zap.String("request_id", GetRequestID(r.Context())))
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(max(res.Remaining, 0)))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))

			if !res.Allowed {
				retryAfter := int(math.Ceil(time.Until(res.ResetAt).Seconds()))
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))

				logger.Warn("Middleware: Превышен лимит запросов",
					zap.String("request_id", GetRequestID(r.Context())),
					zap.String("client_ip", clientIP(r)),
					zap.String("path", r.URL.Path))

				writeError(w, r, http.StatusTooManyRequests, "RATE_LIMITED",
					"Too many requests, please try again later",
					map[string]any{"retry_after": retryAfter})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
