package middleware

import (
	"context"
	"sync"
	"time"
)

type clientInfo struct {
	count   int
	resetAt time.Time
}

// MemoryLimiter - фиксированное окно в памяти процесса. Подходит для одного
// экземпляра сервиса; для нескольких экземпляров используется RedisLimiter.
type MemoryLimiter struct {
	limit   int
	window  time.Duration
	clients map[string]*clientInfo
	mtx     sync.Mutex
	now     func() time.Time
}

func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		limit:   limit,
		window:  window,
		clients: make(map[string]*clientInfo),
		now:     time.Now,
	}
}

func (l *MemoryLimiter) Allow(ctx context.Context, key string) (*LimitResult, error) {
	now := l.now()

	l.mtx.Lock()
	defer l.mtx.Unlock()

	info, exists := l.clients[key]
	if !exists || !now.Before(info.resetAt) {
		info = &clientInfo{resetAt: now.Add(l.window)}
		l.clients[key] = info
	}

	if info.count >= l.limit {
		return &LimitResult{Allowed: false, Limit: l.limit, Remaining: 0, ResetAt: info.resetAt}, nil
	}

	info.count++
	return &LimitResult{
		Allowed:   true,
		Limit:     l.limit,
		Remaining: l.limit - info.count,
		ResetAt:   info.resetAt,
	}, nil
}

// Cleanup удаляет истёкшие окна, чтобы карта не росла бесконечно.
func (l *MemoryLimiter) Cleanup() int {
	now := l.now()

	l.mtx.Lock()
	defer l.mtx.Unlock()

	removed := 0
	for key, info := range l.clients {
		if !now.Before(info.resetAt) {
			delete(l.clients, key)
			removed++
		}
	}
	return removed
}

// Run периодически вызывает Cleanup до отмены контекста.
func (l *MemoryLimiter) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			l.Cleanup()
		}
	}
}
