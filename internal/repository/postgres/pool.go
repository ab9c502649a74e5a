package postgres

import (
	"context"
	"fmt"
	"taskManager/internal/logger"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type PoolConfig struct {
	URL            string
	MaxConnections int32
	MinConnections int32
	IdleTimeout    time.Duration
	// ConnectTimeout - сколько всего пытаться подключиться при старте.
	ConnectTimeout time.Duration
}

// NewPool создаёт пул и повторяет подключение с экспоненциальной задержкой,
// пока база не станет доступна или не истечёт ConnectTimeout.
func NewPool(ctx context.Context, cfg PoolConfig) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		logger.Error("Repository: Ошибка загрузки конфига", err)
		return nil, fmt.Errorf("загрузка конфига: %w", err)
	}

	if cfg.MaxConnections > 0 {
		config.MaxConns = cfg.MaxConnections
	}
	if cfg.MinConnections > 0 {
		config.MinConns = cfg.MinConnections
	}
	if cfg.IdleTimeout > 0 {
		config.MaxConnIdleTime = cfg.IdleTimeout
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = cfg.ConnectTimeout

	var pool *pgxpool.Pool
	connect := func() error {
		p, err := pgxpool.NewWithConfig(ctx, config)
		if err != nil {
			return fmt.Errorf("создание пула: %w", err)
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			return fmt.Errorf("проверка соединения ping: %w", err)
		}
		pool = p
		return nil
	}

	notify := func(err error, next time.Duration) {
		logger.Warn("Repository: PostgreSQL недоступен, повтор подключения",
			zap.Error(err),
			zap.Duration("retry_in", next))
	}

	if err := backoff.RetryNotify(connect, backoff.WithContext(b, ctx), notify); err != nil {
		logger.Error("Repository: Не удалось подключиться к PostgreSQL", err)
		return nil, err
	}

	logger.Info("Repository: Успешное создание подключения к PostgreSQL")
	return pool, nil
}
