// Package pgtest поднимает PostgreSQL в контейнере для интеграционных тестов хранилищ.
package pgtest

import (
	"context"
	"fmt"
	"taskManager/internal/migrations"
	"taskManager/internal/repository/postgres"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

type Database struct {
	Pool      *pgxpool.Pool
	URL       string
	container testcontainers.Container
}

// Start запускает контейнер, применяет миграции и открывает пул.
func Start(ctx context.Context) (*Database, error) {
	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(30 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("запуск контейнера: %w", err)
	}
	db := &Database{container: container}

	host, err := container.Host(ctx)
	if err != nil {
		db.Close(ctx)
		return nil, err
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		db.Close(ctx)
		return nil, err
	}
	db.URL = fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())

	db.Pool, err = postgres.NewPool(ctx, postgres.PoolConfig{
		URL:            db.URL,
		MaxConnections: 10,
		ConnectTimeout: 30 * time.Second,
	})
	if err != nil {
		db.Close(ctx)
		return nil, err
	}

	if err := migrations.Up(db.URL); err != nil {
		db.Close(ctx)
		return nil, err
	}
	return db, nil
}

// Truncate очищает таблицы между тестами.
func (db *Database) Truncate(ctx context.Context) error {
	_, err := db.Pool.Exec(ctx, "TRUNCATE tasks, users")
	return err
}

func (db *Database) Close(ctx context.Context) {
	if db.Pool != nil {
		db.Pool.Close()
	}
	if db.container != nil {
		_ = db.container.Terminate(ctx)
	}
}
