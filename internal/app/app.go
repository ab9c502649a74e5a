package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"taskManager/internal/auth"
	"taskManager/internal/config"
	"taskManager/internal/logger"
	"taskManager/internal/middleware"
	"taskManager/internal/migrations"
	"taskManager/internal/repository/postgres"
	taskmem "taskManager/internal/repository/task/inmemory"
	taskpg "taskManager/internal/repository/task/postgres"
	usermem "taskManager/internal/repository/user/inmemory"
	userpg "taskManager/internal/repository/user/postgres"
	"taskManager/internal/service"
	"taskManager/internal/worker"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type App struct {
	config      *config.Config
	server      *http.Server
	handler     http.Handler
	tasks       service.TaskRepository
	users       service.UserRepository
	taskService *service.TaskService
	authService *service.AuthService
	tokens      *auth.TokenManager
	worker      *worker.CompletionWorker

	globalLimiter middleware.Limiter
	authLimiter   middleware.Limiter

	background []func(context.Context) error // фоновые задачи, живущие вместе с сервером
	shutdowns  []func()                      // функции для graceful shutdown
}

func New(cfg *config.Config) *App {
	return &App{
		config:    cfg,
		shutdowns: make([]func(), 0),
	}
}

func (a *App) Init(ctx context.Context) error {
	if err := logger.Init(a.config.Logging.Development); err != nil {
		return fmt.Errorf("инициализация логгера: %w", err)
	}
	a.shutdowns = append(a.shutdowns, func() {
		logger.Info("Завершение работы логгирования...")
		logger.Sync()
	})

	if err := a.initRepositories(ctx); err != nil {
		return err
	}
	if err := a.initServices(); err != nil {
		return err
	}
	a.initLimiters(ctx)

	a.handler = a.routes()
	a.server = &http.Server{
		Addr:         a.config.GetServerAddr(),
		Handler:      a.handler,
		ReadTimeout:  a.config.Server.ReadTimeout,
		WriteTimeout: a.config.Server.WriteTimeout,
	}

	logger.Info("Приложение инициализировано",
		zap.String("repository", a.config.Repository.Type),
		zap.Bool("async_propagation", a.config.Propagation.Async),
		zap.String("addr", a.server.Addr))
	return nil
}

func (a *App) initRepositories(ctx context.Context) error {
	if a.config.Repository.Type == config.RepositoryInMemory {
		a.tasks = taskmem.NewTaskStorage()
		a.users = usermem.NewUserStorage()
		logger.Warn("Repository: Используется in-memory хранилище, данные не переживут перезапуск")
		return nil
	}

	db := a.config.Database
	pool, err := postgres.NewPool(ctx, postgres.PoolConfig{
		URL:            db.URL,
		MaxConnections: db.MaxConnections,
		MinConnections: db.MinConnections,
		IdleTimeout:    db.IdleTimeout,
		ConnectTimeout: db.ConnectTimeout,
	})
	if err != nil {
		return fmt.Errorf("подключение к PostgreSQL: %w", err)
	}
	a.shutdowns = append(a.shutdowns, func() {
		logger.Info("Закрытие пула PostgreSQL...")
		pool.Close()
	})

	if db.AutoMigrate {
		if err := migrations.Up(db.URL); err != nil {
			return fmt.Errorf("миграции: %w", err)
		}
	}

	a.tasks = taskpg.New(pool)
	a.users = userpg.New(pool)
	return nil
}

func (a *App) initServices() error {
	authCfg := a.config.Auth
	tokens, err := auth.NewTokenManager(auth.TokenConfig{
		Secret:   authCfg.JWTSecret,
		TTL:      authCfg.TokenTTL,
		Issuer:   authCfg.Issuer,
		Audience: authCfg.Audience,
	})
	if err != nil {
		return fmt.Errorf("инициализация токенов: %w", err)
	}
	a.tokens = tokens
	a.authService = service.NewAuthService(a.users, auth.NewPasswordHasher(authCfg.BcryptCost), tokens)

	propagator := service.NewParentPropagator(a.tasks)
	var hook service.CompletionHook = propagator
	if a.config.Propagation.Async {
		a.worker = worker.NewCompletionWorker(propagator, &a.config.Propagation.QueueSize)
		hook = a.worker
		a.background = append(a.background, func(ctx context.Context) error {
			a.worker.Start(ctx)
			return nil
		})
	}
	a.taskService = service.NewTaskService(a.tasks, hook)
	return nil
}

// initLimiters выбирает Redis, если он задан и отвечает, иначе счётчики в памяти.
func (a *App) initLimiters(ctx context.Context) {
	rl := a.config.RateLimit

	if rl.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     rl.RedisAddr,
			Password: rl.RedisPassword,
			DB:       rl.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err == nil {
			a.globalLimiter = middleware.NewRedisLimiter(client, "ratelimit:global:", rl.GlobalRPM, time.Minute)
			a.authLimiter = middleware.NewRedisLimiter(client, "ratelimit:", rl.AuthLimit, rl.AuthWindow)
			a.shutdowns = append(a.shutdowns, func() {
				logger.Info("Закрытие клиента Redis...")
				_ = client.Close()
			})
			logger.Info("RateLimit: Счётчики хранятся в Redis", zap.String("addr", rl.RedisAddr))
			return
		}
		logger.Error("RateLimit: Redis недоступен, используются счётчики в памяти", err,
			zap.String("addr", rl.RedisAddr))
		_ = client.Close()
	}

	global := middleware.NewMemoryLimiter(rl.GlobalRPM, time.Minute)
	authLimiter := middleware.NewMemoryLimiter(rl.AuthLimit, rl.AuthWindow)
	a.globalLimiter, a.authLimiter = global, authLimiter
	a.background = append(a.background, global.Run, authLimiter.Run)
}

// Handler возвращает собранный роутер; используется в тестах.
func (a *App) Handler() http.Handler {
	return a.handler
}

// Run обслуживает запросы до отмены ctx, затем останавливает сервер
// и фоновые задачи.
func (a *App) Run(ctx context.Context) error {
	defer a.Shutdown()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Сервер запущен", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http сервер: %w", err)
		}
		return nil
	})

	for _, job := range a.background {
		g.Go(func() error {
			return job(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Остановка сервера...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.config.Server.ShutdownTimeout)
		defer cancel()
		err := a.server.Shutdown(shutdownCtx)
		// Воркер останавливается только после сервера: завершённые
		// в последних запросах подзадачи ещё попадут в очередь.
		if a.worker != nil {
			a.worker.Stop()
		}
		return err
	})

	return g.Wait()
}

// Shutdown выполняет зарегистрированные функции в обратном порядке.
func (a *App) Shutdown() {
	for i := len(a.shutdowns) - 1; i >= 0; i-- {
		a.shutdowns[i]()
	}
	a.shutdowns = nil
}
