package worker

import (
	"context"
	"sync"
	"taskManager/internal/logger"
	"taskManager/internal/models/task"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultQueueSize = 256
	drainTimeout     = 5 * time.Second
)

// Propagator синхронно обновляет родителя завершённой подзадачи.
type Propagator interface {
	Propagate(ctx context.Context, subtaskID uuid.UUID) bool
}

// CompletionWorker выносит обновление родителя из запроса в фоновую очередь.
// Если очередь переполнена, обновление выполняется синхронно.
type CompletionWorker struct {
	propagator Propagator
	queue      chan uuid.UUID
	stop       chan struct{}
	stopOnce   sync.Once
	done       chan struct{}
}

func NewCompletionWorker(propagator Propagator, queueSize *int) *CompletionWorker {
	sizeToSet := defaultQueueSize
	if queueSize != nil && *queueSize > 0 {
		sizeToSet = *queueSize
	}
	return &CompletionWorker{
		propagator: propagator,
		queue:      make(chan uuid.UUID, sizeToSet),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// TaskCompleted реализует service.CompletionHook.
func (w *CompletionWorker) TaskCompleted(ctx context.Context, t *task.Task) {
	select {
	case w.queue <- t.ID:
	default:
		logger.Warn("Worker: Очередь переполнена, обновление родителя выполняется синхронно",
			zap.String("subtask_id", t.ID.String()))
		w.propagator.Propagate(context.WithoutCancel(ctx), t.ID)
	}
}

// Start блокируется до вызова Stop, затем дорабатывает то, что осталось в очереди.
// Отмена ctx воркер не останавливает: события продолжают приходить, пока
// HTTP сервер завершает начатые запросы.
func (w *CompletionWorker) Start(ctx context.Context) {
	defer close(w.done)
	logger.Info("Worker: Обработчик завершения подзадач запущен", zap.Int("queue_size", cap(w.queue)))

	for {
		select {
		case id := <-w.queue:
			w.propagator.Propagate(context.WithoutCancel(ctx), id)
		case <-w.stop:
			w.drain()
			return
		}
	}
}

// Stop просит Start завершиться; вызывается после остановки HTTP сервера.
func (w *CompletionWorker) Stop() {
	w.stopOnce.Do(func() { close(w.stop) })
}

// Done закрывается после выхода Start.
func (w *CompletionWorker) Done() <-chan struct{} {
	return w.done
}

func (w *CompletionWorker) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()

	processed := 0
	for {
		select {
		case id := <-w.queue:
			w.propagator.Propagate(ctx, id)
			processed++
		default:
			logger.Info("Worker: Обработчик завершения подзадач остановлен", zap.Int("drained", processed))
			return
		}
	}
}
