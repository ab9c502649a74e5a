package service

import (
	"context"
	"taskManager/internal/logger"
	"taskManager/internal/models/task"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type parentCompleter interface {
	CompleteParentIfSubtasksDone(ctx context.Context, subtaskID uuid.UUID) (bool, error)
}

// ParentPropagator синхронно переводит родителя в Done, когда завершена
// последняя незавершённая подзадача. Работает по принципу best-effort.
type ParentPropagator struct {
	repo parentCompleter
}

func NewParentPropagator(repo parentCompleter) *ParentPropagator {
	return &ParentPropagator{repo: repo}
}

func (p *ParentPropagator) TaskCompleted(ctx context.Context, t *task.Task) {
	p.Propagate(ctx, t.ID)
}

// Propagate возвращает true, если статус родителя изменён.
func (p *ParentPropagator) Propagate(ctx context.Context, subtaskID uuid.UUID) bool {
	changed, err := p.repo.CompleteParentIfSubtasksDone(ctx, subtaskID)
	if err != nil {
		logger.Error("Service: Не удалось обновить статус родительской задачи", err,
			zap.String("subtask_id", subtaskID.String()))
		return false
	}
	if changed {
		logger.Info("Service: Родительская задача завершена", zap.String("subtask_id", subtaskID.String()))
	}
	return changed
}
