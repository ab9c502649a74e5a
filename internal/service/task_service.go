package service

import (
	"context"
	"errors"
	"fmt"
	"taskManager/internal/logger"
	"taskManager/internal/models/task"
	rep "taskManager/internal/repository"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// здесь происходит проверка ошибок бизнес-логики

type TaskService struct {
	repo TaskRepository
	hook CompletionHook
}

func NewTaskService(repo TaskRepository, hook CompletionHook) *TaskService {
	return &TaskService{
		repo: repo,
		hook: hook,
	}
}

func (s *TaskService) HealthCheck(ctx context.Context) error {
	if err := s.repo.HealthCheck(ctx); err != nil {
		return fmt.Errorf("проверка здоровья сервиса: %w", err)
	}
	return nil
}

func (s *TaskService) CreateTask(ctx context.Context, owner uuid.UUID, t *task.Task) (*task.Task, error) {
	if err := prepareNew(owner, t); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("создание задачи: %w", err)
	}

	logger.Info("Service: Задача создана",
		zap.String("task_id", t.ID.String()),
		zap.String("owner", owner.String()))
	return t, nil
}

// CreateSubtask создаёт задачу и добавляет её идентификатор в список подзадач родителя.
func (s *TaskService) CreateSubtask(ctx context.Context, owner, parentID uuid.UUID, t *task.Task) (*task.Task, error) {
	if err := prepareNew(owner, t); err != nil {
		return nil, err
	}

	if err := s.repo.CreateSubtask(ctx, parentID, t); err != nil {
		switch {
		case errors.Is(err, rep.ErrNotFound):
			logger.Info("Service: Родительская задача не найдена", zap.String("target_id", parentID.String()))
			return nil, NewNotFound("task", parentID.String())
		case errors.Is(err, rep.ErrNestedSubtask):
			return nil, NewValidationError("parent", "a subtask cannot have subtasks")
		}
		return nil, fmt.Errorf("создание подзадачи: %w", err)
	}

	if t.Status == task.StatusDone {
		s.completed(ctx, t)
	}
	return t, nil
}

// ListTasks возвращает страницу задач владельца; некорректные page/limit приводятся к 1.
func (s *TaskService) ListTasks(ctx context.Context, owner uuid.UUID, page, limit int) (*task.PageResult, error) {
	p := task.NewPage(page, limit)

	tasks, total, err := s.repo.ListByOwner(ctx, owner, p)
	if err != nil {
		return nil, fmt.Errorf("получение задач: %w", err)
	}

	return &task.PageResult{
		Tasks: tasks,
		Total: total,
		Page:  p.Page,
		Limit: p.Limit,
		Pages: p.Pages(total),
	}, nil
}

func (s *TaskService) GetSubtasks(ctx context.Context, owner, parentID uuid.UUID) ([]*task.Task, error) {
	tasks, err := s.repo.ListSubtasks(ctx, parentID, owner)
	if err != nil {
		if errors.Is(err, rep.ErrNotFound) {
			return nil, NewNotFound("task", parentID.String())
		}
		return nil, fmt.Errorf("получение подзадач: %w", err)
	}
	return tasks, nil
}

// UpdateTask объединяет переданные поля с сохранённой задачей.
func (s *TaskService) UpdateTask(ctx context.Context, owner, id uuid.UUID, options ...task.TaskOption) (*task.Task, error) {
	existing, err := s.repo.GetByID(ctx, id, owner)
	if err != nil {
		if errors.Is(err, rep.ErrNotFound) {
			logger.Info("Service: Задача не найдена", zap.String("target_id", id.String()))
			return nil, NewNotFound("task", id.String())
		}
		return nil, fmt.Errorf("получение задачи: %w", err)
	}

	previous := existing.Status
	updated := existing.Clone()
	updated.Apply(options...)

	if err := validate(updated); err != nil {
		return nil, err
	}
	markFinished(updated, previous)

	if err := s.repo.Update(ctx, updated); err != nil {
		if errors.Is(err, rep.ErrNotFound) {
			return nil, NewNotFound("task", id.String())
		}
		return nil, fmt.Errorf("обновление задачи: %w", err)
	}

	if previous != task.StatusDone && updated.Status == task.StatusDone {
		s.completed(ctx, updated)
	}
	return updated, nil
}

func (s *TaskService) DeleteTask(ctx context.Context, owner, id uuid.UUID) (*task.Task, error) {
	deleted, err := s.repo.Delete(ctx, id, owner)
	if err != nil {
		if errors.Is(err, rep.ErrNotFound) {
			return nil, NewNotFound("task", id.String())
		}
		return nil, fmt.Errorf("удаление задачи: %w", err)
	}

	logger.Info("Service: Задача удалена", zap.String("task_id", id.String()))
	return deleted, nil
}

// DeleteSubtask убирает подзадачу из списка родителя и удаляет её.
func (s *TaskService) DeleteSubtask(ctx context.Context, owner, parentID, subtaskID uuid.UUID) (*task.Task, error) {
	deleted, err := s.repo.DeleteSubtask(ctx, parentID, subtaskID, owner)
	if err != nil {
		if errors.Is(err, rep.ErrNotFound) {
			return nil, NewNotFound("subtask", subtaskID.String())
		}
		return nil, fmt.Errorf("удаление подзадачи: %w", err)
	}
	return deleted, nil
}

func (s *TaskService) SearchTasks(ctx context.Context, owner uuid.UUID, filter task.Filter) ([]*task.Task, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, NewValidationError("status", "must be one of Todo, InProgress, Done")
	}
	if filter.Priority != nil && !filter.Priority.Valid() {
		return nil, NewValidationError("priority", "must be one of High, Medium, Low")
	}
	if err := filter.Validate(); err != nil {
		return nil, NewValidationError("keyword", "must be valid UTF-8")
	}

	tasks, err := s.repo.Search(ctx, owner, filter)
	if err != nil {
		return nil, fmt.Errorf("поиск задач: %w", err)
	}
	return tasks, nil
}

// completed запускает хук после записи; сбои хука только логируются.
func (s *TaskService) completed(ctx context.Context, t *task.Task) {
	if s.hook == nil {
		return
	}
	s.hook.TaskCompleted(ctx, t)
}

func prepareNew(owner uuid.UUID, t *task.Task) error {
	t.ID = uuid.New()
	t.Creator = owner
	t.CreatedAt = time.Now().UTC()
	t.Subtasks = nil
	t.ApplyDefaults()

	if err := validate(t); err != nil {
		return err
	}
	markFinished(t, "")
	return nil
}

func validate(t *task.Task) error {
	if err := t.Validate(); err != nil {
		var fieldErr *task.FieldError
		if errors.As(err, &fieldErr) {
			return NewValidationError(fieldErr.Field, fieldErr.Reason)
		}
		return NewValidationError("task", err.Error())
	}
	return nil
}

// markFinished ставит finished_at при переходе в Done и сбрасывает при выходе из него.
func markFinished(t *task.Task, previous task.Status) {
	switch {
	case t.Status == task.StatusDone && previous != task.StatusDone:
		now := time.Now().UTC()
		t.FinishedAt = &now
	case t.Status != task.StatusDone:
		t.FinishedAt = nil
	}
}
