package handlers

import (
	"context"
	"taskManager/internal/models/task"
	"taskManager/internal/models/user"
	"taskManager/internal/service"

	"github.com/google/uuid"
)

type TaskService interface {
	HealthCheck(ctx context.Context) error
	CreateTask(ctx context.Context, owner uuid.UUID, t *task.Task) (*task.Task, error)
	CreateSubtask(ctx context.Context, owner, parentID uuid.UUID, t *task.Task) (*task.Task, error)
	ListTasks(ctx context.Context, owner uuid.UUID, page, limit int) (*task.PageResult, error)
	GetSubtasks(ctx context.Context, owner, parentID uuid.UUID) ([]*task.Task, error)
	UpdateTask(ctx context.Context, owner, id uuid.UUID, options ...task.TaskOption) (*task.Task, error)
	DeleteTask(ctx context.Context, owner, id uuid.UUID) (*task.Task, error)
	DeleteSubtask(ctx context.Context, owner, parentID, subtaskID uuid.UUID) (*task.Task, error)
	SearchTasks(ctx context.Context, owner uuid.UUID, filter task.Filter) ([]*task.Task, error)
}

type AuthService interface {
	SignUp(ctx context.Context, username, email, password string) (*user.User, error)
	SignIn(ctx context.Context, email, password string) (*service.SignInResult, error)
}
