package service

import (
	"context"
	"taskManager/internal/models/task"
	"taskManager/internal/models/user"
	"time"

	"github.com/google/uuid"
)

// TaskRepository - хранилище задач. Все операции чтения и изменения
// ограничены владельцем задачи.
type TaskRepository interface {
	HealthCheck(context.Context) error
	Create(context.Context, *task.Task) error
	CreateSubtask(ctx context.Context, parentID uuid.UUID, subtask *task.Task) error
	GetByID(ctx context.Context, id, owner uuid.UUID) (*task.Task, error)
	Update(context.Context, *task.Task) error
	Delete(ctx context.Context, id, owner uuid.UUID) (*task.Task, error)
	DeleteSubtask(ctx context.Context, parentID, subtaskID, owner uuid.UUID) (*task.Task, error)
	ListByOwner(ctx context.Context, owner uuid.UUID, page task.Page) ([]*task.Task, int, error)
	ListSubtasks(ctx context.Context, parentID, owner uuid.UUID) ([]*task.Task, error)
	Search(ctx context.Context, owner uuid.UUID, filter task.Filter) ([]*task.Task, error)
	// CompleteParentIfSubtasksDone в одной транзакции находит родителя подзадачи
	// и переводит его в Done, если незавершённых подзадач не осталось.
	CompleteParentIfSubtasksDone(ctx context.Context, subtaskID uuid.UUID) (bool, error)
}

type UserRepository interface {
	Create(context.Context, *user.User) error
	FindByEmail(ctx context.Context, email string) (*user.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*user.User, error)
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

type TokenIssuer interface {
	Issue(userID uuid.UUID, username string) (string, error)
	TTL() time.Duration
}

// CompletionHook вызывается после успешной записи, переведшей задачу в Done.
// Ошибки хука не влияют на результат исходного запроса.
type CompletionHook interface {
	TaskCompleted(ctx context.Context, t *task.Task)
}
