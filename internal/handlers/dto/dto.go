package dto

import (
	"taskManager/internal/models/task"
	"taskManager/internal/models/user"
	"taskManager/internal/service"
	"time"

	"github.com/google/uuid"
)

type CreateTaskRequest struct {
	Task     string         `json:"task"`
	Desc     string         `json:"desc"`
	Status   *task.Status   `json:"status,omitempty"`
	Priority *task.Priority `json:"priority,omitempty"`
	Start    *Date          `json:"start"`
	Finish   *Date          `json:"finish"`
	Color    string         `json:"color,omitempty"`
}

// ToTask переносит поля запроса; проверку выполняет сервис.
func (r CreateTaskRequest) ToTask() *task.Task {
	t := &task.Task{
		Title:       r.Task,
		Description: r.Desc,
		Color:       r.Color,
	}
	if r.Status != nil {
		t.Status = *r.Status
	}
	if r.Priority != nil {
		t.Priority = *r.Priority
	}
	if r.Start != nil {
		t.Start = r.Start.Time()
	}
	if r.Finish != nil {
		t.Finish = r.Finish.Time()
	}
	return t
}

// UpdateTaskRequest - частичное обновление: отсутствующие поля не меняются.
type UpdateTaskRequest struct {
	Task     *string        `json:"task,omitempty"`
	Desc     *string        `json:"desc,omitempty"`
	Status   *task.Status   `json:"status,omitempty"`
	Priority *task.Priority `json:"priority,omitempty"`
	Start    *Date          `json:"start,omitempty"`
	Finish   *Date          `json:"finish,omitempty"`
	Color    *string        `json:"color,omitempty"`
}

func (r UpdateTaskRequest) ToOptions() []task.TaskOption {
	return []task.TaskOption{
		task.WithTitle(r.Task),
		task.WithDescription(r.Desc),
		task.WithStatus(r.Status),
		task.WithPriority(r.Priority),
		task.WithStart(r.Start.TimePtr()),
		task.WithFinish(r.Finish.TimePtr()),
		task.WithColor(r.Color),
	}
}

type TaskResponse struct {
	ID         uuid.UUID   `json:"id"`
	Task       string      `json:"task"`
	Desc       string      `json:"desc,omitempty"`
	Status     string      `json:"status"`
	Priority   string      `json:"priority"`
	Creator    uuid.UUID   `json:"creator"`
	CreatedAt  time.Time   `json:"created_at"`
	Start      time.Time   `json:"start"`
	Finish     time.Time   `json:"finish"`
	Color      string      `json:"color"`
	FinishedAt *time.Time  `json:"finished_at,omitempty"`
	Subtasks   []uuid.UUID `json:"subtasks"`
}

func FromTask(t *task.Task) TaskResponse {
	subtasks := t.Subtasks
	if subtasks == nil {
		subtasks = []uuid.UUID{}
	}
	return TaskResponse{
		ID:         t.ID,
		Task:       t.Title,
		Desc:       t.Description,
		Status:     string(t.Status),
		Priority:   string(t.Priority),
		Creator:    t.Creator,
		CreatedAt:  t.CreatedAt,
		Start:      t.Start,
		Finish:     t.Finish,
		Color:      t.Color,
		FinishedAt: t.FinishedAt,
		Subtasks:   subtasks,
	}
}

func FromTaskList(tasks []*task.Task) []TaskResponse {
	result := make([]TaskResponse, len(tasks))
	for i, t := range tasks {
		result[i] = FromTask(t)
	}
	return result
}

type SignUpRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserResponse никогда не содержит хэш пароля.
type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

func FromUser(u *user.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}

type SignInResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	// ExpiresIn - срок жизни токена в секундах.
	ExpiresIn int64 `json:"expires_in"`
}

func FromSignIn(res *service.SignInResult) SignInResponse {
	return SignInResponse{
		Token:     res.Token,
		Username:  res.Username,
		ExpiresIn: int64(res.ExpiresIn.Seconds()),
	}
}
