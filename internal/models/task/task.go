package task

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Task struct {
	ID          uuid.UUID   `json:"id" db:"id"`
	Title       string      `json:"task" db:"title"`
	Description string      `json:"desc,omitempty" db:"description"`
	Status      Status      `json:"status" db:"status"`
	Priority    Priority    `json:"priority" db:"priority"`
	Creator     uuid.UUID   `json:"creator" db:"creator"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
	Start       time.Time   `json:"start" db:"start_at"`
	Finish      time.Time   `json:"finish" db:"finish_at"`
	Color       string      `json:"color" db:"color"`
	FinishedAt  *time.Time  `json:"finished_at,omitempty" db:"finished_at,omitempty"`
	Subtasks    []uuid.UUID `json:"subtasks" db:"subtasks"`
}

type Status string
type Priority string

const StatusTodo Status = "Todo"
const StatusInProgress Status = "InProgress"
const StatusDone Status = "Done"

const PriorityHigh Priority = "High"
const PriorityMedium Priority = "Medium"
const PriorityLow Priority = "Low"

const DefaultColor = "#000000"

func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// Rank задаёт порядок сортировки: High > Medium > Low.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

// FieldError описывает нарушение правила валидации одного поля.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// ApplyDefaults заполняет статус, приоритет и цвет, если они не заданы.
func (t *Task) ApplyDefaults() {
	if t.Status == "" {
		t.Status = StatusTodo
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	if t.Color == "" {
		t.Color = DefaultColor
	}
	if t.Subtasks == nil {
		t.Subtasks = []uuid.UUID{}
	}
}

// Validate проверяет обязательные поля, перечисления и порядок дат.
func (t *Task) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return &FieldError{Field: "task", Reason: "is required"}
	}
	if !t.Status.Valid() {
		return &FieldError{Field: "status", Reason: "must be one of Todo, InProgress, Done"}
	}
	if !t.Priority.Valid() {
		return &FieldError{Field: "priority", Reason: "must be one of High, Medium, Low"}
	}
	if t.Start.IsZero() {
		return &FieldError{Field: "start", Reason: "is required"}
	}
	if t.Finish.IsZero() {
		return &FieldError{Field: "finish", Reason: "is required"}
	}
	if t.Finish.Before(t.Start) {
		return &FieldError{Field: "finish", Reason: "must not be earlier than start"}
	}
	return nil
}

func (t *Task) HasSubtask(id uuid.UUID) bool {
	for _, s := range t.Subtasks {
		if s == id {
			return true
		}
	}
	return false
}

// Clone возвращает глубокую копию, чтобы хранилище не делило срезы с вызывающим кодом.
func (t *Task) Clone() *Task {
	c := *t
	if t.FinishedAt != nil {
		at := *t.FinishedAt
		c.FinishedAt = &at
	}
	c.Subtasks = append([]uuid.UUID{}, t.Subtasks...)
	return &c
}

// Less задаёт порядок выдачи списков: приоритет по убыванию, затем дата создания по убыванию.
func Less(a, b *Task) bool {
	if a.Priority.Rank() != b.Priority.Rank() {
		return a.Priority.Rank() > b.Priority.Rank()
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID.String() < b.ID.String()
}
