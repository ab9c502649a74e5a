package task

import (
	"time"
)

// TaskOption частично обновляет задачу. Конструкторы возвращают nil,
// если значение не передано, и такие опции пропускаются.
type TaskOption func(*Task)

func WithTitle(title *string) TaskOption {
	if title == nil {
		return nil
	}
	return func(task *Task) {
		task.Title = *title
	}
}

func WithDescription(description *string) TaskOption {
	if description == nil {
		return nil
	}
	return func(task *Task) {
		task.Description = *description
	}
}

func WithStatus(status *Status) TaskOption {
	if status == nil {
		return nil
	}
	return func(task *Task) {
		task.Status = *status
	}
}

func WithPriority(priority *Priority) TaskOption {
	if priority == nil {
		return nil
	}
	return func(task *Task) {
		task.Priority = *priority
	}
}

func WithStart(start *time.Time) TaskOption {
	if start == nil || start.IsZero() {
		return nil
	}
	return func(task *Task) {
		task.Start = *start
	}
}

func WithFinish(finish *time.Time) TaskOption {
	if finish == nil || finish.IsZero() {
		return nil
	}
	return func(task *Task) {
		task.Finish = *finish
	}
}

func WithColor(color *string) TaskOption {
	if color == nil || *color == "" {
		return nil
	}
	return func(task *Task) {
		task.Color = *color
	}
}

// Apply применяет опции по порядку, пропуская nil.
func (t *Task) Apply(options ...TaskOption) {
	for _, opt := range options {
		if opt != nil {
			opt(t)
		}
	}
}
