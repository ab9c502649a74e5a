package repository

import "errors"

var (
	ErrNotFound = errors.New("запись не найдена")
	ErrConflict = errors.New("запись уже существует")

	// ErrNestedSubtask - подзадача не может иметь собственных подзадач.
	ErrNestedSubtask = errors.New("вложенные подзадачи не поддерживаются")
)
