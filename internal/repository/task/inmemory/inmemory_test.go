package inmemory_test

import (
	"context"
	"fmt"
	"math"
	"sync"
	"taskManager/internal/models/task"
	"taskManager/internal/repository"
	"taskManager/internal/repository/task/inmemory"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTask(owner uuid.UUID, title string) *task.Task {
	start := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
	t := &task.Task{
		ID:        uuid.New(),
		Title:     title,
		Creator:   owner,
		CreatedAt: time.Now().UTC(),
		Start:     start,
		Finish:    start.Add(48 * time.Hour),
	}
	t.ApplyDefaults()
	return t
}

// TestTaskStorage_HealthCheck тестирует проверку здоровья
func TestTaskStorage_HealthCheck(t *testing.T) {
	storage := inmemory.NewTaskStorage()
	assert.NoError(t, storage.HealthCheck(context.Background()))
}

// TestTaskStorage_CreateAndGet тестирует создание и получение задачи владельцем
func TestTaskStorage_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewTaskStorage()
	owner := uuid.New()

	taskToCreate := newTask(owner, "Write report")
	require.NoError(t, storage.Create(ctx, taskToCreate))

	retrieved, err := storage.GetByID(ctx, taskToCreate.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, "Write report", retrieved.Title)
	assert.Equal(t, task.StatusTodo, retrieved.Status)
	assert.Equal(t, task.PriorityMedium, retrieved.Priority)
	assert.Equal(t, task.DefaultColor, retrieved.Color)

	// Чужой владелец не видит задачу
	_, err = storage.GetByID(ctx, taskToCreate.ID, uuid.New())
	assert.ErrorIs(t, err, repository.ErrNotFound)

	// Повторная вставка с тем же ID
	assert.ErrorIs(t, storage.Create(ctx, taskToCreate), repository.ErrConflict)
}

// TestTaskStorage_ReturnsCopies проверяет, что хранилище не делит память с вызывающим кодом
func TestTaskStorage_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewTaskStorage()
	owner := uuid.New()

	taskToCreate := newTask(owner, "Original")
	require.NoError(t, storage.Create(ctx, taskToCreate))
	taskToCreate.Title = "Changed outside"

	retrieved, err := storage.GetByID(ctx, taskToCreate.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, "Original", retrieved.Title)

	retrieved.Title = "Changed again"
	again, err := storage.GetByID(ctx, taskToCreate.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, "Original", again.Title)
}

// TestTaskStorage_Update тестирует обновление задачи
func TestTaskStorage_Update(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewTaskStorage()
	owner := uuid.New()

	taskToCreate := newTask(owner, "Original Title")
	require.NoError(t, storage.Create(ctx, taskToCreate))

	now := time.Now().UTC()
	updated := taskToCreate.Clone()
	updated.Title = "Updated Title"
	updated.Status = task.StatusDone
	updated.FinishedAt = &now

	require.NoError(t, storage.Update(ctx, updated))

	retrieved, err := storage.GetByID(ctx, taskToCreate.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, "Updated Title", retrieved.Title)
	assert.Equal(t, task.StatusDone, retrieved.Status)
	require.NotNil(t, retrieved.FinishedAt)

	// Обновление чужой задачи
	foreign := updated.Clone()
	foreign.Creator = uuid.New()
	assert.ErrorIs(t, storage.Update(ctx, foreign), repository.ErrNotFound)
}

// TestTaskStorage_Subtasks тестирует добавление, выдачу и удаление подзадач
func TestTaskStorage_Subtasks(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewTaskStorage()
	owner := uuid.New()

	parent := newTask(owner, "Parent")
	require.NoError(t, storage.Create(ctx, parent))

	first := newTask(owner, "First")
	second := newTask(owner, "Second")
	require.NoError(t, storage.CreateSubtask(ctx, parent.ID, first))
	require.NoError(t, storage.CreateSubtask(ctx, parent.ID, second))

	subtasks, err := storage.ListSubtasks(ctx, parent.ID, owner)
	require.NoError(t, err)
	require.Len(t, subtasks, 2)
	assert.Equal(t, first.ID, subtasks[0].ID)
	assert.Equal(t, second.ID, subtasks[1].ID)

	stored, err := storage.GetByID(ctx, parent.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{first.ID, second.ID}, stored.Subtasks)

	t.Run("nested subtask rejected", func(t *testing.T) {
		err := storage.CreateSubtask(ctx, first.ID, newTask(owner, "Nested"))
		assert.ErrorIs(t, err, repository.ErrNestedSubtask)
	})

	t.Run("foreign parent", func(t *testing.T) {
		err := storage.CreateSubtask(ctx, parent.ID, newTask(uuid.New(), "Intruder"))
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("delete subtask of another parent", func(t *testing.T) {
		other := newTask(owner, "Other")
		require.NoError(t, storage.Create(ctx, other))
		_, err := storage.DeleteSubtask(ctx, other.ID, first.ID, owner)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("delete subtask", func(t *testing.T) {
		deleted, err := storage.DeleteSubtask(ctx, parent.ID, first.ID, owner)
		require.NoError(t, err)
		assert.Equal(t, first.ID, deleted.ID)

		stored, err := storage.GetByID(ctx, parent.ID, owner)
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{second.ID}, stored.Subtasks)

		_, err = storage.GetByID(ctx, first.ID, owner)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})
}

// TestTaskStorage_DeleteParentKeepsSubtasks тестирует, что подзадачи переживают удаление родителя
func TestTaskStorage_DeleteParentKeepsSubtasks(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewTaskStorage()
	owner := uuid.New()

	parent := newTask(owner, "Parent")
	require.NoError(t, storage.Create(ctx, parent))
	sub := newTask(owner, "Child")
	require.NoError(t, storage.CreateSubtask(ctx, parent.ID, sub))

	deleted, err := storage.Delete(ctx, parent.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, parent.ID, deleted.ID)

	_, err = storage.GetByID(ctx, sub.ID, owner)
	require.NoError(t, err)

	// Бывшая подзадача теперь может сама иметь подзадачи
	assert.NoError(t, storage.CreateSubtask(ctx, sub.ID, newTask(owner, "Grandchild")))

	_, err = storage.Delete(ctx, parent.ID, owner)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

// TestTaskStorage_ListByOwner тестирует сортировку и пагинацию
func TestTaskStorage_ListByOwner(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewTaskStorage()
	owner := uuid.New()
	base := time.Now().UTC()

	priorities := []task.Priority{task.PriorityLow, task.PriorityHigh, task.PriorityMedium, task.PriorityHigh, task.PriorityLow}
	for i, p := range priorities {
		tk := newTask(owner, fmt.Sprintf("Task %d", i))
		tk.Priority = p
		tk.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, storage.Create(ctx, tk))
	}
	require.NoError(t, storage.Create(ctx, newTask(uuid.New(), "Foreign")))

	all, total, err := storage.ListByOwner(ctx, owner, task.NewPage(1, 10))
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, all, 5)

	titles := make([]string, 0, len(all))
	for _, tk := range all {
		titles = append(titles, tk.Title)
	}
	assert.Equal(t, []string{"Task 3", "Task 1", "Task 2", "Task 4", "Task 0"}, titles)

	page2, total, err := storage.ListByOwner(ctx, owner, task.NewPage(2, 2))
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, page2, 2)
	assert.Equal(t, "Task 2", page2[0].Title)

	beyond, total, err := storage.ListByOwner(ctx, owner, task.NewPage(10, 10))
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Empty(t, beyond)
}

// TestTaskStorage_Search тестирует фильтры поиска
func TestTaskStorage_Search(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewTaskStorage()
	owner := uuid.New()

	report := newTask(owner, "Quarterly REPORT")
	report.Priority = task.PriorityHigh
	require.NoError(t, storage.Create(ctx, report))

	groceries := newTask(owner, "Buy groceries (50% off)")
	groceries.Status = task.StatusDone
	groceries.Start = groceries.Start.Add(72 * time.Hour)
	groceries.Finish = groceries.Start.Add(time.Hour)
	require.NoError(t, storage.Create(ctx, groceries))

	high := task.PriorityHigh
	done := task.StatusDone
	from := report.Start.Add(24 * time.Hour)
	until := report.Finish
	groceriesEnd := groceries.Finish

	tests := []struct {
		name   string
		filter task.Filter
		want   []uuid.UUID
	}{
		{name: "no filter", filter: task.Filter{}, want: []uuid.UUID{report.ID, groceries.ID}},
		{name: "keyword case insensitive", filter: task.Filter{Keyword: "report"}, want: []uuid.UUID{report.ID}},
		{name: "keyword with metacharacters", filter: task.Filter{Keyword: "(50%"}, want: []uuid.UUID{groceries.ID}},
		{name: "regex is not interpreted", filter: task.Filter{Keyword: ".*"}, want: []uuid.UUID{}},
		{name: "priority", filter: task.Filter{Priority: &high}, want: []uuid.UUID{report.ID}},
		{name: "status", filter: task.Filter{Status: &done}, want: []uuid.UUID{groceries.ID}},
		{name: "start date", filter: task.Filter{StartDate: &from}, want: []uuid.UUID{groceries.ID}},
		{name: "end date inclusive", filter: task.Filter{EndDate: &until}, want: []uuid.UUID{report.ID}},
		{name: "date window", filter: task.Filter{StartDate: &from, EndDate: &groceriesEnd}, want: []uuid.UUID{groceries.ID}},
		{name: "date window excludes both", filter: task.Filter{StartDate: &from, EndDate: &until}, want: []uuid.UUID{}},
		{name: "status and keyword", filter: task.Filter{Status: &done, Keyword: "report"}, want: []uuid.UUID{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			found, err := storage.Search(ctx, owner, tt.filter)
			require.NoError(t, err)
			ids := make([]uuid.UUID, 0, len(found))
			for _, tk := range found {
				ids = append(ids, tk.ID)
			}
			assert.ElementsMatch(t, tt.want, ids)
		})
	}
}

// TestTaskStorage_SearchInvalidKeyword тестирует ошибку вместо паники на невалидном UTF-8
func TestTaskStorage_SearchInvalidKeyword(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewTaskStorage()
	owner := uuid.New()
	require.NoError(t, storage.Create(ctx, newTask(owner, "Report")))

	assert.NotPanics(t, func() {
		_, err := storage.Search(ctx, owner, task.Filter{Keyword: "\xff"})
		assert.ErrorIs(t, err, task.ErrInvalidKeyword)
	})
}

// TestTaskStorage_ListByOwnerLargeLimit тестирует limit больше числа задач
func TestTaskStorage_ListByOwnerLargeLimit(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewTaskStorage()
	owner := uuid.New()
	for i := 0; i < 150; i++ {
		require.NoError(t, storage.Create(ctx, newTask(owner, "Task")))
	}

	page := task.NewPage(1, 200)
	found, total, err := storage.ListByOwner(ctx, owner, page)
	require.NoError(t, err)
	assert.Equal(t, 150, total)
	assert.Len(t, found, 150)
	assert.Equal(t, 1, page.Pages(total))

	_, _, err = storage.ListByOwner(ctx, owner, task.NewPage(2, math.MaxInt))
	assert.NoError(t, err)
}

// TestTaskStorage_CompleteParent тестирует перевод родителя в Done
func TestTaskStorage_CompleteParent(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewTaskStorage()
	owner := uuid.New()

	parent := newTask(owner, "Parent")
	require.NoError(t, storage.Create(ctx, parent))
	a := newTask(owner, "A")
	b := newTask(owner, "B")
	require.NoError(t, storage.CreateSubtask(ctx, parent.ID, a))
	require.NoError(t, storage.CreateSubtask(ctx, parent.ID, b))

	markDone := func(tk *task.Task) {
		done := tk.Clone()
		done.Status = task.StatusDone
		require.NoError(t, storage.Update(ctx, done))
	}

	markDone(a)
	changed, err := storage.CompleteParentIfSubtasksDone(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, changed)

	markDone(b)
	changed, err = storage.CompleteParentIfSubtasksDone(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, changed)

	stored, err := storage.GetByID(ctx, parent.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, task.StatusDone, stored.Status)
	assert.NotNil(t, stored.FinishedAt)

	// Повторный вызов ничего не меняет
	changed, err = storage.CompleteParentIfSubtasksDone(ctx, b.ID)
	require.NoError(t, err)
	assert.False(t, changed)

	// Самостоятельная задача
	changed, err = storage.CompleteParentIfSubtasksDone(ctx, parent.ID)
	require.NoError(t, err)
	assert.False(t, changed)
}

// TestTaskStorage_ConcurrentAccess тестирует конкурентный доступ
func TestTaskStorage_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewTaskStorage()
	owner := uuid.New()

	parent := newTask(owner, "Parent")
	require.NoError(t, storage.Create(ctx, parent))

	const workers = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sub := newTask(owner, fmt.Sprintf("Sub %d", i))
			assert.NoError(t, storage.CreateSubtask(ctx, parent.ID, sub))
			_, _, err := storage.ListByOwner(ctx, owner, task.NewPage(1, 5))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	subtasks, err := storage.ListSubtasks(ctx, parent.ID, owner)
	require.NoError(t, err)
	assert.Len(t, subtasks, workers)
}
