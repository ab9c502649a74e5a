package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"taskManager/internal/models/task"
	repo "taskManager/internal/repository"
	"time"

	"github.com/google/uuid"
)

// TaskStorage хранит копии задач; наружу тоже отдаются копии.
type TaskStorage struct {
	storage map[uuid.UUID]*task.Task
	// parents - обратный индекс подзадача -> родитель
	parents map[uuid.UUID]uuid.UUID
	mtx     *sync.RWMutex
}

func NewTaskStorage() *TaskStorage {
	return &TaskStorage{
		storage: make(map[uuid.UUID]*task.Task),
		parents: make(map[uuid.UUID]uuid.UUID),
		mtx:     &sync.RWMutex{},
	}
}

func (s *TaskStorage) HealthCheck(ctx context.Context) error {
	return nil
}

func (s *TaskStorage) Create(ctx context.Context, taskToCreate *task.Task) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.storage[taskToCreate.ID]; ok {
		return repo.ErrConflict
	}
	s.storage[taskToCreate.ID] = taskToCreate.Clone()
	return nil
}

func (s *TaskStorage) CreateSubtask(ctx context.Context, parentID uuid.UUID, subtask *task.Task) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	parent, ok := s.storage[parentID]
	if !ok || parent.Creator != subtask.Creator {
		return repo.ErrNotFound
	}
	if _, nested := s.parents[parentID]; nested {
		return repo.ErrNestedSubtask
	}
	if _, ok := s.storage[subtask.ID]; ok {
		return repo.ErrConflict
	}

	s.storage[subtask.ID] = subtask.Clone()
	parent.Subtasks = append(parent.Subtasks, subtask.ID)
	s.parents[subtask.ID] = parentID
	return nil
}

func (s *TaskStorage) GetByID(ctx context.Context, id, owner uuid.UUID) (*task.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	taskToGet, ok := s.owned(id, owner)
	if !ok {
		return nil, repo.ErrNotFound
	}
	return taskToGet.Clone(), nil
}

// Update заменяет изменяемые поля; список подзадач и служебные поля не трогает.
func (s *TaskStorage) Update(ctx context.Context, taskToUpdate *task.Task) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	existing, ok := s.owned(taskToUpdate.ID, taskToUpdate.Creator)
	if !ok {
		return repo.ErrNotFound
	}

	existing.Title = taskToUpdate.Title
	existing.Description = taskToUpdate.Description
	existing.Status = taskToUpdate.Status
	existing.Priority = taskToUpdate.Priority
	existing.Start = taskToUpdate.Start
	existing.Finish = taskToUpdate.Finish
	existing.Color = taskToUpdate.Color
	existing.FinishedAt = nil
	if taskToUpdate.FinishedAt != nil {
		at := *taskToUpdate.FinishedAt
		existing.FinishedAt = &at
	}
	return nil
}

func (s *TaskStorage) Delete(ctx context.Context, id, owner uuid.UUID) (*task.Task, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	existing, ok := s.owned(id, owner)
	if !ok {
		return nil, repo.ErrNotFound
	}

	if parentID, linked := s.parents[id]; linked {
		s.unlink(parentID, id)
	}
	// подзадачи удаляемого родителя остаются самостоятельными задачами
	for _, sub := range existing.Subtasks {
		delete(s.parents, sub)
	}
	delete(s.storage, id)
	return existing, nil
}

func (s *TaskStorage) DeleteSubtask(ctx context.Context, parentID, subtaskID, owner uuid.UUID) (*task.Task, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	parent, ok := s.owned(parentID, owner)
	if !ok || !parent.HasSubtask(subtaskID) {
		return nil, repo.ErrNotFound
	}
	subtask, ok := s.owned(subtaskID, owner)
	if !ok {
		return nil, repo.ErrNotFound
	}

	s.unlink(parentID, subtaskID)
	delete(s.storage, subtaskID)
	return subtask, nil
}

func (s *TaskStorage) ListByOwner(ctx context.Context, owner uuid.UUID, page task.Page) ([]*task.Task, int, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	all, _ := s.collect(owner, task.Filter{})
	total := len(all)

	offset := page.Offset()
	if offset >= total {
		return []*task.Task{}, total, nil
	}
	end := total
	if page.Limit < total-offset {
		end = offset + page.Limit
	}
	return all[offset:end], total, nil
}

func (s *TaskStorage) ListSubtasks(ctx context.Context, parentID, owner uuid.UUID) ([]*task.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	parent, ok := s.owned(parentID, owner)
	if !ok {
		return nil, repo.ErrNotFound
	}

	res := []*task.Task{}
	for _, id := range parent.Subtasks {
		if sub, ok := s.owned(id, owner); ok {
			res = append(res, sub.Clone())
		}
	}
	return res, nil
}

func (s *TaskStorage) Search(ctx context.Context, owner uuid.UUID, filter task.Filter) ([]*task.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	res, err := s.collect(owner, filter)
	if err != nil {
		return nil, fmt.Errorf("фильтр поиска: %w", err)
	}
	return res, nil
}

// CompleteParentIfSubtasksDone выполняется под одной блокировкой записи,
// поэтому чтение статусов и запись родителя атомарны.
func (s *TaskStorage) CompleteParentIfSubtasksDone(ctx context.Context, subtaskID uuid.UUID) (bool, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	parentID, ok := s.parents[subtaskID]
	if !ok {
		return false, nil
	}
	parent, ok := s.storage[parentID]
	if !ok || parent.Status == task.StatusDone {
		return false, nil
	}

	for _, id := range parent.Subtasks {
		if sub, ok := s.storage[id]; ok && sub.Status != task.StatusDone {
			return false, nil
		}
	}

	now := time.Now().UTC()
	parent.Status = task.StatusDone
	parent.FinishedAt = &now
	return true, nil
}

func (s *TaskStorage) owned(id, owner uuid.UUID) (*task.Task, bool) {
	t, ok := s.storage[id]
	if !ok || t.Creator != owner {
		return nil, false
	}
	return t, true
}

func (s *TaskStorage) unlink(parentID, subtaskID uuid.UUID) {
	delete(s.parents, subtaskID)
	parent, ok := s.storage[parentID]
	if !ok {
		return
	}
	kept := parent.Subtasks[:0]
	for _, id := range parent.Subtasks {
		if id != subtaskID {
			kept = append(kept, id)
		}
	}
	parent.Subtasks = kept
}

// collect возвращает отсортированные копии задач владельца, подходящих под фильтр.
func (s *TaskStorage) collect(owner uuid.UUID, filter task.Filter) ([]*task.Task, error) {
	matches, err := filter.Matcher()
	if err != nil {
		return nil, err
	}

	res := []*task.Task{}
	for _, t := range s.storage {
		if t.Creator != owner || !matches(t) {
			continue
		}
		res = append(res, t.Clone())
	}
	sort.Slice(res, func(i, j int) bool {
		return task.Less(res[i], res[j])
	})
	return res, nil
}
