package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"taskManager/internal/logger"
	"taskManager/internal/models/task"
	repo "taskManager/internal/repository"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const taskColumns = `id, title, description, status, priority, creator, created_at,
	start_at, finish_at, color, finished_at, subtasks`

const orderByRank = `ORDER BY CASE priority WHEN 'High' THEN 3 WHEN 'Medium' THEN 2 ELSE 1 END DESC,
	created_at DESC, id`

const slowQuery = 100 * time.Millisecond

type Storage struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Storage {
	return &Storage{pool: pool}
}

func (s *Storage) Close() {
	if s.pool == nil {
		return
	}
	s.pool.Close()
	logger.Info("Repository: Закрытие всех соединений PostgreSQL")
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	err := s.pool.Ping(ctx)
	if err != nil {
		logger.Error("Repository: Неудачная проверка ping", err)
		return fmt.Errorf("проверка соединения ping: %w", err)
	}
	logger.Debug("Repository: Соединение стабильно")
	return nil
}

func (s *Storage) Create(ctx context.Context, taskToCreate *task.Task) error {
	start := time.Now()
	defer observe("create", start)

	if err := insertTask(ctx, s.pool, taskToCreate); err != nil {
		logger.Error("Repository: Не удалось добавить задачу", err, zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("добавление задачи: %w", err)
	}
	return nil
}

// CreateSubtask вставляет подзадачу и дописывает её в список родителя в одной транзакции.
func (s *Storage) CreateSubtask(ctx context.Context, parentID uuid.UUID, subtask *task.Task) error {
	start := time.Now()
	defer observe("create_subtask", start)

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var locked uuid.UUID
		err := tx.QueryRow(ctx,
			`SELECT id FROM tasks WHERE id = $1 AND creator = $2 FOR UPDATE`,
			parentID, subtask.Creator,
		).Scan(&locked)
		if errors.Is(err, pgx.ErrNoRows) {
			return repo.ErrNotFound
		}
		if err != nil {
			return err
		}

		var nested bool
		err = tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM tasks WHERE $1 = ANY(subtasks))`,
			parentID,
		).Scan(&nested)
		if err != nil {
			return err
		}
		if nested {
			return repo.ErrNestedSubtask
		}

		if err := insertTask(ctx, tx, subtask); err != nil {
			return err
		}

		_, err = tx.Exec(ctx,
			`UPDATE tasks SET subtasks = array_append(subtasks, $1) WHERE id = $2`,
			subtask.ID, parentID,
		)
		return err
	})

	if err != nil {
		if errors.Is(err, repo.ErrNotFound) || errors.Is(err, repo.ErrNestedSubtask) {
			return err
		}
		logger.Error("Repository: Не удалось добавить подзадачу", err,
			zap.String("parent_id", parentID.String()))
		return fmt.Errorf("добавление подзадачи: %w", err)
	}
	return nil
}

func (s *Storage) GetByID(ctx context.Context, id, owner uuid.UUID) (*task.Task, error) {
	start := time.Now()
	defer observe("get_by_id", start)

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1 AND creator = $2`

	rows, err := s.pool.Query(ctx, query, id, owner)
	if err != nil {
		logger.Error("Repository: Не удалось получить задачу", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("получение задачи: %w", err)
	}

	t, err := pgx.CollectExactlyOneRow(rows, scanTask)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: Не удалось получить задачу", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("получение задачи: %w", err)
	}
	return t, nil
}

// Update заменяет изменяемые поля; список подзадач меняется только через
// CreateSubtask и DeleteSubtask.
func (s *Storage) Update(ctx context.Context, taskToUpdate *task.Task) error {
	start := time.Now()
	defer observe("update", start)

	query := `UPDATE tasks
			SET title = $1,
				description = $2,
				status = $3,
				priority = $4,
				start_at = $5,
				finish_at = $6,
				color = $7,
				finished_at = $8
			WHERE id = $9 AND creator = $10`

	tag, err := s.pool.Exec(ctx, query,
		taskToUpdate.Title,
		taskToUpdate.Description,
		taskToUpdate.Status,
		taskToUpdate.Priority,
		taskToUpdate.Start,
		taskToUpdate.Finish,
		taskToUpdate.Color,
		taskToUpdate.FinishedAt,
		taskToUpdate.ID,
		taskToUpdate.Creator,
	)
	if err != nil {
		logger.Error("Repository: Не удалось обновить задачу", err)
		return fmt.Errorf("обновление задачи: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// Delete удаляет задачу и убирает её из списка родителя. Подзадачи удаляемой
// задачи остаются самостоятельными.
func (s *Storage) Delete(ctx context.Context, id, owner uuid.UUID) (*task.Task, error) {
	start := time.Now()
	defer observe("delete", start)

	var deleted *task.Task
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx,
			`DELETE FROM tasks WHERE id = $1 AND creator = $2 RETURNING `+taskColumns,
			id, owner,
		)
		if err != nil {
			return err
		}
		deleted, err = pgx.CollectExactlyOneRow(rows, scanTask)
		if errors.Is(err, pgx.ErrNoRows) {
			return repo.ErrNotFound
		}
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx,
			`UPDATE tasks SET subtasks = array_remove(subtasks, $1) WHERE $1 = ANY(subtasks)`,
			id,
		)
		return err
	})

	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, err
		}
		logger.Error("Repository: Не удалось удалить задачу", err, zap.String("task_id", id.String()))
		return nil, fmt.Errorf("удаление задачи: %w", err)
	}
	return deleted, nil
}

// DeleteSubtask сначала отвязывает подзадачу от родителя, затем удаляет её.
func (s *Storage) DeleteSubtask(ctx context.Context, parentID, subtaskID, owner uuid.UUID) (*task.Task, error) {
	start := time.Now()
	defer observe("delete_subtask", start)

	var deleted *task.Task
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE tasks SET subtasks = array_remove(subtasks, $1)
				WHERE id = $2 AND creator = $3 AND $1 = ANY(subtasks)`,
			subtaskID, parentID, owner,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return repo.ErrNotFound
		}

		rows, err := tx.Query(ctx,
			`DELETE FROM tasks WHERE id = $1 AND creator = $2 RETURNING `+taskColumns,
			subtaskID, owner,
		)
		if err != nil {
			return err
		}
		deleted, err = pgx.CollectExactlyOneRow(rows, scanTask)
		if errors.Is(err, pgx.ErrNoRows) {
			return repo.ErrNotFound
		}
		return err
	})

	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, err
		}
		logger.Error("Repository: Не удалось удалить подзадачу", err,
			zap.String("parent_id", parentID.String()),
			zap.String("subtask_id", subtaskID.String()))
		return nil, fmt.Errorf("удаление подзадачи: %w", err)
	}
	return deleted, nil
}

func (s *Storage) ListByOwner(ctx context.Context, owner uuid.UUID, page task.Page) ([]*task.Task, int, error) {
	start := time.Now()
	defer observe("list_by_owner", start)

	var total int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tasks WHERE creator = $1`, owner).Scan(&total)
	if err != nil {
		logger.Error("Repository: Не удалось посчитать задачи", err)
		return nil, 0, fmt.Errorf("подсчёт задач: %w", err)
	}

	query := `SELECT ` + taskColumns + ` FROM tasks
				WHERE creator = $1
				` + orderByRank + `
				LIMIT $2 OFFSET $3`

	rows, err := s.pool.Query(ctx, query, owner, page.Limit, page.Offset())
	if err != nil {
		logger.Error("Repository: Не удалось получить задачи", err, zap.Duration("ms", time.Since(start)))
		return nil, 0, fmt.Errorf("получение задач: %w", err)
	}

	tasks, err := pgx.CollectRows(rows, scanTask)
	if err != nil {
		logger.Error("Repository: Ошибка итерации по строкам", err)
		return nil, 0, fmt.Errorf("итерация по строкам: %w", err)
	}
	return tasks, total, nil
}

// ListSubtasks возвращает подзадачи в порядке их добавления к родителю.
func (s *Storage) ListSubtasks(ctx context.Context, parentID, owner uuid.UUID) ([]*task.Task, error) {
	start := time.Now()
	defer observe("list_subtasks", start)

	parent, err := s.GetByID(ctx, parentID, owner)
	if err != nil {
		return nil, err
	}
	if len(parent.Subtasks) == 0 {
		return []*task.Task{}, nil
	}

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = ANY($1) AND creator = $2`

	rows, err := s.pool.Query(ctx, query, parent.Subtasks, owner)
	if err != nil {
		logger.Error("Repository: Не удалось получить подзадачи", err)
		return nil, fmt.Errorf("получение подзадач: %w", err)
	}
	found, err := pgx.CollectRows(rows, scanTask)
	if err != nil {
		logger.Error("Repository: Ошибка итерации по строкам", err)
		return nil, fmt.Errorf("итерация по строкам: %w", err)
	}

	byID := make(map[uuid.UUID]*task.Task, len(found))
	for _, t := range found {
		byID[t.ID] = t
	}
	res := make([]*task.Task, 0, len(found))
	for _, id := range parent.Subtasks {
		if t, ok := byID[id]; ok {
			res = append(res, t)
		}
	}
	return res, nil
}

func (s *Storage) Search(ctx context.Context, owner uuid.UUID, filter task.Filter) ([]*task.Task, error) {
	start := time.Now()
	defer observe("search", start)

	conds := []string{"creator = $1"}
	args := []any{owner}
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.Status != nil {
		add("status = $%d", *filter.Status)
	}
	if filter.Priority != nil {
		add("priority = $%d", *filter.Priority)
	}
	if filter.StartDate != nil {
		add("start_at >= $%d", *filter.StartDate)
	}
	if filter.EndDate != nil {
		add("finish_at <= $%d", *filter.EndDate)
	}
	if filter.Keyword != "" {
		add(`title ILIKE $%d ESCAPE '\'`, filter.KeywordLike())
	}

	query := `SELECT ` + taskColumns + ` FROM tasks
				WHERE ` + strings.Join(conds, " AND ") + `
				` + orderByRank

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		logger.Error("Repository: Не удалось выполнить поиск", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("поиск задач: %w", err)
	}
	tasks, err := pgx.CollectRows(rows, scanTask)
	if err != nil {
		logger.Error("Repository: Ошибка итерации по строкам", err)
		return nil, fmt.Errorf("итерация по строкам: %w", err)
	}
	return tasks, nil
}

// CompleteParentIfSubtasksDone блокирует строку родителя, поэтому две подзадачи,
// завершённые одновременно, не пропустят переход родителя в Done.
func (s *Storage) CompleteParentIfSubtasksDone(ctx context.Context, subtaskID uuid.UUID) (bool, error) {
	start := time.Now()
	defer observe("complete_parent", start)

	changed := false
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var (
			parentID uuid.UUID
			status   task.Status
			subtasks []uuid.UUID
		)
		err := tx.QueryRow(ctx,
			`SELECT id, status, subtasks FROM tasks WHERE $1 = ANY(subtasks) LIMIT 1 FOR UPDATE`,
			subtaskID,
		).Scan(&parentID, &status, &subtasks)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		if status == task.StatusDone {
			return nil
		}

		var pending int
		err = tx.QueryRow(ctx,
			`SELECT COUNT(*) FROM tasks WHERE id = ANY($1) AND status <> $2`,
			subtasks, task.StatusDone,
		).Scan(&pending)
		if err != nil {
			return err
		}
		if pending > 0 {
			return nil
		}

		_, err = tx.Exec(ctx,
			`UPDATE tasks SET status = $1, finished_at = $2 WHERE id = $3`,
			task.StatusDone, time.Now().UTC(), parentID,
		)
		if err != nil {
			return err
		}
		changed = true
		return nil
	})

	if err != nil {
		logger.Error("Repository: Не удалось завершить родительскую задачу", err,
			zap.String("subtask_id", subtaskID.String()))
		return false, fmt.Errorf("завершение родителя: %w", err)
	}
	return changed, nil
}

// querier - общий знаменатель пула и транзакции.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func insertTask(ctx context.Context, db querier, t *task.Task) error {
	query := `INSERT INTO tasks (` + taskColumns + `)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	subtasks := t.Subtasks
	if subtasks == nil {
		subtasks = []uuid.UUID{}
	}

	_, err := db.Exec(ctx, query,
		t.ID,
		t.Title,
		t.Description,
		t.Status,
		t.Priority,
		t.Creator,
		t.CreatedAt,
		t.Start,
		t.Finish,
		t.Color,
		t.FinishedAt,
		subtasks,
	)
	return err
}

func scanTask(row pgx.CollectableRow) (*task.Task, error) {
	t := &task.Task{}
	err := row.Scan(
		&t.ID,
		&t.Title,
		&t.Description,
		&t.Status,
		&t.Priority,
		&t.Creator,
		&t.CreatedAt,
		&t.Start,
		&t.Finish,
		&t.Color,
		&t.FinishedAt,
		&t.Subtasks,
	)
	if err != nil {
		return nil, err
	}
	if t.Subtasks == nil {
		t.Subtasks = []uuid.UUID{}
	}
	return t, nil
}

func observe(op string, start time.Time) {
	if elapsed := time.Since(start); elapsed > slowQuery {
		logger.Warn("Repository: Медленный запрос", zap.String("op", op), zap.Duration("ms", elapsed))
	}
}
