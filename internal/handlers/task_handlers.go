package handlers

import (
	"net/http"
	"taskManager/internal/handlers/dto"
	"taskManager/internal/logger"
	"taskManager/internal/middleware"
	"taskManager/internal/models/task"
	"taskManager/internal/service"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const serviceName = "task-manager"

type TaskHandler struct {
	TaskService TaskService
}

func NewTaskHandler(taskService TaskService) *TaskHandler {
	return &TaskHandler{
		TaskService: taskService,
	}
}

// owner достаёт пользователя, проставленного middleware.Authenticate.
func owner(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	identity, ok := middleware.UserFromContext(r.Context())
	if !ok {
		handleError(w, r, service.NewAuthError("authentication required"), "identity")
		return uuid.Nil, false
	}
	return identity.ID, true
}

func (s *TaskHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := s.TaskService.HealthCheck(r.Context()); err != nil {
		logger.Error("HTTP: Сервис недоступен", err)
		responseWithJSON(w, http.StatusServiceUnavailable,
			toPayload("status", "unavailable"),
			toPayload("service", serviceName),
		)
		return
	}

	responseWithJSON(w, http.StatusOK,
		toPayload("status", "ok"),
		toPayload("service", serviceName),
		toPayload("time", time.Now().UTC()),
	)
}

func (s *TaskHandler) PostTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	ownerID, ok := owner(w, r)
	if !ok {
		return
	}

	var request dto.CreateTaskRequest
	if !bindJSON(w, r, &request, "create_task") {
		return
	}

	created, err := s.TaskService.CreateTask(r.Context(), ownerID, request.ToTask())
	if err != nil {
		handleError(w, r, err, "create_task")
		return
	}

	logger.Info("HTTP_OUT: Задача создана",
		zap.String("task_id", created.ID.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	writeJSON(w, http.StatusOK, dto.FromTask(created))
}

func (s *TaskHandler) GetTasks(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}

	page := queryInt(r, "page", task.DefaultPage)
	limit := queryInt(r, "limit", task.DefaultLimit)

	res, err := s.TaskService.ListTasks(r.Context(), ownerID, page, limit)
	if err != nil {
		handleError(w, r, err, "list_tasks")
		return
	}

	responseWithJSON(w, http.StatusOK,
		toPayload("tasks", dto.FromTaskList(res.Tasks)),
		toPayload("total", res.Total),
		toPayload("page", res.Page),
		toPayload("limit", res.Limit),
		toPayload("pages", res.Pages),
	)
}

func (s *TaskHandler) PostSubtask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	ownerID, ok := owner(w, r)
	if !ok {
		return
	}

	parentID, err := uuidParam(r, "id")
	if err != nil {
		handleError(w, r, err, "create_subtask")
		return
	}

	var request dto.CreateTaskRequest
	if !bindJSON(w, r, &request, "create_subtask") {
		return
	}

	created, err := s.TaskService.CreateSubtask(r.Context(), ownerID, parentID, request.ToTask())
	if err != nil {
		handleError(w, r, err, "create_subtask")
		return
	}

	logger.Info("HTTP_OUT: Подзадача создана",
		zap.String("parent_id", parentID.String()),
		zap.String("task_id", created.ID.String()),
		zap.Duration("ms", time.Since(start)))

	writeJSON(w, http.StatusOK, dto.FromTask(created))
}

func (s *TaskHandler) GetSubtasks(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}

	parentID, err := uuidParam(r, "id")
	if err != nil {
		handleError(w, r, err, "list_subtasks")
		return
	}

	tasks, err := s.TaskService.GetSubtasks(r.Context(), ownerID, parentID)
	if err != nil {
		handleError(w, r, err, "list_subtasks")
		return
	}

	responseWithJSON(w, http.StatusOK, toPayload("tasks", dto.FromTaskList(tasks)))
}

func (s *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	ownerID, ok := owner(w, r)
	if !ok {
		return
	}

	id, err := uuidParam(r, "id")
	if err != nil {
		handleError(w, r, err, "update_task")
		return
	}

	var request dto.UpdateTaskRequest
	if !bindJSON(w, r, &request, "update_task") {
		return
	}

	updated, err := s.TaskService.UpdateTask(r.Context(), ownerID, id, request.ToOptions()...)
	if err != nil {
		handleError(w, r, err, "update_task")
		return
	}

	logger.Info("HTTP_OUT: Задача обновлена",
		zap.String("task_id", id.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	writeJSON(w, http.StatusOK, dto.FromTask(updated))
}

func (s *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}

	id, err := uuidParam(r, "id")
	if err != nil {
		handleError(w, r, err, "delete_task")
		return
	}

	deleted, err := s.TaskService.DeleteTask(r.Context(), ownerID, id)
	if err != nil {
		handleError(w, r, err, "delete_task")
		return
	}

	writeJSON(w, http.StatusOK, dto.FromTask(deleted))
}

func (s *TaskHandler) DeleteSubtask(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}

	parentID, err := uuidParam(r, "id")
	if err != nil {
		handleError(w, r, err, "delete_subtask")
		return
	}
	subtaskID, err := uuidParam(r, "subtaskId")
	if err != nil {
		handleError(w, r, err, "delete_subtask")
		return
	}

	deleted, err := s.TaskService.DeleteSubtask(r.Context(), ownerID, parentID, subtaskID)
	if err != nil {
		handleError(w, r, err, "delete_subtask")
		return
	}

	writeJSON(w, http.StatusOK, dto.FromTask(deleted))
}

func (s *TaskHandler) SearchTasks(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	filter := task.Filter{Keyword: query.Get("keyword")}

	if v := query.Get("status"); v != "" {
		status := task.Status(v)
		filter.Status = &status
	}
	if v := query.Get("priority"); v != "" {
		priority := task.Priority(v)
		filter.Priority = &priority
	}

	var err error
	if filter.StartDate, err = queryDate(r, "startDate"); err != nil {
		handleError(w, r, err, "search_tasks")
		return
	}
	if filter.EndDate, err = queryDate(r, "endDate"); err != nil {
		handleError(w, r, err, "search_tasks")
		return
	}

	tasks, err := s.TaskService.SearchTasks(r.Context(), ownerID, filter)
	if err != nil {
		handleError(w, r, err, "search_tasks")
		return
	}

	responseWithJSON(w, http.StatusOK, toPayload("tasks", dto.FromTaskList(tasks)))
}
