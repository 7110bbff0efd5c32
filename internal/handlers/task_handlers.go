package handlers

import (
	"net/http"
	"taskStream/internal/handlers/dto"
	"taskStream/internal/logger"
	"taskStream/internal/service"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	maxBodyBytes     = 1 << 20
	defaultHeartbeat = 15 * time.Second
	serviceName      = "task-stream"
)

type TaskHandler struct {
	TaskService Service
	Events      Subscriber
	heartbeat   time.Duration
}

func NewTaskHandler(taskService Service, events Subscriber) *TaskHandler {
	return &TaskHandler{
		TaskService: taskService,
		Events:      events,
		heartbeat:   defaultHeartbeat,
	}
}

// Routes - маршруты /tasks, монтируются в корневой роутер
func (h *TaskHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ListTasks)    // GET /tasks
	r.Post("/", h.PostTask)    // POST /tasks
	r.Get("/stream", h.Stream) // GET /tasks/stream

	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.GetTaskByID)       // GET /tasks/{id}
		r.Put("/", h.UpdateTaskByID)    // PUT /tasks/{id}
		r.Delete("/", h.DeleteTaskByID) // DELETE /tasks/{id}
	})

	return r
}

func (h *TaskHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP: Health check")

	if err := h.TaskService.HealthCheck(r.Context()); err != nil {
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

func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	tasks, err := h.TaskService.ListTasks(r.Context())
	if err != nil {
		handleServiceError(w, r, err, "list_tasks")
		return
	}

	logger.Info("HTTP_OUT: Задачи получены",
		zap.Int("count", len(tasks)),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithBody(w, http.StatusOK, dto.FromTaskList(tasks))
}

func (h *TaskHandler) PostTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	in, ok := h.readInput(w, r)
	if !ok {
		return
	}

	created, err := h.TaskService.CreateTask(r.Context(), in)
	if err != nil {
		handleServiceError(w, r, err, "create_task")
		return
	}

	logger.Info("HTTP_OUT: Задача создана",
		zap.Int64("task_id", created.ID),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusCreated))

	responseWithBody(w, http.StatusCreated, dto.FromTask(created))
}

func (h *TaskHandler) GetTaskByID(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	id, ok := taskID(r)
	if !ok {
		notFound(w, r)
		return
	}

	found, err := h.TaskService.GetTask(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err, "get_task")
		return
	}

	logger.Info("HTTP_OUT: Задача получена",
		zap.Int64("task_id", id),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithBody(w, http.StatusOK, dto.FromTask(found))
}

func (h *TaskHandler) UpdateTaskByID(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	id, ok := taskID(r)
	if !ok {
		notFound(w, r)
		return
	}

	in, ok := h.readInput(w, r)
	if !ok {
		return
	}

	updated, err := h.TaskService.UpdateTask(r.Context(), id, in)
	if err != nil {
		handleServiceError(w, r, err, "update_task")
		return
	}

	logger.Info("HTTP_OUT: Задача обновлена",
		zap.Int64("task_id", id),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithBody(w, http.StatusOK, dto.FromTask(updated))
}

func (h *TaskHandler) DeleteTaskByID(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	id, ok := taskID(r)
	if !ok {
		notFound(w, r)
		return
	}

	if err := h.TaskService.DeleteTask(r.Context(), id); err != nil {
		handleServiceError(w, r, err, "delete_task")
		return
	}

	logger.Info("HTTP_OUT: Задача удалена",
		zap.Int64("task_id", id),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusNoContent))

	w.WriteHeader(http.StatusNoContent)
}

func (h *TaskHandler) readInput(w http.ResponseWriter, r *http.Request) (service.Input, bool) {
	if !checkContentType(r, "application/json") {
		logger.Warn("HTTP: Неверный тип контента",
			zap.String("expected", "application/json"),
			zap.String("received", r.Header.Get("Content-Type")),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusUnsupportedMediaType, "Content-Type должен быть application/json")
		return nil, false
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()

	in, err := dto.DecodeInput(r.Body)
	if err != nil {
		logger.Warn("HTTP: Ошибка чтения JSON",
			zap.Error(err),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	return in, true
}

func notFound(w http.ResponseWriter, r *http.Request) {
	logger.Warn("HTTP: Неверное значение id",
		zap.String("id", chi.URLParam(r, "id")),
		zap.String("client_ip", r.RemoteAddr))

	responseWithJSON(w, http.StatusNotFound,
		toPayload("error", service.CodeNotFound),
		toPayload("message", "задача не найдена"),
	)
}
