package handlers_test

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"taskStream/internal/broadcast"
	"taskStream/internal/handlers"
	"taskStream/internal/models/task"
	rep "taskStream/internal/repository"
	"taskStream/internal/repository/task/inmemory"
	"taskStream/internal/service"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockTaskService - мок сервиса
type MockTaskService struct {
	mock.Mock
}

func (m *MockTaskService) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockTaskService) ListTasks(ctx context.Context) ([]*task.Task, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*task.Task), args.Error(1)
}

func (m *MockTaskService) CreateTask(ctx context.Context, in service.Input) (*task.Task, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*task.Task), args.Error(1)
}

func (m *MockTaskService) GetTask(ctx context.Context, id int64) (*task.Task, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*task.Task), args.Error(1)
}

func (m *MockTaskService) UpdateTask(ctx context.Context, id int64, in service.Input) (*task.Task, error) {
	args := m.Called(ctx, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*task.Task), args.Error(1)
}

func (m *MockTaskService) DeleteTask(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

var _ handlers.Service = (*MockTaskService)(nil)

func newRouter(h *handlers.TaskHandler) http.Handler {
	r := chi.NewRouter()
	r.Mount("/tasks", h.Routes())
	r.Get("/health", h.HealthCheck)
	return r
}

func doRequest(t *testing.T, router http.Handler, method, path, body, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func sampleTask() *task.Task {
	desc := "Test Description"
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	return &task.Task{
		ID:          1,
		Title:       "Test Task",
		Description: &desc,
		Status:      task.StatusPending,
		Priority:    2,
		DueDate:     task.NewDate(2025, time.March, 1).Ptr(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// TestTaskHandler_HealthCheck тестирует HealthCheck
func TestTaskHandler_HealthCheck(t *testing.T) {
	tests := []struct {
		name           string
		setupMock      func(*MockTaskService)
		expectedStatus int
	}{
		{
			name: "success - healthy",
			setupMock: func(m *MockTaskService) {
				m.On("HealthCheck", mock.Anything).Return(nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "error - unhealthy",
			setupMock: func(m *MockTaskService) {
				m.On("HealthCheck", mock.Anything).Return(errors.New("service unavailable"))
			},
			expectedStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockTaskService)
			tt.setupMock(mockService)

			w := doRequest(t, newRouter(handlers.NewTaskHandler(mockService, nil)), "GET", "/health", "", "")

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), "task-stream")

			mockService.AssertExpectations(t)
		})
	}
}

// TestTaskHandler_ListTasks тестирует получение списка
func TestTaskHandler_ListTasks(t *testing.T) {
	t.Run("success - task json shape", func(t *testing.T) {
		mockService := new(MockTaskService)
		noDue := sampleTask()
		noDue.ID = 2
		noDue.DueDate = nil
		noDue.Description = nil
		mockService.On("ListTasks", mock.Anything).Return([]*task.Task{noDue, sampleTask()}, nil)

		w := doRequest(t, newRouter(handlers.NewTaskHandler(mockService, nil)), "GET", "/tasks", "", "")
		require.Equal(t, http.StatusOK, w.Code)

		var body []map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		require.Len(t, body, 2)

		assert.Equal(t, float64(2), body[0]["id"])
		assert.Nil(t, body[0]["due_date"])
		assert.Nil(t, body[0]["description"])
		assert.Contains(t, body[0], "due_date")
		assert.Equal(t, "2025-03-01", body[1]["due_date"])
		assert.Equal(t, "pending", body[1]["status"])
		assert.Equal(t, float64(2), body[1]["priority"])
		assert.NotContains(t, body[1], "deleted_at")
		assert.Contains(t, body[1], "created_at")
		assert.Contains(t, body[1], "updated_at")
	})

	t.Run("empty list is an array", func(t *testing.T) {
		mockService := new(MockTaskService)
		mockService.On("ListTasks", mock.Anything).Return([]*task.Task{}, nil)

		w := doRequest(t, newRouter(handlers.NewTaskHandler(mockService, nil)), "GET", "/tasks", "", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `[]`, w.Body.String())
	})

	t.Run("error - unexpected failure is hidden", func(t *testing.T) {
		mockService := new(MockTaskService)
		mockService.On("ListTasks", mock.Anything).Return(nil, errors.New("pq: connection refused"))

		w := doRequest(t, newRouter(handlers.NewTaskHandler(mockService, nil)), "GET", "/tasks", "", "")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.JSONEq(t, `{"error":"internal server error"}`, w.Body.String())
	})
}

// TestTaskHandler_PostTask тестирует создание задачи
func TestTaskHandler_PostTask(t *testing.T) {
	tests := []struct {
		name           string
		requestBody    string
		contentType    string
		setupMock      func(*MockTaskService)
		expectedStatus int
	}{
		{
			name:        "success - create task",
			requestBody: `{"title":"Test Task","description":"Test Description","status":"pending","priority":2,"due_date":"2025-03-01"}`,
			contentType: "application/json",
			setupMock: func(m *MockTaskService) {
				m.On("CreateTask", mock.Anything, mock.MatchedBy(func(in service.Input) bool {
					return in["title"] == "Test Task" && in["priority"] == json.Number("2")
				})).Return(sampleTask(), nil)
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "error - invalid content type",
			requestBody:    `{}`,
			contentType:    "text/plain",
			setupMock:      func(m *MockTaskService) {},
			expectedStatus: http.StatusUnsupportedMediaType,
		},
		{
			name:           "error - invalid JSON",
			requestBody:    `{invalid json}`,
			contentType:    "application/json",
			setupMock:      func(m *MockTaskService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "error - JSON array",
			requestBody:    `[1,2]`,
			contentType:    "application/json; charset=utf-8",
			setupMock:      func(m *MockTaskService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:        "error - service error",
			requestBody: `{"title":"Test Task"}`,
			contentType: "application/json",
			setupMock: func(m *MockTaskService) {
				m.On("CreateTask", mock.Anything, mock.Anything).Return(nil, errors.New("service error"))
			},
			expectedStatus: http.StatusInternalServerError,
		},
		{
			name:        "error - validation",
			requestBody: `{"description":"Test Description"}`,
			contentType: "application/json",
			setupMock: func(m *MockTaskService) {
				m.On("CreateTask", mock.Anything, mock.Anything).Return(nil,
					service.NewValidationError(map[string][]string{"title": {service.MsgTitleRequired}}, nil))
			},
			expectedStatus: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockTaskService)
			tt.setupMock(mockService)

			w := doRequest(t, newRouter(handlers.NewTaskHandler(mockService, nil)), "POST", "/tasks", tt.requestBody, tt.contentType)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			mockService.AssertExpectations(t)
		})
	}
}

// TestTaskHandler_ValidationBody тестирует формат ответа 422
func TestTaskHandler_ValidationBody(t *testing.T) {
	svc := service.NewTaskService(inmemory.NewTaskStorage(), nil)
	router := newRouter(handlers.NewTaskHandler(svc, nil))

	w := doRequest(t, router, "POST", "/tasks", `{"priority": 9, "status": "bogus", "due_date": "not-a-date"}`, "application/json")
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, "The task title is required. (and 3 more errors)", body["message"])

	errs, ok := body["errors"].(map[string]any)
	require.True(t, ok)
	assert.Len(t, errs, 4)
	assert.Equal(t, []any{"The selected status is invalid."}, errs["status"])
	assert.Equal(t, []any{"The priority may not be greater than 5."}, errs["priority"])
	assert.Equal(t, []any{"The due date must be a valid date."}, errs["due_date"])

	// пустое тело - те же правила обязательности
	w = doRequest(t, router, "POST", "/tasks", "", "application/json")
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	errs = decodeBody(t, w)["errors"].(map[string]any)
	assert.ElementsMatch(t, []string{"title", "status", "priority"}, keys(errs))
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

// TestTaskHandler_GetTaskByID тестирует получение задачи по id
func TestTaskHandler_GetTaskByID(t *testing.T) {
	tests := []struct {
		name           string
		path           string
		setupMock      func(*MockTaskService)
		expectedStatus int
	}{
		{
			name: "success",
			path: "/tasks/1",
			setupMock: func(m *MockTaskService) {
				m.On("GetTask", mock.Anything, int64(1)).Return(sampleTask(), nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "error - not found",
			path: "/tasks/999",
			setupMock: func(m *MockTaskService) {
				m.On("GetTask", mock.Anything, int64(999)).Return(nil, service.NewNotFound("задача", 999, rep.ErrNotFound))
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "error - non numeric id",
			path:           "/tasks/abc",
			setupMock:      func(m *MockTaskService) {},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "error - zero id",
			path:           "/tasks/0",
			setupMock:      func(m *MockTaskService) {},
			expectedStatus: http.StatusNotFound,
		},
		{
			name: "error - service failure",
			path: "/tasks/1",
			setupMock: func(m *MockTaskService) {
				m.On("GetTask", mock.Anything, int64(1)).Return(nil, errors.New("boom"))
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockTaskService)
			tt.setupMock(mockService)

			w := doRequest(t, newRouter(handlers.NewTaskHandler(mockService, nil)), "GET", tt.path, "", "")

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus == http.StatusNotFound {
				assert.Equal(t, "NOT_FOUND", decodeBody(t, w)["error"])
			}
			mockService.AssertExpectations(t)
		})
	}
}

// TestTaskHandler_UpdateTaskByID тестирует обновление задачи
func TestTaskHandler_UpdateTaskByID(t *testing.T) {
	body := `{"title":"Updated","status":"completed","priority":5}`

	t.Run("success", func(t *testing.T) {
		mockService := new(MockTaskService)
		updated := sampleTask()
		updated.Title = "Updated"
		mockService.On("UpdateTask", mock.Anything, int64(1), mock.Anything).Return(updated, nil)

		w := doRequest(t, newRouter(handlers.NewTaskHandler(mockService, nil)), "PUT", "/tasks/1", body, "application/json")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Updated", decodeBody(t, w)["title"])
		mockService.AssertExpectations(t)
	})

	t.Run("error - not found", func(t *testing.T) {
		mockService := new(MockTaskService)
		mockService.On("UpdateTask", mock.Anything, int64(7), mock.Anything).Return(nil, service.NewNotFound("задача", 7, rep.ErrNotFound))

		w := doRequest(t, newRouter(handlers.NewTaskHandler(mockService, nil)), "PUT", "/tasks/7", body, "application/json")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("error - bad id wins over bad body", func(t *testing.T) {
		mockService := new(MockTaskService)

		w := doRequest(t, newRouter(handlers.NewTaskHandler(mockService, nil)), "PUT", "/tasks/-3", "nope", "text/plain")
		assert.Equal(t, http.StatusNotFound, w.Code)
		mockService.AssertNotCalled(t, "UpdateTask", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("error - unsupported content type", func(t *testing.T) {
		mockService := new(MockTaskService)

		w := doRequest(t, newRouter(handlers.NewTaskHandler(mockService, nil)), "PUT", "/tasks/1", body, "")
		assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
	})
}

// TestTaskHandler_DeleteTaskByID тестирует удаление задачи
func TestTaskHandler_DeleteTaskByID(t *testing.T) {
	t.Run("success - empty body", func(t *testing.T) {
		mockService := new(MockTaskService)
		mockService.On("DeleteTask", mock.Anything, int64(3)).Return(nil)

		w := doRequest(t, newRouter(handlers.NewTaskHandler(mockService, nil)), "DELETE", "/tasks/3", "", "")

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, w.Body.String())
		mockService.AssertExpectations(t)
	})

	t.Run("error - not found", func(t *testing.T) {
		mockService := new(MockTaskService)
		mockService.On("DeleteTask", mock.Anything, int64(3)).Return(service.NewNotFound("задача", 3, rep.ErrNotFound))

		w := doRequest(t, newRouter(handlers.NewTaskHandler(mockService, nil)), "DELETE", "/tasks/3", "", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

// TestTaskHandler_Lifecycle проверяет сценарий целиком поверх хранилища в памяти
func TestTaskHandler_Lifecycle(t *testing.T) {
	svc := service.NewTaskService(inmemory.NewTaskStorage(), nil)
	router := newRouter(handlers.NewTaskHandler(svc, nil))

	for _, title := range []string{"A", "B", "C"} {
		w := doRequest(t, router, "POST", "/tasks", `{"title":"`+title+`","status":"pending","priority":1}`, "application/json")
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := doRequest(t, router, "GET", "/tasks", "", "")
	var list []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 3)
	assert.Equal(t, "C", list[0]["title"])
	assert.Equal(t, "A", list[2]["title"])

	w = doRequest(t, router, "DELETE", "/tasks/2", "", "")
	require.Equal(t, http.StatusNoContent, w.Code)

	w = doRequest(t, router, "GET", "/tasks/2", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(t, router, "DELETE", "/tasks/2", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(t, router, "PUT", "/tasks/2", `{"title":"X","status":"pending","priority":1}`, "application/json")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(t, router, "GET", "/tasks", "", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list, 2)
}

// TestTaskHandler_Stream тестирует поток событий
func TestTaskHandler_Stream(t *testing.T) {
	hub := broadcast.NewHub(8)
	svc := service.NewTaskService(inmemory.NewTaskStorage(), hub)
	srv := httptest.NewServer(newRouter(handlers.NewTaskHandler(svc, hub)))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", srv.URL+"/tasks/stream", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	// первая строка - комментарий о подключении, после него подписка уже активна
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(line, ": connected"))

	create, err := http.Post(srv.URL+"/tasks", "application/json",
		strings.NewReader(`{"title":"Streamed","status":"in_progress","priority":4}`))
	require.NoError(t, err)
	create.Body.Close()
	require.Equal(t, http.StatusCreated, create.StatusCode)

	var event, data string
	for event == "" || data == "" {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		}
	}

	assert.Equal(t, "task-created", event)
	var payload broadcast.Payload
	require.NoError(t, json.Unmarshal([]byte(data), &payload))
	assert.Equal(t, "created", payload.Action)
	assert.Equal(t, "Streamed", payload.Task.Title)
}

// TestTaskHandler_StreamUnavailable тестирует поток без источника событий
func TestTaskHandler_StreamUnavailable(t *testing.T) {
	w := doRequest(t, newRouter(handlers.NewTaskHandler(new(MockTaskService), nil)), "GET", "/tasks/stream", "", "")
	assert.Equal(t, http.StatusNotImplemented, w.Code)
}
