package dto

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"taskStream/internal/models/task"
	"taskStream/internal/service"
	"time"
)

type TaskResponse struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Status      string     `json:"status"`
	Priority    int        `json:"priority"`
	DueDate     *task.Date `json:"due_date"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func FromTask(t *task.Task) TaskResponse {
	return TaskResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		Priority:    t.Priority,
		DueDate:     t.DueDate,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func FromTaskList(tasks []*task.Task) []TaskResponse {
	result := make([]TaskResponse, len(tasks))
	for i, t := range tasks {
		result[i] = FromTask(t)
	}
	return result
}

// DecodeInput читает тело запроса в свободную форму, валидация - на стороне сервиса.
// Пустое тело равносильно пустому объекту.
func DecodeInput(body io.Reader) (service.Input, error) {
	decoder := json.NewDecoder(body)
	decoder.UseNumber()

	var in service.Input
	if err := decoder.Decode(&in); err != nil {
		if errors.Is(err, io.EOF) {
			return service.Input{}, nil
		}
		return nil, fmt.Errorf("неверное тело запроса: %w", err)
	}
	if in == nil {
		in = service.Input{}
	}
	if decoder.More() {
		return nil, errors.New("неверное тело запроса: лишние данные после JSON объекта")
	}
	return in, nil
}
