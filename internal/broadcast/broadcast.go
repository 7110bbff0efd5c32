// Package broadcast описывает публикацию событий об изменении задач
// и доставку их подписчикам реального времени.
package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"taskStream/internal/models/task"
)

// единственный логический канал для всех событий задач
const ChannelTasks = "tasks"

const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

const (
	EventTaskCreated = "task-created"
	EventTaskUpdated = "task-updated"
	EventTaskDeleted = "task-deleted"
	EventTaskGeneric = "task-event"
)

type Payload struct {
	Task   *task.Task `json:"task"`
	Action string     `json:"action"`
}

// Publisher принимает событие к доставке. Успешный возврат означает только
// то, что событие принято, а не то, что его получили подписчики.
type Publisher interface {
	Publish(ctx context.Context, channel, event string, payload Payload) error
}

// EventName выводит имя события из действия
func EventName(action string) string {
	switch action {
	case ActionCreated:
		return EventTaskCreated
	case ActionUpdated:
		return EventTaskUpdated
	case ActionDeleted:
		return EventTaskDeleted
	default:
		return EventTaskGeneric
	}
}

// Envelope - формат сообщения в pub/sub канале
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func NewEnvelope(event string, payload Payload) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("сериализация события %s: %w", event, err)
	}
	return Envelope{Event: event, Data: data}, nil
}
