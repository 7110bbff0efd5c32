package handlers

import (
	"context"
	"taskStream/internal/broadcast"
	"taskStream/internal/models/task"
	"taskStream/internal/service"
)

type Service interface {
	HealthCheck(context.Context) error
	ListTasks(context.Context) ([]*task.Task, error)
	CreateTask(context.Context, service.Input) (*task.Task, error)
	GetTask(context.Context, int64) (*task.Task, error)
	UpdateTask(context.Context, int64, service.Input) (*task.Task, error)
	DeleteTask(context.Context, int64) error
}

// Subscriber - источник событий для потока /tasks/stream
type Subscriber interface {
	Subscribe(channel string) *broadcast.Subscription
	Unsubscribe(*broadcast.Subscription)
}
