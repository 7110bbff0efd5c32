package service

import (
	"context"
	"taskStream/internal/models/task"
)

type TaskRepository interface {
	HealthCheck(context.Context) error
	ListActive(context.Context) ([]*task.Task, error)
	Create(context.Context, task.Fields) (*task.Task, error)
	GetByID(context.Context, int64) (*task.Task, error)
	Update(context.Context, int64, task.Fields) (*task.Task, error)
	DeleteSoft(context.Context, int64) error
}
