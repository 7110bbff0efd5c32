package service

import (
	"context"
	"errors"
	"fmt"
	"taskStream/internal/broadcast"
	"taskStream/internal/logger"
	"taskStream/internal/models/task"
	rep "taskStream/internal/repository"

	"go.uber.org/zap"
)

const resourceTask = "задача"

// здесь происходит проверка ошибок бизнес-логики и оповещение подписчиков

type TaskService struct {
	repo      TaskRepository
	publisher broadcast.Publisher
}

func NewTaskService(repo TaskRepository, publisher broadcast.Publisher) *TaskService {
	if publisher == nil {
		publisher = broadcast.NopPublisher{}
	}
	return &TaskService{
		repo:      repo,
		publisher: publisher,
	}
}

func (s *TaskService) HealthCheck(ctx context.Context) error {
	if err := s.repo.HealthCheck(ctx); err != nil {
		return fmt.Errorf("проверка здоровья сервиса: %w", err)
	}
	return nil
}

func (s *TaskService) ListTasks(ctx context.Context) ([]*task.Task, error) {
	tasks, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("получение задач: %w", err)
	}
	return tasks, nil
}

func (s *TaskService) CreateTask(ctx context.Context, in Input) (*task.Task, error) {
	fields, verr := Validate(in)
	if verr != nil {
		logger.Info("Service: Задача не прошла валидацию", zap.Any("errors", verr.Fields))
		return nil, verr
	}

	created, err := s.repo.Create(ctx, fields)
	if err != nil {
		return nil, fmt.Errorf("создание задачи: %w", err)
	}

	logger.Info("Service: Задача создана", zap.Int64("task_id", created.ID))
	s.publish(ctx, broadcast.ActionCreated, created)
	return created, nil
}

func (s *TaskService) GetTask(ctx context.Context, id int64) (*task.Task, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.lookupError(id, err)
	}
	return t, nil
}

func (s *TaskService) UpdateTask(ctx context.Context, id int64, in Input) (*task.Task, error) {
	fields, verr := Validate(in)
	if verr != nil {
		logger.Info("Service: Задача не прошла валидацию",
			zap.Int64("task_id", id),
			zap.Any("errors", verr.Fields))
		return nil, verr
	}

	updated, err := s.repo.Update(ctx, id, fields)
	if err != nil {
		return nil, s.lookupError(id, err)
	}

	logger.Info("Service: Задача обновлена", zap.Int64("task_id", id))
	s.publish(ctx, broadcast.ActionUpdated, updated)
	return updated, nil
}

// DeleteTask помечает задачу удалённой. В событие уходит состояние до удаления.
func (s *TaskService) DeleteTask(ctx context.Context, id int64) error {
	snapshot, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return s.lookupError(id, err)
	}

	if err := s.repo.DeleteSoft(ctx, id); err != nil {
		return s.lookupError(id, err)
	}

	logger.Info("Service: Задача удалена", zap.Int64("task_id", id))
	s.publish(ctx, broadcast.ActionDeleted, snapshot)
	return nil
}

// publish вызывается после сохранения изменений, ошибка доставки только логируется
func (s *TaskService) publish(ctx context.Context, action string, t *task.Task) {
	event := broadcast.EventName(action)
	payload := broadcast.Payload{Task: t, Action: action}

	if err := s.publisher.Publish(ctx, broadcast.ChannelTasks, event, payload); err != nil {
		logger.Warn("Service: Не удалось опубликовать событие",
			zap.Error(err),
			zap.String("event", event),
			zap.Int64("task_id", t.ID))
	}
}

func (s *TaskService) lookupError(id int64, err error) error {
	if errors.Is(err, rep.ErrNotFound) {
		logger.Info("Service: Задача не найдена", zap.Int64("target_id", id))
		return NewNotFound(resourceTask, id, err)
	}
	return fmt.Errorf("получение задачи %d: %w", id, err)
}
