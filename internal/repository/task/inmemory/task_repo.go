package inmemory

import (
	"context"
	"sync"
	"taskStream/internal/logger"
	"taskStream/internal/models/task"
	repo "taskStream/internal/repository"
	"time"
)

type TaskStorage struct {
	storage map[int64]*task.Task
	mtx     *sync.RWMutex
	ids     []int64 // порядок создания
	lastID  int64
	now     func() time.Time
}

type Option func(*TaskStorage)

// WithClock подменяет источник времени (для тестов)
func WithClock(now func() time.Time) Option {
	return func(s *TaskStorage) {
		s.now = now
	}
}

func NewTaskStorage(opts ...Option) *TaskStorage {
	s := &TaskStorage{
		storage: make(map[int64]*task.Task),
		mtx:     &sync.RWMutex{},
		ids:     []int64{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *TaskStorage) HealthCheck(ctx context.Context) error {
	logger.Debug("Repository: Соединение стабильно")
	return nil
}

func (s *TaskStorage) Create(ctx context.Context, fields task.Fields) (*task.Task, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	now := s.now().UTC()
	s.lastID++

	created := &task.Task{
		ID:        s.lastID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	created.Apply(fields.WithDefaults())

	s.storage[created.ID] = created
	s.ids = append(s.ids, created.ID)
	return created.Clone(), nil
}

func (s *TaskStorage) Update(ctx context.Context, id int64, fields task.Fields) (*task.Task, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	existing, ok := s.storage[id]
	if !ok || existing.IsDeleted() {
		return nil, repo.ErrNotFound
	}

	existing.Apply(fields.WithDefaults())
	existing.UpdatedAt = s.now().UTC()

	return existing.Clone(), nil
}

func (s *TaskStorage) GetByID(ctx context.Context, id int64) (*task.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	taskToGet, ok := s.storage[id]
	if !ok || taskToGet.IsDeleted() {
		return nil, repo.ErrNotFound
	}
	return taskToGet.Clone(), nil

}

// мягкое удаление: запись остаётся, выставляется только deleted_at
func (s *TaskStorage) DeleteSoft(ctx context.Context, id int64) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	taskExisted, ok := s.storage[id]
	if !ok || taskExisted.IsDeleted() {
		return repo.ErrNotFound
	}

	now := s.now().UTC()
	taskExisted.DeletedAt = &now

	return nil

}

// активные задачи, новые первыми
func (s *TaskStorage) ListActive(ctx context.Context) ([]*task.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	res := []*task.Task{}

	// ids растут вместе с created_at, поэтому обратный порядок вставки = новые первыми
	for i := len(s.ids) - 1; i >= 0; i-- {
		taskToGet := s.storage[s.ids[i]]
		if taskToGet.IsDeleted() {
			continue
		}
		res = append(res, taskToGet.Clone())
	}

	return res, nil
}

// GetWithDeleted возвращает запись даже после мягкого удаления
func (s *TaskStorage) GetWithDeleted(ctx context.Context, id int64) (*task.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	taskToGet, ok := s.storage[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return taskToGet.Clone(), nil
}
