// Package storetest - общий набор проверок контракта хранилища задач.
// Каждая реализация (inmemory, postgres, sqlite) прогоняет его у себя в тестах.
package storetest

import (
	"context"
	"sync"
	"taskStream/internal/models/task"
	"taskStream/internal/repository"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type Store interface {
	HealthCheck(ctx context.Context) error
	ListActive(ctx context.Context) ([]*task.Task, error)
	Create(ctx context.Context, fields task.Fields) (*task.Task, error)
	GetByID(ctx context.Context, id int64) (*task.Task, error)
	Update(ctx context.Context, id int64, fields task.Fields) (*task.Task, error)
	DeleteSoft(ctx context.Context, id int64) error
}

// ContractSuite ожидает, что NewStore вернёт пустое хранилище
type ContractSuite struct {
	suite.Suite
	NewStore func() Store

	store Store
	ctx   context.Context
}

func (s *ContractSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = s.NewStore()
}

func (s *ContractSuite) create(title string, opts ...task.FieldsOption) *task.Task {
	created, err := s.store.Create(s.ctx, task.NewFields(title, opts...))
	s.Require().NoError(err)
	return created
}

// TestHealthCheck тестирует проверку здоровья
func (s *ContractSuite) TestHealthCheck() {
	s.NoError(s.store.HealthCheck(s.ctx))
}

// TestCreate тестирует создание задачи со всеми полями
func (s *ContractSuite) TestCreate() {
	due := task.NewDate(2030, time.June, 15)
	fields := task.NewFields("Complete Project Documentation",
		task.WithDescription("Write comprehensive documentation"),
		task.WithStatus(task.StatusInProgress),
		task.WithPriority(3),
		task.WithDueDate(due),
	)

	created, err := s.store.Create(s.ctx, fields)
	require.NoError(s.T(), err)

	assert.Positive(s.T(), created.ID)
	assert.False(s.T(), created.CreatedAt.IsZero())
	assert.False(s.T(), created.UpdatedAt.IsZero())
	assert.Nil(s.T(), created.DeletedAt)
	if diff := cmp.Diff(fields, created.Fields()); diff != "" {
		s.T().Errorf("поля после создания отличаются (-want +got):\n%s", diff)
	}

	got, err := s.store.GetByID(s.ctx, created.ID)
	require.NoError(s.T(), err)
	if diff := cmp.Diff(fields, got.Fields()); diff != "" {
		s.T().Errorf("поля после чтения отличаются (-want +got):\n%s", diff)
	}
	assert.True(s.T(), created.CreatedAt.Equal(got.CreatedAt))
}

// TestCreate_DefaultStatus тестирует статус по умолчанию на уровне хранилища
func (s *ContractSuite) TestCreate_DefaultStatus() {
	created := s.create("No status")
	assert.Equal(s.T(), task.DefaultStatus, created.Status)
	assert.Nil(s.T(), created.Description)
	assert.Nil(s.T(), created.DueDate)
}

// TestCreate_MonotonicIDs тестирует рост идентификаторов
func (s *ContractSuite) TestCreate_MonotonicIDs() {
	a := s.create("A")
	b := s.create("B")
	assert.Greater(s.T(), b.ID, a.ID)
}

// TestGetByID_NotFound тестирует получение несуществующей задачи
func (s *ContractSuite) TestGetByID_NotFound() {
	s.create("Only one")

	_, err := s.store.GetByID(s.ctx, 999)
	assert.ErrorIs(s.T(), err, repository.ErrNotFound)
}

// TestUpdate тестирует полную замену полей
func (s *ContractSuite) TestUpdate() {
	created := s.create("Original", task.WithDescription("to be removed"), task.WithPriority(1),
		task.WithDueDate(task.NewDate(2030, time.January, 1)))

	time.Sleep(5 * time.Millisecond)

	fields := task.NewFields("Updated", task.WithStatus(task.StatusCompleted), task.WithPriority(5))
	updated, err := s.store.Update(s.ctx, created.ID, fields)
	require.NoError(s.T(), err)

	assert.Equal(s.T(), created.ID, updated.ID)
	assert.Equal(s.T(), "Updated", updated.Title)
	assert.Nil(s.T(), updated.Description)
	assert.Nil(s.T(), updated.DueDate)
	assert.Equal(s.T(), task.StatusCompleted, updated.Status)
	assert.Equal(s.T(), 5, updated.Priority)
	assert.True(s.T(), created.CreatedAt.Equal(updated.CreatedAt), "created_at не должен меняться")
	assert.True(s.T(), updated.UpdatedAt.After(created.UpdatedAt), "updated_at должен обновиться")

	got, err := s.store.GetByID(s.ctx, created.ID)
	require.NoError(s.T(), err)
	if diff := cmp.Diff(fields, got.Fields()); diff != "" {
		s.T().Errorf("поля после обновления отличаются (-want +got):\n%s", diff)
	}
}

// TestUpdate_NotFound тестирует обновление несуществующей и удалённой задачи
func (s *ContractSuite) TestUpdate_NotFound() {
	_, err := s.store.Update(s.ctx, 999, task.NewFields("x", task.WithStatus(task.StatusPending)))
	assert.ErrorIs(s.T(), err, repository.ErrNotFound)

	created := s.create("Deleted")
	require.NoError(s.T(), s.store.DeleteSoft(s.ctx, created.ID))

	_, err = s.store.Update(s.ctx, created.ID, task.NewFields("x", task.WithStatus(task.StatusPending)))
	assert.ErrorIs(s.T(), err, repository.ErrNotFound)
}

// TestDeleteSoft тестирует мягкое удаление
func (s *ContractSuite) TestDeleteSoft() {
	keep := s.create("Keep")
	gone := s.create("Gone")

	require.NoError(s.T(), s.store.DeleteSoft(s.ctx, gone.ID))

	_, err := s.store.GetByID(s.ctx, gone.ID)
	assert.ErrorIs(s.T(), err, repository.ErrNotFound)

	list, err := s.store.ListActive(s.ctx)
	require.NoError(s.T(), err)
	require.Len(s.T(), list, 1)
	assert.Equal(s.T(), keep.ID, list[0].ID)

	// повторное удаление - задачи уже нет среди активных
	assert.ErrorIs(s.T(), s.store.DeleteSoft(s.ctx, gone.ID), repository.ErrNotFound)
	assert.ErrorIs(s.T(), s.store.DeleteSoft(s.ctx, 999), repository.ErrNotFound)
}

// TestListActive_NewestFirst тестирует порядок выдачи
func (s *ContractSuite) TestListActive_NewestFirst() {
	a := s.create("A")
	time.Sleep(2 * time.Millisecond)
	b := s.create("B")
	time.Sleep(2 * time.Millisecond)
	c := s.create("C")

	list, err := s.store.ListActive(s.ctx)
	require.NoError(s.T(), err)
	require.Len(s.T(), list, 3)
	assert.Equal(s.T(), []int64{c.ID, b.ID, a.ID}, []int64{list[0].ID, list[1].ID, list[2].ID})
}

// TestListActive_Empty тестирует пустое хранилище
func (s *ContractSuite) TestListActive_Empty() {
	list, err := s.store.ListActive(s.ctx)
	require.NoError(s.T(), err)
	assert.NotNil(s.T(), list)
	assert.Empty(s.T(), list)
}

// TestConcurrentAccess тестирует параллельные операции
func (s *ContractSuite) TestConcurrentAccess() {
	const workers = 8
	const perWorker = 5

	var wg sync.WaitGroup
	errs := make(chan error, workers*perWorker*2)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				created, err := s.store.Create(s.ctx, task.NewFields("concurrent", task.WithPriority(i%6)))
				if err != nil {
					errs <- err
					continue
				}
				_, err = s.store.Update(s.ctx, created.ID, task.NewFields("concurrent updated", task.WithStatus(task.StatusCompleted)))
				if err != nil {
					errs <- err
				}
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		s.T().Errorf("ошибка в параллельной операции: %v", err)
	}

	list, err := s.store.ListActive(s.ctx)
	require.NoError(s.T(), err)
	assert.Len(s.T(), list, workers*perWorker)
}
