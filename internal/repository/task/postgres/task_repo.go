package postgres

import (
	"context"
	"errors"
	"fmt"
	"taskStream/internal/logger"
	"taskStream/internal/models/task"
	repo "taskStream/internal/repository"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const slowQuery = time.Millisecond * 100

const taskColumns = `id,
				title,
				description,
				status,
				priority,
				due_date,
				created_at,
				updated_at,
				deleted_at`

type PoolConfig struct {
	MaxConns        int32
	MinConns        int32
	MaxConnIdleTime time.Duration
}

type Storage struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, connString string, poolCfg PoolConfig) (*Storage, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		logger.Error("Repository: Ошибка загрузки конфига", err)
		return nil, fmt.Errorf("загрузка конфига: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnIdleTime = time.Minute * 5
	if poolCfg.MaxConns > 0 {
		config.MaxConns = poolCfg.MaxConns
	}
	if poolCfg.MinConns > 0 {
		config.MinConns = poolCfg.MinConns
	}
	if poolCfg.MaxConnIdleTime > 0 {
		config.MaxConnIdleTime = poolCfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		logger.Error("Repository: Ошибка создания пула", err)
		return nil, fmt.Errorf("создание пула: %w", err)
	}

	err = pool.Ping(ctx)
	if err != nil {
		pool.Close()
		logger.Error("Repository: Неудачная проверка ping", err)
		return nil, fmt.Errorf("проверка соединения ping: %w", err)
	}

	logger.Info("Repository: Успешное создание подключения к PostgreSQL")
	return &Storage{pool: pool}, nil
}

func (s *Storage) Close() {
	s.pool.Close()
	logger.Info("Repository: Закрытие всех соединений PostgreSQL")
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	err := s.pool.Ping(ctx)
	if err != nil {
		logger.Error("Repository: Неудачная проверка ping", err)
		return fmt.Errorf("проверка соединения ping: %w", err)
	}
	return nil
}

// мягкое удаление задачи
func (s *Storage) DeleteSoft(ctx context.Context, id int64) error {
	start := time.Now()

	query := `UPDATE tasks
				SET deleted_at = NOW()
			WHERE id = $1 AND deleted_at IS NULL`

	tag, err := s.pool.Exec(ctx, query, id)
	if err != nil {
		logger.Error("Repository: Мягкое удаление задачи", err, zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("мягкое удаление: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}

	warnIfSlow(start, slowQuery)
	return nil
}

func (s *Storage) Update(ctx context.Context, id int64, fields task.Fields) (*task.Task, error) {
	start := time.Now()
	fields = fields.WithDefaults()

	query := `UPDATE tasks
			SET title = $1,
				description = $2,
				status = $3,
				priority = $4,
				due_date = $5,
				updated_at = NOW()
			WHERE id = $6 AND deleted_at IS NULL
			RETURNING ` + taskColumns

	updated, err := scanTask(s.pool.QueryRow(ctx, query,
		fields.Title,
		fields.Description,
		string(fields.Status),
		fields.Priority,
		dateArg(fields.DueDate),
		id,
	))

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: Не удалось обновить задачу", err, zap.Int64("task_id", id))
		return nil, fmt.Errorf("обновление задачи: %w", err)
	}

	warnIfSlow(start, slowQuery)
	return updated, nil
}

func (s *Storage) Create(ctx context.Context, fields task.Fields) (*task.Task, error) {
	start := time.Now()
	fields = fields.WithDefaults()

	query := `INSERT INTO tasks
				(title, description, status, priority, due_date)
				VALUES ($1, $2, $3, $4, $5)
				RETURNING ` + taskColumns

	created, err := scanTask(s.pool.QueryRow(ctx, query,
		fields.Title,
		fields.Description,
		string(fields.Status),
		fields.Priority,
		dateArg(fields.DueDate),
	))

	if err != nil {
		logger.Error("Repository: Не удалось добавить задачу", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("добавление задачи: %w", err)
	}

	warnIfSlow(start, time.Millisecond*50)
	return created, nil
}

func (s *Storage) GetByID(ctx context.Context, id int64) (*task.Task, error) {
	start := time.Now()

	query := `SELECT ` + taskColumns + `
				FROM tasks
				WHERE id = $1 AND deleted_at IS NULL`

	found, err := scanTask(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: Не удалось получить задачу", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("получение задачи: %w", err)
	}

	warnIfSlow(start, slowQuery)
	return found, nil
}

// все активные задачи, новые первыми
func (s *Storage) ListActive(ctx context.Context) ([]*task.Task, error) {
	start := time.Now()

	query := `SELECT ` + taskColumns + `
				FROM tasks
				WHERE deleted_at IS NULL
				ORDER BY created_at DESC, id DESC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		logger.Error("Repository: Не удалось получить задачи", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("получение задач: %w", err)
	}

	defer rows.Close()

	tasks := []*task.Task{}

	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			logger.Error("Repository: Ошибка сканирования задачи", err)
			return nil, fmt.Errorf("сканирование задачи: %w", err)
		}
		tasks = append(tasks, t)
	}

	if err := rows.Err(); err != nil {
		logger.Error("Repository: Ошибка итерации по строкам", err)
		return nil, fmt.Errorf("итерация по строкам: %w", err)
	}

	warnIfSlow(start, slowQuery+time.Millisecond*time.Duration(len(tasks)))
	return tasks, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (*task.Task, error) {
	var (
		t       task.Task
		status  string
		dueDate *time.Time
	)

	err := row.Scan(
		&t.ID,
		&t.Title,
		&t.Description,
		&status,
		&t.Priority,
		&dueDate,
		&t.CreatedAt,
		&t.UpdatedAt,
		&t.DeletedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Status = task.Status(status)
	if dueDate != nil {
		t.DueDate = task.DateOf(dueDate.UTC()).Ptr()
	}
	return &t, nil
}

func dateArg(d *task.Date) any {
	if d == nil {
		return nil
	}
	return d.Time
}

func warnIfSlow(start time.Time, limit time.Duration) {
	if elapsed := time.Since(start); elapsed > limit {
		logger.Warn("Repository: Медленный запрос", zap.Duration("ms", elapsed))
	}
}
