package sqlite

import (
	"context"
	"errors"
	"fmt"
	"taskStream/internal/logger"
	"taskStream/internal/models/task"
	repo "taskStream/internal/repository"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// taskRecord - строка таблицы tasks, мягкое удаление через gorm.DeletedAt
type taskRecord struct {
	ID          int64          `gorm:"primaryKey;autoIncrement"`
	Title       string         `gorm:"size:255;not null"`
	Description *string        `gorm:"type:text"`
	Status      string         `gorm:"size:20;not null;default:pending"`
	Priority    int            `gorm:"not null;default:0"`
	DueDate     *time.Time     `gorm:"type:date"`
	CreatedAt   time.Time      `gorm:"index"`
	UpdatedAt   time.Time
	DeletedAt   gorm.DeletedAt `gorm:"index"`
}

func (taskRecord) TableName() string {
	return "tasks"
}

type Storage struct {
	db *gorm.DB
}

// New открывает файл базы (":memory:" тоже подходит) и накатывает схему
func New(path string) (*Storage, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		logger.Error("Repository: Не удалось открыть SQLite", err, zap.String("path", path))
		return nil, fmt.Errorf("открытие sqlite: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("получение соединения sqlite: %w", err)
	}
	// одна запись за раз, иначе "database is locked"
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&taskRecord{}); err != nil {
		logger.Error("Repository: Ошибка миграции SQLite", err)
		return nil, fmt.Errorf("миграция sqlite: %w", err)
	}

	logger.Info("Repository: SQLite готова", zap.String("path", path))
	return &Storage{db: db}, nil
}

func (s *Storage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	logger.Info("Repository: Закрытие SQLite")
	return sqlDB.Close()
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("получение соединения sqlite: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		logger.Error("Repository: Неудачная проверка ping", err)
		return fmt.Errorf("проверка соединения ping: %w", err)
	}
	return nil
}

func (s *Storage) Create(ctx context.Context, fields task.Fields) (*task.Task, error) {
	rec := toRecord(fields.WithDefaults())
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		logger.Error("Repository: Не удалось добавить задачу", err)
		return nil, fmt.Errorf("добавление задачи: %w", err)
	}
	return rec.toTask(), nil
}

func (s *Storage) GetByID(ctx context.Context, id int64) (*task.Task, error) {
	var rec taskRecord
	if err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: Не удалось получить задачу", err, zap.Int64("task_id", id))
		return nil, fmt.Errorf("получение задачи: %w", err)
	}
	return rec.toTask(), nil
}

func (s *Storage) Update(ctx context.Context, id int64, fields task.Fields) (*task.Task, error) {
	rec := toRecord(fields.WithDefaults())

	var updated taskRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Select нужен, чтобы nil-поля тоже перезаписывались (полная замена)
		result := tx.Model(&taskRecord{}).
			Where("id = ?", id).
			Select("title", "description", "status", "priority", "due_date", "updated_at").
			Updates(&taskRecord{
				Title:       rec.Title,
				Description: rec.Description,
				Status:      rec.Status,
				Priority:    rec.Priority,
				DueDate:     rec.DueDate,
				UpdatedAt:   time.Now().UTC(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return repo.ErrNotFound
		}
		return tx.First(&updated, "id = ?", id).Error
	})

	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: Не удалось обновить задачу", err, zap.Int64("task_id", id))
		return nil, fmt.Errorf("обновление задачи: %w", err)
	}
	return updated.toTask(), nil
}

// мягкое удаление: gorm выставляет deleted_at вместо DELETE
func (s *Storage) DeleteSoft(ctx context.Context, id int64) error {
	result := s.db.WithContext(ctx).Delete(&taskRecord{}, "id = ?", id)
	if err := result.Error; err != nil {
		logger.Error("Repository: Мягкое удаление задачи", err, zap.Int64("task_id", id))
		return fmt.Errorf("мягкое удаление: %w", err)
	}
	if result.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// все активные задачи, новые первыми
func (s *Storage) ListActive(ctx context.Context) ([]*task.Task, error) {
	var recs []taskRecord
	if err := s.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Find(&recs).Error; err != nil {
		logger.Error("Repository: Не удалось получить задачи", err)
		return nil, fmt.Errorf("получение задач: %w", err)
	}

	tasks := make([]*task.Task, 0, len(recs))
	for i := range recs {
		tasks = append(tasks, recs[i].toTask())
	}
	return tasks, nil
}

// GetWithDeleted читает запись в обход фильтра мягкого удаления
func (s *Storage) GetWithDeleted(ctx context.Context, id int64) (*task.Task, error) {
	var rec taskRecord
	if err := s.db.WithContext(ctx).Unscoped().First(&rec, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repo.ErrNotFound
		}
		return nil, fmt.Errorf("получение задачи: %w", err)
	}
	return rec.toTask(), nil
}

func toRecord(f task.Fields) taskRecord {
	rec := taskRecord{
		Title:       f.Title,
		Description: f.Description,
		Status:      string(f.Status),
		Priority:    f.Priority,
	}
	if f.DueDate != nil {
		due := f.DueDate.Time
		rec.DueDate = &due
	}
	return rec
}

func (r *taskRecord) toTask() *task.Task {
	t := &task.Task{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Status:      task.Status(r.Status),
		Priority:    r.Priority,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
	if r.DueDate != nil {
		t.DueDate = task.DateOf(r.DueDate.UTC()).Ptr()
	}
	if r.DeletedAt.Valid {
		deleted := r.DeletedAt.Time.UTC()
		t.DeletedAt = &deleted
	}
	return t
}
