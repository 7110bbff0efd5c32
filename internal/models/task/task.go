package task

import (
	"time"
)

type Task struct {
	ID          int64      `json:"id" db:"id"`
	Title       string     `json:"title" db:"title"`
	Description *string    `json:"description" db:"description"`
	Status      Status     `json:"status" db:"status"`
	Priority    int        `json:"priority" db:"priority"`
	DueDate     *Date      `json:"due_date" db:"due_date"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt   *time.Time `json:"-" db:"deleted_at"`
}

// Fields - поля задачи, которые задаёт клиент. Всё остальное заполняет хранилище.
type Fields struct {
	Title       string
	Description *string
	Status      Status
	Priority    int
	DueDate     *Date
}

type Status string

const StatusPending Status = "pending"
const StatusInProgress Status = "in_progress"
const StatusCompleted Status = "completed"

// статус по умолчанию на уровне хранилища
const DefaultStatus = StatusPending

const MaxTitleLength = 255
const MinPriority = 0
const MaxPriority = 5

func Statuses() []Status {
	return []Status{StatusPending, StatusInProgress, StatusCompleted}
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

func (t *Task) IsDeleted() bool {
	return t.DeletedAt != nil
}

// Fields возвращает клиентские поля задачи
func (t *Task) Fields() Fields {
	return Fields{
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		Priority:    t.Priority,
		DueDate:     t.DueDate,
	}
}

// Apply заменяет клиентские поля задачи целиком
func (t *Task) Apply(f Fields) {
	t.Title = f.Title
	t.Description = f.Description
	t.Status = f.Status
	t.Priority = f.Priority
	t.DueDate = f.DueDate
}

// Clone - копия задачи, не разделяющая указатели с оригиналом
func (t *Task) Clone() *Task {
	c := *t
	if t.Description != nil {
		d := *t.Description
		c.Description = &d
	}
	if t.DueDate != nil {
		d := *t.DueDate
		c.DueDate = &d
	}
	if t.DeletedAt != nil {
		d := *t.DeletedAt
		c.DeletedAt = &d
	}
	return &c
}

func (f Fields) WithDefaults() Fields {
	if f.Status == "" {
		f.Status = DefaultStatus
	}
	return f
}
