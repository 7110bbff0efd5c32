package repository

import "errors"

// ErrNotFound - задачи нет или она мягко удалена
var ErrNotFound = errors.New("запись не найдена")
