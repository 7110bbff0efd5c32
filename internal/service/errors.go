package service

import (
	"fmt"
	"sort"
)

const (
	CodeNotFound   = "NOT_FOUND"
	CodeValidation = "VALIDATION_ERROR"
)

type BusinessError struct {
	Code    string
	Message string
	Details map[string]any
	// Fields - сообщения валидации по полям, заполняется только для VALIDATION_ERROR
	Fields map[string][]string
	Err    error
}

type Detail struct {
	Key     string
	Payload any
}

func (b *BusinessError) Error() string {
	if b.Err != nil {
		return fmt.Sprintf("[%s] %s: %s", b.Code, b.Message, b.Err.Error())
	}
	return fmt.Sprintf("[%s] %s", b.Code, b.Message)
}

func (b *BusinessError) Unwrap() error {
	return b.Err
}

func ToDetail(key string, payload any) Detail {
	return Detail{
		Key:     key,
		Payload: payload,
	}
}

func NewBusinessError(code string, message string, details ...Detail) *BusinessError {
	busErr := &BusinessError{
		Code:    code,
		Message: message,
		Details: make(map[string]any),
	}

	for _, detail := range details {
		busErr.Details[detail.Key] = detail.Payload
	}

	return busErr
}

func NewNotFound(resource string, id int64, err error) *BusinessError {
	return &BusinessError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s %d не найден(а)", resource, id),
		Details: map[string]any{
			"resource": resource,
			"id":       id,
		},
		Err: err,
	}
}

// NewValidationError собирает ошибку валидации. Сообщение - первая ошибка
// по порядку полей плюс счётчик остальных.
func NewValidationError(fields map[string][]string, order []string) *BusinessError {
	var first string
	total := 0
	for _, name := range order {
		msgs := fields[name]
		if len(msgs) == 0 {
			continue
		}
		if first == "" {
			first = msgs[0]
		}
		total += len(msgs)
	}
	// поля вне order учитываются в алфавитном порядке
	var rest []string
	for name := range fields {
		if !contains(order, name) {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	for _, name := range rest {
		if first == "" && len(fields[name]) > 0 {
			first = fields[name][0]
		}
		total += len(fields[name])
	}

	message := first
	if total > 1 {
		message = fmt.Sprintf("%s (and %d more error%s)", first, total-1, plural(total-1))
	}

	return &BusinessError{
		Code:    CodeValidation,
		Message: message,
		Fields:  fields,
	}
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

func contains(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}
