package service

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
	"taskStream/internal/models/task"
	"unicode/utf8"
)

// Input - тело запроса как есть, числа декодированы в json.Number
type Input map[string]any

const (
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldStatus      = "status"
	FieldPriority    = "priority"
	FieldDueDate     = "due_date"
)

var fieldOrder = []string{FieldTitle, FieldDescription, FieldStatus, FieldPriority, FieldDueDate}

const (
	MsgTitleRequired     = "The task title is required."
	MsgTitleString       = "The title field must be a string."
	MsgTitleMax          = "The task title may not be greater than 255 characters."
	MsgDescriptionString = "The description field must be a string."
	MsgStatusRequired    = "The task status is required."
	MsgStatusInvalid     = "The selected status is invalid."
	MsgPriorityRequired  = "The task priority is required."
	MsgPriorityInteger   = "The priority field must be an integer."
	MsgPriorityMin       = "The priority must be at least 0."
	MsgPriorityMax       = "The priority may not be greater than 5."
	MsgDueDateInvalid    = "The due date must be a valid date."
)

// Validate проверяет вход одним набором правил для создания и обновления.
// На каждое поле возвращается только первое нарушенное правило.
func Validate(in Input) (task.Fields, *BusinessError) {
	var (
		fields task.Fields
		errs   = make(map[string][]string)
	)

	if title, msg := validateTitle(in); msg != "" {
		errs[FieldTitle] = []string{msg}
	} else {
		fields.Title = title
	}

	if desc, msg := validateDescription(in); msg != "" {
		errs[FieldDescription] = []string{msg}
	} else {
		fields.Description = desc
	}

	if status, msg := validateStatus(in); msg != "" {
		errs[FieldStatus] = []string{msg}
	} else {
		fields.Status = status
	}

	if priority, msg := validatePriority(in); msg != "" {
		errs[FieldPriority] = []string{msg}
	} else {
		fields.Priority = priority
	}

	if due, msg := validateDueDate(in); msg != "" {
		errs[FieldDueDate] = []string{msg}
	} else {
		fields.DueDate = due
	}

	if len(errs) > 0 {
		return task.Fields{}, NewValidationError(errs, fieldOrder)
	}
	return fields, nil
}

// value возвращает значение поля, пустая строка считается отсутствием
func (in Input) value(name string) (any, bool) {
	v, ok := in[name]
	if !ok || v == nil {
		return nil, false
	}
	if s, isString := v.(string); isString {
		s = strings.TrimSpace(s)
		if s == "" {
			return nil, false
		}
		return s, true
	}
	return v, true
}

func validateTitle(in Input) (string, string) {
	v, ok := in.value(FieldTitle)
	if !ok {
		return "", MsgTitleRequired
	}
	title, isString := v.(string)
	if !isString {
		return "", MsgTitleString
	}
	if utf8.RuneCountInString(title) > task.MaxTitleLength {
		return "", MsgTitleMax
	}
	return title, ""
}

func validateDescription(in Input) (*string, string) {
	v, ok := in.value(FieldDescription)
	if !ok {
		return nil, ""
	}
	desc, isString := v.(string)
	if !isString {
		return nil, MsgDescriptionString
	}
	return &desc, ""
}

func validateStatus(in Input) (task.Status, string) {
	v, ok := in.value(FieldStatus)
	if !ok {
		return "", MsgStatusRequired
	}
	raw, isString := v.(string)
	if !isString || !task.Status(raw).Valid() {
		return "", MsgStatusInvalid
	}
	return task.Status(raw), ""
}

func validatePriority(in Input) (int, string) {
	v, ok := in.value(FieldPriority)
	if !ok {
		return 0, MsgPriorityRequired
	}
	n, isInt := toInteger(v)
	if !isInt {
		return 0, MsgPriorityInteger
	}
	if n < task.MinPriority {
		return 0, MsgPriorityMin
	}
	if n > task.MaxPriority {
		return 0, MsgPriorityMax
	}
	return int(n), ""
}

func validateDueDate(in Input) (*task.Date, string) {
	v, ok := in.value(FieldDueDate)
	if !ok {
		return nil, ""
	}
	raw, isString := v.(string)
	if !isString {
		return nil, MsgDueDateInvalid
	}
	due, err := task.ParseDate(raw)
	if err != nil {
		return nil, MsgDueDateInvalid
	}
	return due.Ptr(), ""
}

// toInteger принимает целые числа, целые float (3.0) и числовые строки ("3")
func toInteger(v any) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return floatToInteger(f)
	case float64:
		return floatToInteger(n)
	case int:
		return int64(n), true
	case int64:
		return n, true
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}

func floatToInteger(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	switch {
	case f >= math.MaxInt64:
		return math.MaxInt64, true
	case f <= math.MinInt64:
		return math.MinInt64, true
	}
	return int64(f), true
}
