package task

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

// Date - календарная дата без времени, всегда полночь UTC
type Date struct {
	time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf отбрасывает время, сохраняя календарный день в исходной зоне
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

var dateLayouts = []string{
	DateLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

func ParseDate(value string) (Date, error) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return DateOf(t), nil
		}
	}
	return Date{}, fmt.Errorf("неверный формат даты %q", value)
}

func (d Date) Equal(other Date) bool {
	return d.Time.Equal(other.Time)
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("дата должна быть строкой: %w", err)
	}
	parsed, err := ParseDate(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) Ptr() *Date {
	return &d
}
