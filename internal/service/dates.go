package service

import (
	"strings"
	"time"

	"todo-assistant/internal/apperr"
)

var dueDateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
}

var dueTimeLayouts = []string{
	"15:04",
	"15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseDueDate accepts the date formats clients send. Blank input means "no date".
// The wall clock the client wrote is stored as UTC, so an offset never moves
// the task to another calendar day.
func ParseDueDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range dueDateLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			wall := time.Date(parsed.Year(), parsed.Month(), parsed.Day(), parsed.Hour(), parsed.Minute(), parsed.Second(), 0, time.UTC)
			return &wall, nil
		}
	}
	return nil, apperr.Invalid("Invalid date format. Use ISO format (YYYY-MM-DDTHH:MM:SS) or YYYY-MM-DD")
}

// ParseDueTime accepts a clock time or a full datetime and keeps HH:MM. Blank input means "no time".
func ParseDueTime(raw string) (*string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range dueTimeLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			clock := parsed.Format("15:04")
			return &clock, nil
		}
	}
	return nil, apperr.Invalid("Invalid time format. Use ISO format (YYYY-MM-DDTHH:MM:SS) or HH:MM")
}
