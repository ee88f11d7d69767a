package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Priority ranks how urgent a task is.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ParsePriority maps user input to a Priority; blank input yields medium.
func ParsePriority(raw string) (Priority, bool) {
	switch Priority(strings.ToLower(strings.TrimSpace(raw))) {
	case "", PriorityMedium:
		return PriorityMedium, true
	case PriorityLow:
		return PriorityLow, true
	case PriorityHigh:
		return PriorityHigh, true
	default:
		return "", false
	}
}

// RecurrenceRule tells how a completed task repeats.
type RecurrenceRule string

const (
	RecurrenceNone    RecurrenceRule = "none"
	RecurrenceDaily   RecurrenceRule = "daily"
	RecurrenceWeekly  RecurrenceRule = "weekly"
	RecurrenceMonthly RecurrenceRule = "monthly"
)

// ParseRecurrenceRule maps user input to a RecurrenceRule; blank input yields none.
func ParseRecurrenceRule(raw string) (RecurrenceRule, bool) {
	switch RecurrenceRule(strings.ToLower(strings.TrimSpace(raw))) {
	case "", RecurrenceNone:
		return RecurrenceNone, true
	case RecurrenceDaily:
		return RecurrenceDaily, true
	case RecurrenceWeekly:
		return RecurrenceWeekly, true
	case RecurrenceMonthly:
		return RecurrenceMonthly, true
	default:
		return "", false
	}
}

// Task represents a single item on an account's todo list.
type Task struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         uuid.UUID      `gorm:"type:uuid;index;not null" json:"user_id"`
	Title          string         `gorm:"not null" json:"title"`
	Description    *string        `json:"description"`
	Completed      bool           `gorm:"not null;index" json:"completed"`
	DueDate        *time.Time     `json:"due_date"`
	DueTime        *string        `gorm:"size:5" json:"due_time"` // HH:MM
	Priority       Priority       `gorm:"size:10;not null" json:"priority"`
	RecurrenceRule RecurrenceRule `gorm:"size:10;not null" json:"recurrence_rule"`
	ParentTaskID   *uuid.UUID     `gorm:"type:uuid;index" json:"parent_todo_id"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

func (t *Task) BeforeCreate(*gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// Recurring reports whether completing the task spawns a successor.
func (t *Task) Recurring() bool {
	return t.RecurrenceRule != "" && t.RecurrenceRule != RecurrenceNone
}
