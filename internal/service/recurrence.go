package service

import (
	"context"
	"fmt"
	"time"

	"todo-assistant/internal/apperr"
	"todo-assistant/internal/model"
	"todo-assistant/internal/repository"
)

// monthlyOffsetDays approximates a month; successors of monthly tasks are due
// exactly 30 days later regardless of calendar month length.
const monthlyOffsetDays = 30

// RecurrenceEngine materializes the next instance of a completed recurring task.
type RecurrenceEngine struct {
	taskRepo *repository.TaskRepository
}

func NewRecurrenceEngine(taskRepo *repository.TaskRepository) *RecurrenceEngine {
	return &RecurrenceEngine{taskRepo: taskRepo}
}

// Advance persists the successor of completed and returns it. Tasks with rule
// none yield (nil, nil). The completed task itself is never modified.
func (e *RecurrenceEngine) Advance(ctx context.Context, completed *model.Task) (*model.Task, error) {
	if !completed.Completed {
		return nil, apperr.Invalid(fmt.Sprintf("task %s is not completed", completed.ID))
	}
	next := Successor(completed)
	if next == nil {
		return nil, nil
	}
	if err := e.taskRepo.Create(ctx, next); err != nil {
		return nil, fmt.Errorf("create successor: %w", err)
	}
	return next, nil
}

// Successor builds, without saving, the task that follows completed in its
// recurrence chain. The chain stays anchored to its root task.
func Successor(completed *model.Task) *model.Task {
	if !completed.Recurring() {
		return nil
	}

	parentID := completed.ID
	if completed.ParentTaskID != nil {
		parentID = *completed.ParentTaskID
	}

	return &model.Task{
		UserID:         completed.UserID,
		Title:          completed.Title,
		Description:    copyPtr(completed.Description),
		Completed:      false,
		DueDate:        NextDueDate(completed.RecurrenceRule, completed.DueDate),
		DueTime:        copyPtr(completed.DueTime),
		Priority:       completed.Priority,
		RecurrenceRule: completed.RecurrenceRule,
		ParentTaskID:   &parentID,
	}
}

// NextDueDate shifts due by one recurrence period. A nil due date stays nil.
func NextDueDate(rule model.RecurrenceRule, due *time.Time) *time.Time {
	if due == nil {
		return nil
	}
	var next time.Time
	switch rule {
	case model.RecurrenceDaily:
		next = due.AddDate(0, 0, 1)
	case model.RecurrenceWeekly:
		next = due.AddDate(0, 0, 7)
	case model.RecurrenceMonthly:
		next = due.AddDate(0, 0, monthlyOffsetDays)
	default:
		next = *due
	}
	return &next
}

func copyPtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
