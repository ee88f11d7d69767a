package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"todo-assistant/internal/apperr"
	"todo-assistant/internal/model"
	"todo-assistant/internal/repository"
)

// TaskInput represents data required to create a task.
type TaskInput struct {
	Title          string
	Description    *string
	DueDate        *time.Time
	DueTime        *string
	Priority       string
	RecurrenceRule string
	ParentTaskID   *uuid.UUID
}

// TaskPatch lists the fields to change on a task; nil fields are left alone.
type TaskPatch struct {
	Title          *string
	Description    *string
	Completed      *bool
	DueDate        *time.Time
	DueTime        *string
	Priority       *string
	RecurrenceRule *string
	ParentTaskID   *uuid.UUID
}

// TaskService wraps task-related business logic.
type TaskService struct {
	taskRepo   *repository.TaskRepository
	recurrence *RecurrenceEngine
}

func NewTaskService(taskRepo *repository.TaskRepository, recurrence *RecurrenceEngine) *TaskService {
	return &TaskService{taskRepo: taskRepo, recurrence: recurrence}
}

func (s *TaskService) CreateTask(ctx context.Context, ownerID uuid.UUID, input TaskInput) (*model.Task, error) {
	title, err := normalizeTitle(input.Title)
	if err != nil {
		return nil, err
	}
	priority, ok := model.ParsePriority(input.Priority)
	if !ok {
		return nil, apperr.Invalid(fmt.Sprintf("invalid priority %q", input.Priority))
	}
	rule, ok := model.ParseRecurrenceRule(input.RecurrenceRule)
	if !ok {
		return nil, apperr.Invalid(fmt.Sprintf("invalid recurrence rule %q", input.RecurrenceRule))
	}
	if err := s.checkParent(ctx, ownerID, input.ParentTaskID); err != nil {
		return nil, err
	}

	task := model.Task{
		UserID:         ownerID,
		Title:          title,
		Description:    input.Description,
		DueDate:        input.DueDate,
		DueTime:        input.DueTime,
		Priority:       priority,
		RecurrenceRule: rule,
		ParentTaskID:   input.ParentTaskID,
	}
	if err := s.taskRepo.Create(ctx, &task); err != nil {
		return nil, err
	}

	log.Printf("[info] task created id=%s user=%s recurrence=%s", task.ID, ownerID, task.RecurrenceRule)
	return &task, nil
}

func (s *TaskService) GetTask(ctx context.Context, ownerID, taskID uuid.UUID) (*model.Task, error) {
	return s.taskRepo.FindByID(ctx, ownerID, taskID)
}

func (s *TaskService) ListTasks(ctx context.Context, ownerID uuid.UUID, status repository.TaskStatus) ([]model.Task, error) {
	return s.taskRepo.List(ctx, ownerID, status)
}

// Reminders returns pending tasks that have a due date or time.
func (s *TaskService) Reminders(ctx context.Context, ownerID uuid.UUID) ([]model.Task, error) {
	return s.taskRepo.ListReminders(ctx, ownerID)
}

// ResolveTask finds a task by id, then by exact title, then by title ignoring case.
// The oldest matching task wins.
func (s *TaskService) ResolveTask(ctx context.Context, ownerID uuid.UUID, ref string) (*model.Task, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, apperr.Invalid("todo_id is required")
	}

	if id, err := uuid.Parse(ref); err == nil {
		task, err := s.taskRepo.FindByID(ctx, ownerID, id)
		if err == nil || !errors.Is(err, apperr.ErrNotFound) {
			return task, err
		}
	}

	task, err := s.taskRepo.FindByTitle(ctx, ownerID, ref)
	if err == nil || !errors.Is(err, apperr.ErrNotFound) {
		return task, err
	}

	task, err = s.taskRepo.FindByTitleFold(ctx, ownerID, ref)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.NotFound(fmt.Sprintf("Todo '%s' not found", ref))
	}
	return task, err
}

// UpdateTask applies patch to the task named by ref. When the patch marks a
// pending task completed, the successor of a recurring task is returned too.
func (s *TaskService) UpdateTask(ctx context.Context, ownerID uuid.UUID, ref string, patch TaskPatch) (*model.Task, *model.Task, error) {
	task, err := s.ResolveTask(ctx, ownerID, ref)
	if err != nil {
		return nil, nil, err
	}
	wasCompleted := task.Completed

	if patch.Title != nil {
		title, err := normalizeTitle(*patch.Title)
		if err != nil {
			return nil, nil, err
		}
		task.Title = title
	}
	if patch.Description != nil {
		task.Description = patch.Description
	}
	if patch.Completed != nil {
		task.Completed = *patch.Completed
	}
	if patch.DueDate != nil {
		task.DueDate = patch.DueDate
	}
	if patch.DueTime != nil {
		task.DueTime = patch.DueTime
	}
	if patch.Priority != nil {
		priority, ok := model.ParsePriority(*patch.Priority)
		if !ok {
			return nil, nil, apperr.Invalid(fmt.Sprintf("invalid priority %q", *patch.Priority))
		}
		task.Priority = priority
	}
	if patch.RecurrenceRule != nil {
		rule, ok := model.ParseRecurrenceRule(*patch.RecurrenceRule)
		if !ok {
			return nil, nil, apperr.Invalid(fmt.Sprintf("invalid recurrence rule %q", *patch.RecurrenceRule))
		}
		task.RecurrenceRule = rule
	}
	if patch.ParentTaskID != nil {
		if *patch.ParentTaskID == task.ID {
			return nil, nil, apperr.Invalid("a task cannot be its own parent")
		}
		if err := s.checkParent(ctx, ownerID, patch.ParentTaskID); err != nil {
			return nil, nil, err
		}
		task.ParentTaskID = patch.ParentTaskID
	}

	if err := s.taskRepo.Save(ctx, task); err != nil {
		return nil, nil, err
	}
	if task.Completed == wasCompleted {
		return task, nil, nil
	}

	changed, err := s.taskRepo.SetCompleted(ctx, ownerID, task.ID, task.Completed)
	if err != nil {
		return nil, nil, err
	}
	if !changed || !task.Completed {
		return task, nil, nil
	}
	successor, err := s.recurrence.Advance(ctx, task)
	if err != nil {
		return task, nil, err
	}
	return task, successor, nil
}

// CompleteTask marks the task named by ref done and, for recurring tasks, creates
// the next instance. Completing an already completed task changes nothing.
func (s *TaskService) CompleteTask(ctx context.Context, ownerID uuid.UUID, ref string) (*model.Task, *model.Task, error) {
	task, err := s.ResolveTask(ctx, ownerID, ref)
	if err != nil {
		return nil, nil, err
	}
	if task.Completed {
		return task, nil, nil
	}

	changed, err := s.taskRepo.SetCompleted(ctx, ownerID, task.ID, true)
	if err != nil {
		return nil, nil, err
	}
	task.Completed = true
	if !changed {
		// another request completed it first and owns the successor
		return task, nil, nil
	}

	successor, err := s.recurrence.Advance(ctx, task)
	if err != nil {
		return task, nil, err
	}
	if successor != nil {
		log.Printf("[info] recurring task %s advanced to %s", task.ID, successor.ID)
	}
	return task, successor, nil
}

// DeleteTask removes exactly one task. Children in its recurrence chain are kept.
func (s *TaskService) DeleteTask(ctx context.Context, ownerID uuid.UUID, ref string) (*model.Task, error) {
	task, err := s.ResolveTask(ctx, ownerID, ref)
	if err != nil {
		return nil, err
	}
	if err := s.taskRepo.Delete(ctx, ownerID, task.ID); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *TaskService) checkParent(ctx context.Context, ownerID uuid.UUID, parentID *uuid.UUID) error {
	if parentID == nil {
		return nil
	}
	_, err := s.taskRepo.FindByID(ctx, ownerID, *parentID)
	if errors.Is(err, apperr.ErrNotFound) {
		return apperr.Invalid(fmt.Sprintf("parent task %s not found", *parentID))
	}
	return err
}

func normalizeTitle(raw string) (string, error) {
	title := strings.TrimSpace(raw)
	if title == "" {
		return "", apperr.Invalid("Title cannot be empty")
	}
	return title, nil
}
