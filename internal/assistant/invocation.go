package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"todo-assistant/internal/apperr"
	"todo-assistant/internal/model"
	"todo-assistant/internal/repository"
	"todo-assistant/internal/service"
)

// ErrUnknownTool is returned by Decode for names outside the catalog.
var ErrUnknownTool = errors.New("unknown tool")

// Invocation is a validated tool call. The set of implementations is closed:
// every catalog tool has exactly one variant below.
type Invocation interface {
	ToolName() string
	execute(ctx context.Context, tasks *service.TaskService, ownerID uuid.UUID) (Result, error)
}

type AddTodo struct {
	Title          string
	Description    *string
	DueDate        *time.Time
	DueTime        *string
	Priority       string
	RecurrenceRule string
}

type GetAllTodos struct{}

type GetPendingTodos struct{}

type GetCompletedTodos struct{}

type CompleteTodo struct {
	TodoID string
}

type DeleteTodo struct {
	TodoID string
}

type UpdateTodo struct {
	TodoID         string
	Title          *string
	Description    *string
	Completed      *bool
	DueDate        *time.Time
	DueTime        *string
	Priority       *string
	RecurrenceRule *string
}

func (AddTodo) ToolName() string           { return ToolAddTodo }
func (GetAllTodos) ToolName() string       { return ToolGetAllTodos }
func (GetPendingTodos) ToolName() string   { return ToolGetPendingTodos }
func (GetCompletedTodos) ToolName() string { return ToolGetCompletedTodos }
func (CompleteTodo) ToolName() string      { return ToolCompleteTodo }
func (DeleteTodo) ToolName() string        { return ToolDeleteTodo }
func (UpdateTodo) ToolName() string        { return ToolUpdateTodo }

// wire-level argument shapes
type addTodoArgs struct {
	Title          string  `json:"title"`
	Description    *string `json:"description"`
	DueDate        *string `json:"due_date"`
	DueTime        *string `json:"due_time"`
	Priority       *string `json:"priority"`
	RecurrenceRule *string `json:"recurrence_rule"`
}

type todoRefArgs struct {
	TodoID string `json:"todo_id"`
}

type updateTodoArgs struct {
	TodoID         string  `json:"todo_id"`
	Title          *string `json:"title"`
	Description    *string `json:"description"`
	Completed      *bool   `json:"completed"`
	DueDate        *string `json:"due_date"`
	DueTime        *string `json:"due_time"`
	Priority       *string `json:"priority"`
	RecurrenceRule *string `json:"recurrence_rule"`
}

// Decode validates raw model arguments and converts them into a typed invocation.
// Blank date and time strings are treated as absent. Failures wrap
// ErrUnknownTool or apperr.ErrInvalidArgument.
func Decode(name string, raw json.RawMessage) (Invocation, error) {
	switch name {
	case ToolAddTodo:
		var args addTodoArgs
		if err := unmarshalArgs(name, raw, &args); err != nil {
			return nil, err
		}
		title := strings.TrimSpace(args.Title)
		if title == "" {
			return nil, apperr.Invalid("Title cannot be empty")
		}
		inv := AddTodo{Title: title, Description: args.Description}
		var err error
		if inv.DueDate, err = dueDate(args.DueDate); err != nil {
			return nil, err
		}
		if inv.DueTime, err = dueTime(args.DueTime); err != nil {
			return nil, err
		}
		if inv.Priority, err = priority(args.Priority); err != nil {
			return nil, err
		}
		if inv.RecurrenceRule, err = recurrence(args.RecurrenceRule); err != nil {
			return nil, err
		}
		return inv, nil

	case ToolGetAllTodos:
		return GetAllTodos{}, nil
	case ToolGetPendingTodos:
		return GetPendingTodos{}, nil
	case ToolGetCompletedTodos:
		return GetCompletedTodos{}, nil

	case ToolCompleteTodo, ToolDeleteTodo:
		var args todoRefArgs
		if err := unmarshalArgs(name, raw, &args); err != nil {
			return nil, err
		}
		ref := strings.TrimSpace(args.TodoID)
		if ref == "" {
			return nil, apperr.Invalid("todo_id is required")
		}
		if name == ToolCompleteTodo {
			return CompleteTodo{TodoID: ref}, nil
		}
		return DeleteTodo{TodoID: ref}, nil

	case ToolUpdateTodo:
		var args updateTodoArgs
		if err := unmarshalArgs(name, raw, &args); err != nil {
			return nil, err
		}
		ref := strings.TrimSpace(args.TodoID)
		if ref == "" {
			return nil, apperr.Invalid("todo_id is required")
		}
		inv := UpdateTodo{TodoID: ref, Title: args.Title, Description: args.Description, Completed: args.Completed}
		if inv.Title != nil && strings.TrimSpace(*inv.Title) == "" {
			return nil, apperr.Invalid("Title cannot be empty")
		}
		var err error
		if inv.DueDate, err = dueDate(args.DueDate); err != nil {
			return nil, err
		}
		if inv.DueTime, err = dueTime(args.DueTime); err != nil {
			return nil, err
		}
		if !blank(args.Priority) {
			value, err := priority(args.Priority)
			if err != nil {
				return nil, err
			}
			inv.Priority = &value
		}
		if !blank(args.RecurrenceRule) {
			value, err := recurrence(args.RecurrenceRule)
			if err != nil {
				return nil, err
			}
			inv.RecurrenceRule = &value
		}
		return inv, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
}

func unmarshalArgs(name string, raw json.RawMessage, dst any) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		raw = []byte("{}")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return apperr.Invalid(fmt.Sprintf("invalid arguments for %s: %v", name, err))
	}
	return nil
}

func blank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}

func dueDate(raw *string) (*time.Time, error) {
	if blank(raw) {
		return nil, nil
	}
	return service.ParseDueDate(*raw)
}

func dueTime(raw *string) (*string, error) {
	if blank(raw) {
		return nil, nil
	}
	return service.ParseDueTime(*raw)
}

func priority(raw *string) (string, error) {
	if raw == nil {
		return "", nil
	}
	p, ok := model.ParsePriority(*raw)
	if !ok {
		return "", apperr.Invalid(fmt.Sprintf("invalid priority %q", *raw))
	}
	return string(p), nil
}

func recurrence(raw *string) (string, error) {
	if raw == nil {
		return "", nil
	}
	r, ok := model.ParseRecurrenceRule(*raw)
	if !ok {
		return "", apperr.Invalid(fmt.Sprintf("invalid recurrence rule %q", *raw))
	}
	return string(r), nil
}

func (inv AddTodo) execute(ctx context.Context, tasks *service.TaskService, ownerID uuid.UUID) (Result, error) {
	task, err := tasks.CreateTask(ctx, ownerID, service.TaskInput{
		Title:          inv.Title,
		Description:    inv.Description,
		DueDate:        inv.DueDate,
		DueTime:        inv.DueTime,
		Priority:       inv.Priority,
		RecurrenceRule: inv.RecurrenceRule,
	})
	if err != nil {
		return Result{}, err
	}
	return Result{Success: true, Result: task, Message: fmt.Sprintf("Todo '%s' added successfully", task.Title)}, nil
}

func (GetAllTodos) execute(ctx context.Context, tasks *service.TaskService, ownerID uuid.UUID) (Result, error) {
	return listResult(ctx, tasks, ownerID, repository.StatusAll, "Found %d todos")
}

func (GetPendingTodos) execute(ctx context.Context, tasks *service.TaskService, ownerID uuid.UUID) (Result, error) {
	return listResult(ctx, tasks, ownerID, repository.StatusPending, "Found %d pending todos")
}

func (GetCompletedTodos) execute(ctx context.Context, tasks *service.TaskService, ownerID uuid.UUID) (Result, error) {
	return listResult(ctx, tasks, ownerID, repository.StatusCompleted, "Found %d completed todos")
}

func listResult(ctx context.Context, tasks *service.TaskService, ownerID uuid.UUID, status repository.TaskStatus, format string) (Result, error) {
	list, err := tasks.ListTasks(ctx, ownerID, status)
	if err != nil {
		return Result{}, err
	}
	return Result{Success: true, Result: list, Message: fmt.Sprintf(format, len(list))}, nil
}

func (inv CompleteTodo) execute(ctx context.Context, tasks *service.TaskService, ownerID uuid.UUID) (Result, error) {
	task, _, err := tasks.CompleteTask(ctx, ownerID, inv.TodoID)
	if err != nil {
		return Result{}, err
	}
	return Result{Success: true, Result: task, Message: fmt.Sprintf("Todo '%s' marked as complete", task.Title)}, nil
}

func (inv DeleteTodo) execute(ctx context.Context, tasks *service.TaskService, ownerID uuid.UUID) (Result, error) {
	task, err := tasks.DeleteTask(ctx, ownerID, inv.TodoID)
	if err != nil {
		return Result{}, err
	}
	deleted := map[string]any{
		"deleted_id": task.ID,
		"title":      task.Title,
		"priority":   task.Priority,
		"completed":  task.Completed,
	}
	return Result{Success: true, Result: deleted, Message: "Todo deleted successfully"}, nil
}

func (inv UpdateTodo) execute(ctx context.Context, tasks *service.TaskService, ownerID uuid.UUID) (Result, error) {
	task, _, err := tasks.UpdateTask(ctx, ownerID, inv.TodoID, service.TaskPatch{
		Title:          inv.Title,
		Description:    inv.Description,
		Completed:      inv.Completed,
		DueDate:        inv.DueDate,
		DueTime:        inv.DueTime,
		Priority:       inv.Priority,
		RecurrenceRule: inv.RecurrenceRule,
	})
	if err != nil {
		return Result{}, err
	}
	return Result{Success: true, Result: task, Message: fmt.Sprintf("Todo '%s' updated successfully", task.Title)}, nil
}
