package web

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"todo-assistant/internal/apperr"
	"todo-assistant/internal/repository"
	"todo-assistant/internal/service"
)

type createTodoRequest struct {
	Title          string     `json:"title"`
	Description    *string    `json:"description"`
	DueDate        *string    `json:"due_date"`
	DueTime        *string    `json:"due_time"`
	Priority       string     `json:"priority"`
	RecurrenceRule string     `json:"recurrence_rule"`
	ParentTodoID   *uuid.UUID `json:"parent_todo_id"`
}

type updateTodoRequest struct {
	Title          *string    `json:"title"`
	Description    *string    `json:"description"`
	Completed      *bool      `json:"completed"`
	DueDate        *string    `json:"due_date"`
	DueTime        *string    `json:"due_time"`
	Priority       *string    `json:"priority"`
	RecurrenceRule *string    `json:"recurrence_rule"`
	ParentTodoID   *uuid.UUID `json:"parent_todo_id"`
}

func (s *Server) listTodosHandler(w http.ResponseWriter, r *http.Request) {
	status := repository.StatusAll
	switch strings.ToLower(r.URL.Query().Get("status")) {
	case "", "all":
	case "pending":
		status = repository.StatusPending
	case "completed":
		status = repository.StatusCompleted
	default:
		writeError(w, apperr.Invalid("status must be one of all, pending, completed"))
		return
	}

	tasks, err := s.tasks.ListTasks(r.Context(), accountFrom(r.Context()).ID, status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) remindersHandler(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.tasks.Reminders(r.Context(), accountFrom(r.Context()).ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) createTodoHandler(w http.ResponseWriter, r *http.Request) {
	var req createTodoRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	input := service.TaskInput{
		Title:          req.Title,
		Description:    req.Description,
		Priority:       req.Priority,
		RecurrenceRule: req.RecurrenceRule,
		ParentTaskID:   req.ParentTodoID,
	}
	var err error
	if input.DueDate, err = parseDate(req.DueDate); err != nil {
		writeError(w, err)
		return
	}
	if input.DueTime, err = parseTime(req.DueTime); err != nil {
		writeError(w, err)
		return
	}

	task, err := s.tasks.CreateTask(r.Context(), accountFrom(r.Context()).ID, input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (s *Server) getTodoHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := todoID(w, r)
	if !ok {
		return
	}
	task, err := s.tasks.GetTask(r.Context(), accountFrom(r.Context()).ID, id)
	if err != nil {
		writeError(w, notFoundAs(err, "Todo not found"))
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) updateTodoHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := todoID(w, r)
	if !ok {
		return
	}
	var req updateTodoRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	patch := service.TaskPatch{
		Title:          req.Title,
		Description:    req.Description,
		Completed:      req.Completed,
		Priority:       req.Priority,
		RecurrenceRule: req.RecurrenceRule,
		ParentTaskID:   req.ParentTodoID,
	}
	var err error
	if patch.DueDate, err = parseDate(req.DueDate); err != nil {
		writeError(w, err)
		return
	}
	if patch.DueTime, err = parseTime(req.DueTime); err != nil {
		writeError(w, err)
		return
	}

	task, _, err := s.tasks.UpdateTask(r.Context(), accountFrom(r.Context()).ID, id.String(), patch)
	if err != nil {
		writeError(w, notFoundAs(err, "Todo not found"))
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) completeTodoHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := todoID(w, r)
	if !ok {
		return
	}
	task, _, err := s.tasks.CompleteTask(r.Context(), accountFrom(r.Context()).ID, id.String())
	if err != nil {
		writeError(w, notFoundAs(err, "Todo not found"))
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) deleteTodoHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := todoID(w, r)
	if !ok {
		return
	}
	if _, err := s.tasks.DeleteTask(r.Context(), accountFrom(r.Context()).ID, id.String()); err != nil {
		writeError(w, notFoundAs(err, "Todo not found"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Todo deleted successfully"})
}

// todoID parses the path id. Malformed ids cannot name a task and answer 404.
func todoID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeDetail(w, http.StatusNotFound, "Todo not found")
		return uuid.Nil, false
	}
	return id, true
}

func notFoundAs(err error, detail string) error {
	if errors.Is(err, apperr.ErrNotFound) {
		return apperr.NotFound(detail)
	}
	return err
}

func parseDate(raw *string) (*time.Time, error) {
	if raw == nil {
		return nil, nil
	}
	date, err := service.ParseDueDate(*raw)
	if err != nil {
		return nil, fmt.Errorf("due_date: %w", err)
	}
	return date, nil
}

func parseTime(raw *string) (*string, error) {
	if raw == nil {
		return nil, nil
	}
	clock, err := service.ParseDueTime(*raw)
	if err != nil {
		return nil, fmt.Errorf("due_time: %w", err)
	}
	return clock, nil
}
