package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"todo-assistant/internal/apperr"
	"todo-assistant/internal/service"
)

// Result is the outcome of one tool invocation.
type Result struct {
	Success bool   `json:"success"`
	Result  any    `json:"result"`
	Message string `json:"message"`
}

// Dispatcher runs tool invocations against the owner's tasks.
type Dispatcher struct {
	tasks *service.TaskService
}

func NewDispatcher(tasks *service.TaskService) *Dispatcher {
	return &Dispatcher{tasks: tasks}
}

// Execute runs inv for ownerID. Lookup misses and invalid arguments become an
// unsuccessful Result; only storage failures are returned as errors.
func (d *Dispatcher) Execute(ctx context.Context, ownerID uuid.UUID, inv Invocation) (Result, error) {
	res, err := inv.execute(ctx, d.tasks, ownerID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) || errors.Is(err, apperr.ErrInvalidArgument) {
			log.Printf("[info] tool %s rejected: %v", inv.ToolName(), err)
			return Result{Success: false, Message: err.Error()}, nil
		}
		return Result{}, fmt.Errorf("execute %s: %w", inv.ToolName(), err)
	}
	log.Printf("[info] tool %s success=%t", inv.ToolName(), res.Success)
	return res, nil
}

// ExecuteNamed decodes a raw tool call and executes it. Unknown tools never
// produce an error.
func (d *Dispatcher) ExecuteNamed(ctx context.Context, ownerID uuid.UUID, name string, args json.RawMessage) (Result, error) {
	inv, err := Decode(name, args)
	switch {
	case errors.Is(err, ErrUnknownTool):
		log.Printf("[warn] model requested unknown tool %q", name)
		return Result{Success: false, Message: "Unknown tool: " + name}, nil
	case errors.Is(err, apperr.ErrInvalidArgument):
		return Result{Success: false, Message: err.Error()}, nil
	case err != nil:
		return Result{}, err
	}
	return d.Execute(ctx, ownerID, inv)
}
