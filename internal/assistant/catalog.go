// Package assistant turns chat messages into task operations through a
// tool-calling completion model.
package assistant

import "todo-assistant/internal/llm"

// Tool names offered to the model.
const (
	ToolAddTodo           = "add_todo"
	ToolGetAllTodos       = "get_all_todos"
	ToolGetPendingTodos   = "get_pending_todos"
	ToolGetCompletedTodos = "get_completed_todos"
	ToolCompleteTodo      = "complete_todo"
	ToolDeleteTodo        = "delete_todo"
	ToolUpdateTodo        = "update_todo"
)

var (
	priorities      = []string{"low", "medium", "high"}
	recurrenceRules = []string{"daily", "weekly", "monthly", "none"}
)

// Catalog is the fixed set of tools handed to the model on every turn.
var Catalog = []llm.Tool{
	{
		Name:        ToolAddTodo,
		Description: "Add a new todo task",
		Parameters: llm.ObjReq(map[string]any{
			"title":           llm.Prop("string", "The title of the todo"),
			"description":     llm.Prop("string", "Optional description of the todo"),
			"due_date":        llm.Prop("string", "Optional due date in YYYY-MM-DD format"),
			"due_time":        llm.Prop("string", "Optional due time in HH:MM format"),
			"priority":        llm.Enum("Priority level", priorities...),
			"recurrence_rule": llm.Enum("Recurrence pattern", recurrenceRules...),
		}, "title"),
	},
	{
		Name:        ToolGetAllTodos,
		Description: "Get all todos for the current user",
		Parameters:  llm.Obj(nil),
	},
	{
		Name:        ToolGetPendingTodos,
		Description: "Get all pending (not completed) todos for the current user",
		Parameters:  llm.Obj(nil),
	},
	{
		Name:        ToolGetCompletedTodos,
		Description: "Get all completed todos for the current user",
		Parameters:  llm.Obj(nil),
	},
	{
		Name:        ToolCompleteTodo,
		Description: "Mark a todo as complete",
		Parameters: llm.ObjReq(map[string]any{
			"todo_id": llm.Prop("string", "The ID or title of the todo to mark as complete"),
		}, "todo_id"),
	},
	{
		Name:        ToolDeleteTodo,
		Description: "Delete a todo task",
		Parameters: llm.ObjReq(map[string]any{
			"todo_id": llm.Prop("string", "The ID or title of the todo to delete"),
		}, "todo_id"),
	},
	{
		Name:        ToolUpdateTodo,
		Description: "Update an existing todo task",
		Parameters: llm.ObjReq(map[string]any{
			"todo_id":         llm.Prop("string", "The ID or title of the todo to update"),
			"title":           llm.Prop("string", "New title"),
			"description":     llm.Prop("string", "New description"),
			"due_date":        llm.Prop("string", "New due date"),
			"due_time":        llm.Prop("string", "New due time"),
			"priority":        llm.Enum("New priority level", priorities...),
			"recurrence_rule": llm.Enum("New recurrence pattern", recurrenceRules...),
		}, "todo_id"),
	},
}
