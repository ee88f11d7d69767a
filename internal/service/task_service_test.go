package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"todo-assistant/internal/apperr"
	"todo-assistant/internal/model"
	"todo-assistant/internal/repository"
	"todo-assistant/internal/service"
	"todo-assistant/internal/testsupport"
)

func newTaskService(t *testing.T) (*service.TaskService, *model.Account) {
	t.Helper()
	db := testsupport.NewDB(t)
	repo := repository.NewTaskRepository(db)
	svc := service.NewTaskService(repo, service.NewRecurrenceEngine(repo))
	return svc, testsupport.NewAccount(t, db, "owner@example.com")
}

func mustUUID(t *testing.T, raw string) uuid.UUID {
	t.Helper()
	id, err := uuid.Parse(raw)
	if err != nil {
		t.Fatalf("parse uuid: %v", err)
	}
	return id
}

func TestCreateTaskRejectsBlankTitle(t *testing.T) {
	svc, owner := newTaskService(t)
	for _, title := range []string{"", "   ", "\t\n"} {
		if _, err := svc.CreateTask(context.Background(), owner.ID, service.TaskInput{Title: title}); !errors.Is(err, apperr.ErrInvalidArgument) {
			t.Errorf("title %q: expected ErrInvalidArgument, got %v", title, err)
		}
	}
}

func TestCreateTaskDefaultsAndValidation(t *testing.T) {
	svc, owner := newTaskService(t)
	ctx := context.Background()

	task, err := svc.CreateTask(ctx, owner.ID, service.TaskInput{Title: "  Call mom  "})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if task.Title != "Call mom" {
		t.Errorf("expected trimmed title, got %q", task.Title)
	}
	if task.Priority != model.PriorityMedium || task.RecurrenceRule != model.RecurrenceNone {
		t.Errorf("expected medium/none defaults, got %s/%s", task.Priority, task.RecurrenceRule)
	}

	if _, err := svc.CreateTask(ctx, owner.ID, service.TaskInput{Title: "x", Priority: "urgent"}); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("expected invalid priority to fail, got %v", err)
	}
	if _, err := svc.CreateTask(ctx, owner.ID, service.TaskInput{Title: "x", RecurrenceRule: "yearly"}); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("expected invalid recurrence to fail, got %v", err)
	}
	missing := uuid.New()
	if _, err := svc.CreateTask(ctx, owner.ID, service.TaskInput{Title: "x", ParentTaskID: &missing}); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("expected unknown parent to fail, got %v", err)
	}
	child, err := svc.CreateTask(ctx, owner.ID, service.TaskInput{Title: "child", ParentTaskID: &task.ID})
	if err != nil {
		t.Fatalf("create child: %v", err)
	}
	if *child.ParentTaskID != task.ID {
		t.Errorf("expected parent %s, got %s", task.ID, *child.ParentTaskID)
	}
}

func TestCompleteRecurringTaskSpawnsSuccessor(t *testing.T) {
	svc, owner := newTaskService(t)
	ctx := context.Background()

	due, err := service.ParseDueDate("2025-01-01")
	if err != nil {
		t.Fatalf("parse due date: %v", err)
	}
	original, err := svc.CreateTask(ctx, owner.ID, service.TaskInput{Title: "Buy milk", RecurrenceRule: "daily", DueDate: due})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	done, next, err := svc.CompleteTask(ctx, owner.ID, original.ID.String())
	if err != nil {
		t.Fatalf("complete task: %v", err)
	}
	if !done.Completed {
		t.Error("expected original to be completed")
	}
	if next == nil {
		t.Fatal("expected a successor")
	}
	if next.Title != "Buy milk" || next.Completed || next.DueDate.Format("2006-01-02") != "2025-01-02" {
		t.Errorf("unexpected successor %+v", next)
	}
	if next.ParentTaskID == nil || *next.ParentTaskID != original.ID {
		t.Errorf("expected parent %s, got %v", original.ID, next.ParentTaskID)
	}

	// Completing again is a no-op.
	_, again, err := svc.CompleteTask(ctx, owner.ID, original.ID.String())
	if err != nil {
		t.Fatalf("complete again: %v", err)
	}
	if again != nil {
		t.Error("expected no second successor")
	}

	// Completing the successor keeps the chain anchored to the root.
	_, third, err := svc.CompleteTask(ctx, owner.ID, next.ID.String())
	if err != nil {
		t.Fatalf("complete successor: %v", err)
	}
	if *third.ParentTaskID != original.ID {
		t.Errorf("expected root anchor %s, got %s", original.ID, *third.ParentTaskID)
	}

	all, err := svc.ListTasks(ctx, owner.ID, repository.StatusAll)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 tasks, got %d", len(all))
	}
}

func TestConcurrentCompletionCreatesOneSuccessor(t *testing.T) {
	svc, owner := newTaskService(t)
	ctx := context.Background()

	due, err := service.ParseDueDate("2025-01-01")
	if err != nil {
		t.Fatalf("parse due date: %v", err)
	}
	task, err := svc.CreateTask(ctx, owner.ID, service.TaskInput{Title: "Feed the cat", RecurrenceRule: "daily", DueDate: due})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	const workers = 8
	var wg sync.WaitGroup
	successors := make(chan *model.Task, workers)
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			done, next, err := svc.CompleteTask(ctx, owner.ID, task.ID.String())
			if err != nil {
				errs <- err
				return
			}
			if !done.Completed {
				errs <- errors.New("returned task is not completed")
				return
			}
			if next != nil {
				successors <- next
			}
		}()
	}
	wg.Wait()
	close(successors)
	close(errs)

	for err := range errs {
		t.Errorf("complete task: %v", err)
	}
	if n := len(successors); n != 1 {
		t.Fatalf("expected exactly 1 successor, got %d", n)
	}
	pending, err := svc.ListTasks(ctx, owner.ID, repository.StatusPending)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 1 || *pending[0].ParentTaskID != task.ID {
		t.Fatalf("expected one pending successor of %s, got %+v", task.ID, pending)
	}
}

func TestCompleteNonRecurringTaskHasNoSuccessor(t *testing.T) {
	svc, owner := newTaskService(t)
	ctx := context.Background()

	task, err := svc.CreateTask(ctx, owner.ID, service.TaskInput{Title: "One-off"})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	_, next, err := svc.CompleteTask(ctx, owner.ID, "one-off")
	if err != nil {
		t.Fatalf("complete by folded title: %v", err)
	}
	if next != nil {
		t.Fatalf("expected no successor for %s", task.ID)
	}
}

func TestUpdateTaskPatchesAndTriggersRecurrence(t *testing.T) {
	svc, owner := newTaskService(t)
	ctx := context.Background()

	task, err := svc.CreateTask(ctx, owner.ID, service.TaskInput{Title: "Report", RecurrenceRule: "weekly"})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	updated, next, err := svc.UpdateTask(ctx, owner.ID, "Report", service.TaskPatch{Priority: testsupport.Ptr("high")})
	if err != nil {
		t.Fatalf("update priority: %v", err)
	}
	if updated.Priority != model.PriorityHigh || updated.Title != "Report" || next != nil {
		t.Fatalf("unexpected update result %+v / %+v", updated, next)
	}

	if _, _, err := svc.UpdateTask(ctx, owner.ID, "Report", service.TaskPatch{Title: testsupport.Ptr("  ")}); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Fatalf("expected blank title update to fail, got %v", err)
	}
	if _, _, err := svc.UpdateTask(ctx, owner.ID, task.ID.String(), service.TaskPatch{ParentTaskID: &task.ID}); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Fatalf("expected self-parent to fail, got %v", err)
	}

	_, next, err = svc.UpdateTask(ctx, owner.ID, task.ID.String(), service.TaskPatch{Completed: testsupport.Ptr(true)})
	if err != nil {
		t.Fatalf("complete via update: %v", err)
	}
	if next == nil || next.RecurrenceRule != model.RecurrenceWeekly {
		t.Fatalf("expected weekly successor, got %+v", next)
	}
}

func TestDeleteByTitleRemovesFirstMatchOnly(t *testing.T) {
	svc, owner := newTaskService(t)
	ctx := context.Background()

	first, err := svc.CreateTask(ctx, owner.ID, service.TaskInput{Title: "Buy milk"})
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	second, err := svc.CreateTask(ctx, owner.ID, service.TaskInput{Title: "Buy milk"})
	if err != nil {
		t.Fatalf("create second: %v", err)
	}

	deleted, err := svc.DeleteTask(ctx, owner.ID, "Buy milk")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if deleted.ID != first.ID {
		t.Fatalf("expected first match %s deleted, got %s", first.ID, deleted.ID)
	}

	remaining, err := svc.ListTasks(ctx, owner.ID, repository.StatusAll)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(remaining) != 1 || remaining[0].ID != second.ID {
		t.Fatalf("expected only %s to remain, got %+v", second.ID, remaining)
	}

	if _, err := svc.DeleteTask(ctx, owner.ID, "Nothing here"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestParseDueDateAndTime(t *testing.T) {
	for _, raw := range []string{"2025-01-01", "2025-01-01T00:00:00Z", "2025-01-01 00:00:00", "2025-01-01T00:00:00"} {
		got, err := service.ParseDueDate(raw)
		if err != nil || got.Format("2006-01-02") != "2025-01-01" {
			t.Errorf("ParseDueDate(%q) = %v, %v", raw, got, err)
		}
	}
	if got, err := service.ParseDueDate("   "); got != nil || err != nil {
		t.Errorf("blank date should be absent, got %v, %v", got, err)
	}
	// An offset keeps the calendar date the client wrote.
	if got, err := service.ParseDueDate("2025-01-01T23:30:00-05:00"); err != nil || got.Format("2006-01-02 15:04") != "2025-01-01 23:30" {
		t.Errorf("ParseDueDate with offset = %v, %v", got, err)
	}
	if _, err := service.ParseDueDate("tomorrow"); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}

	for raw, want := range map[string]string{"9:05": "09:05", "17:30:00": "17:30", "2025-01-01T08:15:00Z": "08:15"} {
		got, err := service.ParseDueTime(raw)
		if err != nil || *got != want {
			t.Errorf("ParseDueTime(%q) = %v, %v; want %s", raw, got, err, want)
		}
	}
	if _, err := service.ParseDueTime("noon"); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}
