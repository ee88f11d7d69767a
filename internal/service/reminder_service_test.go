package service_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"todo-assistant/internal/model"
	"todo-assistant/internal/repository"
	"todo-assistant/internal/service"
	"todo-assistant/internal/testsupport"
)

func TestDueSummaryOrdersAndMarksTasks(t *testing.T) {
	db := testsupport.NewDB(t)
	ctx := context.Background()
	repo := repository.NewTaskRepository(db)
	reminders := service.NewReminderService(repo)
	owner := testsupport.NewAccount(t, db, "owner@example.com")

	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	overdue := time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC)
	soon := time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC)
	later := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

	for _, task := range []*model.Task{
		{UserID: owner.ID, Title: "Later <b>", DueDate: &later, Priority: model.PriorityMedium, RecurrenceRule: model.RecurrenceNone},
		{UserID: owner.ID, Title: "Overdue", DueDate: &overdue, Priority: model.PriorityHigh, RecurrenceRule: model.RecurrenceNone},
		{UserID: owner.ID, Title: "Soon", DueDate: &soon, DueTime: testsupport.Ptr("09:00"), Priority: model.PriorityMedium, RecurrenceRule: model.RecurrenceNone},
		{UserID: owner.ID, Title: "Undated", Priority: model.PriorityMedium, RecurrenceRule: model.RecurrenceNone},
	} {
		if err := repo.Create(ctx, task); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	summary, err := reminders.DueSummary(ctx, owner.ID, now)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}

	iOverdue := strings.Index(summary, "⚠️ Overdue")
	iSoon := strings.Index(summary, "⏳ Soon")
	iLater := strings.Index(summary, "🟢 Later &lt;b&gt;")
	if iOverdue < 0 || iSoon < 0 || iLater < 0 {
		t.Fatalf("missing entries in summary:\n%s", summary)
	}
	if !(iOverdue < iSoon && iSoon < iLater) {
		t.Fatalf("expected deadline order, got:\n%s", summary)
	}
	if strings.Contains(summary, "Undated") {
		t.Fatalf("undated task must not be listed:\n%s", summary)
	}
	if !strings.Contains(summary, "2025-06-11 09:00") {
		t.Fatalf("expected due time in summary:\n%s", summary)
	}

	empty := testsupport.NewAccount(t, db, "empty@example.com")
	if got, err := reminders.DueSummary(ctx, empty.ID, now); err != nil || got != "" {
		t.Fatalf("expected empty summary, got %q, %v", got, err)
	}
}
