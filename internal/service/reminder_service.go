package service

import (
	"context"
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"todo-assistant/internal/model"
	"todo-assistant/internal/repository"
)

const (
	iconOnTrack = "🟢"
	iconDueSoon = "⏳"
	iconOverdue = "⚠️"
	dueSoonSpan = 48 * time.Hour
)

// ReminderService builds human-readable summaries of upcoming and overdue tasks.
type ReminderService struct {
	taskRepo *repository.TaskRepository
}

func NewReminderService(taskRepo *repository.TaskRepository) *ReminderService {
	return &ReminderService{taskRepo: taskRepo}
}

// DueSummary renders the owner's pending dated tasks as Telegram HTML. It
// returns an empty string when nothing is due.
func (s *ReminderService) DueSummary(ctx context.Context, ownerID uuid.UUID, now time.Time) (string, error) {
	tasks, err := s.taskRepo.ListReminders(ctx, ownerID)
	if err != nil {
		return "", err
	}
	if len(tasks) == 0 {
		return "", nil
	}

	sort.SliceStable(tasks, func(i, j int) bool {
		return Deadline(tasks[i], now).Before(Deadline(tasks[j], now))
	})

	var builder strings.Builder
	builder.WriteString("⏰ <b>Reminders</b>\n")
	builder.WriteString(fmt.Sprintf("🗓 %s\n\n", now.Format("2006-01-02")))
	for _, task := range tasks {
		builder.WriteString(formatReminder(task, now))
	}
	return strings.TrimSpace(builder.String()), nil
}

// Deadline combines a task's due date and due time. A date without a time
// means end of that day; a time without a date means today.
func Deadline(task model.Task, now time.Time) time.Time {
	loc := now.Location()
	year, month, day := now.Date()
	if task.DueDate != nil {
		year, month, day = task.DueDate.In(loc).Date()
	}
	hour, minute := 23, 59
	if task.DueTime != nil {
		if clock, err := time.Parse("15:04", *task.DueTime); err == nil {
			hour, minute = clock.Hour(), clock.Minute()
		}
	}
	return time.Date(year, month, day, hour, minute, 0, 0, loc)
}

func formatReminder(task model.Task, now time.Time) string {
	var sb strings.Builder

	deadline := Deadline(task, now)
	icon := iconOnTrack
	switch {
	case now.After(deadline):
		icon = iconOverdue
	case deadline.Sub(now) <= dueSoonSpan:
		icon = iconDueSoon
	}

	sb.WriteString(fmt.Sprintf("%s %s", icon, html.EscapeString(strings.TrimSpace(task.Title))))
	if task.Priority == model.PriorityHigh {
		sb.WriteString(" <b>(high)</b>")
	}

	when := deadline.Format("2006-01-02 15:04")
	if now.After(deadline) {
		sb.WriteString(fmt.Sprintf("\n   ⏰ due %s · <b>overdue</b>", when))
	} else {
		sb.WriteString(fmt.Sprintf("\n   ⏰ due %s", when))
	}

	if task.Description != nil && strings.TrimSpace(*task.Description) != "" {
		sb.WriteString(fmt.Sprintf("\n   📝 %s", html.EscapeString(strings.TrimSpace(*task.Description))))
	}

	sb.WriteByte('\n')
	return sb.String()
}
