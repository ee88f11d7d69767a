package repository

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"todo-assistant/internal/model"
)

// TaskStatus narrows a task listing by completion state.
type TaskStatus int

const (
	StatusAll TaskStatus = iota
	StatusPending
	StatusCompleted
)

// TaskRepository handles CRUD for tasks. Every query is scoped to an owner.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	return translate("create task", r.db.WithContext(ctx).Create(task).Error)
}

// Save writes every column of an existing task except completed, which only
// changes through SetCompleted.
func (r *TaskRepository) Save(ctx context.Context, task *model.Task) error {
	return translate("save task", r.db.WithContext(ctx).Select("*").Omit("completed").Save(task).Error)
}

// SetCompleted flips the completion flag only when it differs from completed
// and reports whether this call made the change. Concurrent callers racing on
// the same task see exactly one winner.
func (r *TaskRepository) SetCompleted(ctx context.Context, userID, taskID uuid.UUID, completed bool) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("user_id = ? AND id = ? AND completed = ?", userID, taskID, !completed).
		UpdateColumns(map[string]any{"completed": completed, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return false, translate("set task completion", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *TaskRepository) FindByID(ctx context.Context, userID, taskID uuid.UUID) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, taskID).First(&task).Error; err != nil {
		return nil, translate("find task", err)
	}
	return &task, nil
}

// FindByTitle returns the oldest task whose title matches exactly.
func (r *TaskRepository) FindByTitle(ctx context.Context, userID uuid.UUID, title string) (*model.Task, error) {
	var task model.Task
	if err := r.ordered(ctx).Where("user_id = ? AND title = ?", userID, title).First(&task).Error; err != nil {
		return nil, translate("find task by title", err)
	}
	return &task, nil
}

// FindByTitleFold is FindByTitle ignoring case. Folding happens in Go so that
// non-ASCII titles match the same way on SQLite, whose LOWER is ASCII-only.
func (r *TaskRepository) FindByTitleFold(ctx context.Context, userID uuid.UUID, title string) (*model.Task, error) {
	var candidates []model.Task
	if err := r.ordered(ctx).Select("id", "title").Where("user_id = ?", userID).Find(&candidates).Error; err != nil {
		return nil, translate("find task by title", err)
	}
	for _, candidate := range candidates {
		if strings.EqualFold(candidate.Title, title) {
			return r.FindByID(ctx, userID, candidate.ID)
		}
	}
	return nil, translate("find task by title", gorm.ErrRecordNotFound)
}

func (r *TaskRepository) List(ctx context.Context, userID uuid.UUID, status TaskStatus) ([]model.Task, error) {
	query := r.ordered(ctx).Where("user_id = ?", userID)
	switch status {
	case StatusPending:
		query = query.Where("completed = ?", false)
	case StatusCompleted:
		query = query.Where("completed = ?", true)
	}
	var tasks []model.Task
	if err := query.Find(&tasks).Error; err != nil {
		return nil, translate("list tasks", err)
	}
	return tasks, nil
}

// ListReminders returns pending tasks that carry a due date or a due time.
func (r *TaskRepository) ListReminders(ctx context.Context, userID uuid.UUID) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND completed = ? AND (due_date IS NOT NULL OR due_time IS NOT NULL)", userID, false).
		Order("due_date NULLS LAST, created_at ASC").
		Find(&tasks).Error; err != nil {
		return nil, translate("list reminders", err)
	}
	return tasks, nil
}

// Delete removes one task. Tasks pointing at it through parent_task_id are left untouched.
func (r *TaskRepository) Delete(ctx context.Context, userID, taskID uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, taskID).Delete(&model.Task{})
	if res.Error != nil {
		return translate("delete task", res.Error)
	}
	if res.RowsAffected == 0 {
		return translate("delete task", gorm.ErrRecordNotFound)
	}
	return nil
}

func (r *TaskRepository) ordered(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Order("created_at ASC").Order("id ASC")
}
