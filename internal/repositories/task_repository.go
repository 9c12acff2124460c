package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"project-chat-service/internal/models"
)

var ErrTaskNotFound = errors.New("task not found")

// TaskUpdate carries the mutable task fields; nil means unchanged.
type TaskUpdate struct {
	Title       *string
	Description *string
	Status      *string
	AssigneeID  *string
}

// TaskRepository abstracts task persistence.
type TaskRepository interface {
	Create(ctx context.Context, projectID, title, description, creatorID string) (models.Task, error)
	Get(ctx context.Context, taskID string) (models.Task, error)
	ListForProject(ctx context.Context, projectID string) ([]models.Task, error)
	Update(ctx context.Context, taskID string, update TaskUpdate) (models.Task, error)
	Delete(ctx context.Context, taskID string) error
	CountOpenForUser(ctx context.Context, userID string) (int, error)
}

// TaskRepo is a sqlx implementation of TaskRepository.
type TaskRepo struct {
	db *sqlx.DB
}

// NewTaskRepo constructs a TaskRepo.
func NewTaskRepo(db *sqlx.DB) *TaskRepo {
	return &TaskRepo{db: db}
}

const taskColumns = `id, project_id, title, description, status, assignee_id, created_by, created_at, updated_at`

// Create stores a new task in the todo state.
func (r *TaskRepo) Create(ctx context.Context, projectID, title, description, creatorID string) (models.Task, error) {
	var task models.Task
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO tasks (id, project_id, title, description, created_by)
         VALUES ($1, $2, $3, $4, $5)
         RETURNING `+taskColumns,
		uuid.NewString(), projectID, title, description, creatorID).StructScan(&task)
	return task, err
}

// Get fetches a task by id.
func (r *TaskRepo) Get(ctx context.Context, taskID string) (models.Task, error) {
	var task models.Task
	err := r.db.GetContext(ctx, &task, `SELECT `+taskColumns+` FROM tasks WHERE id=$1`, taskID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Task{}, ErrTaskNotFound
	}
	return task, err
}

// ListForProject returns the project's tasks, oldest first.
func (r *TaskRepo) ListForProject(ctx context.Context, projectID string) ([]models.Task, error) {
	var tasks []models.Task
	err := r.db.SelectContext(ctx, &tasks,
		`SELECT `+taskColumns+` FROM tasks WHERE project_id=$1 ORDER BY created_at ASC`, projectID)
	return tasks, err
}

// Update applies the non-nil fields of update.
func (r *TaskRepo) Update(ctx context.Context, taskID string, update TaskUpdate) (models.Task, error) {
	task, err := r.Get(ctx, taskID)
	if err != nil {
		return models.Task{}, err
	}

	if update.Title != nil {
		task.Title = *update.Title
	}
	if update.Description != nil {
		task.Description = *update.Description
	}
	if update.Status != nil {
		task.Status = *update.Status
	}
	if update.AssigneeID != nil {
		// Empty string unassigns the task.
		if *update.AssigneeID == "" {
			task.AssigneeID = nil
		} else {
			task.AssigneeID = update.AssigneeID
		}
	}

	err = r.db.QueryRowxContext(ctx,
		`UPDATE tasks SET title=$1, description=$2, status=$3, assignee_id=$4, updated_at=NOW()
         WHERE id=$5 RETURNING `+taskColumns,
		task.Title, task.Description, task.Status, task.AssigneeID, taskID).StructScan(&task)
	return task, err
}

// Delete removes a task.
func (r *TaskRepo) Delete(ctx context.Context, taskID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id=$1`, taskID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// CountOpenForUser counts not-done tasks assigned to the user.
func (r *TaskRepo) CountOpenForUser(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM tasks WHERE assignee_id=$1 AND status <> 'done'`, userID)
	return count, err
}
