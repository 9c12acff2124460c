package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"project-chat-service/internal/models"
)

var ErrProjectNotFound = errors.New("project not found")

// ProjectRepository abstracts project persistence. Get is the
// existence check the realtime path relies on for authorization.
type ProjectRepository interface {
	Create(ctx context.Context, orgID, name, description, creatorID string) (models.Project, error)
	Get(ctx context.Context, projectID string) (models.Project, error)
	ListForOrganization(ctx context.Context, orgID string) ([]models.Project, error)
	Delete(ctx context.Context, projectID string) error
}

// ProjectRepo is a sqlx implementation of ProjectRepository.
type ProjectRepo struct {
	db *sqlx.DB
}

// NewProjectRepo constructs a ProjectRepo.
func NewProjectRepo(db *sqlx.DB) *ProjectRepo {
	return &ProjectRepo{db: db}
}

const projectColumns = `id, organization_id, name, description, status, created_by, created_at, updated_at`

// Create stores a new active project.
func (r *ProjectRepo) Create(ctx context.Context, orgID, name, description, creatorID string) (models.Project, error) {
	var project models.Project
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO projects (id, organization_id, name, description, created_by)
         VALUES ($1, $2, $3, $4, $5)
         RETURNING `+projectColumns,
		uuid.NewString(), orgID, name, description, creatorID).StructScan(&project)
	return project, err
}

// Get fetches a project by id.
func (r *ProjectRepo) Get(ctx context.Context, projectID string) (models.Project, error) {
	var project models.Project
	err := r.db.GetContext(ctx, &project,
		`SELECT `+projectColumns+` FROM projects WHERE id=$1`, projectID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Project{}, ErrProjectNotFound
	}
	return project, err
}

// ListForOrganization returns the organization's projects, newest first.
func (r *ProjectRepo) ListForOrganization(ctx context.Context, orgID string) ([]models.Project, error) {
	var projects []models.Project
	err := r.db.SelectContext(ctx, &projects,
		`SELECT `+projectColumns+` FROM projects WHERE organization_id=$1 ORDER BY created_at DESC`, orgID)
	return projects, err
}

// Delete removes a project and, via cascade, its tasks and messages.
func (r *ProjectRepo) Delete(ctx context.Context, projectID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id=$1`, projectID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrProjectNotFound
	}
	return nil
}
