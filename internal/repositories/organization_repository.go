package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"project-chat-service/internal/models"
)

var ErrOrganizationNotFound = errors.New("organization not found")

// OrganizationRepository is the membership authority plus the basic
// organization surface. IsMember is the single answer to "may this
// user act within this organization" used by both the CRUD and the
// realtime paths.
type OrganizationRepository interface {
	Create(ctx context.Context, name, description, creatorID string) (models.Organization, error)
	Get(ctx context.Context, orgID string) (models.Organization, error)
	ListForUser(ctx context.Context, userID string) ([]models.Organization, error)
	IsMember(ctx context.Context, orgID, userID string) (bool, error)
	AddMember(ctx context.Context, orgID, userID string) error
	RemoveMember(ctx context.Context, orgID, userID string) error
	Members(ctx context.Context, orgID string) ([]models.Member, error)
}

// OrganizationRepo is a sqlx implementation of OrganizationRepository.
type OrganizationRepo struct {
	db *sqlx.DB
}

// NewOrganizationRepo constructs an OrganizationRepo.
func NewOrganizationRepo(db *sqlx.DB) *OrganizationRepo {
	return &OrganizationRepo{db: db}
}

// Create stores an organization and adds the creator as its first member.
func (r *OrganizationRepo) Create(ctx context.Context, name, description, creatorID string) (models.Organization, error) {
	var org models.Organization
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO organizations (id, name, description, created_by) VALUES ($1, $2, $3, $4)
         RETURNING id, name, description, created_by, created_at`,
		uuid.NewString(), name, description, creatorID).StructScan(&org)
	if err != nil {
		return models.Organization{}, err
	}
	if err := r.AddMember(ctx, org.ID, creatorID); err != nil {
		return models.Organization{}, err
	}
	return org, nil
}

// Get fetches an organization by id.
func (r *OrganizationRepo) Get(ctx context.Context, orgID string) (models.Organization, error) {
	var org models.Organization
	err := r.db.GetContext(ctx, &org,
		`SELECT id, name, description, created_by, created_at FROM organizations WHERE id=$1`, orgID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Organization{}, ErrOrganizationNotFound
	}
	return org, err
}

// ListForUser returns the organizations the user belongs to.
func (r *OrganizationRepo) ListForUser(ctx context.Context, userID string) ([]models.Organization, error) {
	var orgs []models.Organization
	err := r.db.SelectContext(ctx, &orgs,
		`SELECT o.id, o.name, o.description, o.created_by, o.created_at
         FROM organizations o
         JOIN organization_members om ON om.organization_id = o.id
         WHERE om.user_id=$1
         ORDER BY o.created_at DESC`, userID)
	return orgs, err
}

// IsMember checks whether a user belongs to the organization.
func (r *OrganizationRepo) IsMember(ctx context.Context, orgID, userID string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM organization_members WHERE organization_id=$1 AND user_id=$2)`,
		orgID, userID)
	return exists, err
}

// AddMember adds a user to the organization. Idempotent.
func (r *OrganizationRepo) AddMember(ctx context.Context, orgID, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO organization_members (organization_id, user_id) VALUES ($1, $2)
         ON CONFLICT (organization_id, user_id) DO NOTHING`, orgID, userID)
	return err
}

// RemoveMember removes a user from the organization.
func (r *OrganizationRepo) RemoveMember(ctx context.Context, orgID, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM organization_members WHERE organization_id=$1 AND user_id=$2`, orgID, userID)
	return err
}

// Members lists the organization's members with profile fields.
func (r *OrganizationRepo) Members(ctx context.Context, orgID string) ([]models.Member, error) {
	var members []models.Member
	err := r.db.SelectContext(ctx, &members,
		`SELECT u.id AS user_id, u.name, u.email, om.joined_at
         FROM organization_members om
         JOIN users u ON u.id = om.user_id
         WHERE om.organization_id=$1
         ORDER BY om.joined_at ASC`, orgID)
	return members, err
}
