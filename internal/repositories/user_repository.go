package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"project-chat-service/internal/models"
)

var ErrUserNotFound = errors.New("user not found")

// UserRepository resolves external identities to internal user records.
type UserRepository interface {
	Resolve(ctx context.Context, externalID, email, name string) (models.User, error)
	GetByExternalID(ctx context.Context, externalID string) (models.User, error)
	GetByID(ctx context.Context, userID string) (models.User, error)
}

// UserRepo is a sqlx implementation of UserRepository.
type UserRepo struct {
	db *sqlx.DB
}

// NewUserRepo constructs a UserRepo.
func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db}
}

const userColumns = `id, external_id, name, email, created_at, updated_at`

// Resolve looks up the user for an external subject, creating one on
// first sight. Placeholder name/email are backfilled once real profile
// fields are observed. Idempotent.
func (r *UserRepo) Resolve(ctx context.Context, externalID, email, name string) (models.User, error) {
	if externalID == "" {
		return models.User{}, ErrUserNotFound
	}

	user, err := r.GetByExternalID(ctx, externalID)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			return models.User{}, err
		}
		return r.create(ctx, externalID, email, name)
	}

	return r.backfill(ctx, user, email, name)
}

func (r *UserRepo) create(ctx context.Context, externalID, email, name string) (models.User, error) {
	if email == "" {
		email = fmt.Sprintf("user_%s%s", externalID, models.PlaceholderEmailSuffix)
	}
	if name == "" {
		name = models.PlaceholderName
	}

	var user models.User
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO users (id, external_id, name, email) VALUES ($1, $2, $3, $4)
         ON CONFLICT (external_id) DO UPDATE SET external_id = EXCLUDED.external_id
         RETURNING `+userColumns,
		uuid.NewString(), externalID, name, email).StructScan(&user)
	return user, err
}

func (r *UserRepo) backfill(ctx context.Context, user models.User, email, name string) (models.User, error) {
	updated := false
	if email != "" && user.HasPlaceholderEmail() {
		user.Email = email
		updated = true
	}
	if name != "" && user.HasPlaceholderName() {
		user.Name = name
		updated = true
	}
	if !updated {
		return user, nil
	}

	err := r.db.QueryRowxContext(ctx,
		`UPDATE users SET name=$1, email=$2, updated_at=NOW() WHERE id=$3 RETURNING `+userColumns,
		user.Name, user.Email, user.ID).StructScan(&user)
	return user, err
}

// GetByExternalID fetches a user by external subject.
func (r *UserRepo) GetByExternalID(ctx context.Context, externalID string) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE external_id=$1`, externalID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

// GetByID fetches a user by internal id.
func (r *UserRepo) GetByID(ctx context.Context, userID string) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE id=$1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}
