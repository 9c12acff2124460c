package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"project-chat-service/internal/models"
)

// MessageRepository is the append-only message store. Rows are never
// updated or deleted; retention is unbounded.
type MessageRepository interface {
	Append(ctx context.Context, projectID, authorID, authorName, body string) (models.Message, error)
	Recent(ctx context.Context, projectID string, limit int) ([]models.MessageView, error)
}

// MessageRepo is a sqlx implementation of MessageRepository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs a MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// Append stores a message with a server-assigned id and timestamp. The
// author's display name is denormalized onto the row so later profile
// changes do not rewrite history.
func (r *MessageRepo) Append(ctx context.Context, projectID, authorID, authorName, body string) (models.Message, error) {
	var msg models.Message
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO messages (id, project_id, author_id, author_name, body)
         VALUES ($1, $2, $3, $4, $5)
         RETURNING id, project_id, author_id, author_name, body, created_at`,
		uuid.NewString(), projectID, authorID, authorName, body).StructScan(&msg)
	return msg, err
}

// Recent returns the newest limit messages for a project, newest
// first, each joined with the author's external id so history entries
// carry the same identity key as the realtime broadcast.
func (r *MessageRepo) Recent(ctx context.Context, projectID string, limit int) ([]models.MessageView, error) {
	var msgs []models.MessageView
	err := r.db.SelectContext(ctx, &msgs,
		`SELECT m.id, m.project_id, m.author_name, u.external_id AS author_external_id, m.body, m.created_at
         FROM messages m
         JOIN users u ON u.id = m.author_id
         WHERE m.project_id=$1
         ORDER BY m.created_at DESC, m.id DESC
         LIMIT $2`, projectID, limit)
	return msgs, err
}
