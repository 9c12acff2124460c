package models

import "time"

// MaxMessageLength is the cap on a chat message body, counted in runes
// after trimming.
const MaxMessageLength = 300

// Message is a persisted chat message. Rows are immutable: no edits,
// no deletes, ordered by created_at within a project.
type Message struct {
	ID         string    `db:"id" json:"id"`
	ProjectID  string    `db:"project_id" json:"project_id"`
	AuthorID   string    `db:"author_id" json:"author_id"`
	AuthorName string    `db:"author_name" json:"author_name"`
	Body       string    `db:"body" json:"body"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// MessageView is the canonical message shape shared by the realtime
// broadcast and the history endpoint. It carries the author's EXTERNAL
// identity so every client can decide "is this mine" with a plain
// equality check against its own session identity.
type MessageView struct {
	ID               string    `db:"id" json:"id"`
	ProjectID        string    `db:"project_id" json:"project_id"`
	AuthorName       string    `db:"author_name" json:"author_name"`
	AuthorExternalID string    `db:"author_external_id" json:"author_external_id"`
	Text             string    `db:"body" json:"text"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}

// View pairs a message with its author's external id.
func (m Message) View(authorExternalID string) MessageView {
	return MessageView{
		ID:               m.ID,
		ProjectID:        m.ProjectID,
		AuthorName:       m.AuthorName,
		AuthorExternalID: authorExternalID,
		Text:             m.Body,
		CreatedAt:        m.CreatedAt,
	}
}
