package models

import "time"

// Organization is the tenancy unit: projects belong to an organization
// and chat access is decided by organization membership.
type Organization struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description,omitempty"`
	CreatedBy   string    `db:"created_by" json:"created_by"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Member is an organization member as returned by the members listing.
type Member struct {
	UserID   string    `db:"user_id" json:"user_id"`
	Name     string    `db:"name" json:"name"`
	Email    string    `db:"email" json:"email"`
	JoinedAt time.Time `db:"joined_at" json:"joined_at"`
}
