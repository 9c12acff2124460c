package models

import (
	"strings"
	"time"
)

// PlaceholderName is assigned when the identity provider did not supply
// a display name yet; it is backfilled on a later request that does.
const PlaceholderName = "User"

// PlaceholderEmailSuffix marks emails synthesized for users created
// before their real profile was observed.
const PlaceholderEmailSuffix = "@placeholder.local"

// User is the internal identity record for an externally-authenticated
// subject. Created lazily on first sight, never deleted.
type User struct {
	ID         string    `db:"id" json:"id"`
	ExternalID string    `db:"external_id" json:"external_id"`
	Name       string    `db:"name" json:"name"`
	Email      string    `db:"email" json:"email"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// HasPlaceholderName reports whether the display name is still the
// creation-time placeholder.
func (u User) HasPlaceholderName() bool {
	return u.Name == PlaceholderName
}

// HasPlaceholderEmail reports whether the email is still synthetic.
func (u User) HasPlaceholderEmail() bool {
	return strings.HasSuffix(u.Email, PlaceholderEmailSuffix)
}
