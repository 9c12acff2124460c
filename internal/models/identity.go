package models

// Identity is the externally-verified subject attached to a request or
// a realtime connection: the opaque provider id plus whatever profile
// fields the provider forwarded. Email and Name may be empty.
type Identity struct {
	ExternalID string
	Email      string
	Name       string
}
