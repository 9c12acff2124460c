package ws

import (
	"errors"

	"project-chat-service/internal/models"
	"project-chat-service/internal/repositories"
)

// Client-to-server event types.
const (
	EventJoinProject  = "join_project"
	EventLeaveProject = "leave_project"
	EventSendMessage  = "send_message"
)

// Server-to-client event types.
const (
	EventNewMessage   = "new_message"
	EventMessageError = "message_error"
)

// ClientFrame is a frame received from a client over the realtime
// transport.
type ClientFrame struct {
	Type             string `json:"type"`
	ProjectID        string `json:"project_id"`
	Text             string `json:"text,omitempty"`
	AuthorExternalID string `json:"author_external_id,omitempty"`
}

// Event is a frame delivered to clients. A new_message event carries
// the canonical message; a message_error event goes only to the
// connection whose request failed.
type Event struct {
	Type    string              `json:"type"`
	Message *models.MessageView `json:"message,omitempty"`
	Error   *EventError         `json:"error,omitempty"`
}

// EventError is the payload of a message_error event.
type EventError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Rejection error codes carried on message_error events.
const (
	CodeInvalidMessage = "invalid_message"
	CodeInvalidFrame   = "invalid_frame"
	CodeIdentity       = "identity"
	CodeNotFound       = "not_found"
	CodeForbidden      = "forbidden"
	CodePersistence    = "persistence"
)

// ErrorEvent maps an engine error onto the wire taxonomy. Persistence
// failures are deliberately reported with a generic message.
func ErrorEvent(err error) Event {
	code := CodePersistence
	message := "failed to process message"

	switch {
	case errors.Is(err, ErrEmptyMessage), errors.Is(err, ErrMessageTooLong):
		code = CodeInvalidMessage
		message = err.Error()
	case errors.Is(err, ErrIdentity):
		code = CodeIdentity
		message = "could not resolve sender identity"
	case errors.Is(err, repositories.ErrProjectNotFound):
		code = CodeNotFound
		message = "project not found"
	case errors.Is(err, ErrNotMember):
		code = CodeForbidden
		message = "not a member of the project's organization"
	}

	return Event{Type: EventMessageError, Error: &EventError{Code: code, Message: message}}
}

// ErrorCode extracts the rejection code for metrics labels.
func ErrorCode(err error) string {
	event := ErrorEvent(err)
	return event.Error.Code
}
