package ws

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"unicode/utf8"

	"project-chat-service/internal/models"
	"project-chat-service/internal/observability"
	"project-chat-service/internal/repositories"
)

var (
	ErrEmptyMessage   = errors.New("message is empty")
	ErrMessageTooLong = fmt.Errorf("message exceeds %d characters", models.MaxMessageLength)
	ErrIdentity       = errors.New("unresolvable sender identity")
	ErrNotMember      = errors.New("not a member of the project's organization")
)

// Engine validates, authorizes, persists and fans out chat messages.
// Join and SendMessage both enforce organization membership on the
// realtime path; the registry only ever sees authorized subscribers.
type Engine struct {
	registry Registry
	users    repositories.UserRepository
	projects repositories.ProjectRepository
	orgs     repositories.OrganizationRepository
	messages repositories.MessageRepository

	mu        sync.Mutex
	roomLocks map[string]*sync.Mutex
}

// NewEngine constructs an Engine over the given registry and stores.
func NewEngine(registry Registry, users repositories.UserRepository, projects repositories.ProjectRepository, orgs repositories.OrganizationRepository, messages repositories.MessageRepository) *Engine {
	return &Engine{
		registry:  registry,
		users:     users,
		projects:  projects,
		orgs:      orgs,
		messages:  messages,
		roomLocks: make(map[string]*sync.Mutex),
	}
}

// Join subscribes the connection to a project room after verifying the
// subscriber's user belongs to the project's organization.
func (e *Engine) Join(ctx context.Context, sub Subscriber, projectID string) error {
	if _, err := e.authorize(ctx, sub.Identity(), projectID); err != nil {
		return err
	}
	e.registry.Join(projectID, sub)
	return nil
}

// Leave unsubscribes the connection from a project room. Safe to call
// for rooms the connection never joined.
func (e *Engine) Leave(sub Subscriber, projectID string) {
	e.registry.Leave(projectID, sub)
}

// Disconnect removes the connection from every room. Invoked by the
// transport on close for all transports.
func (e *Engine) Disconnect(sub Subscriber) {
	e.registry.LeaveAll(sub)
}

// SendMessage validates and persists a message, then broadcasts the
// canonical result to every current subscriber of the project,
// including the sender. The author is always the session identity; a
// frame claiming a different external id is rejected, never resolved.
// On any failure nothing is broadcast and the error is reported to the
// caller only.
func (e *Engine) SendMessage(ctx context.Context, sub Subscriber, projectID, text, externalID string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}
	if utf8.RuneCountInString(text) > models.MaxMessageLength {
		return ErrMessageTooLong
	}

	ident := sub.Identity()
	if externalID != "" && externalID != ident.ExternalID {
		return fmt.Errorf("%w: frame identity does not match session", ErrIdentity)
	}
	author, err := e.users.Resolve(ctx, ident.ExternalID, ident.Email, ident.Name)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIdentity, err)
	}

	project, err := e.projects.Get(ctx, projectID)
	if err != nil {
		return err
	}
	member, err := e.orgs.IsMember(ctx, project.OrganizationID, author.ID)
	if err != nil {
		return fmt.Errorf("membership check: %w", err)
	}
	if !member {
		return ErrNotMember
	}

	// Broadcast order must equal persistence-completion order within a
	// room, so persist+broadcast are serialized per project.
	unlock := e.lockRoom(projectID)
	defer unlock()

	msg, err := e.messages.Append(ctx, projectID, author.ID, author.Name, text)
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}

	view := msg.View(author.ExternalID)
	e.broadcast(projectID, Event{Type: EventNewMessage, Message: &view})
	observability.IncMessagePublished()
	return nil
}

func (e *Engine) authorize(ctx context.Context, ident models.Identity, projectID string) (models.User, error) {
	user, err := e.users.Resolve(ctx, ident.ExternalID, ident.Email, ident.Name)
	if err != nil {
		return models.User{}, fmt.Errorf("%w: %v", ErrIdentity, err)
	}
	project, err := e.projects.Get(ctx, projectID)
	if err != nil {
		return models.User{}, err
	}
	member, err := e.orgs.IsMember(ctx, project.OrganizationID, user.ID)
	if err != nil {
		return models.User{}, fmt.Errorf("membership check: %w", err)
	}
	if !member {
		return models.User{}, ErrNotMember
	}
	return user, nil
}

func (e *Engine) broadcast(projectID string, event Event) {
	for _, sub := range e.registry.SubscribersOf(projectID) {
		if err := sub.Deliver(event); err != nil {
			log.Printf("deliver to %s failed, dropping subscriber: %v", sub.ID(), err)
			e.registry.LeaveAll(sub)
		}
	}
}

func (e *Engine) lockRoom(projectID string) func() {
	e.mu.Lock()
	lock, ok := e.roomLocks[projectID]
	if !ok {
		lock = &sync.Mutex{}
		e.roomLocks[projectID] = lock
	}
	e.mu.Unlock()
	lock.Lock()
	return lock.Unlock
}
