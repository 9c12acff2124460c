// Package invitations implements the organization invite flow: a
// member generates an opaque token, the token is held in Redis with a
// TTL, and redeeming it adds the accepting user to the organization.
package invitations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrInvitationNotFound = errors.New("invitation not found or expired")

// Invitation is the stored invite payload.
type Invitation struct {
	Token            string    `json:"token"`
	OrganizationID   string    `json:"organization_id"`
	OrganizationName string    `json:"organization_name"`
	InvitedBy        string    `json:"invited_by"`
	CreatedAt        time.Time `json:"created_at"`
	ExpiresAt        time.Time `json:"expires_at"`
}

// Store keeps invitations in Redis, keyed by token, expiring with the
// TTL. Tokens are single-use: Redeem deletes atomically.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore connects to Redis and verifies the connection.
func NewStore(redisURL string, ttl time.Duration) (*Store, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &Store{client: client, ttl: ttl}, nil
}

// NewStoreWithClient builds a store from an existing client. Used by
// tests with miniredis.
func NewStoreWithClient(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

func (s *Store) key(token string) string {
	return "invite:" + token
}

// Create issues a new invitation token for an organization.
func (s *Store) Create(ctx context.Context, orgID, orgName, invitedBy string) (Invitation, error) {
	now := time.Now().UTC()
	invite := Invitation{
		Token:            uuid.NewString(),
		OrganizationID:   orgID,
		OrganizationName: orgName,
		InvitedBy:        invitedBy,
		CreatedAt:        now,
		ExpiresAt:        now.Add(s.ttl),
	}

	payload, err := json.Marshal(invite)
	if err != nil {
		return Invitation{}, fmt.Errorf("marshal invitation: %w", err)
	}

	if err := s.client.Set(ctx, s.key(invite.Token), payload, s.ttl).Err(); err != nil {
		return Invitation{}, fmt.Errorf("store invitation: %w", err)
	}
	return invite, nil
}

// Get returns an invitation without consuming it.
func (s *Store) Get(ctx context.Context, token string) (Invitation, error) {
	payload, err := s.client.Get(ctx, s.key(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Invitation{}, ErrInvitationNotFound
	}
	if err != nil {
		return Invitation{}, fmt.Errorf("load invitation: %w", err)
	}

	var invite Invitation
	if err := json.Unmarshal(payload, &invite); err != nil {
		return Invitation{}, fmt.Errorf("decode invitation: %w", err)
	}
	return invite, nil
}

// Redeem consumes an invitation: it is deleted in the same call so a
// token accepts exactly once.
func (s *Store) Redeem(ctx context.Context, token string) (Invitation, error) {
	payload, err := s.client.GetDel(ctx, s.key(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Invitation{}, ErrInvitationNotFound
	}
	if err != nil {
		return Invitation{}, fmt.Errorf("redeem invitation: %w", err)
	}

	var invite Invitation
	if err := json.Unmarshal(payload, &invite); err != nil {
		return Invitation{}, fmt.Errorf("decode invitation: %w", err)
	}
	return invite, nil
}

// Close releases the Redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
