package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"project-chat-service/internal/invitations"
	"project-chat-service/internal/repositories"
	"project-chat-service/internal/telemetry"
)

// InviteStore is the invitation token store consumed by the handler.
type InviteStore interface {
	Create(ctx context.Context, orgID, orgName, invitedBy string) (invitations.Invitation, error)
	Get(ctx context.Context, token string) (invitations.Invitation, error)
	Redeem(ctx context.Context, token string) (invitations.Invitation, error)
}

// InvitationHandler manages the invite generate/peek/accept flow.
type InvitationHandler struct {
	users   repositories.UserRepository
	orgs    repositories.OrganizationRepository
	invites InviteStore
	emitter *telemetry.AuditEmitter
}

// NewInvitationHandler builds an InvitationHandler.
func NewInvitationHandler(users repositories.UserRepository, orgs repositories.OrganizationRepository, invites InviteStore, emitter *telemetry.AuditEmitter) *InvitationHandler {
	return &InvitationHandler{users: users, orgs: orgs, invites: invites, emitter: emitter}
}

// Create issues an invitation token for an organization the caller
// belongs to.
func (h *InvitationHandler) Create(c *gin.Context) {
	var req struct {
		OrganizationID string `json:"organization_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, ok := resolveUser(c, h.users)
	if !ok {
		return
	}

	org, err := h.orgs.Get(c.Request.Context(), req.OrganizationID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrOrganizationNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "organization not found"})
		return
	}
	if !requireMember(c, h.orgs, org.ID, user.ID) {
		return
	}

	invite, err := h.invites.Create(c.Request.Context(), org.ID, org.Name, user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create invitation"})
		return
	}

	h.emitter.Emit(c.Request.Context(), "INFO", "invitation created", requestIDFromContext(c), "", user.ExternalID)
	c.JSON(http.StatusCreated, invite)
}

// Get peeks at an invitation without consuming it, so the invite page
// can show the organization before the user accepts.
func (h *InvitationHandler) Get(c *gin.Context) {
	invite, err := h.invites.Get(c.Request.Context(), c.Param("token"))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, invitations.ErrInvitationNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "invitation not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"organization_id":   invite.OrganizationID,
		"organization_name": invite.OrganizationName,
		"expires_at":        invite.ExpiresAt,
	})
}

// Accept redeems an invitation, adding the caller to the organization.
// Tokens are single-use; expired or consumed tokens 404.
func (h *InvitationHandler) Accept(c *gin.Context) {
	user, ok := resolveUser(c, h.users)
	if !ok {
		return
	}

	invite, err := h.invites.Redeem(c.Request.Context(), c.Param("token"))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, invitations.ErrInvitationNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "invitation not found"})
		return
	}

	if err := h.orgs.AddMember(c.Request.Context(), invite.OrganizationID, user.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not join organization"})
		return
	}

	h.emitter.Emit(c.Request.Context(), "INFO", "invitation accepted", requestIDFromContext(c), "", user.ExternalID)
	c.JSON(http.StatusOK, gin.H{"organization_id": invite.OrganizationID})
}
