package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"project-chat-service/internal/repositories"
)

// OrganizationHandler manages organization endpoints.
type OrganizationHandler struct {
	users repositories.UserRepository
	orgs  repositories.OrganizationRepository
}

// NewOrganizationHandler builds an OrganizationHandler.
func NewOrganizationHandler(users repositories.UserRepository, orgs repositories.OrganizationRepository) *OrganizationHandler {
	return &OrganizationHandler{users: users, orgs: orgs}
}

// Create stores an organization with the caller as first member.
func (h *OrganizationHandler) Create(c *gin.Context) {
	var req struct {
		Name        string `json:"name" binding:"required"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, ok := resolveUser(c, h.users)
	if !ok {
		return
	}

	org, err := h.orgs.Create(c.Request.Context(), req.Name, req.Description, user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create organization"})
		return
	}

	c.JSON(http.StatusCreated, org)
}

// List returns the caller's organizations.
func (h *OrganizationHandler) List(c *gin.Context) {
	user, ok := resolveUser(c, h.users)
	if !ok {
		return
	}

	orgs, err := h.orgs.ListForUser(c.Request.Context(), user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load organizations"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"organizations": orgs})
}

// Members lists an organization's members, visible to members only.
func (h *OrganizationHandler) Members(c *gin.Context) {
	orgID := c.Param("organization_id")

	user, ok := resolveUser(c, h.users)
	if !ok {
		return
	}

	if _, err := h.orgs.Get(c.Request.Context(), orgID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrOrganizationNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "organization not found"})
		return
	}
	if !requireMember(c, h.orgs, orgID, user.ID) {
		return
	}

	members, err := h.orgs.Members(c.Request.Context(), orgID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load members"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"members": members})
}

// Leave removes the caller from the organization.
func (h *OrganizationHandler) Leave(c *gin.Context) {
	orgID := c.Param("organization_id")

	user, ok := resolveUser(c, h.users)
	if !ok {
		return
	}
	if !requireMember(c, h.orgs, orgID, user.ID) {
		return
	}

	if err := h.orgs.RemoveMember(c.Request.Context(), orgID, user.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not leave organization"})
		return
	}

	c.Status(http.StatusNoContent)
}
