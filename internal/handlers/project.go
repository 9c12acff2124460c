package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"project-chat-service/internal/repositories"
)

// ProjectHandler manages project endpoints within an organization.
type ProjectHandler struct {
	users    repositories.UserRepository
	orgs     repositories.OrganizationRepository
	projects repositories.ProjectRepository
}

// NewProjectHandler builds a ProjectHandler.
func NewProjectHandler(users repositories.UserRepository, orgs repositories.OrganizationRepository, projects repositories.ProjectRepository) *ProjectHandler {
	return &ProjectHandler{users: users, orgs: orgs, projects: projects}
}

// List returns the organization's projects, members only.
func (h *ProjectHandler) List(c *gin.Context) {
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

	projects, err := h.projects.ListForOrganization(c.Request.Context(), orgID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load projects"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"projects": projects})
}

// Create stores a new project in the organization.
func (h *ProjectHandler) Create(c *gin.Context) {
	orgID := c.Param("organization_id")

	var req struct {
		Name        string `json:"name" binding:"required"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "project name is required"})
		return
	}

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

	project, err := h.projects.Create(c.Request.Context(), orgID, name, strings.TrimSpace(req.Description), user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create project"})
		return
	}

	c.JSON(http.StatusCreated, project)
}

// Delete removes a project. Only the creator may delete it.
func (h *ProjectHandler) Delete(c *gin.Context) {
	orgID := c.Param("organization_id")
	projectID := c.Param("project_id")

	user, ok := resolveUser(c, h.users)
	if !ok {
		return
	}

	project, err := h.projects.Get(c.Request.Context(), projectID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrProjectNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "project not found"})
		return
	}
	if project.OrganizationID != orgID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "project does not belong to organization"})
		return
	}
	if project.CreatedBy != user.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "only the project creator can delete the project"})
		return
	}

	if err := h.projects.Delete(c.Request.Context(), projectID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete project"})
		return
	}

	c.Status(http.StatusNoContent)
}
