package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"project-chat-service/internal/repositories"
)

// DashboardHandler aggregates counts for the landing view.
type DashboardHandler struct {
	users    repositories.UserRepository
	orgs     repositories.OrganizationRepository
	projects repositories.ProjectRepository
	tasks    repositories.TaskRepository
}

func NewDashboardHandler(users repositories.UserRepository, orgs repositories.OrganizationRepository, projects repositories.ProjectRepository, tasks repositories.TaskRepository) *DashboardHandler {
	return &DashboardHandler{users: users, orgs: orgs, projects: projects, tasks: tasks}
}

// Summary returns the caller's organization count, project count across
// those organizations, and open tasks assigned to them.
func (h *DashboardHandler) Summary(c *gin.Context) {
	user, ok := resolveUser(c, h.users)
	if !ok {
		return
	}

	orgs, err := h.orgs.ListForUser(c.Request.Context(), user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load organizations"})
		return
	}

	projectCount := 0
	for _, org := range orgs {
		projects, err := h.projects.ListForOrganization(c.Request.Context(), org.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load projects"})
			return
		}
		projectCount += len(projects)
	}

	openTasks, err := h.tasks.CountOpenForUser(c.Request.Context(), user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count tasks"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"organizations": len(orgs),
		"projects":      projectCount,
		"open_tasks":    openTasks,
	})
}
