package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"project-chat-service/internal/models"
	"project-chat-service/internal/repositories"
)

// historyPageSize bounds the one-time hydration fetch: the newest page
// of a room's messages, returned chronologically.
const historyPageSize = 30

// ChatHandler serves the non-realtime chat boundary: history reads.
type ChatHandler struct {
	users    repositories.UserRepository
	projects repositories.ProjectRepository
	orgs     repositories.OrganizationRepository
	messages repositories.MessageRepository
}

// NewChatHandler builds a ChatHandler.
func NewChatHandler(users repositories.UserRepository, projects repositories.ProjectRepository, orgs repositories.OrganizationRepository, messages repositories.MessageRepository) *ChatHandler {
	return &ChatHandler{users: users, projects: projects, orgs: orgs, messages: messages}
}

// GetProjectMessages returns the most recent messages for a project in
// chronological order, in the same shape as the realtime broadcast so
// clients classify history and live entries identically.
func (h *ChatHandler) GetProjectMessages(c *gin.Context) {
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
	if !requireMember(c, h.orgs, project.OrganizationID, user.ID) {
		return
	}

	msgs, err := h.messages.Recent(c.Request.Context(), projectID, historyPageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}

	// Recent returns newest-first; the client renders oldest-first.
	chronological := make([]models.MessageView, 0, len(msgs))
	for i := len(msgs) - 1; i >= 0; i-- {
		chronological = append(chronological, msgs[i])
	}

	c.JSON(http.StatusOK, gin.H{"messages": chronological})
}
