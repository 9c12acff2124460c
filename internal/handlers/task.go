package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"project-chat-service/internal/models"
	"project-chat-service/internal/repositories"
)

// TaskHandler manages task endpoints on a project board.
type TaskHandler struct {
	users    repositories.UserRepository
	orgs     repositories.OrganizationRepository
	projects repositories.ProjectRepository
	tasks    repositories.TaskRepository
}

// NewTaskHandler builds a TaskHandler.
func NewTaskHandler(users repositories.UserRepository, orgs repositories.OrganizationRepository, projects repositories.ProjectRepository, tasks repositories.TaskRepository) *TaskHandler {
	return &TaskHandler{users: users, orgs: orgs, projects: projects, tasks: tasks}
}

// List returns the project's tasks.
func (h *TaskHandler) List(c *gin.Context) {
	projectID, ok := h.authorizeProject(c)
	if !ok {
		return
	}

	tasks, err := h.tasks.ListForProject(c.Request.Context(), projectID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load tasks"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

// Create stores a new task on the project board.
func (h *TaskHandler) Create(c *gin.Context) {
	var req struct {
		Title       string `json:"title" binding:"required"`
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
	projectID, ok := h.authorizeProjectFor(c, user.ID)
	if !ok {
		return
	}

	task, err := h.tasks.Create(c.Request.Context(), projectID, req.Title, req.Description, user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create task"})
		return
	}

	c.JSON(http.StatusCreated, task)
}

// Update applies partial changes to a task.
func (h *TaskHandler) Update(c *gin.Context) {
	var req struct {
		Title       *string `json:"title"`
		Description *string `json:"description"`
		Status      *string `json:"status"`
		AssigneeID  *string `json:"assignee_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Status != nil && !models.ValidTaskStatus(*req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task status"})
		return
	}

	projectID, ok := h.authorizeProject(c)
	if !ok {
		return
	}

	taskID := c.Param("task_id")
	task, err := h.tasks.Get(c.Request.Context(), taskID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrTaskNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "task not found"})
		return
	}
	if task.ProjectID != projectID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "task does not belong to project"})
		return
	}

	updated, err := h.tasks.Update(c.Request.Context(), taskID, repositories.TaskUpdate{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		AssigneeID:  req.AssigneeID,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update task"})
		return
	}

	c.JSON(http.StatusOK, updated)
}

// Delete removes a task from the board.
func (h *TaskHandler) Delete(c *gin.Context) {
	projectID, ok := h.authorizeProject(c)
	if !ok {
		return
	}

	taskID := c.Param("task_id")
	task, err := h.tasks.Get(c.Request.Context(), taskID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrTaskNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "task not found"})
		return
	}
	if task.ProjectID != projectID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "task does not belong to project"})
		return
	}

	if err := h.tasks.Delete(c.Request.Context(), taskID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete task"})
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *TaskHandler) authorizeProject(c *gin.Context) (string, bool) {
	user, ok := resolveUser(c, h.users)
	if !ok {
		return "", false
	}
	return h.authorizeProjectFor(c, user.ID)
}

// authorizeProjectFor checks the route's project exists in the route's
// organization and the user is a member of that organization.
func (h *TaskHandler) authorizeProjectFor(c *gin.Context, userID string) (string, bool) {
	orgID := c.Param("organization_id")
	projectID := c.Param("project_id")

	project, err := h.projects.Get(c.Request.Context(), projectID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrProjectNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "project not found"})
		return "", false
	}
	if project.OrganizationID != orgID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "project does not belong to organization"})
		return "", false
	}
	if !requireMember(c, h.orgs, orgID, userID) {
		return "", false
	}
	return projectID, true
}
