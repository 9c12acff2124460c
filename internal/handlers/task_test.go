package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"project-chat-service/internal/middleware"
	"project-chat-service/internal/mocks"
	"project-chat-service/internal/models"
	"project-chat-service/internal/repositories"
)

type taskFixture struct {
	users    *mocks.UserRepositoryMock
	orgs     *mocks.OrganizationRepositoryMock
	projects *mocks.ProjectRepositoryMock
	tasks    *mocks.TaskRepositoryMock
	router   *gin.Engine
}

func setupTaskRouter(t *testing.T) taskFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := taskFixture{
		users:    new(mocks.UserRepositoryMock),
		orgs:     new(mocks.OrganizationRepositoryMock),
		projects: new(mocks.ProjectRepositoryMock),
		tasks:    new(mocks.TaskRepositoryMock),
	}
	handler := NewTaskHandler(f.users, f.orgs, f.projects, f.tasks)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		middleware.SetIdentity(c, models.Identity{ExternalID: "ext-1", Email: "alice@example.com", Name: "Alice"})
		c.Next()
	})
	r.GET("/organizations/:organization_id/projects/:project_id/tasks", handler.List)
	r.POST("/organizations/:organization_id/projects/:project_id/tasks", handler.Create)
	r.PATCH("/organizations/:organization_id/projects/:project_id/tasks/:task_id", handler.Update)
	r.DELETE("/organizations/:organization_id/projects/:project_id/tasks/:task_id", handler.Delete)
	f.router = r
	return f
}

func (f taskFixture) allowProject() {
	f.users.On("Resolve", mock.Anything, "ext-1", mock.Anything, mock.Anything).
		Return(models.User{ID: "u1"}, nil).Once()
	f.projects.On("Get", mock.Anything, "p1").
		Return(models.Project{ID: "p1", OrganizationID: "o1"}, nil).Once()
	f.orgs.On("IsMember", mock.Anything, "o1", "u1").Return(true, nil).Once()
}

func TestUpdateTaskAssigneeRoundTrips(t *testing.T) {
	f := setupTaskRouter(t)
	f.allowProject()

	assignee := "u2"
	f.tasks.On("Get", mock.Anything, "t1").
		Return(models.Task{ID: "t1", ProjectID: "p1", Title: "ship it", Status: models.TaskTodo}, nil).Once()
	f.tasks.On("Update", mock.Anything, "t1", repositories.TaskUpdate{AssigneeID: &assignee}).
		Return(models.Task{ID: "t1", ProjectID: "p1", Title: "ship it", Status: models.TaskTodo, AssigneeID: &assignee}, nil).Once()

	body := bytes.NewBufferString(`{"assignee_id":"u2"}`)
	req := httptest.NewRequest(http.MethodPatch, "/organizations/o1/projects/p1/tasks/t1", body)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		AssigneeID *string `json:"assignee_id"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotNil(t, resp.AssigneeID)
	assert.Equal(t, "u2", *resp.AssigneeID)
	f.tasks.AssertExpectations(t)
}

func TestUpdateTaskRejectsUnknownStatus(t *testing.T) {
	f := setupTaskRouter(t)

	body := bytes.NewBufferString(`{"status":"archived"}`)
	req := httptest.NewRequest(http.MethodPatch, "/organizations/o1/projects/p1/tasks/t1", body)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	f.tasks.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestListTasksOmitsUnassigned(t *testing.T) {
	f := setupTaskRouter(t)
	f.allowProject()

	assignee := "u2"
	f.tasks.On("ListForProject", mock.Anything, "p1").
		Return([]models.Task{
			{ID: "t1", ProjectID: "p1", Title: "assigned", AssigneeID: &assignee},
			{ID: "t2", ProjectID: "p1", Title: "free"},
		}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/organizations/o1/projects/p1/tasks", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Tasks []map[string]any `json:"tasks"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Tasks, 2)
	assert.Equal(t, "u2", resp.Tasks[0]["assignee_id"])
	_, present := resp.Tasks[1]["assignee_id"]
	assert.False(t, present)
}

func TestUpdateTaskWrongProject(t *testing.T) {
	f := setupTaskRouter(t)
	f.allowProject()

	f.tasks.On("Get", mock.Anything, "t1").
		Return(models.Task{ID: "t1", ProjectID: "p-other"}, nil).Once()

	body := bytes.NewBufferString(`{"title":"renamed"}`)
	req := httptest.NewRequest(http.MethodPatch, "/organizations/o1/projects/p1/tasks/t1", body)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	f.tasks.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}
