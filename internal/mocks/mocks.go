package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"project-chat-service/internal/models"
	"project-chat-service/internal/repositories"
)

type UserRepositoryMock struct {
	mock.Mock
}

func (m *UserRepositoryMock) Resolve(ctx context.Context, externalID, email, name string) (models.User, error) {
	args := m.Called(ctx, externalID, email, name)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) GetByExternalID(ctx context.Context, externalID string) (models.User, error) {
	args := m.Called(ctx, externalID)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) GetByID(ctx context.Context, userID string) (models.User, error) {
	args := m.Called(ctx, userID)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

type OrganizationRepositoryMock struct {
	mock.Mock
}

func (m *OrganizationRepositoryMock) Create(ctx context.Context, name, description, creatorID string) (models.Organization, error) {
	args := m.Called(ctx, name, description, creatorID)
	var org models.Organization
	if val := args.Get(0); val != nil {
		org = val.(models.Organization)
	}
	return org, args.Error(1)
}

func (m *OrganizationRepositoryMock) Get(ctx context.Context, orgID string) (models.Organization, error) {
	args := m.Called(ctx, orgID)
	var org models.Organization
	if val := args.Get(0); val != nil {
		org = val.(models.Organization)
	}
	return org, args.Error(1)
}

func (m *OrganizationRepositoryMock) ListForUser(ctx context.Context, userID string) ([]models.Organization, error) {
	args := m.Called(ctx, userID)
	var orgs []models.Organization
	if val := args.Get(0); val != nil {
		orgs = val.([]models.Organization)
	}
	return orgs, args.Error(1)
}

func (m *OrganizationRepositoryMock) IsMember(ctx context.Context, orgID, userID string) (bool, error) {
	args := m.Called(ctx, orgID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *OrganizationRepositoryMock) AddMember(ctx context.Context, orgID, userID string) error {
	args := m.Called(ctx, orgID, userID)
	return args.Error(0)
}

func (m *OrganizationRepositoryMock) RemoveMember(ctx context.Context, orgID, userID string) error {
	args := m.Called(ctx, orgID, userID)
	return args.Error(0)
}

func (m *OrganizationRepositoryMock) Members(ctx context.Context, orgID string) ([]models.Member, error) {
	args := m.Called(ctx, orgID)
	var members []models.Member
	if val := args.Get(0); val != nil {
		members = val.([]models.Member)
	}
	return members, args.Error(1)
}

type ProjectRepositoryMock struct {
	mock.Mock
}

func (m *ProjectRepositoryMock) Create(ctx context.Context, orgID, name, description, creatorID string) (models.Project, error) {
	args := m.Called(ctx, orgID, name, description, creatorID)
	var project models.Project
	if val := args.Get(0); val != nil {
		project = val.(models.Project)
	}
	return project, args.Error(1)
}

func (m *ProjectRepositoryMock) Get(ctx context.Context, projectID string) (models.Project, error) {
	args := m.Called(ctx, projectID)
	var project models.Project
	if val := args.Get(0); val != nil {
		project = val.(models.Project)
	}
	return project, args.Error(1)
}

func (m *ProjectRepositoryMock) ListForOrganization(ctx context.Context, orgID string) ([]models.Project, error) {
	args := m.Called(ctx, orgID)
	var projects []models.Project
	if val := args.Get(0); val != nil {
		projects = val.([]models.Project)
	}
	return projects, args.Error(1)
}

func (m *ProjectRepositoryMock) Delete(ctx context.Context, projectID string) error {
	args := m.Called(ctx, projectID)
	return args.Error(0)
}

type TaskRepositoryMock struct {
	mock.Mock
}

func (m *TaskRepositoryMock) Create(ctx context.Context, projectID, title, description, creatorID string) (models.Task, error) {
	args := m.Called(ctx, projectID, title, description, creatorID)
	var task models.Task
	if val := args.Get(0); val != nil {
		task = val.(models.Task)
	}
	return task, args.Error(1)
}

func (m *TaskRepositoryMock) Get(ctx context.Context, taskID string) (models.Task, error) {
	args := m.Called(ctx, taskID)
	var task models.Task
	if val := args.Get(0); val != nil {
		task = val.(models.Task)
	}
	return task, args.Error(1)
}

func (m *TaskRepositoryMock) ListForProject(ctx context.Context, projectID string) ([]models.Task, error) {
	args := m.Called(ctx, projectID)
	var tasks []models.Task
	if val := args.Get(0); val != nil {
		tasks = val.([]models.Task)
	}
	return tasks, args.Error(1)
}

func (m *TaskRepositoryMock) Update(ctx context.Context, taskID string, update repositories.TaskUpdate) (models.Task, error) {
	args := m.Called(ctx, taskID, update)
	var task models.Task
	if val := args.Get(0); val != nil {
		task = val.(models.Task)
	}
	return task, args.Error(1)
}

func (m *TaskRepositoryMock) Delete(ctx context.Context, taskID string) error {
	args := m.Called(ctx, taskID)
	return args.Error(0)
}

func (m *TaskRepositoryMock) CountOpenForUser(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) Append(ctx context.Context, projectID, authorID, authorName, body string) (models.Message, error) {
	args := m.Called(ctx, projectID, authorID, authorName, body)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) Recent(ctx context.Context, projectID string, limit int) ([]models.MessageView, error) {
	args := m.Called(ctx, projectID, limit)
	var views []models.MessageView
	if val := args.Get(0); val != nil {
		views = val.([]models.MessageView)
	}
	return views, args.Error(1)
}
