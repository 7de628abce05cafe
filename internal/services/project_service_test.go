package services_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"showcase/internal/logger"
	"showcase/internal/models"
	"showcase/internal/repositories"
	"showcase/internal/services"
	"showcase/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	alice = &models.Identity{ID: "alice-id", Email: "alice@example.com", Name: "Alice"}
	bob   = &models.Identity{ID: "bob-id", Email: "bob@example.com", Name: "Bob"}
)

func newProjectService(repo *MockProjectRepository, store *MockStore, pub *MockPublisher) *services.ProjectService {
	if pub == nil {
		return services.NewProjectService(repo, store, nil, logger.NewNop())
	}
	return services.NewProjectService(repo, store, pub, logger.NewNop())
}

func TestProjectService_ListProjects(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockProjectRepository)
	service := newProjectService(mockRepo, new(MockStore), nil)

	all := []models.Project{
		{ID: "1", Name: "Portfolio", OwnerID: alice.ID},
		{ID: "2", Name: "Blog", OwnerID: bob.ID},
	}
	mine := []models.Project{all[0]}

	mockRepo.On("List", mock.Anything, repositories.ProjectFilter{}).Return(all, nil).Once()
	mockRepo.On("List", mock.Anything, repositories.ProjectFilter{OwnerID: alice.ID}).Return(mine, nil).Once()
	mockRepo.On("List", mock.Anything, repositories.ProjectFilter{Query: "port"}).Return(mine, nil).Once()

	projects, err := service.ListProjects(ctx, nil, "")
	require.NoError(t, err)
	assert.Len(t, projects, 2)

	projects, err = service.ListProjects(ctx, alice, "")
	require.NoError(t, err)
	assert.Equal(t, mine, projects)

	projects, err = service.ListProjects(ctx, nil, "port")
	require.NoError(t, err)
	assert.Equal(t, mine, projects)

	mockRepo.AssertExpectations(t)
}

func TestProjectService_GetProject(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockProjectRepository)
	service := newProjectService(mockRepo, new(MockStore), nil)

	expected := &models.Project{ID: "1", Name: "Portfolio", OwnerID: alice.ID}
	mockRepo.On("GetByID", mock.Anything, "1").Return(expected, nil).Once()
	mockRepo.On("GetByID", mock.Anything, "99").
		Return(nil, fmt.Errorf("project with ID 99: %w", repositories.ErrNotFound)).Once()

	project, err := service.GetProject(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, expected, project)

	project, err = service.GetProject(ctx, "99")
	assert.ErrorIs(t, err, services.ErrNotFound)
	assert.Nil(t, project)
	mockRepo.AssertExpectations(t)
}

func TestProjectService_CreateProject(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockProjectRepository)
	mockStore := new(MockStore)
	mockPub := new(MockPublisher)
	service := newProjectService(mockRepo, mockStore, mockPub)

	image := &storage.Upload{Reader: bytes.NewReader([]byte("img")), Size: 3}
	mockStore.On("Put", mock.Anything, *image).Return("/uploads/p.png", nil).Once()
	mockRepo.On("Create", mock.Anything, mock.MatchedBy(func(p *models.Project) bool {
		return p.OwnerID == alice.ID && p.Name == "Portfolio" && p.Image != nil && *p.Image == "/uploads/p.png"
	})).Return(nil).Once()
	mockPub.On("PublishProjectEvent", mock.Anything, mock.MatchedBy(func(e models.ProjectEvent) bool {
		return e.Type == models.EventProjectCreated && e.OwnerID == alice.ID
	})).Return(nil).Once()

	project, err := service.CreateProject(ctx, alice, models.ProjectInput{
		Name: " Portfolio ", Description: "My work", URL: "https://x.dev",
	}, image)
	require.NoError(t, err)
	assert.Equal(t, "Portfolio", project.Name)
	assert.Equal(t, "https://x.dev", project.URL)

	mockRepo.AssertExpectations(t)
	mockStore.AssertExpectations(t)
	mockPub.AssertExpectations(t)
}

func TestProjectService_CreateProject_Rejected(t *testing.T) {
	tests := []struct {
		name    string
		caller  *models.Identity
		input   models.ProjectInput
		wantErr error
	}{
		{"anonymous", nil, models.ProjectInput{Name: "P", URL: "https://x.dev"}, services.ErrUnauthorized},
		{"empty name", alice, models.ProjectInput{Name: "  ", URL: "https://x.dev"}, services.ErrValidation},
		{"empty url", alice, models.ProjectInput{Name: "P", URL: ""}, services.ErrValidation},
		{"non-http url", alice, models.ProjectInput{Name: "P", URL: "ftp://x.dev"}, services.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockProjectRepository)
			mockStore := new(MockStore)
			service := newProjectService(mockRepo, mockStore, nil)

			image := &storage.Upload{Reader: bytes.NewReader([]byte("img")), Size: 3}
			project, err := service.CreateProject(context.Background(), tt.caller, tt.input, image)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, project)
			mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
			mockStore.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
		})
	}
}

func TestProjectService_CreateProject_StoreFailureRemovesImage(t *testing.T) {
	mockRepo := new(MockProjectRepository)
	mockStore := new(MockStore)
	service := newProjectService(mockRepo, mockStore, nil)

	mockStore.On("Put", mock.Anything, mock.Anything).Return("/uploads/p.png", nil).Once()
	mockRepo.On("Create", mock.Anything, mock.Anything).Return(errors.New("database error")).Once()
	mockStore.On("Delete", mock.Anything, "/uploads/p.png").Return(nil).Once()

	_, err := service.CreateProject(context.Background(), alice, models.ProjectInput{Name: "P", URL: "https://x.dev"},
		&storage.Upload{Reader: bytes.NewReader([]byte("img")), Size: 3})
	assert.ErrorContains(t, err, "database error")
	mockStore.AssertExpectations(t)
}

func TestProjectService_CreateProject_DeletedOwner(t *testing.T) {
	mockRepo := new(MockProjectRepository)
	mockStore := new(MockStore)
	mockPub := new(MockPublisher)
	service := newProjectService(mockRepo, mockStore, mockPub)

	mockStore.On("Put", mock.Anything, mock.Anything).Return("/uploads/p.png", nil).Once()
	mockRepo.On("Create", mock.Anything, mock.Anything).
		Return(fmt.Errorf("owner %s of project: %w", alice.ID, repositories.ErrReference)).Once()
	mockStore.On("Delete", mock.Anything, "/uploads/p.png").Return(nil).Once()

	project, err := service.CreateProject(context.Background(), alice, models.ProjectInput{Name: "P", URL: "https://x.dev"},
		&storage.Upload{Reader: bytes.NewReader([]byte("img")), Size: 3})
	assert.ErrorIs(t, err, services.ErrUnauthorized)
	assert.Nil(t, project)
	mockStore.AssertExpectations(t)
	mockPub.AssertNotCalled(t, "PublishProjectEvent", mock.Anything, mock.Anything)
}

func TestProjectService_CreateProject_PublishFailureIsNotFatal(t *testing.T) {
	mockRepo := new(MockProjectRepository)
	mockPub := new(MockPublisher)
	service := newProjectService(mockRepo, new(MockStore), mockPub)

	mockRepo.On("Create", mock.Anything, mock.Anything).Return(nil).Once()
	mockPub.On("PublishProjectEvent", mock.Anything, mock.Anything).Return(errors.New("broker down")).Once()

	project, err := service.CreateProject(context.Background(), alice, models.ProjectInput{Name: "P", URL: "https://x.dev"}, nil)
	require.NoError(t, err)
	assert.Nil(t, project.Image)
	mockPub.AssertExpectations(t)
}

func TestProjectService_UpdateProject(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockProjectRepository)
	mockStore := new(MockStore)
	service := newProjectService(mockRepo, mockStore, nil)

	stored := &models.Project{
		ID: "1", Name: "Portfolio", Description: "old", URL: "https://x.dev",
		Image: strPtr("/uploads/old.png"), OwnerID: alice.ID,
	}
	mockRepo.On("GetByID", mock.Anything, "1").Return(stored, nil).Once()
	mockStore.On("Put", mock.Anything, mock.Anything).Return("/uploads/new.png", nil).Once()
	mockRepo.On("Update", mock.Anything, mock.MatchedBy(func(p *models.Project) bool {
		return p.Name == "Portfolio v2" && p.Description == "old" && p.URL == "https://x.dev" &&
			p.Image != nil && *p.Image == "/uploads/new.png"
	})).Return(nil).Once()
	mockStore.On("Delete", mock.Anything, "/uploads/old.png").Return(nil).Once()

	project, err := service.UpdateProject(ctx, alice, "1",
		models.ProjectUpdate{Name: strPtr("Portfolio v2")},
		&storage.Upload{Reader: bytes.NewReader([]byte("img")), Size: 3})
	require.NoError(t, err)
	assert.Equal(t, "Portfolio v2", project.Name)
	assert.Equal(t, "/uploads/new.png", *project.Image)

	mockRepo.AssertExpectations(t)
	mockStore.AssertExpectations(t)
}

func TestProjectService_UpdateProject_Rejected(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockProjectRepository)
	service := newProjectService(mockRepo, new(MockStore), nil)

	stored := &models.Project{ID: "1", Name: "Portfolio", URL: "https://x.dev", OwnerID: alice.ID}
	mockRepo.On("GetByID", mock.Anything, "1").Return(stored, nil)
	mockRepo.On("GetByID", mock.Anything, "99").
		Return(nil, fmt.Errorf("project with ID 99: %w", repositories.ErrNotFound))

	_, err := service.UpdateProject(ctx, nil, "1", models.ProjectUpdate{Name: strPtr("x")}, nil)
	assert.ErrorIs(t, err, services.ErrUnauthorized)

	_, err = service.UpdateProject(ctx, bob, "1", models.ProjectUpdate{Name: strPtr("hijacked")}, nil)
	assert.ErrorIs(t, err, services.ErrForbidden)

	_, err = service.UpdateProject(ctx, alice, "99", models.ProjectUpdate{Name: strPtr("x")}, nil)
	assert.ErrorIs(t, err, services.ErrNotFound)

	_, err = service.UpdateProject(ctx, alice, "1", models.ProjectUpdate{URL: strPtr("")}, nil)
	assert.ErrorIs(t, err, services.ErrValidation)

	// An empty update still reports a missing or foreign project first
	_, err = service.UpdateProject(ctx, alice, "99", models.ProjectUpdate{}, nil)
	assert.ErrorIs(t, err, services.ErrNotFound)
	_, err = service.UpdateProject(ctx, bob, "1", models.ProjectUpdate{}, nil)
	assert.ErrorIs(t, err, services.ErrForbidden)
	_, err = service.UpdateProject(ctx, alice, "1", models.ProjectUpdate{}, nil)
	assert.ErrorIs(t, err, services.ErrValidation)

	mockRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestProjectService_DeleteProject(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockProjectRepository)
	mockStore := new(MockStore)
	mockPub := new(MockPublisher)
	service := newProjectService(mockRepo, mockStore, mockPub)

	stored := &models.Project{ID: "1", Name: "Portfolio", URL: "https://x.dev", Image: strPtr("/uploads/p.png"), OwnerID: alice.ID}
	mockRepo.On("GetByID", mock.Anything, "1").Return(stored, nil)

	// Test deletion by someone else
	err := service.DeleteProject(ctx, bob, "1")
	assert.ErrorIs(t, err, services.ErrForbidden)
	mockRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)

	// Test successful deletion
	mockRepo.On("Delete", mock.Anything, "1").Return(nil).Once()
	mockStore.On("Delete", mock.Anything, "/uploads/p.png").Return(nil).Once()
	mockPub.On("PublishProjectEvent", mock.Anything, mock.MatchedBy(func(e models.ProjectEvent) bool {
		return e.Type == models.EventProjectDeleted && e.ProjectID == "1"
	})).Return(nil).Once()

	err = service.DeleteProject(ctx, alice, "1")
	require.NoError(t, err)
	mockRepo.AssertExpectations(t)
	mockStore.AssertExpectations(t)
	mockPub.AssertExpectations(t)
}
