package repositories

import (
	"context"

	"showcase/internal/models"
)

// ProjectFilter narrows a project listing. Zero values mean "no filter".
type ProjectFilter struct {
	OwnerID string
	Query   string // case-insensitive substring of the project name
}

// ProjectRepository defines the interface for project data access.
type ProjectRepository interface {
	List(ctx context.Context, filter ProjectFilter) ([]models.Project, error)
	GetByID(ctx context.Context, id string) (*models.Project, error)
	Create(ctx context.Context, project *models.Project) error
	Update(ctx context.Context, project *models.Project) error
	Delete(ctx context.Context, id string) error
	DeleteByOwner(ctx context.Context, ownerID string) (int64, error)
}
