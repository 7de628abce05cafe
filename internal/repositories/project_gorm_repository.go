package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"showcase/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GORMProjectRepository is a GORM implementation of ProjectRepository.
type GORMProjectRepository struct {
	db *gorm.DB
}

// NewGORMProjectRepository creates a new instance of GORMProjectRepository.
func NewGORMProjectRepository(db *gorm.DB) *GORMProjectRepository {
	return &GORMProjectRepository{
		db: db,
	}
}

// withOwner preloads the owner's public fields.
func withOwner(db *gorm.DB) *gorm.DB {
	return db.Preload("Owner", func(tx *gorm.DB) *gorm.DB {
		return tx.Select("id", "name", "email", "avatar")
	})
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// List retrieves projects matching the filter, newest first.
func (r *GORMProjectRepository) List(ctx context.Context, filter ProjectFilter) ([]models.Project, error) {
	q := withOwner(r.db.WithContext(ctx)).Order("created_at DESC")
	if filter.OwnerID != "" {
		q = q.Where("owner_id = ?", filter.OwnerID)
	}
	if term := strings.TrimSpace(filter.Query); term != "" {
		q = q.Where(`LOWER(name) LIKE ? ESCAPE '\'`, "%"+likeEscaper.Replace(strings.ToLower(term))+"%")
	}

	projects := make([]models.Project, 0)
	if err := q.Find(&projects).Error; err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, nil
}

// GetByID retrieves a single project by its ID from the database.
func (r *GORMProjectRepository) GetByID(ctx context.Context, id string) (*models.Project, error) {
	var project models.Project
	if err := withOwner(r.db.WithContext(ctx)).First(&project, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("project with ID %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get project by ID %s: %w", id, err)
	}
	return &project, nil
}

// Create creates a new project in the database.
func (r *GORMProjectRepository) Create(ctx context.Context, project *models.Project) error {
	if project.ID == "" {
		project.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(project).Error; err != nil {
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			return fmt.Errorf("owner %s of project: %w", project.OwnerID, ErrReference)
		}
		return fmt.Errorf("failed to create project: %w", err)
	}
	return nil
}

// Update updates an existing project in the database.
func (r *GORMProjectRepository) Update(ctx context.Context, project *models.Project) error {
	res := r.db.WithContext(ctx).Model(&models.Project{}).
		Where("id = ?", project.ID).
		Updates(map[string]any{
			"name":        project.Name,
			"description": project.Description,
			"url":         project.URL,
			"image":       project.Image,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update project: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("project with ID %s not found for update: %w", project.ID, ErrNotFound)
	}
	return nil
}

// Delete deletes a project by its ID from the database.
func (r *GORMProjectRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.Project{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete project: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("project with ID %s not found for deletion: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteByOwner removes every project of a user and reports how many went.
func (r *GORMProjectRepository) DeleteByOwner(ctx context.Context, ownerID string) (int64, error) {
	res := r.db.WithContext(ctx).Delete(&models.Project{}, "owner_id = ?", ownerID)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete projects of user %s: %w", ownerID, res.Error)
	}
	return res.RowsAffected, nil
}
