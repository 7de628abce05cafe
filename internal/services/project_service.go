package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"showcase/internal/logger"
	"showcase/internal/models"
	"showcase/internal/repositories"
	"showcase/internal/storage"

	"github.com/go-playground/validator/v10"
)

// EventPublisher delivers project events to interested consumers.
type EventPublisher interface {
	PublishProjectEvent(ctx context.Context, event models.ProjectEvent) error
}

// projectFields is the validated shape of a project's text fields.
type projectFields struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"max=5000"`
	URL         string `json:"url" validate:"required,http_url,max=2048"`
}

// ProjectService handles business logic related to projects.
type ProjectService struct {
	repo      repositories.ProjectRepository
	store     storage.Store
	publisher EventPublisher
	validate  *validator.Validate
	log       *logger.Logger
}

// NewProjectService creates a new ProjectService. publisher may be nil.
func NewProjectService(repo repositories.ProjectRepository, store storage.Store, publisher EventPublisher, log *logger.Logger) *ProjectService {
	return &ProjectService{
		repo:      repo,
		store:     store,
		publisher: publisher,
		validate:  newValidator(),
		log:       log,
	}
}

// ListProjects returns the caller's own projects, or every project for an
// anonymous caller. query narrows the result by project name.
func (s *ProjectService) ListProjects(ctx context.Context, caller *models.Identity, query string) ([]models.Project, error) {
	filter := repositories.ProjectFilter{Query: query}
	if caller != nil {
		filter.OwnerID = caller.ID
	}
	return s.repo.List(ctx, filter)
}

// GetProject retrieves a single project by its ID.
func (s *ProjectService) GetProject(ctx context.Context, id string) (*models.Project, error) {
	project, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fromRepo(err, "project")
	}
	return project, nil
}

// CreateProject stores the optional image and creates a project owned by caller.
func (s *ProjectService) CreateProject(ctx context.Context, caller *models.Identity, in models.ProjectInput, image *storage.Upload) (*models.Project, error) {
	if caller == nil {
		return nil, ErrUnauthorized
	}
	fields := projectFields{
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		URL:         strings.TrimSpace(in.URL),
	}
	if err := validateStruct(s.validate, fields); err != nil {
		return nil, err
	}

	project := &models.Project{
		Name:        fields.Name,
		Description: fields.Description,
		URL:         fields.URL,
		OwnerID:     caller.ID,
	}
	if image != nil {
		ref, err := s.store.Put(ctx, *image)
		if err != nil {
			return nil, fmt.Errorf("failed to store image: %w", err)
		}
		project.Image = &ref
	}

	if err := s.repo.Create(ctx, project); err != nil {
		s.discard(ctx, project.Image)
		if errors.Is(err, repositories.ErrReference) {
			// The session outlived its account.
			return nil, fmt.Errorf("account %s no longer exists: %w", caller.ID, ErrUnauthorized)
		}
		return nil, err
	}
	s.publish(ctx, models.EventProjectCreated, project)
	return project, nil
}

// UpdateProject merges the provided fields over the caller's project.
// A new image replaces the stored one.
func (s *ProjectService) UpdateProject(ctx context.Context, caller *models.Identity, id string, upd models.ProjectUpdate, image *storage.Upload) (*models.Project, error) {
	project, err := s.ownedProject(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if upd.Empty() && image == nil {
		return nil, fmt.Errorf("no fields to update: %w", ErrValidation)
	}

	fields := projectFields{Name: project.Name, Description: project.Description, URL: project.URL}
	if upd.Name != nil {
		fields.Name = strings.TrimSpace(*upd.Name)
	}
	if upd.Description != nil {
		fields.Description = strings.TrimSpace(*upd.Description)
	}
	if upd.URL != nil {
		fields.URL = strings.TrimSpace(*upd.URL)
	}
	if err := validateStruct(s.validate, fields); err != nil {
		return nil, err
	}

	previousImage := project.Image
	project.Name = fields.Name
	project.Description = fields.Description
	project.URL = fields.URL
	if image != nil {
		ref, err := s.store.Put(ctx, *image)
		if err != nil {
			return nil, fmt.Errorf("failed to store image: %w", err)
		}
		project.Image = &ref
	}

	if err := s.repo.Update(ctx, project); err != nil {
		if image != nil {
			s.discard(ctx, project.Image)
		}
		return nil, fromRepo(err, "project")
	}
	if image != nil {
		s.discard(ctx, previousImage)
	}
	s.publish(ctx, models.EventProjectUpdated, project)
	return project, nil
}

// DeleteProject deletes the caller's project and its stored image.
func (s *ProjectService) DeleteProject(ctx context.Context, caller *models.Identity, id string) error {
	project, err := s.ownedProject(ctx, caller, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fromRepo(err, "project")
	}
	s.discard(ctx, project.Image)
	s.publish(ctx, models.EventProjectDeleted, project)
	return nil
}

// ownedProject loads a project and checks that caller owns it.
func (s *ProjectService) ownedProject(ctx context.Context, caller *models.Identity, id string) (*models.Project, error) {
	if caller == nil {
		return nil, ErrUnauthorized
	}
	project, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fromRepo(err, "project")
	}
	if !project.OwnedBy(caller.ID) {
		return nil, fmt.Errorf("project %s: %w", id, ErrForbidden)
	}
	return project, nil
}

func (s *ProjectService) publish(ctx context.Context, eventType string, project *models.Project) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishProjectEvent(ctx, models.NewProjectEvent(eventType, project)); err != nil {
		s.log.Warnw("project_event_not_published", "type", eventType, "project_id", project.ID, "err", err)
	}
}

func (s *ProjectService) discard(ctx context.Context, ref *string) {
	discardUpload(ctx, s.store, s.log, ref)
}

// discardUpload removes a stored object that no record references any more.
// Failures are logged; the object is left orphaned.
func discardUpload(ctx context.Context, store storage.Store, log *logger.Logger, ref *string) {
	if ref == nil {
		return
	}
	if err := store.Delete(context.WithoutCancel(ctx), *ref); err != nil {
		log.Warnw("orphaned_upload", "ref", *ref, "err", err)
	}
}
