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

// ProfileInput is the editable part of a user profile.
type ProfileInput struct {
	Name  string `json:"name" validate:"required,max=100"`
	Email string `json:"email" validate:"required,email,max=255"`
}

// UserService handles profile reads and edits.
type UserService struct {
	userRepo    repositories.UserRepository
	projectRepo repositories.ProjectRepository
	store       storage.Store
	validate    *validator.Validate
	log         *logger.Logger
}

// NewUserService creates a new UserService.
func NewUserService(userRepo repositories.UserRepository, projectRepo repositories.ProjectRepository, store storage.Store, log *logger.Logger) *UserService {
	return &UserService{
		userRepo:    userRepo,
		projectRepo: projectRepo,
		store:       store,
		validate:    newValidator(),
		log:         log,
	}
}

// GetProfile returns the public profile of a user to an authenticated caller.
func (s *UserService) GetProfile(ctx context.Context, caller *models.Identity, id string) (models.Profile, error) {
	if caller == nil {
		return models.Profile{}, ErrUnauthorized
	}
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return models.Profile{}, fromRepo(err, "user")
	}
	return user.Profile(), nil
}

// UpdateProfile changes name and email of the caller's own account.
func (s *UserService) UpdateProfile(ctx context.Context, caller *models.Identity, id string, in ProfileInput) (models.Profile, error) {
	if err := s.requireSelf(caller, id); err != nil {
		return models.Profile{}, err
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Email = NormalizeEmail(in.Email)
	if err := validateStruct(s.validate, in); err != nil {
		return models.Profile{}, err
	}

	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return models.Profile{}, fromRepo(err, "user")
	}

	if in.Email != user.Email {
		other, err := s.userRepo.GetByEmail(ctx, in.Email)
		if err == nil && other != nil && other.ID != user.ID {
			return models.Profile{}, fmt.Errorf("email '%s' %w", in.Email, ErrConflict)
		}
		if err != nil && !errors.Is(err, repositories.ErrNotFound) {
			return models.Profile{}, fmt.Errorf("failed to check email: %w", err)
		}
	}

	user.Name = in.Name
	user.Email = in.Email
	if err := s.userRepo.Update(ctx, user); err != nil {
		return models.Profile{}, fromRepo(err, "email")
	}
	return user.Profile(), nil
}

// DeleteAccount removes the caller's account together with its projects.
// Stored images are removed best-effort afterwards.
func (s *UserService) DeleteAccount(ctx context.Context, caller *models.Identity, id string) error {
	if err := s.requireSelf(caller, id); err != nil {
		return err
	}
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return fromRepo(err, "user")
	}

	projects, err := s.projectRepo.List(ctx, repositories.ProjectFilter{OwnerID: id})
	if err != nil {
		return err
	}
	if _, err := s.projectRepo.DeleteByOwner(ctx, id); err != nil {
		return err
	}
	if err := s.userRepo.Delete(ctx, id); err != nil {
		return fromRepo(err, "user")
	}

	refs := make([]*string, 0, len(projects)+1)
	refs = append(refs, user.Avatar)
	for i := range projects {
		refs = append(refs, projects[i].Image)
	}
	for _, ref := range refs {
		discardUpload(ctx, s.store, s.log, ref)
	}
	s.log.Infow("account_deleted", "user_id", id, "projects", len(projects))
	return nil
}

func (s *UserService) requireSelf(caller *models.Identity, id string) error {
	if caller == nil {
		return ErrUnauthorized
	}
	if caller.ID != id {
		return ErrForbidden
	}
	return nil
}
