package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"showcase/internal/config"
	"showcase/internal/logger"
	"showcase/internal/models"
	"showcase/internal/repositories"
	"showcase/internal/storage"

	"github.com/dgrijalva/jwt-go"
	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
)

// RegisterInput is the payload of a sign-up.
type RegisterInput struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// Session is an issued session token together with the identity it carries.
type Session struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	Identity  models.Identity `json:"user"`
}

// Claims is the body of a session token.
type Claims struct {
	UserID string  `json:"user_id"`
	Email  string  `json:"email"`
	Name   string  `json:"name"`
	Avatar *string `json:"avatar,omitempty"`
	jwt.StandardClaims
}

// maxPasswordBytes is the longest input bcrypt accepts.
const maxPasswordBytes = 72

// dummyHash is compared against when the email is unknown so both failure
// paths cost one bcrypt comparison.
var dummyHash = sync.OnceValue(func() []byte {
	h, _ := bcrypt.GenerateFromPassword([]byte("showcase-placeholder-password"), bcrypt.DefaultCost)
	return h
})

// AuthService handles registration, credential checks and session tokens.
type AuthService struct {
	userRepo   repositories.UserRepository
	store      storage.Store
	jwtSecret  []byte
	tokenDurat time.Duration
	validate   *validator.Validate
	log        *logger.Logger
	now        func() time.Time
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repositories.UserRepository, store storage.Store, cfg config.AuthConfig, log *logger.Logger) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		store:      store,
		jwtSecret:  []byte(cfg.JWTSecret),
		tokenDurat: cfg.TokenTTL,
		validate:   newValidator(),
		log:        log,
		now:        time.Now,
	}
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// RegisterUser creates an account, storing the optional avatar first.
// If the account cannot be created the stored avatar is removed again.
func (s *AuthService) RegisterUser(ctx context.Context, in RegisterInput, avatar *storage.Upload) (*models.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = NormalizeEmail(in.Email)
	if err := validateStruct(s.validate, in); err != nil {
		return nil, err
	}
	if len(in.Password) > maxPasswordBytes {
		return nil, newValidationError("password", fmt.Sprintf("password must be at most %d bytes", maxPasswordBytes))
	}

	existing, err := s.userRepo.GetByEmail(ctx, in.Email)
	if err == nil && existing != nil {
		return nil, fmt.Errorf("email '%s' %w", in.Email, ErrConflict)
	}
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, newValidationError("password", fmt.Sprintf("password must be at most %d bytes", maxPasswordBytes))
		}
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:        in.Email,
		Name:         in.Name,
		PasswordHash: string(hashedPassword),
	}

	if avatar != nil {
		ref, err := s.store.Put(ctx, *avatar)
		if err != nil {
			return nil, fmt.Errorf("failed to store avatar: %w", err)
		}
		user.Avatar = &ref
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		discardUpload(ctx, s.store, s.log, user.Avatar)
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, fmt.Errorf("email '%s' %w", in.Email, ErrConflict)
		}
		return nil, fmt.Errorf("failed to register user: %w", err)
	}
	return user, nil
}

// Authenticate checks credentials. Unknown email and wrong password are
// indistinguishable to the caller.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (models.Identity, error) {
	user, err := s.userRepo.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(password))
			return models.Identity{}, ErrInvalidCredentials
		}
		return models.Identity{}, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return models.Identity{}, ErrInvalidCredentials
	}
	return user.Identity(), nil
}

// IssueSession signs a token embedding the identity.
func (s *AuthService) IssueSession(identity models.Identity) (Session, error) {
	now := s.now()
	expiresAt := now.Add(s.tokenDurat)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: identity.ID,
		Email:  identity.Email,
		Name:   identity.Name,
		Avatar: identity.Avatar,
		StandardClaims: jwt.StandardClaims{
			Subject:   identity.ID,
			IssuedAt:  now.Unix(),
			ExpiresAt: expiresAt.Unix(),
		},
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return Session{}, fmt.Errorf("failed to generate token: %w", err)
	}
	return Session{Token: tokenString, ExpiresAt: time.Unix(expiresAt.Unix(), 0), Identity: identity}, nil
}

// LoginUser authenticates and issues a session.
func (s *AuthService) LoginUser(ctx context.Context, email, password string) (Session, error) {
	identity, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return Session{}, err
	}
	return s.IssueSession(identity)
}

// ResolveSession returns the identity embedded in a valid, unexpired token.
// A missing or bad token is not an error: it simply yields no identity.
func (s *AuthService) ResolveSession(tokenString string) (models.Identity, bool) {
	if tokenString == "" {
		return models.Identity{}, false
	}
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		s.log.Debugw("session_rejected", "err", err)
		return models.Identity{}, false
	}
	return models.Identity{
		ID:     claims.UserID,
		Email:  claims.Email,
		Name:   claims.Name,
		Avatar: claims.Avatar,
	}, true
}

// ValidateToken parses and validates a token, returning its claims.
func (s *AuthService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}
