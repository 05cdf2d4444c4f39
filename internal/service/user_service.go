// Package service holds the business rules that sit between the HTTP
// handlers and the repositories.
package service

import (
	"context"
	"errors"

	"kinship/internal/middleware"
	"kinship/internal/models"
	"kinship/internal/observability"
	"kinship/internal/repository"
	"kinship/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

// UserService owns sign-up, login and user lookups.
type UserService struct {
	userRepo   repository.UserRepository
	bcryptCost int
	dummyHash  []byte
}

type SignUpInput struct {
	Username string
	Password string
}

type LoginInput struct {
	Username string
	Password string
}

// NewUserService builds the service. cost outside bcrypt's range falls back
// to bcrypt.DefaultCost.
func NewUserService(userRepo repository.UserRepository, cost int) *UserService {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	// Compared against when the username is unknown so that both login
	// failure paths pay for one bcrypt comparison.
	dummy, _ := bcrypt.GenerateFromPassword([]byte("kinship-unknown-user"), cost)
	return &UserService{userRepo: userRepo, bcryptCost: cost, dummyHash: dummy}
}

// UsernameTaken backs the sign-up uniqueness rule.
func (s *UserService) UsernameTaken(ctx context.Context, username string) (bool, error) {
	return s.userRepo.ExistsByUsername(ctx, username)
}

// SignUp hashes the password and stores a new user. Input is expected to have
// passed validation.SignUpValidator; the unique index still rejects a
// username registered concurrently.
func (s *UserService) SignUp(ctx context.Context, in SignUpInput) (*models.User, error) {
	span, ctx := observability.NewSpan(ctx, "UserService.SignUp")
	defer span.End()

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, models.NewValidationError(validation.MsgPasswordTooLong)
		}
		span.SetError(err)
		return nil, models.NewInternalError(err)
	}

	user := &models.User{Username: in.Username, HashedPassword: string(hash)}
	if err := s.userRepo.Create(ctx, user); err != nil {
		middleware.AuthAttempts.WithLabelValues("signup", "rejected").Inc()
		span.SetAttributes(observability.AuthOutcome("rejected"))
		span.SetError(err)
		return nil, err
	}

	middleware.AuthAttempts.WithLabelValues("signup", "success").Inc()
	span.SetAttributes(observability.AuthOutcome("success"), observability.UserID(user.ID))
	return user, nil
}

// Login verifies the credentials. Unknown usernames and wrong passwords both
// yield the same unauthorized error carrying validation.MsgLoginFailed.
func (s *UserService) Login(ctx context.Context, in LoginInput) (*models.User, error) {
	span, ctx := observability.NewSpan(ctx, "UserService.Login")
	defer span.End()

	user, err := s.userRepo.GetByUsername(ctx, in.Username)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	hash := s.dummyHash
	if user != nil {
		hash = []byte(user.HashedPassword)
	}
	cmpErr := bcrypt.CompareHashAndPassword(hash, []byte(in.Password))

	if user == nil || cmpErr != nil {
		middleware.AuthAttempts.WithLabelValues("login", "failure").Inc()
		span.SetAttributes(observability.AuthOutcome("failure"))
		return nil, models.NewUnauthorizedError(validation.MsgLoginFailed)
	}

	middleware.AuthAttempts.WithLabelValues("login", "success").Inc()
	span.SetAttributes(observability.AuthOutcome("success"), observability.UserID(user.ID))
	return user, nil
}

// GetUserByID returns a user for display; the copy may come from the cache.
func (s *UserService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// SessionUser resolves the user bound to a session against the store so a
// deleted account is noticed on the very next request.
func (s *UserService) SessionUser(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByIDFresh(ctx, id)
}

// EnsureUser returns the named user, creating it with password when missing.
func (s *UserService) EnsureUser(ctx context.Context, username, password string) (*models.User, error) {
	existing, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	return s.SignUp(ctx, SignUpInput{Username: username, Password: password})
}
