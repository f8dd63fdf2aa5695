// Package service contains the business logic layer of the application.
//
// The layering is the same for every resource:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (business layer) → validates, enforces ownership, orchestrates
//	Repository (data layer)  → reads/writes the store
//
// Services take repository interfaces, never a concrete store, so the same
// code runs against SQLite, PostgreSQL, or the in-memory fakes in tests.
// Every rule a client can trip over is reported as an *apperror.AppError so
// the handler layer can map it to a status code without string matching.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/bloglist/internal/apperror"
	"github.com/sakif/bloglist/internal/auth"
	"github.com/sakif/bloglist/internal/model"
	"github.com/sakif/bloglist/internal/repository"
)

// UserService handles registration and user lookups.
type UserService struct {
	users     repository.UserRepository
	passwords *auth.PasswordService
	logger    *slog.Logger
}

// NewUserService creates a UserService.
func NewUserService(users repository.UserRepository, passwords *auth.PasswordService, logger *slog.Logger) *UserService {
	return &UserService{
		users:     users,
		passwords: passwords,
		logger:    logger,
	}
}

// Register validates the input, hashes the password, and stores the user.
//
// Order of checks:
//  1. password length (reported as "invalid password")
//  2. username presence and length
//  3. username uniqueness
//
// The uniqueness lookup is an early, friendly check. Two concurrent
// registrations can both pass it; the store's UNIQUE constraint then
// rejects the loser with apperror.ErrConflict, which is reported with the
// same validation message.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	in = in.normalize()
	if verr := in.Validate(); verr != nil {
		return nil, verr
	}

	_, err := s.users.GetUserByUsername(ctx, in.Username)
	switch {
	case err == nil:
		return nil, duplicateUsername()
	case !errors.Is(err, apperror.ErrNotFound):
		return nil, fmt.Errorf("service/user: checking username %q: %w", in.Username, err)
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		// Validate already bounds the length, so this is a bcrypt failure.
		return nil, fmt.Errorf("service/user: hashing password: %w", err)
	}

	user := &model.User{
		Username:     in.Username,
		Name:         in.Name,
		PasswordHash: hash,
		Blogs:        []model.BlogSummary{},
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, duplicateUsername()
		}
		return nil, fmt.Errorf("service/user: creating user %q: %w", in.Username, err)
	}

	s.logger.Info("user registered",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)
	return user, nil
}

// List returns every user with their blog summaries.
func (s *UserService) List(ctx context.Context) ([]model.User, error) {
	users, err := s.users.ListUsersWithBlogs(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/user: listing users: %w", err)
	}
	return users, nil
}

// GetByID returns one user with their blog summaries.
func (s *UserService) GetByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, apperror.ValidationFailed("id", "user id is required")
	}

	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/user: getting user %s: %w", id, err)
	}
	return user, nil
}

func duplicateUsername() *apperror.AppError {
	return userValidation("expected username to be unique")
}
