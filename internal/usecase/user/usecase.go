package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	domain "user-directory-service/internal/domain/user"
	pkgerrors "user-directory-service/pkg/errors"
	"user-directory-service/pkg/logger"
	"user-directory-service/pkg/security"
)

// Repository defines the interface for user data access operations.
//
// GetByID, Update and Delete report a missing row with a NotFoundError.
// GetByEmail reports a missing row as (nil, nil). Create and Update report a
// unique-email violation with an AlreadyExistsError.
type Repository interface {
	Create(ctx context.Context, u *domain.User) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	SearchByName(ctx context.Context, pattern string) ([]domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	Update(ctx context.Context, id int64, changes domain.UserUpdate) (*domain.User, error)
	Delete(ctx context.Context, id int64) error
}

// EventPublisher announces user lifecycle changes.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, u *domain.User) error
}

// Service implements Usecase on top of a Repository. It holds no state
// between calls; the repository is the only source of truth.
type Service struct {
	repo      Repository
	publisher EventPublisher
	log       *zap.Logger
	validate  *validator.Validate
}

var _ Usecase = (*Service)(nil)

// New creates a Service. If publisher is nil, no events are published.
func New(r Repository, p EventPublisher, log *zap.Logger) *Service {
	return &Service{repo: r, publisher: p, log: log, validate: validator.New()}
}

// formatValidationError converts validator.ValidationErrors into a ValidationError.
func formatValidationError(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}

	messages := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		switch e.Tag() {
		case "required":
			messages = append(messages, fmt.Sprintf("%s is required", e.Field()))
		default:
			messages = append(messages, fmt.Sprintf("%s is invalid", e.Field()))
		}
	}
	return pkgerrors.NewValidationError("", strings.Join(messages, ", "))
}

// CreateUser creates a new user after checking that the email is not taken.
func (s *Service) CreateUser(ctx context.Context, in CreateUserRequest) (*User, error) {
	log := logger.WithContext(ctx, s.log)
	log.Info("creating user", zap.String("name", in.Name), zap.String("email", in.Email))

	if err := s.validate.Struct(in); err != nil {
		log.Warn("validate failed", zap.Error(err))
		return nil, formatValidationError(err)
	}

	existing, err := s.repo.GetByEmail(ctx, in.Email)
	if err != nil {
		log.Error("failed to check existing email", zap.String("email", in.Email), zap.Error(err))
		return nil, pkgerrors.NewInternalError("failed to validate email uniqueness", err)
	}
	if existing != nil {
		log.Warn("email already exists", zap.String("email", in.Email), zap.Int64("existing_id", existing.ID))
		return nil, pkgerrors.ErrDuplicateEmail
	}

	created, err := s.repo.Create(ctx, &domain.User{
		Name:  in.Name,
		Email: in.Email,
		Age:   in.Age,
		State: in.State,
		City:  in.City,
	})
	if err != nil {
		if pkgerrors.IsAlreadyExists(err) {
			log.Warn("email claimed concurrently", zap.String("email", in.Email))
			return nil, pkgerrors.ErrDuplicateEmail
		}
		log.Error("failed to create user", zap.Error(err))
		return nil, pkgerrors.NewInternalError("failed to create user", err)
	}

	s.publish(ctx, domain.EventCreated, created)
	return toDTO(created), nil
}

// GetUserByID retrieves a user by ID.
func (s *Service) GetUserByID(ctx context.Context, in GetUserRequest) (*User, error) {
	log := logger.WithContext(ctx, s.log)

	if in.ID <= 0 {
		log.Debug("get user with non-positive id", zap.Int64("id", in.ID))
		return nil, pkgerrors.ErrUserNotFound
	}

	u, err := s.repo.GetByID(ctx, in.ID)
	if err != nil {
		if pkgerrors.IsNotFound(err) {
			return nil, pkgerrors.ErrUserNotFound
		}
		log.Error("failed to get user", zap.Int64("id", in.ID), zap.Error(err))
		return nil, pkgerrors.NewInternalError("failed to get user", err)
	}

	return toDTO(u), nil
}

// GetUserByEmail retrieves a user by exact email, using the store's equality semantics.
func (s *Service) GetUserByEmail(ctx context.Context, in GetUserByEmailRequest) (*User, error) {
	log := logger.WithContext(ctx, s.log)

	if err := s.validate.Struct(in); err != nil {
		return nil, formatValidationError(err)
	}

	u, err := s.repo.GetByEmail(ctx, in.Email)
	if err != nil {
		log.Error("failed to get user by email", zap.String("email", in.Email), zap.Error(err))
		return nil, pkgerrors.NewInternalError("failed to get user", err)
	}
	if u == nil {
		return nil, pkgerrors.ErrUserNotFound
	}

	return toDTO(u), nil
}

// SearchUsersByName returns every user whose name contains in.Name.
// An empty result is reported as NotFound.
func (s *Service) SearchUsersByName(ctx context.Context, in SearchUsersRequest) (*ListUsersResponse, error) {
	log := logger.WithContext(ctx, s.log)

	pattern, err := security.ValidateSearchPattern(in.Name)
	if err != nil {
		log.Warn("invalid search pattern", zap.String("pattern", in.Name), zap.Error(err))
		return nil, pkgerrors.NewValidationError("name", err.Error())
	}

	users, err := s.repo.SearchByName(ctx, pattern)
	if err != nil {
		log.Error("failed to search users", zap.String("pattern", pattern), zap.Error(err))
		return nil, pkgerrors.NewInternalError("failed to search users", err)
	}
	if len(users) == 0 {
		return nil, pkgerrors.ErrUsersNotFound
	}

	log.Debug("users matched", zap.String("pattern", pattern), zap.Int("count", len(users)))
	return &ListUsersResponse{Users: toDTOs(users)}, nil
}

// ListAllUsers returns every stored user. An empty store is not an error.
func (s *Service) ListAllUsers(ctx context.Context) (*ListUsersResponse, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		logger.WithContext(ctx, s.log).Error("failed to list users", zap.Error(err))
		return nil, pkgerrors.NewQueryFailureError("failed to list users", err)
	}

	return &ListUsersResponse{Users: toDTOs(users)}, nil
}

// UpdateUser writes name, email, state and city of an existing user after
// checking that no other user holds the new email. Age is never modified.
func (s *Service) UpdateUser(ctx context.Context, in UpdateUserRequest) (*User, error) {
	log := logger.WithContext(ctx, s.log)
	log.Info("updating user", zap.Int64("id", in.ID), zap.String("name", in.Name), zap.String("email", in.Email))

	if err := s.validate.Struct(in); err != nil {
		log.Warn("validate failed", zap.Error(err))
		return nil, formatValidationError(err)
	}

	existing, err := s.repo.GetByEmail(ctx, in.Email)
	if err != nil {
		log.Error("failed to check existing email", zap.String("email", in.Email), zap.Error(err))
		return nil, pkgerrors.NewInternalError("failed to validate email uniqueness", err)
	}
	if existing != nil && existing.ID != in.ID {
		log.Warn("email already exists", zap.String("email", in.Email), zap.Int64("existing_id", existing.ID))
		return nil, pkgerrors.ErrDuplicateEmail
	}

	if in.ID <= 0 {
		return nil, pkgerrors.ErrUserNotFound
	}

	updated, err := s.repo.Update(ctx, in.ID, domain.UserUpdate{
		Name:  in.Name,
		Email: in.Email,
		State: in.State,
		City:  in.City,
	})
	if err != nil {
		switch {
		case pkgerrors.IsNotFound(err):
			return nil, pkgerrors.ErrUserNotFound
		case pkgerrors.IsAlreadyExists(err):
			log.Warn("email claimed concurrently", zap.String("email", in.Email))
			return nil, pkgerrors.ErrDuplicateEmail
		}
		log.Error("failed to update user", zap.Int64("id", in.ID), zap.Error(err))
		return nil, pkgerrors.NewInternalError("failed to update user", err)
	}

	s.publish(ctx, domain.EventUpdated, updated)
	return toDTO(updated), nil
}

// DeleteUser removes an existing user and returns the record as it was
// immediately before deletion.
func (s *Service) DeleteUser(ctx context.Context, in DeleteUserRequest) (*User, error) {
	log := logger.WithContext(ctx, s.log)
	log.Info("deleting user", zap.Int64("id", in.ID))

	if in.ID <= 0 {
		return nil, pkgerrors.ErrUserNotFound
	}

	snapshot, err := s.repo.GetByID(ctx, in.ID)
	if err != nil {
		if pkgerrors.IsNotFound(err) {
			return nil, pkgerrors.ErrUserNotFound
		}
		log.Error("failed to load user before delete", zap.Int64("id", in.ID), zap.Error(err))
		return nil, pkgerrors.NewInternalError("failed to delete user", err)
	}

	if err := s.repo.Delete(ctx, in.ID); err != nil {
		if pkgerrors.IsNotFound(err) {
			return nil, pkgerrors.ErrUserNotFound
		}
		log.Error("failed to delete user", zap.Int64("id", in.ID), zap.Error(err))
		return nil, pkgerrors.NewInternalError("failed to delete user", err)
	}

	s.publish(ctx, domain.EventDeleted, snapshot)
	return toDTO(snapshot), nil
}

// publish sends a lifecycle event. Failures are logged and never surface to the caller.
func (s *Service) publish(ctx context.Context, eventType string, u *domain.User) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, eventType, u); err != nil {
		logger.WithContext(ctx, s.log).Warn("failed to publish user event",
			zap.String("type", eventType),
			zap.Int64("id", u.ID),
			zap.Error(err),
		)
	}
}
