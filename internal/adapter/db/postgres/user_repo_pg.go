package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"user-directory-service/internal/domain/user"
	pkgerrors "user-directory-service/pkg/errors"
	"user-directory-service/pkg/security"
)

// UserRepoPG implements the Repository interface using GORM.
// It is used with both PostgreSQL and SQLite dialectors.
type UserRepoPG struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewUserRepoPG creates a new instance of UserRepoPG.
func NewUserRepoPG(db *gorm.DB, log *zap.Logger) *UserRepoPG {
	return &UserRepoPG{db: db, log: log}
}

// UserSchema represents the database schema for the users table.
type UserSchema struct {
	ID    int64  `gorm:"primaryKey;autoIncrement"`
	Name  string `gorm:"not null"`
	Email string `gorm:"not null;uniqueIndex"`
	Age   *int
	State string `gorm:"not null;default:''"`
	City  string `gorm:"not null;default:''"`
}

// TableName specifies the table name for the UserSchema model.
func (UserSchema) TableName() string {
	return "users"
}

func toSchema(u *user.User) UserSchema {
	return UserSchema{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
		Age:   u.Age,
		State: u.State,
		City:  u.City,
	}
}

func (m UserSchema) toDomain() *user.User {
	return &user.User{
		ID:    m.ID,
		Name:  m.Name,
		Email: m.Email,
		Age:   m.Age,
		State: m.State,
		City:  m.City,
	}
}

// isUniqueViolation reports whether err comes from the unique index on email.
// TranslateError covers the postgres driver; the string checks cover sqlite.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}

// Create inserts a new user and returns it with the assigned ID.
func (r *UserRepoPG) Create(ctx context.Context, u *user.User) (*user.User, error) {
	if u == nil {
		return nil, errors.New("user cannot be nil")
	}

	model := toSchema(u)
	model.ID = 0

	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		if isUniqueViolation(err) {
			r.log.Warn("unique violation on create", zap.String("email", u.Email))
			return nil, fmt.Errorf("create user: %w", pkgerrors.ErrDuplicateEmail)
		}
		r.log.Error("failed to create user in db", zap.Error(err), zap.String("email", u.Email))
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	r.log.Info("user created in db", zap.Int64("id", model.ID))
	return model.toDomain(), nil
}

// Update writes name and email, and state and city when set. Age is left untouched.
func (r *UserRepoPG) Update(ctx context.Context, id int64, changes user.UserUpdate) (*user.User, error) {
	fields := map[string]any{
		"name":  changes.Name,
		"email": changes.Email,
	}
	if changes.State != nil {
		fields["state"] = *changes.State
	}
	if changes.City != nil {
		fields["city"] = *changes.City
	}

	res := r.db.WithContext(ctx).Model(&UserSchema{}).Where("id = ?", id).Updates(fields)
	if err := res.Error; err != nil {
		if isUniqueViolation(err) {
			r.log.Warn("unique violation on update", zap.Int64("id", id), zap.String("email", changes.Email))
			return nil, fmt.Errorf("update user: %w", pkgerrors.ErrDuplicateEmail)
		}
		r.log.Error("failed to update user in db", zap.Error(err), zap.Int64("id", id))
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("update user id=%d: %w", id, pkgerrors.ErrUserNotFound)
	}

	r.log.Info("user updated in db", zap.Int64("id", id))
	return r.GetByID(ctx, id)
}

// Delete removes a user from the database by ID.
func (r *UserRepoPG) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&UserSchema{}, id)
	if err := res.Error; err != nil {
		r.log.Error("failed to delete user in db", zap.Error(err), zap.Int64("id", id))
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("delete user id=%d: %w", id, pkgerrors.ErrUserNotFound)
	}

	r.log.Info("user deleted in db", zap.Int64("id", id))
	return nil
}

// GetByID retrieves a user from the database by their unique ID.
func (r *UserRepoPG) GetByID(ctx context.Context, id int64) (*user.User, error) {
	var model UserSchema
	if err := r.db.WithContext(ctx).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			r.log.Debug("user not found", zap.Int64("id", id))
			return nil, fmt.Errorf("id=%d: %w", id, pkgerrors.ErrUserNotFound)
		}
		r.log.Error("failed to get user from db", zap.Error(err), zap.Int64("id", id))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return model.toDomain(), nil
}

// GetByEmail retrieves a user by email. A missing row is (nil, nil).
func (r *UserRepoPG) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	var model UserSchema
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			r.log.Debug("user not found by email", zap.String("email", email))
			return nil, nil
		}
		r.log.Error("failed to get user by email from db", zap.Error(err), zap.String("email", email))
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return model.toDomain(), nil
}

// SearchByName returns users whose name contains pattern, ordered by ID.
// LIKE wildcards in pattern match literally.
func (r *UserRepoPG) SearchByName(ctx context.Context, pattern string) ([]user.User, error) {
	var models []UserSchema
	err := r.db.WithContext(ctx).
		Where(`name LIKE ? ESCAPE '\'`, security.ContainsPattern(pattern)).
		Order("id").
		Find(&models).Error
	if err != nil {
		r.log.Error("failed to search users in db", zap.Error(err), zap.String("pattern", pattern))
		return nil, fmt.Errorf("failed to search users: %w", err)
	}

	return toDomainList(models), nil
}

// List returns every user ordered by ID.
func (r *UserRepoPG) List(ctx context.Context) ([]user.User, error) {
	var models []UserSchema
	if err := r.db.WithContext(ctx).Order("id").Find(&models).Error; err != nil {
		r.log.Error("failed to list users from db", zap.Error(err))
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	return toDomainList(models), nil
}

func toDomainList(models []UserSchema) []user.User {
	users := make([]user.User, len(models))
	for i, model := range models {
		users[i] = *model.toDomain()
	}
	return users
}
