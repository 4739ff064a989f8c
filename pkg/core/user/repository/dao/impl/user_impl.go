package dao

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	apperrors "qingmo/pkg/common/errors"
	"qingmo/pkg/core/user/model"
	"qingmo/pkg/core/user/repository/dao"
)

type GormUserRepository struct {
	db *gorm.DB
}

var _ dao.UserRepository = (*GormUserRepository)(nil)

func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// User查询方法实现
func (r *GormUserRepository) QueryByID(ctx context.Context, id int64) (model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&user).
		Error

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return model.User{}, apperrors.ErrUserNotFound
	case err != nil:
		return model.User{}, fmt.Errorf("user query failed: %w", apperrors.WrapGormError(err))
	default:
		return user, nil
	}
}

func (r *GormUserRepository) QueryByUsername(ctx context.Context, username string) (model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Where("username = ?", username).
		First(&user).
		Error

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return model.User{}, apperrors.ErrUserNotFound
	case err != nil:
		return model.User{}, fmt.Errorf("user lookup failed: %w", apperrors.WrapGormError(err))
	default:
		return user, nil
	}
}

// Check username existence
func (r *GormUserRepository) IsUsernameExists(ctx context.Context, username string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.User{}).
		Where("username = ?", username).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check username: %w", apperrors.WrapGormError(err))
	}
	return count > 0, nil
}

// Create new user with transaction
func (r *GormUserRepository) CreateUser(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			if apperrors.IsDuplicateError(err) {
				return apperrors.ErrDuplicateEntry
			}
			return fmt.Errorf("user creation failed: %w", apperrors.WrapGormError(err))
		}
		return nil
	})
}

// Update password with version control
func (r *GormUserRepository) UpdatePasswordByUsername(ctx context.Context, username, password string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user model.User
		if err := tx.Select("id", "version").
			Where("username = ?", username).
			First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrUserNotFound
			}
			return apperrors.WrapGormError(err)
		}

		result := tx.Model(&model.User{}).
			Where("id = ? AND version = ?", user.ID, user.Version).
			Updates(map[string]interface{}{
				"password":   password,
				"version":    user.Version + 1,
				"updated_at": time.Now(),
			})

		if result.Error != nil {
			return fmt.Errorf("password update failed: %w", apperrors.WrapGormError(result.Error))
		}

		if result.RowsAffected == 0 {
			return apperrors.ErrUserNotFound
		}
		return nil
	})
}
