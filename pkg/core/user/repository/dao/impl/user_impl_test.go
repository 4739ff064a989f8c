package dao

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	apperrors "qingmo/pkg/common/errors"
	"qingmo/pkg/core/user/model"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "user.db")), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, model.AutoMigrate(db))
	return db
}

func TestCreateAndQueryUser(t *testing.T) {
	repo := NewGormUserRepository(newTestDB(t))
	ctx := context.Background()

	u := &model.User{Username: "wang", Password: "hash"}
	require.NoError(t, repo.CreateUser(ctx, u))
	require.NotZero(t, u.ID)

	got, err := repo.QueryByUsername(ctx, "wang")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, 1, got.Version)

	byID, err := repo.QueryByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "wang", byID.Username)

	exists, err := repo.IsUsernameExists(ctx, "wang")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestCreateUser_DuplicateRejected(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormUserRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.CreateUser(ctx, &model.User{Username: "li", Password: "a"}))
	err := repo.CreateUser(ctx, &model.User{Username: "li", Password: "b"})
	require.ErrorIs(t, err, apperrors.ErrDuplicateEntry)

	var count int64
	require.NoError(t, db.Model(&model.User{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	stored, err := repo.QueryByUsername(ctx, "li")
	require.NoError(t, err)
	assert.Equal(t, "a", stored.Password)
}

func TestQuery_NotFound(t *testing.T) {
	repo := NewGormUserRepository(newTestDB(t))
	_, err := repo.QueryByUsername(context.Background(), "ghost")
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
	_, err = repo.QueryByID(context.Background(), 42)
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
}

func TestUpdatePasswordByUsername(t *testing.T) {
	repo := NewGormUserRepository(newTestDB(t))
	ctx := context.Background()
	require.NoError(t, repo.CreateUser(ctx, &model.User{Username: "zhao", Password: "old"}))

	require.NoError(t, repo.UpdatePasswordByUsername(ctx, "zhao", "new"))

	got, err := repo.QueryByUsername(ctx, "zhao")
	require.NoError(t, err)
	assert.Equal(t, "new", got.Password)
	assert.Equal(t, 2, got.Version)

	err = repo.UpdatePasswordByUsername(ctx, "nobody", "x")
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
}
