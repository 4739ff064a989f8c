package dao

import (
	"context"

	"qingmo/pkg/core/user/model"
)

type UserRepository interface {
	QueryByID(ctx context.Context, id int64) (model.User, error)
	QueryByUsername(ctx context.Context, username string) (model.User, error)
	IsUsernameExists(ctx context.Context, username string) (bool, error)
	CreateUser(ctx context.Context, user *model.User) error
	// UpdatePasswordByUsername 返回 ErrUserNotFound 表示没有匹配的行
	UpdatePasswordByUsername(ctx context.Context, username, password string) error
}
