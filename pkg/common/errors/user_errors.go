// pkg/common/errors/user_errors.go

/*
  - 使用实例
    // 业务层返回哨兵错误，调用方用 errors.Is 判断:
    if errors.Is(err, apperrors.ErrDuplicateEntry) {
    // 提示用户名已存在
    }

    // 需要挂到 Hertz 请求上下文时:
    _ = c.Error(apperrors.Public(err))
*/
package errors

import (
	"errors"

	hzte "github.com/cloudwego/hertz/pkg/common/errors"
)

// 定义原始错误
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrDuplicateEntry     = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrEmptyField         = errors.New("required field is empty")
	ErrPasswordMismatch   = errors.New("password confirmation does not match")
	ErrTooLong            = errors.New("field too long")
	ErrDatabaseInternal   = errors.New("database internal error")
	ErrRecordNotFound     = errors.New("record not found")
)

// Public 包装成 Hertz 公开错误类型，meta 可携带请求相关信息
func Public(err error) *hzte.Error {
	return hzte.New(err, hzte.ErrorTypePublic, nil)
}

// Private 包装成 Hertz 私有错误类型，不会展示给用户
func Private(err error, meta interface{}) *hzte.Error {
	return hzte.New(err, hzte.ErrorTypePrivate, meta)
}
