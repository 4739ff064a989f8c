package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	"golang.org/x/crypto/bcrypt"

	apperrors "qingmo/pkg/common/errors"
	"qingmo/pkg/core/user/model"
	"qingmo/pkg/core/user/repository/dao"
)

// UserService 账号注册、登录与找回密码
type UserService struct {
	repo     dao.UserRepository
	hashCost int
}

type Option func(*UserService)

// WithHashCost 测试中可以调低 bcrypt 代价
func WithHashCost(cost int) Option {
	return func(s *UserService) { s.hashCost = cost }
}

func NewUserService(repo dao.UserRepository, opts ...Option) *UserService {
	s := &UserService{repo: repo, hashCost: bcrypt.DefaultCost}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login 校验用户名密码，失败统一返回 ErrInvalidCredentials
func (s *UserService) Login(ctx context.Context, username, password string) (model.User, error) {
	username, password = strings.TrimSpace(username), strings.TrimSpace(password)
	if username == "" || password == "" {
		return model.User{}, apperrors.ErrEmptyField
	}

	user, err := s.repo.QueryByUsername(ctx, username)
	if errors.Is(err, apperrors.ErrUserNotFound) {
		return model.User{}, apperrors.ErrInvalidCredentials
	}
	if err != nil {
		return model.User{}, err
	}

	if isHashed(user.Password) {
		if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
			return model.User{}, apperrors.ErrInvalidCredentials
		}
		return user, nil
	}

	// 旧库中的明文密码：完全一致才放行，随后升级为哈希
	if subtle.ConstantTimeCompare([]byte(user.Password), []byte(password)) != 1 {
		return model.User{}, apperrors.ErrInvalidCredentials
	}
	if hash, err := s.hash(password); err == nil {
		if err := s.repo.UpdatePasswordByUsername(ctx, username, hash); err != nil {
			hlog.CtxWarnf(ctx, "upgrade legacy password for %s failed: %v", username, err)
		}
	}
	return user, nil
}

// Profile 按 ID 查询用户，不存在时返回 ErrUserNotFound
func (s *UserService) Profile(ctx context.Context, id int64) (model.User, error) {
	return s.repo.QueryByID(ctx, id)
}

// Register 创建新用户，用户名重复时返回 ErrDuplicateEntry 且不写入任何数据
func (s *UserService) Register(ctx context.Context, username, password, confirm string) (model.User, error) {
	username = strings.TrimSpace(username)
	password, confirm = strings.TrimSpace(password), strings.TrimSpace(confirm)

	if username == "" || password == "" {
		return model.User{}, apperrors.ErrEmptyField
	}
	if password != confirm {
		return model.User{}, apperrors.ErrPasswordMismatch
	}

	// 检查用户名重复
	exists, err := s.repo.IsUsernameExists(ctx, username)
	if err != nil {
		return model.User{}, err
	}
	if exists {
		return model.User{}, apperrors.ErrDuplicateEntry
	}

	hash, err := s.hash(password)
	if err != nil {
		return model.User{}, err
	}

	user := model.User{Username: username, Password: hash}
	// 并发注册时由唯一索引兜底
	if err := s.repo.CreateUser(ctx, &user); err != nil {
		return model.User{}, err
	}
	return user, nil
}

// ResetPassword 无条件覆盖指定用户名的密码
func (s *UserService) ResetPassword(ctx context.Context, username, newPassword string) error {
	username, newPassword = strings.TrimSpace(username), strings.TrimSpace(newPassword)
	if username == "" || newPassword == "" {
		return apperrors.ErrEmptyField
	}

	hash, err := s.hash(newPassword)
	if err != nil {
		return err
	}
	return s.repo.UpdatePasswordByUsername(ctx, username, hash)
}

func (s *UserService) hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", apperrors.ErrTooLong
	}
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// isHashed 判断存储值是否为 bcrypt 哈希
func isHashed(stored string) bool {
	if len(stored) != 60 {
		return false
	}
	_, err := bcrypt.Cost([]byte(stored))
	return err == nil
}
