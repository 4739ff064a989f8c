package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/hertz/pkg/common/utils"

	apperrors "qingmo/pkg/common/errors"
	"qingmo/pkg/common/metrics"
	"qingmo/pkg/core/user/service"
	"qingmo/pkg/web/model"
	"qingmo/pkg/web/session"
	"qingmo/pkg/web/view"
)

// 页面提示
const (
	MsgLoginOK          = "登录成功！"
	MsgBadCredentials   = "用户名或密码错误！"
	MsgEmptyCredentials = "用户名和密码不能为空！"
	MsgPasswordMismatch = "两次密码输入不一致！"
	MsgRegisterOK       = "注册成功！请登录"
	MsgUsernameTaken    = "用户名已存在！"
	MsgEmptyReset       = "用户名和新密码不能为空！"
	MsgResetOK          = "密码修改成功！请登录"
	MsgUnknownUser      = "用户名不存在！"
	MsgLoggedOut        = "已退出登录！"
	MsgTooLong          = "用户名或密码过长！"
)

type AuthHandler struct {
	*Pages
	users    *service.UserService
	sessions *session.Manager
}

func NewAuthHandler(pages *Pages, users *service.UserService, sessions *session.Manager) *AuthHandler {
	return &AuthHandler{Pages: pages, users: users, sessions: sessions}
}

func (h *AuthHandler) LoginPage(ctx context.Context, c *app.RequestContext) {
	h.Render(c, http.StatusOK, view.PageLogin, utils.H{"Title": "登录"})
}

func (h *AuthHandler) Login(ctx context.Context, c *app.RequestContext) {
	render := func(msg string) {
		h.Render(c, http.StatusOK, view.PageLogin, utils.H{"Title": "登录"}, msg)
	}

	var form model.LoginForm
	if err := c.Bind(&form); err != nil {
		render(MsgEmptyCredentials)
		return
	}
	if err := form.Validate(); err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues("invalid").Inc()
		if errors.Is(err, apperrors.ErrEmptyField) {
			render(MsgEmptyCredentials)
		} else {
			render(MsgBadCredentials)
		}
		return
	}

	user, err := h.users.Login(ctx, form.Username, form.Password)
	switch {
	case errors.Is(err, apperrors.ErrInvalidCredentials):
		metrics.LoginAttemptsTotal.WithLabelValues("rejected").Inc()
		render(MsgBadCredentials)
		return
	case errors.Is(err, apperrors.ErrEmptyField):
		render(MsgEmptyCredentials)
		return
	case err != nil:
		h.Fail(ctx, c, err)
		return
	}

	if err := h.sessions.Login(c, session.Identity{UserID: user.ID, Username: user.Username}); err != nil {
		h.Fail(ctx, c, err)
		return
	}
	metrics.LoginAttemptsTotal.WithLabelValues("ok").Inc()
	hlog.CtxInfof(ctx, "[AUTH] 用户登录 user=%s", user.Username)
	h.Redirect(c, "/", MsgLoginOK)
}

func (h *AuthHandler) RegisterPage(ctx context.Context, c *app.RequestContext) {
	h.Render(c, http.StatusOK, view.PageRegister, utils.H{"Title": "注册"})
}

func (h *AuthHandler) Register(ctx context.Context, c *app.RequestContext) {
	render := func(msg string) {
		h.Render(c, http.StatusOK, view.PageRegister, utils.H{"Title": "注册"}, msg)
	}

	var form model.RegisterForm
	if err := c.Bind(&form); err != nil {
		render(MsgEmptyCredentials)
		return
	}
	if err := form.Validate(); err != nil {
		_ = c.Error(apperrors.Public(err))
		if errors.Is(err, apperrors.ErrEmptyField) {
			render(MsgEmptyCredentials)
		} else {
			render(MsgTooLong)
		}
		return
	}

	user, err := h.users.Register(ctx, form.Username, form.Password, form.ConfirmPwd)
	switch {
	case errors.Is(err, apperrors.ErrEmptyField):
		render(MsgEmptyCredentials)
	case errors.Is(err, apperrors.ErrPasswordMismatch):
		render(MsgPasswordMismatch)
	case errors.Is(err, apperrors.ErrDuplicateEntry):
		render(MsgUsernameTaken)
	case errors.Is(err, apperrors.ErrTooLong):
		render(MsgTooLong)
	case err != nil:
		h.Fail(ctx, c, err)
	default:
		hlog.CtxInfof(ctx, "[AUTH] 新用户注册 user=%s", user.Username)
		h.Redirect(c, "/login", MsgRegisterOK)
	}
}

func (h *AuthHandler) ForgetPwdPage(ctx context.Context, c *app.RequestContext) {
	h.Render(c, http.StatusOK, view.PageForgetPwd, utils.H{"Title": "修改密码"})
}

func (h *AuthHandler) ForgetPwd(ctx context.Context, c *app.RequestContext) {
	render := func(msg string) {
		h.Render(c, http.StatusOK, view.PageForgetPwd, utils.H{"Title": "修改密码"}, msg)
	}

	var form model.ForgetPwdForm
	if err := c.Bind(&form); err != nil {
		render(MsgEmptyReset)
		return
	}
	if err := form.Validate(); err != nil {
		_ = c.Error(apperrors.Public(err))
		if errors.Is(err, apperrors.ErrEmptyField) {
			render(MsgEmptyReset)
		} else {
			render(MsgTooLong)
		}
		return
	}

	err := h.users.ResetPassword(ctx, form.Username, form.NewPwd)
	switch {
	case errors.Is(err, apperrors.ErrEmptyField):
		render(MsgEmptyReset)
	case errors.Is(err, apperrors.ErrUserNotFound):
		render(MsgUnknownUser)
	case errors.Is(err, apperrors.ErrTooLong):
		render(MsgTooLong)
	case err != nil:
		h.Fail(ctx, c, err)
	default:
		hlog.CtxInfof(ctx, "[AUTH] 密码已重置 user=%s", form.Username)
		h.Redirect(c, "/login", MsgResetOK)
	}
}

func (h *AuthHandler) Logout(ctx context.Context, c *app.RequestContext) {
	h.sessions.Logout(c)
	h.Redirect(c, "/login", MsgLoggedOut)
}
