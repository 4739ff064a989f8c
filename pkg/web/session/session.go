package session

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/hertz/pkg/protocol"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/hertz-contrib/jwt"

	"qingmo/pkg/common/config"
)

const (
	identityKey = "user_id"
	usernameKey = "username"

	LoginPath = "/login"
)

// Identity 登录态中保存的用户信息
type Identity struct {
	UserID   int64
	Username string
}

// Manager 基于 Cookie 中 JWT 的登录态
type Manager struct {
	mw         *jwt.HertzJWTMiddleware
	cookieName string
	maxAge     time.Duration
	secure     bool
	lookup     Lookup
}

// Lookup 按用户 ID 取当前用户名；返回错误时登录态作废
type Lookup func(ctx context.Context, userID int64) (string, error)

type Option func(*Manager)

// WithLookup 每次请求都回查用户，已删除的账号会被踢回登录页
func WithLookup(lookup Lookup) Option {
	return func(m *Manager) { m.lookup = lookup }
}

func New(cfg config.SessionConfig, opts ...Option) (*Manager, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("session secret is required")
	}

	m := &Manager{
		cookieName: cfg.CookieName,
		maxAge:     cfg.MaxAge,
		secure:     cfg.Secure,
	}
	for _, opt := range opts {
		opt(m)
	}

	mw, err := jwt.New(&jwt.HertzJWTMiddleware{
		Realm:       cfg.Realm,
		Key:         []byte(cfg.Secret),
		Timeout:     cfg.MaxAge,
		MaxRefresh:  cfg.MaxAge,
		IdentityKey: identityKey,
		TokenLookup: "cookie:" + cfg.CookieName,
		TimeFunc:    time.Now,
		PayloadFunc: func(data interface{}) jwt.MapClaims {
			if v, ok := data.(Identity); ok {
				return jwt.MapClaims{
					identityKey: v.UserID,
					usernameKey: v.Username,
				}
			}
			return jwt.MapClaims{}
		},
		IdentityHandler: func(ctx context.Context, c *app.RequestContext) interface{} {
			claims := jwt.ExtractClaims(ctx, c)
			id, ok := claims[identityKey].(float64)
			if !ok {
				return nil
			}
			name, _ := claims[usernameKey].(string)
			return Identity{UserID: int64(id), Username: name}
		},
		Authorizator: m.authorize,
		// 页面请求没有登录态时清掉 Cookie 并跳转登录页
		Unauthorized: func(ctx context.Context, c *app.RequestContext, code int, message string) {
			hlog.CtxDebugf(ctx, "[SESSION] path=%s code=%d: %s", c.Path(), code, message)
			m.Logout(c)
			c.Redirect(consts.StatusFound, []byte(LoginPath))
		},
	})
	if err != nil {
		return nil, fmt.Errorf("JWT 中间件初始化失败: %w", err)
	}
	m.mw = mw
	return m, nil
}

func (m *Manager) authorize(data interface{}, ctx context.Context, c *app.RequestContext) bool {
	id, ok := data.(Identity)
	if !ok {
		return false
	}
	if m.lookup == nil {
		return true
	}
	name, err := m.lookup(ctx, id.UserID)
	if err != nil {
		hlog.CtxInfof(ctx, "[SESSION] user_id=%d rejected: %v", id.UserID, err)
		return false
	}
	id.Username = name
	c.Set(identityKey, id)
	return true
}

// Required 需要登录的路由使用
func (m *Manager) Required() app.HandlerFunc {
	return m.mw.MiddlewareFunc()
}

// Login 签发令牌写入 Cookie
func (m *Manager) Login(c *app.RequestContext, id Identity) error {
	token, _, err := m.mw.TokenGenerator(id)
	if err != nil {
		return err
	}
	c.SetCookie(m.cookieName, token, int(m.maxAge.Seconds()), "/", "",
		protocol.CookieSameSiteLaxMode, m.secure, true)
	return nil
}

func (m *Manager) Logout(c *app.RequestContext) {
	c.SetCookie(m.cookieName, "", -1, "/", "", protocol.CookieSameSiteLaxMode, m.secure, true)
}

// Current 只在 Required 之后的处理器中有值
func Current(c *app.RequestContext) (Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	return id, ok
}
