package router

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"gorm.io/gorm"

	"qingmo/pkg/common/clock"
	"qingmo/pkg/common/config"
	"qingmo/pkg/core/ai"
	library "qingmo/pkg/core/library/service"
	"qingmo/pkg/core/storage"
	user "qingmo/pkg/core/user/service"
	"qingmo/pkg/web/handler"
	"qingmo/pkg/web/middleware"
	"qingmo/pkg/web/session"
	"qingmo/pkg/web/view"
)

// Deps 路由依赖，由 main 组装
type Deps struct {
	Config   *config.Config
	DB       *gorm.DB
	Users    *user.UserService
	Library  *library.LibraryService
	AI       *ai.Service
	AIReady  func() bool
	Store    storage.Storage
	Sessions *session.Manager
	Flash    *session.Flash
	Clock    clock.Clock
	// LocalRoot 本地存储根目录，非空时挂载静态文件路由
	LocalRoot string
}

// RegisterAPIs 注册中间件、页面路由与静态资源
func RegisterAPIs(h *server.Hertz, d Deps) error {
	cfg := d.Config
	if d.Clock == nil {
		d.Clock = clock.NewRealClock()
	}

	tmpl, err := view.Templates()
	if err != nil {
		return fmt.Errorf("parse templates: %w", err)
	}
	h.SetHTMLTemplate(tmpl)

	// 初始化Handler实例
	pages := handler.NewPages(d.Flash)
	healthHandler := handler.NewHealthCheckHandler(d.DB, d.LocalRoot, d.AIReady)
	authHandler := handler.NewAuthHandler(pages, d.Users, d.Sessions)
	contentHandler := handler.NewContentHandler(pages, d.Library)
	aiHandler := handler.NewAIHandler(pages, d.AI, d.Store,
		storage.NewPolicy(cfg.Upload.MaxBytes, cfg.Upload.AllowedExts), d.Clock)

	// 限流器随服务关闭停止补充令牌
	limiter := middleware.NewTokenBucket(cfg.Middleware.RateLimit.Rate, cfg.Middleware.RateLimit.Interval)
	if limiter != nil {
		h.OnShutdown = append(h.OnShutdown, func(context.Context) { limiter.Stop() })
	}

	// 注册全局中间件（按执行顺序）
	h.Use(
		middleware.RecoveryMiddleware(cfg),
		middleware.LoggerMiddleware(),
		middleware.MetricsMiddleware(),
		middleware.SecurityCheckMiddleware(cfg.Middleware.Security),
		middleware.CORSMiddleware(cfg.Middleware.CORS),
		middleware.RateLimitMiddleware(limiter),
	)

	// 基础接口
	h.GET("/health", healthHandler.AdvancedHealthCheck)
	h.GET("/assets/*filepath", pages.Assets(view.Assets()))
	if d.LocalRoot != "" {
		prefix := "/" + strings.Trim(cfg.Storage.URLPrefix, "/")
		h.StaticFS(prefix, &app.FS{
			Root:         d.LocalRoot,
			PathRewrite:  app.NewPathSlashesStripper(strings.Count(prefix, "/")),
			PathNotFound: pages.NotFound,
		})
	}

	// 账号
	h.GET("/login", authHandler.LoginPage)
	h.POST("/login", authHandler.Login)
	h.GET("/register", authHandler.RegisterPage)
	h.POST("/register", authHandler.Register)
	h.GET("/forget_pwd", authHandler.ForgetPwdPage)
	h.POST("/forget_pwd", authHandler.ForgetPwd)
	h.GET("/logout", authHandler.Logout)

	// 需要登录的页面
	pagesGroup := h.Group("/", d.Sessions.Required())
	{
		pagesGroup.GET("/", contentHandler.Index)
		pagesGroup.GET("/dynasty", contentHandler.Dynasty)
		pagesGroup.GET("/zitie", contentHandler.Zitie)
		pagesGroup.GET("/dictionary", contentHandler.Dictionary)
		pagesGroup.GET("/ai", aiHandler.Page)
		pagesGroup.POST("/ai", aiHandler.Submit)
	}

	h.NoRoute(pages.NotFound)
	return nil
}

// SessionLookup 登录态按用户 ID 回查数据库，取最新用户名
func SessionLookup(users *user.UserService) session.Lookup {
	return func(ctx context.Context, userID int64) (string, error) {
		u, err := users.Profile(ctx, userID)
		if err != nil {
			return "", err
		}
		return u.Username, nil
	}
}
