package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"gorm.io/gorm"

	"qingmo/pkg/common/clock"
	"qingmo/pkg/common/config"
	"qingmo/pkg/common/logging"
	"qingmo/pkg/common/metrics"
	"qingmo/pkg/core/ai"
	libmodel "qingmo/pkg/core/library/model"
	libdao "qingmo/pkg/core/library/repository/dao/impl"
	library "qingmo/pkg/core/library/service"
	"qingmo/pkg/core/storage"
	usermodel "qingmo/pkg/core/user/model"
	userdao "qingmo/pkg/core/user/repository/dao/impl"
	user "qingmo/pkg/core/user/service"
	"qingmo/pkg/web/router"
	"qingmo/pkg/web/session"
)

func main() {
	// 初始化配置
	cfg := config.Load()

	closer, err := logging.Setup(cfg.Log)
	if err != nil {
		hlog.Fatalf("初始化日志失败: %v", err)
	}
	defer closer.Close()

	// 初始化数据库连接
	db, err := cfg.InitDB()
	if err != nil {
		hlog.Fatalf("Failed to initialize database: %v", err)
	}
	if err := migrate(db, cfg.Database.Seed); err != nil {
		hlog.Fatalf("数据库迁移失败: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	layout := storage.Layout{UploadDir: cfg.Storage.UploadDir, GeneratedDir: cfg.Storage.GeneratedDir}
	var (
		store     storage.Storage
		localRoot string
	)
	switch cfg.Storage.Backend {
	case "s3":
		s3Store, err := storage.NewS3(ctx, cfg.Storage.S3, layout)
		if err != nil {
			hlog.Fatalf("初始化对象存储失败: %v", err)
		}
		store = s3Store
	default:
		local, err := storage.NewLocal(cfg.Storage.StaticRoot, cfg.Storage.URLPrefix, layout)
		if err != nil {
			hlog.Fatalf("初始化本地存储失败: %v", err)
		}
		store, localRoot = local, local.Root()

		if cfg.Storage.Retention.MaxAge > 0 {
			sweeper, err := storage.NewSweeper(local, cfg.Storage.Retention.Schedule, cfg.Storage.Retention.MaxAge)
			if err != nil {
				hlog.Fatalf("初始化文件清理任务失败: %v", err)
			}
			sweeper.Start()
			defer sweeper.Stop()
		}
	}

	aiClient, err := ai.NewClient(cfg.AI)
	if err != nil {
		hlog.Fatalf("初始化 AI 客户端失败: %v", err)
	}
	if !aiClient.Configured() {
		hlog.Warn("未配置 AI 密钥，AI 功能将返回默认结果")
	}

	users := user.NewUserService(userdao.NewGormUserRepository(db))
	sessions, err := session.New(cfg.Session, session.WithLookup(router.SessionLookup(users)))
	if err != nil {
		hlog.Fatalf("初始化会话失败: %v", err)
	}

	if cfg.Metrics.Address != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Address, cfg.Metrics.Path); err != nil {
				hlog.Errorf("metrics server stopped: %v", err)
			}
		}()
	}

	clk := clock.NewRealClock()

	// 创建Hertz实例
	h := server.Default(
		server.WithHostPorts(cfg.Server.Address),
		server.WithHandleMethodNotAllowed(true),
		server.WithMaxRequestBodySize(int(cfg.Middleware.Security.MaxBodySize)),
	)

	// 注册路由
	err = router.RegisterAPIs(h, router.Deps{
		Config:    cfg,
		DB:        db,
		Users:     users,
		Library:   library.NewLibraryService(libdao.NewGormLibraryRepository(db), library.WithClock(clk)),
		AI:        ai.NewService(aiClient, store, ai.WithClock(clk), ai.WithImageSize(cfg.AI.ImageSize)),
		AIReady:   aiClient.Configured,
		Store:     store,
		Sessions:  sessions,
		Flash:     session.NewFlash(cfg.Session.Secret, cfg.Session.FlashCookieName, cfg.Session.Secure),
		Clock:     clk,
		LocalRoot: localRoot,
	})
	if err != nil {
		hlog.Fatalf("注册路由失败: %v", err)
	}

	// 启动服务
	h.Spin()
}

func migrate(db *gorm.DB, seed bool) error {
	if err := usermodel.AutoMigrate(db); err != nil {
		return err
	}
	if err := libmodel.AutoMigrate(db); err != nil {
		return err
	}
	if seed {
		return libdao.Seed(context.Background(), db)
	}
	return nil
}
