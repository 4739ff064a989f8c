package middleware

import (
	"context"
	"fmt"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/errors"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/hertz-contrib/cors"

	"qingmo/pkg/common/config"
	"qingmo/pkg/common/metrics"
	"qingmo/pkg/web/view"
)

// LoggerMiddleware 请求日志，附带处理器挂在上下文上的错误
func LoggerMiddleware() app.HandlerFunc {
	return func(c context.Context, ctx *app.RequestContext) {
		start := time.Now()
		ctx.Next(c) // 放行到后续处理器
		latency := time.Since(start)

		hlog.CtxInfof(c, "| %3d | %13v | %15s | %-7s | %s | UA=%s",
			ctx.Response.StatusCode(),
			latency,
			ctx.ClientIP(),
			ctx.Method(),
			ctx.Path(),
			ctx.GetHeader("User-Agent"),
		)
		// 公开错误是用户输入问题，私有错误是服务端故障
		if public := ctx.Errors.ByType(errors.ErrorTypePublic); len(public) > 0 {
			hlog.CtxWarnf(c, "| %s | rejected: %s", ctx.Path(), strings.Join(public.Errors(), "; "))
		}
		if private := ctx.Errors.ByType(errors.ErrorTypePrivate); len(private) > 0 {
			hlog.CtxErrorf(c, "| %s | errors: %s", ctx.Path(), private.String())
		}
	}
}

/*
	启动时指定环境变量
	export APP_ENV=production
	go run ./cmd/web
*/

// RecoveryMiddleware 捕获 panic：生产环境返回错误页，开发环境返回堆栈
func RecoveryMiddleware(cfg *config.Config) app.HandlerFunc {
	return func(c context.Context, ctx *app.RequestContext) {
		defer func() {
			if err := recover(); err != nil {
				stack := string(debug.Stack())

				hlog.CtxErrorf(c, "[PANIC RECOVERED] %v\n%s", err, stack)

				if cfg.IsProd() {
					ctx.HTML(consts.StatusInternalServerError, view.PageError, utils.H{"Title": "出错了"})
					ctx.Abort()
					return
				}
				ctx.AbortWithStatusJSON(consts.StatusInternalServerError, utils.H{
					"code":  500,
					"error": fmt.Sprintf("%v", err),
					"stack": strings.Split(stack, "\n"),
				})
			}
		}()
		ctx.Next(c)
	}
}

// MetricsMiddleware 按路由模板统计请求数与耗时
func MetricsMiddleware() app.HandlerFunc {
	return func(c context.Context, ctx *app.RequestContext) {
		start := time.Now()
		ctx.Next(c)

		route := ctx.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := string(ctx.Method())
		metrics.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(ctx.Response.StatusCode())).Inc()
		metrics.HTTPRequestDurationSeconds.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

// CORSMiddleware 跨域配置
func CORSMiddleware(corsConfig config.CORSConfig) app.HandlerFunc {
	return cors.New(
		cors.Config{
			AllowOrigins:     corsConfig.AllowOrigins,
			AllowMethods:     corsConfig.AllowMethods,
			AllowHeaders:     corsConfig.AllowHeaders,
			ExposeHeaders:    corsConfig.ExposeHeaders,
			AllowCredentials: corsConfig.AllowCredentials,
			MaxAge:           corsConfig.MaxAge,
			// 动态校验来源
			AllowOriginFunc: func(origin string) bool {
				for _, domain := range corsConfig.TrustedDomains {
					if strings.Contains(origin, domain) {
						return true
					}
				}
				return false
			},
		},
	)
}

// RateLimitMiddleware 令牌桶限流，limiter 为 nil 时不限流
func RateLimitMiddleware(limiter *TokenBucket) app.HandlerFunc {
	if limiter == nil {
		return func(c context.Context, ctx *app.RequestContext) { ctx.Next(c) }
	}

	return func(c context.Context, ctx *app.RequestContext) {
		if !limiter.Allow() {
			hlog.CtxInfof(c, "[RATE LIMIT] path=%s", ctx.Path())
			metrics.RateLimitBlocked.WithLabelValues(ctx.FullPath()).Inc()
			ctx.AbortWithMsg("请求过于频繁，请稍后再试", consts.StatusTooManyRequests)
			return
		}
		ctx.Next(c)
	}
}

// TokenBucket 容量为 rate，每个 interval 补充一个令牌
type TokenBucket struct {
	tokens   chan struct{}
	stop     chan struct{}
	stopOnce sync.Once
}

// NewTokenBucket rate 或 interval 不为正时返回 nil，表示不限流
func NewTokenBucket(rate int, interval time.Duration) *TokenBucket {
	if rate <= 0 || interval <= 0 {
		return nil
	}
	tb := &TokenBucket{
		tokens: make(chan struct{}, rate),
		stop:   make(chan struct{}),
	}
	for i := 0; i < rate; i++ {
		tb.tokens <- struct{}{}
	}

	// 定时器生产令牌
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				select {
				case tb.tokens <- struct{}{}:
				default:
				}
			case <-tb.stop:
				return
			}
		}
	}()
	return tb
}

func (tb *TokenBucket) Allow() bool {
	select {
	case <-tb.tokens:
		return true
	default:
		return false
	}
}

// Stop 停止补充令牌，可重复调用
func (tb *TokenBucket) Stop() {
	tb.stopOnce.Do(func() { close(tb.stop) })
}

// SecurityCheckMiddleware 请求体大小与 HTTP 方法检查
func SecurityCheckMiddleware(cfg config.SecurityConfig) app.HandlerFunc {
	allowed := make(map[string]bool, len(cfg.AllowedMethods))
	for _, m := range cfg.AllowedMethods {
		allowed[strings.ToUpper(m)] = true
	}

	return func(c context.Context, ctx *app.RequestContext) {
		if cfg.MaxBodySize > 0 && int64(ctx.Request.Header.ContentLength()) > cfg.MaxBodySize {
			securityResponse(ctx, "request body exceeds max size", consts.StatusRequestEntityTooLarge)
			return
		}

		if len(allowed) > 0 && !allowed[string(ctx.Method())] {
			securityResponse(ctx, "method not allowed", consts.StatusMethodNotAllowed)
			return
		}

		ctx.Next(c)
	}
}

func securityResponse(ctx *app.RequestContext, msg string, status int) {
	hlog.Warnf("SecurityAlert[%d] %s %s: %s", status, ctx.Method(), ctx.Path(), msg)
	ctx.AbortWithMsg(msg, status)
}
