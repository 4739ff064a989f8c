package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qingmo_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "qingmo_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"method", "route"},
	)

	AICallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qingmo_ai_calls_total",
			Help: "Total number of AI provider calls by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	AICallDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "qingmo_ai_call_duration_seconds",
			Help:    "Duration of AI operations in seconds",
			Buckets: []float64{.25, .5, 1, 2.5, 5, 10, 20, 40, 80},
		},
		[]string{"operation"},
	)

	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qingmo_uploads_total",
			Help: "Uploaded files by outcome",
		},
		[]string{"outcome"},
	)

	LoginAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qingmo_login_attempts_total",
			Help: "Login attempts by result",
		},
		[]string{"result"},
	)

	RateLimitBlocked = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qingmo_rate_limit_blocked_total",
			Help: "Total number of requests blocked by rate limiter",
		},
		[]string{"path"},
	)

	FilesSwept = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "qingmo_storage_files_swept_total",
			Help: "Files removed by the retention sweeper",
		},
	)
)

// ObserveAI 记录一次 AI 调用的耗时与结果
func ObserveAI(operation, outcome string, started time.Time) {
	AICallsTotal.WithLabelValues(operation, outcome).Inc()
	AICallDurationSeconds.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

// Serve 在独立端口暴露 /metrics，ctx 结束时关闭
func Serve(ctx context.Context, addr, path string) error {
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	hlog.Infof("metrics listening on %s%s", addr, path)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
