package handler

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/shirou/gopsutil/v3/disk"
	"gorm.io/gorm"
)

const (
	statusOK       = "ok"
	statusWarning  = "warning"
	statusCritical = "critical"

	// 上传目录所在磁盘使用率超过该值时告警
	diskWarnPercent = 90.0
)

type HealthCheckHandler struct {
	db          *gorm.DB
	storageRoot string // 为空时不检查磁盘（S3 存储）
	aiReady     func() bool
}

func NewHealthCheckHandler(db *gorm.DB, storageRoot string, aiReady func() bool) *HealthCheckHandler {
	return &HealthCheckHandler{db: db, storageRoot: storageRoot, aiReady: aiReady}
}

type HealthStatus struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Uptime     string            `json:"uptime"`
	Components []ComponentStatus `json:"components,omitempty"`
}

type ComponentStatus struct {
	Name    string        `json:"name"`
	Status  string        `json:"status"`
	IsCore  bool          `json:"is_core"` // 核心组件异常时整体不可用
	Latency time.Duration `json:"latency,omitempty"`
	Error   string        `json:"error,omitempty"`
}

var startupTime = time.Now()

// AdvancedHealthCheck 数据库、存储磁盘、AI 配置
func (h *HealthCheckHandler) AdvancedHealthCheck(ctx context.Context, c *app.RequestContext) {
	status := HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(startupTime).Round(time.Second).String(),
		Components: []ComponentStatus{
			h.checkDatabase(ctx),
			h.checkDisk(),
			h.checkAI(),
		},
	}

	if hasCriticalErrors(status.Components) {
		status.Status = "degraded"
		c.JSON(503, status)
		return
	}

	c.JSON(200, status)
}

func (h *HealthCheckHandler) checkDatabase(ctx context.Context) ComponentStatus {
	comp := ComponentStatus{Name: "database", IsCore: true, Status: statusOK}
	start := time.Now()

	sqlDB, err := h.db.DB()
	if err == nil {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		err = sqlDB.PingContext(pingCtx)
	}
	comp.Latency = time.Since(start)
	if err != nil {
		comp.Status = statusCritical
		comp.Error = err.Error()
	}
	return comp
}

func (h *HealthCheckHandler) checkDisk() ComponentStatus {
	comp := ComponentStatus{Name: "storage", Status: statusOK}
	if h.storageRoot == "" {
		return comp
	}

	usage, err := disk.Usage(h.storageRoot)
	if err != nil {
		comp.Status = statusWarning
		comp.Error = err.Error()
		return comp
	}
	if usage.UsedPercent >= diskWarnPercent {
		comp.Status = statusWarning
		comp.Error = fmt.Sprintf("disk usage %.1f%%", usage.UsedPercent)
	}
	return comp
}

// checkAI 只检查是否配置了密钥，不调用外部接口
func (h *HealthCheckHandler) checkAI() ComponentStatus {
	comp := ComponentStatus{Name: "ai", Status: statusOK}
	if h.aiReady != nil && !h.aiReady() {
		comp.Status = statusWarning
		comp.Error = "api key not configured"
	}
	return comp
}

func hasCriticalErrors(components []ComponentStatus) bool {
	for _, comp := range components {
		// 核心组件状态异常或任意组件发生严重错误
		if (comp.IsCore && comp.Status != statusOK) || comp.Status == statusCritical {
			return true
		}
	}
	return false
}
