package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	"gopkg.in/natefinch/lumberjack.v2"

	"qingmo/pkg/common/config"
)

// Setup 配置 hlog 的级别与输出；Dir 非空时同时写入按大小滚动的日志文件。
// 返回的 io.Closer 用于退出时关闭日志文件。
func Setup(cfg config.LogConfig) (io.Closer, error) {
	hlog.SetLevel(ParseLevel(cfg.Level))

	if cfg.Dir == "" {
		hlog.SetOutput(os.Stdout)
		return io.NopCloser(nil), nil
	}

	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	fileWriter := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.Dir, "qingmo.log"),
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   true,
	}

	hlog.SetOutput(io.MultiWriter(os.Stdout, fileWriter))
	return fileWriter, nil
}

// ParseLevel 未知级别按 info 处理
func ParseLevel(level string) hlog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return hlog.LevelTrace
	case "debug":
		return hlog.LevelDebug
	case "warn", "warning":
		return hlog.LevelWarn
	case "error":
		return hlog.LevelError
	case "fatal":
		return hlog.LevelFatal
	default:
		return hlog.LevelInfo
	}
}
