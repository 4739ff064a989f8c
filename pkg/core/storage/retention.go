package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/robfig/cron/v3"

	"qingmo/pkg/common/metrics"
)

type Pruner interface {
	Prune(olderThan time.Time) (int, error)
}

// Sweeper 定时清理过期的上传与生成图片
type Sweeper struct {
	cron   *cron.Cron
	pruner Pruner
	maxAge time.Duration
	now    func() time.Time
}

// NewSweeper schedule 为带秒的 cron 表达式
func NewSweeper(pruner Pruner, schedule string, maxAge time.Duration) (*Sweeper, error) {
	if maxAge <= 0 {
		return nil, fmt.Errorf("retention max age must be positive, got %s", maxAge)
	}

	s := &Sweeper{
		cron:   cron.New(cron.WithSeconds()),
		pruner: pruner,
		maxAge: maxAge,
		now:    time.Now,
	}
	if _, err := s.cron.AddFunc(schedule, s.RunOnce); err != nil {
		return nil, fmt.Errorf("添加文件清理任务失败: %w", err)
	}
	return s, nil
}

func (s *Sweeper) Start() {
	hlog.Infof("[文件清理] 已启动，保留 %s", s.maxAge)
	s.cron.Start()
}

// Stop 返回的 context 在正在执行的任务结束后关闭
func (s *Sweeper) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Sweeper) RunOnce() {
	removed, err := s.pruner.Prune(s.now().Add(-s.maxAge))
	if removed > 0 {
		metrics.FilesSwept.Add(float64(removed))
	}
	if err != nil {
		hlog.Errorf("[文件清理] 失败: %v", err)
		return
	}
	hlog.Infof("[文件清理] 删除 %d 个过期文件", removed)
}
