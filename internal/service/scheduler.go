package service

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
)

// Runner 被定时执行的同步入口
type Runner interface {
	SyncAll(ctx context.Context) error
}

// Scheduler 定时触发全量同步；启动时立即执行一次
type Scheduler struct {
	runner   Runner
	interval time.Duration
	logger   *logrus.Logger
}

func NewScheduler(runner Runner, interval time.Duration, logger *logrus.Logger) *Scheduler {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &Scheduler{runner: runner, interval: interval, logger: logger}
}

// Run 阻塞直到 ctx 取消
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.WithField("interval", s.interval.String()).Info("定时同步已启动")
	s.tick(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("定时同步已停止")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	err := s.runner.SyncAll(ctx)
	switch {
	case err == nil:
	case errors.Is(err, ErrSyncInProgress):
		s.logger.Warn("上一次同步仍在运行，本次跳过")
	case errors.Is(err, context.Canceled):
	default:
		s.logger.WithError(err).Error("定时同步失败")
	}
}
