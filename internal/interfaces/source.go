package interfaces

import (
	"context"
	"time"

	"ProgressSync/internal/config"
	"ProgressSync/internal/model"

	"github.com/sirupsen/logrus"
)

// SubmissionSource 各区服必须实现的提交记录数据源
// 拉取失败时降级为空结果（nil），不向上返回错误
type SubmissionSource interface {
	GetRegion() model.Region
	FetchRecentSubmissions(ctx context.Context, username string) model.SubmissionFeed
}

// Factory 提交数据源工厂函数签名
// 入参：区服、区服配置、单次拉取条数、日志实例
type Factory func(region model.Region, cfg *config.PlatformConfig, limit int, logger *logrus.Logger) SubmissionSource

// ScheduleSource 报名表数据源，返回二维单元格（第 0 行为表头）；失败时返回 nil
type ScheduleSource interface {
	FetchRows(ctx context.Context) [][]string
}

// CatalogSeeder 题库种子数据（[编号, 标题, 难度, 通过率]，可能包含表头）
type CatalogSeeder interface {
	Load(ctx context.Context) ([][]string, error)
}

// LeaderboardCache 排行榜缓存，未命中返回 false
type LeaderboardCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Invalidate(ctx context.Context) error
}
