package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"ProgressSync/internal/adapter"
	"ProgressSync/internal/interfaces"
	"ProgressSync/internal/metrics"
	"ProgressSync/internal/model"
	"ProgressSync/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

// SubmissionSyncStats 一次提交同步的统计
type SubmissionSyncStats struct {
	Members        int `json:"members"`
	SourceFailures int `json:"source_failures"`
	MemberFailures int `json:"member_failures"`
	CompletionStats
}

// CatalogSyncStats 一次题库刷新的统计
type CatalogSyncStats struct {
	Inserted int `json:"inserted"`
}

// BenchmarkStats 排行榜重建统计
type BenchmarkStats struct {
	Day  int `json:"day"`
	Week int `json:"week"`
	All  int `json:"all"`
}

// SyncService 同步编排：报名表、提交记录、题库、排行榜缓存。
// 同一进程内的所有同步串行执行（定时任务与 HTTP 触发共用一把锁），不做跨进程加锁
type SyncService struct {
	mu sync.Mutex

	sheets      interfaces.ScheduleSource
	sources     *adapter.SourceRegistry
	members     repository.MemberRepository
	operations  repository.OperationRepository
	catalog     *CatalogService
	enrollment  *EnrollmentService
	completion  *CompletionService
	leaderboard *LeaderboardService
	metrics     *metrics.Manager
	logger      *logrus.Logger
}

func NewSyncService(
	sheets interfaces.ScheduleSource,
	sources *adapter.SourceRegistry,
	members repository.MemberRepository,
	operations repository.OperationRepository,
	catalog *CatalogService,
	enrollment *EnrollmentService,
	completion *CompletionService,
	leaderboard *LeaderboardService,
	m *metrics.Manager,
	logger *logrus.Logger,
) *SyncService {
	return &SyncService{
		sheets:      sheets,
		sources:     sources,
		members:     members,
		operations:  operations,
		catalog:     catalog,
		enrollment:  enrollment,
		completion:  completion,
		leaderboard: leaderboard,
		metrics:     m,
		logger:      logger,
	}
}

// SyncCatalog 从种子刷新题库
func (s *SyncService) SyncCatalog(ctx context.Context) error {
	if !s.mu.TryLock() {
		return ErrSyncInProgress
	}
	defer s.mu.Unlock()
	return s.syncCatalog(ctx)
}

// SyncSchedules 拉取报名表并导入成员与计划
func (s *SyncService) SyncSchedules(ctx context.Context) error {
	if !s.mu.TryLock() {
		return ErrSyncInProgress
	}
	defer s.mu.Unlock()
	return s.syncSchedules(ctx)
}

// SyncSubmissions 拉取每位成员的最近 AC 并对账
func (s *SyncService) SyncSubmissions(ctx context.Context) error {
	if !s.mu.TryLock() {
		return ErrSyncInProgress
	}
	defer s.mu.Unlock()
	return s.syncSubmissions(ctx)
}

// SyncBenchmark 清空并预热排行榜缓存
func (s *SyncService) SyncBenchmark(ctx context.Context) error {
	if !s.mu.TryLock() {
		return ErrSyncInProgress
	}
	defer s.mu.Unlock()
	return s.syncBenchmark(ctx)
}

// SyncAll 报名表 -> 提交记录 -> 排行榜；报名表失败不影响后续步骤
func (s *SyncService) SyncAll(ctx context.Context) error {
	if !s.mu.TryLock() {
		return ErrSyncInProgress
	}
	defer s.mu.Unlock()

	var errs []error
	if err := s.syncSchedules(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := s.syncSubmissions(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := s.syncBenchmark(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// RecentOperations 最近的同步记录
func (s *SyncService) RecentOperations(ctx context.Context, limit int) ([]*model.ServerOperation, error) {
	return s.operations.ListRecent(ctx, limit)
}

func (s *SyncService) syncCatalog(ctx context.Context) error {
	return s.record(ctx, model.OperationUpdateCatalog, func(ctx context.Context, log *logrus.Entry) (interface{}, error) {
		n, err := s.catalog.RefreshFromSeed(ctx)
		return &CatalogSyncStats{Inserted: n}, err
	})
}

func (s *SyncService) syncSchedules(ctx context.Context) error {
	return s.record(ctx, model.OperationUpdateMember, func(ctx context.Context, log *logrus.Entry) (interface{}, error) {
		rows := s.sheets.FetchRows(ctx)
		if len(rows) == 0 {
			log.Warn("报名表为空或拉取失败，本次不导入")
			return &EnrollmentStats{}, nil
		}
		// 第 0 行为表头
		return s.enrollment.Ingest(ctx, rows[1:])
	})
}

func (s *SyncService) syncSubmissions(ctx context.Context) error {
	return s.record(ctx, model.OperationUpdateProblem, func(ctx context.Context, log *logrus.Entry) (interface{}, error) {
		stats := &SubmissionSyncStats{}
		if _, err := s.catalog.EnsureRoot(ctx); err != nil {
			return stats, err
		}
		members, err := s.members.List(ctx)
		if err != nil {
			return stats, fmt.Errorf("查询成员失败: %w", err)
		}

		var errs []error
		for _, m := range members {
			if m.IsStaff {
				continue
			}
			if err := ctx.Err(); err != nil {
				return stats, err
			}
			stats.Members++
			mlog := log.WithFields(logrus.Fields{"member_id": m.ID, "username": m.Username, "region": m.Region})

			src, err := s.sources.Get(m.Region)
			if err != nil {
				mlog.WithError(err).Error("区服数据源不可用，跳过该成员")
				stats.SourceFailures++
				continue
			}
			subs, ok := src.FetchRecentSubmissions(ctx, m.Username).RecentAccepted()
			if !ok {
				mlog.Warn("未获取到最近AC提交，跳过该成员")
				stats.SourceFailures++
				continue
			}
			cs, err := s.completion.Reconcile(ctx, m, subs)
			if cs != nil {
				stats.add(cs)
			}
			if err != nil {
				mlog.WithError(err).Error("提交对账失败")
				stats.MemberFailures++
				errs = append(errs, err)
			}
		}
		return stats, errors.Join(errs...)
	})
}

func (s *SyncService) syncBenchmark(ctx context.Context) error {
	return s.record(ctx, model.OperationUpdateBenchmark, func(ctx context.Context, log *logrus.Entry) (interface{}, error) {
		if err := s.leaderboard.Invalidate(ctx); err != nil {
			log.WithError(err).Warn("清空排行榜缓存失败")
		}
		boards, err := s.leaderboard.Benchmark(ctx)
		if err != nil {
			return &BenchmarkStats{}, err
		}
		return &BenchmarkStats{
			Day:  len(boards[WindowDay]),
			Week: len(boards[WindowWeek]),
			All:  len(boards[WindowAll]),
		}, nil
	})
}

// record 执行一次同步并写入操作日志与指标；写入类操作成功后清空排行榜缓存
func (s *SyncService) record(ctx context.Context, op model.OperationName, fn func(context.Context, *logrus.Entry) (interface{}, error)) error {
	runID := uuid.NewString()
	log := s.logger.WithFields(logrus.Fields{"run_id": runID, "operation": op})
	log.Info("同步开始")
	start := time.Now()

	stats, runErr := fn(ctx, log)

	status := model.OperationSucceeded
	message := "ok"
	if runErr != nil {
		status = model.OperationFailed
		message = runErr.Error()
	}
	elapsed := time.Since(start)
	s.metrics.ObserveSync(string(op), status, elapsed)

	if runErr == nil && op != model.OperationUpdateBenchmark {
		if err := s.leaderboard.Invalidate(ctx); err != nil {
			log.WithError(err).Warn("清空排行榜缓存失败")
		}
	}

	detail, err := json.Marshal(stats)
	if err != nil {
		detail = []byte("{}")
	}
	entry := &model.ServerOperation{
		RunID:     runID,
		Operation: op,
		Status:    status,
		Message:   message,
		Detail:    datatypes.JSON(detail),
		Timestamp: time.Now().UTC(),
	}
	// 运行上下文可能已取消，日志仍需落库
	if err := s.operations.Create(context.WithoutCancel(ctx), entry); err != nil {
		log.WithError(err).Error("保存同步记录失败")
	}

	fields := logrus.Fields{"status": status, "elapsed": elapsed.String(), "stats": string(detail)}
	if runErr != nil {
		log.WithError(runErr).WithFields(fields).Error("同步失败")
		return fmt.Errorf("%s: %w", op, runErr)
	}
	log.WithFields(fields).Info("同步完成")
	return nil
}
