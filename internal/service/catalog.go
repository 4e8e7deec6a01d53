package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"ProgressSync/internal/interfaces"
	"ProgressSync/internal/metrics"
	"ProgressSync/internal/model"
	"ProgressSync/internal/repository"
	"ProgressSync/internal/utils/slug"

	"github.com/sirupsen/logrus"
)

// CatalogService 题库：根计划下的 SP 题目即题库条目，编号唯一，标题不保证唯一
type CatalogService struct {
	members   repository.MemberRepository
	schedules repository.ScheduleRepository
	problems  repository.ProblemRepository
	seeder    interfaces.CatalogSeeder
	metrics   *metrics.Manager
	logger    *logrus.Logger

	mu     sync.Mutex
	rootID uint64
}

func NewCatalogService(
	members repository.MemberRepository,
	schedules repository.ScheduleRepository,
	problems repository.ProblemRepository,
	seeder interfaces.CatalogSeeder,
	m *metrics.Manager,
	logger *logrus.Logger,
) *CatalogService {
	return &CatalogService{
		members:   members,
		schedules: schedules,
		problems:  problems,
		seeder:    seeder,
		metrics:   m,
		logger:    logger,
	}
}

// EnsureRoot 返回题库根计划；不存在时创建根成员与根计划并从种子全量导入。
// 先查后建，多个进程并发首次调用时不是原子的
func (s *CatalogService) EnsureRoot(ctx context.Context) (*model.Schedule, error) {
	root, _, err := s.ensureRoot(ctx)
	return root, err
}

func (s *CatalogService) ensureRoot(ctx context.Context) (*model.Schedule, int, error) {
	root, err := s.schedules.GetRoot(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("查询题库根计划失败: %w", err)
	}
	if root != nil {
		s.setRootID(root.ID)
		return root, 0, nil
	}

	owner, err := s.members.GetOrCreateRoot(ctx)
	if err != nil {
		return nil, 0, err
	}
	root, err = s.schedules.CreateRoot(ctx, owner.ID)
	if err != nil {
		return nil, 0, err
	}
	s.setRootID(root.ID)
	s.logger.WithField("schedule_id", root.ID).Info("题库根计划已创建，开始导入种子题库")

	inserted, err := s.refresh(ctx, root.ID)
	if err != nil {
		return nil, 0, err
	}
	return root, inserted, nil
}

func (s *CatalogService) setRootID(id uint64) {
	s.mu.Lock()
	s.rootID = id
	s.mu.Unlock()
}

func (s *CatalogService) cachedRootID() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rootID
}

func (s *CatalogService) rootScheduleID(ctx context.Context) (uint64, error) {
	if id := s.cachedRootID(); id != 0 {
		return id, nil
	}
	root, err := s.EnsureRoot(ctx)
	if err != nil {
		return 0, err
	}
	return root.ID, nil
}

// RefreshFromSeed 幂等：只插入题库中尚不存在的编号，返回新增条数
func (s *CatalogService) RefreshFromSeed(ctx context.Context) (int, error) {
	root, inserted, err := s.ensureRoot(ctx)
	if err != nil {
		return 0, err
	}
	if inserted > 0 {
		// 根计划刚创建，已完成全量导入
		return inserted, nil
	}
	return s.refresh(ctx, root.ID)
}

func (s *CatalogService) refresh(ctx context.Context, rootID uint64) (int, error) {
	rows, err := s.seeder.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("读取题库种子失败: %w", err)
	}
	existing, err := s.problems.CodesInSchedule(ctx, rootID)
	if err != nil {
		return 0, fmt.Errorf("查询已有题库编号失败: %w", err)
	}

	var batch []*model.Problem
	for i, row := range rows {
		if len(row) < 2 {
			s.logger.WithField("line", i+1).Warn("题库种子行列数不足，跳过")
			continue
		}
		code, err := strconv.Atoi(strings.TrimSpace(row[0]))
		if err != nil {
			// 表头也会走到这里
			s.logger.WithFields(logrus.Fields{"line": i + 1, "value": row[0]}).Debug("题库种子编号无法解析，跳过")
			continue
		}
		if _, ok := existing[code]; ok {
			continue
		}
		title := strings.TrimSpace(row[1])
		existing[code] = struct{}{}
		batch = append(batch, &model.Problem{
			ScheduleID: rootID,
			Code:       code,
			Title:      title,
			Slug:       slug.Make(title),
			Status:     model.StatusSample,
		})
	}
	if err := s.problems.CreateBatch(ctx, batch); err != nil {
		return 0, fmt.Errorf("写入题库失败: %w", err)
	}
	if len(batch) > 0 {
		s.metrics.AddCatalogInserted(len(batch))
		s.logger.WithField("inserted", len(batch)).Info("题库刷新完成")
	}
	return len(batch), nil
}

// LookupByCode 按编号查题库；未命中时刷新一次再查，仍未命中返回 nil
func (s *CatalogService) LookupByCode(ctx context.Context, code int) (*model.Problem, error) {
	return s.lookup(ctx, func(rootID uint64) (*model.Problem, error) {
		return s.problems.FindInScheduleByCode(ctx, rootID, code)
	})
}

// LookupByTitle 按标题查题库，重复标题取 id 最小（最早入库）的一条；未命中策略同 LookupByCode
func (s *CatalogService) LookupByTitle(ctx context.Context, title string) (*model.Problem, error) {
	return s.lookup(ctx, func(rootID uint64) (*model.Problem, error) {
		return s.problems.FindInScheduleByTitle(ctx, rootID, title)
	})
}

func (s *CatalogService) lookup(ctx context.Context, find func(rootID uint64) (*model.Problem, error)) (*model.Problem, error) {
	rootID, err := s.rootScheduleID(ctx)
	if err != nil {
		return nil, err
	}
	p, err := find(rootID)
	if err != nil || p != nil {
		return p, err
	}
	if _, err := s.refresh(ctx, rootID); err != nil {
		return nil, err
	}
	return find(rootID)
}

// RepairSlug 将根计划中第一条同名题目的 slug 修正为观测到的真实值。
// 已拷贝到成员计划中的快照不会被修改。返回是否发生修改
func (s *CatalogService) RepairSlug(ctx context.Context, title, observed string) (bool, error) {
	if observed == "" {
		return false, nil
	}
	rootID, err := s.rootScheduleID(ctx)
	if err != nil {
		return false, err
	}
	p, err := s.problems.FindInScheduleByTitle(ctx, rootID, title)
	if err != nil {
		return false, err
	}
	if p == nil || p.Slug == observed {
		return false, nil
	}
	if err := s.problems.UpdateSlug(ctx, p.ID, observed); err != nil {
		return false, fmt.Errorf("修正slug失败: %w, problem_id: %d", err, p.ID)
	}
	s.logger.WithFields(logrus.Fields{
		"problem_code": p.Code,
		"title":        title,
		"old_slug":     p.Slug,
		"new_slug":     observed,
	}).Info("题库slug已修正")
	return true, nil
}

// List 全部题库条目，按编号升序
func (s *CatalogService) List(ctx context.Context) ([]*model.Problem, error) {
	rootID, err := s.rootScheduleID(ctx)
	if err != nil {
		return nil, err
	}
	return s.problems.ListBySchedule(ctx, rootID)
}
