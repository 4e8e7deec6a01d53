package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"ProgressSync/internal/config"
	"ProgressSync/internal/metrics"
	"ProgressSync/internal/model"
	"ProgressSync/internal/repository"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// 提交事件处理结果（同时作为指标 label）
const (
	eventMatched   = "matched"
	eventFallback  = "fallback"
	eventDuplicate = "duplicate"
	eventUnknown   = "unknown"
	eventInvalid   = "invalid"
)

var defaultProofURLs = map[model.Region]string{
	model.RegionUS: "https://leetcode.com/submissions/detail/%s/",
	model.RegionCN: "https://leetcode.cn/submissions/detail/%s/",
}

// ProofURLTemplates 从区服配置提取提交凭证地址模板，未配置的区服使用默认值
func ProofURLTemplates(platforms map[string]config.PlatformConfig) map[model.Region]string {
	out := make(map[model.Region]string, len(defaultProofURLs))
	for region, tpl := range defaultProofURLs {
		out[region] = tpl
	}
	for key, pc := range platforms {
		if pc.ProofURL != "" {
			out[model.ParseRegion(key)] = pc.ProofURL
		}
	}
	return out
}

// CompletionStats 一名成员一批提交的处理统计
type CompletionStats struct {
	Events     int `json:"events"`
	Matched    int `json:"matched"`
	Fallback   int `json:"fallback"`
	Duplicate  int `json:"duplicate"`
	Unknown    int `json:"unknown"`
	Invalid    int `json:"invalid"`
	SlugsFixed int `json:"slugs_fixed"`
}

func (s *CompletionStats) add(o *CompletionStats) {
	s.Events += o.Events
	s.Matched += o.Matched
	s.Fallback += o.Fallback
	s.Duplicate += o.Duplicate
	s.Unknown += o.Unknown
	s.Invalid += o.Invalid
	s.SlugsFixed += o.SlugsFixed
}

// CompletionService AC 提交 -> 题单完成状态
type CompletionService struct {
	problems  repository.ProblemRepository
	schedules repository.ScheduleRepository
	catalog   *CatalogService
	proofURLs map[model.Region]string
	metrics   *metrics.Manager
	logger    *logrus.Logger
}

func NewCompletionService(
	problems repository.ProblemRepository,
	schedules repository.ScheduleRepository,
	catalog *CatalogService,
	proofURLs map[model.Region]string,
	m *metrics.Manager,
	logger *logrus.Logger,
) *CompletionService {
	if proofURLs == nil {
		proofURLs = ProofURLTemplates(nil)
	}
	return &CompletionService{
		problems:  problems,
		schedules: schedules,
		catalog:   catalog,
		proofURLs: proofURLs,
		metrics:   m,
		logger:    logger,
	}
}

// ProofURL 提交凭证地址，全局唯一
func (s *CompletionService) ProofURL(region model.Region, submissionID string) string {
	tpl, ok := s.proofURLs[region]
	if !ok {
		tpl = defaultProofURLs[model.RegionUS]
	}
	return fmt.Sprintf(tpl, submissionID)
}

// Reconcile 按顺序处理成员的最近 AC 提交：
// 已记录的凭证跳过；常规计划中有未完成的同名题目则标记完成（计划 start_date 最近者优先），
// 否则追加到最近开始的自由计划。成员没有自由计划时返回 ErrNoFreeSchedule
func (s *CompletionService) Reconcile(ctx context.Context, member *model.Member, events []model.Submission) (*CompletionStats, error) {
	stats := &CompletionStats{Events: len(events)}
	for _, ev := range events {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		result, err := s.reconcileOne(ctx, member, ev, stats)
		if err != nil {
			return stats, err
		}
		s.metrics.IncEvent(result)
		switch result {
		case eventMatched:
			stats.Matched++
		case eventFallback:
			stats.Fallback++
		case eventDuplicate:
			stats.Duplicate++
		case eventUnknown:
			stats.Unknown++
		case eventInvalid:
			stats.Invalid++
		}
	}
	return stats, nil
}

func (s *CompletionService) reconcileOne(ctx context.Context, member *model.Member, ev model.Submission, stats *CompletionStats) (string, error) {
	log := s.logger.WithFields(logrus.Fields{
		"member_id":     member.ID,
		"username":      member.Username,
		"submission_id": ev.ID,
		"title":         ev.Title,
	})

	id := strings.TrimSpace(ev.ID)
	if id == "" {
		log.Warn("提交记录缺少ID，跳过")
		return eventInvalid, nil
	}
	sec, err := strconv.ParseInt(strings.TrimSpace(ev.Timestamp), 10, 64)
	if err != nil {
		log.WithField("timestamp", ev.Timestamp).Warn("提交时间戳无法解析，跳过")
		return eventInvalid, nil
	}
	doneAt := time.Unix(sec, 0).UTC()
	proof := s.ProofURL(member.Region, id)
	log = log.WithField("proof_url", proof)

	exists, err := s.problems.ExistsByProof(ctx, proof)
	if err != nil {
		return "", fmt.Errorf("查询提交凭证失败: %w, proof_url: %s", err, proof)
	}
	if exists {
		log.Debug("提交已记录，跳过")
		return eventDuplicate, nil
	}

	entry, err := s.catalog.LookupByTitle(ctx, ev.Title)
	if err != nil {
		return "", fmt.Errorf("查询题库失败: %w, title: %s", err, ev.Title)
	}
	if entry == nil {
		log.Warn("题库中不存在该标题，跳过")
		return eventUnknown, nil
	}

	if ev.TitleSlug != "" && entry.Slug != ev.TitleSlug {
		fixed, err := s.catalog.RepairSlug(ctx, ev.Title, ev.TitleSlug)
		if err != nil {
			return "", err
		}
		if fixed {
			stats.SlugsFixed++
		}
		entry.Slug = ev.TitleSlug
	}

	open, err := s.problems.FindOpenNormalByTitle(ctx, member.ID, ev.Title)
	if err != nil {
		return "", fmt.Errorf("查询常规计划题目失败: %w, title: %s", err, ev.Title)
	}
	if open != nil {
		changed, err := s.problems.MarkAccepted(ctx, open.ID, doneAt, proof)
		if err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				log.Warn("提交凭证已被并发写入，跳过")
				return eventDuplicate, nil
			}
			return "", fmt.Errorf("标记题目完成失败: %w, problem_id: %d", err, open.ID)
		}
		if !changed {
			log.WithField("problem_id", open.ID).Warn("题目状态已被并发修改，跳过")
			return eventDuplicate, nil
		}
		log.WithFields(logrus.Fields{"problem_id": open.ID, "schedule_id": open.ScheduleID}).Info("常规计划题目已完成")
		return eventMatched, nil
	}

	free, err := s.schedules.LatestFree(ctx, member.ID)
	if err != nil {
		return "", fmt.Errorf("查询自由计划失败: %w, member_id: %d", err, member.ID)
	}
	if free == nil {
		log.Error("成员没有自由计划，数据不一致")
		return "", fmt.Errorf("%w: member_id=%d, email=%s", ErrNoFreeSchedule, member.ID, member.Email)
	}
	p := &model.Problem{
		ScheduleID: free.ID,
		Code:       entry.Code,
		Title:      entry.Title,
		Slug:       entry.Slug,
		Status:     model.StatusAccepted,
		DoneDate:   &doneAt,
		ProofURL:   &proof,
	}
	if err := s.problems.Create(ctx, p); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			log.Warn("提交凭证已被并发写入，跳过")
			return eventDuplicate, nil
		}
		return "", fmt.Errorf("保存自由计划题目失败: %w, schedule_id: %d", err, free.ID)
	}
	log.WithFields(logrus.Fields{"problem_id": p.ID, "schedule_id": free.ID}).Info("已追加到自由计划")
	return eventFallback, nil
}
