package repository

import (
	"context"
	"errors"
	"time"

	"ProgressSync/internal/model"

	"gorm.io/gorm"
)

// ProblemRepository 题目仓储（题库根计划下的题目即题库条目）
type ProblemRepository interface {
	// CodesInSchedule 计划下已存在的题目编号集合
	CodesInSchedule(ctx context.Context, scheduleID uint64) (map[int]struct{}, error)
	// CreateBatch 批量创建题目
	CreateBatch(ctx context.Context, problems []*model.Problem) error
	// Create 创建单条题目
	Create(ctx context.Context, p *model.Problem) error
	// FindInScheduleByCode 计划内按编号查找，不存在返回 nil, nil
	FindInScheduleByCode(ctx context.Context, scheduleID uint64, code int) (*model.Problem, error)
	// FindInScheduleByTitle 计划内按标题查找，标题重复时取 id 最小的一条
	FindInScheduleByTitle(ctx context.Context, scheduleID uint64, title string) (*model.Problem, error)
	// UpdateSlug 修正 slug
	UpdateSlug(ctx context.Context, id uint64, slug string) error
	// ListBySchedule 计划下全部题目，按编号升序
	ListBySchedule(ctx context.Context, scheduleID uint64) ([]*model.Problem, error)
	// ExistsByProof 是否已有题目使用该提交凭证
	ExistsByProof(ctx context.Context, proofURL string) (bool, error)
	// FindOpenNormalByTitle 成员常规计划中未完成的同名题目。
	// 顺序：计划 start_date DESC, 计划 id DESC, 题目 id ASC（最近开始的计划优先）
	FindOpenNormalByTitle(ctx context.Context, memberID uint64, title string) (*model.Problem, error)
	// MarkAccepted 仅当题目仍为 NA 时标记为 AC，返回是否发生了状态变更
	MarkAccepted(ctx context.Context, id uint64, doneDate time.Time, proofURL string) (bool, error)
	// ListAcceptances 全部 AC 记录（成员维度），供排行榜计算
	ListAcceptances(ctx context.Context) ([]Acceptance, error)
}

// Acceptance 排行榜计算使用的轻量视图
type Acceptance struct {
	MemberID uint64
	DoneDate time.Time
}

type problemRepository struct {
	db *gorm.DB
}

func NewProblemRepository(db *gorm.DB) ProblemRepository {
	return &problemRepository{db: db}
}

func (r *problemRepository) CodesInSchedule(ctx context.Context, scheduleID uint64) (map[int]struct{}, error) {
	var codes []int
	if err := r.db.WithContext(ctx).Model(&model.Problem{}).
		Where("schedule_id = ?", scheduleID).
		Pluck("problem_code", &codes).Error; err != nil {
		return nil, err
	}
	set := make(map[int]struct{}, len(codes))
	for _, c := range codes {
		set[c] = struct{}{}
	}
	return set, nil
}

func (r *problemRepository) CreateBatch(ctx context.Context, problems []*model.Problem) error {
	if len(problems) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(problems, 200).Error
}

func (r *problemRepository) Create(ctx context.Context, p *model.Problem) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *problemRepository) FindInScheduleByCode(ctx context.Context, scheduleID uint64, code int) (*model.Problem, error) {
	return r.first(r.db.WithContext(ctx).
		Where("schedule_id = ? AND problem_code = ?", scheduleID, code).
		Order("id ASC"))
}

func (r *problemRepository) FindInScheduleByTitle(ctx context.Context, scheduleID uint64, title string) (*model.Problem, error) {
	return r.first(r.db.WithContext(ctx).
		Where("schedule_id = ? AND problem_title = ?", scheduleID, title).
		Order("id ASC"))
}

func (r *problemRepository) UpdateSlug(ctx context.Context, id uint64, slug string) error {
	return r.db.WithContext(ctx).Model(&model.Problem{}).
		Where("id = ?", id).
		Update("problem_slug", slug).Error
}

func (r *problemRepository) ListBySchedule(ctx context.Context, scheduleID uint64) ([]*model.Problem, error) {
	var list []*model.Problem
	if err := r.db.WithContext(ctx).
		Where("schedule_id = ?", scheduleID).
		Order("problem_code ASC").Order("id ASC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *problemRepository) ExistsByProof(ctx context.Context, proofURL string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Problem{}).
		Where("proof_url = ?", proofURL).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *problemRepository) FindOpenNormalByTitle(ctx context.Context, memberID uint64, title string) (*model.Problem, error) {
	return r.first(r.db.WithContext(ctx).
		Joins("JOIN schedules ON schedules.id = problems.schedule_id").
		Where("schedules.member_id = ? AND schedules.schedule_type = ?", memberID, model.ScheduleNormal).
		Where("problems.problem_title = ? AND problems.status = ?", title, model.StatusNotAttempted).
		Order("schedules.start_date DESC").
		Order("schedules.id DESC").
		Order("problems.id ASC"))
}

func (r *problemRepository) MarkAccepted(ctx context.Context, id uint64, doneDate time.Time, proofURL string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Problem{}).
		Where("id = ? AND status = ?", id, model.StatusNotAttempted).
		Updates(map[string]interface{}{
			"status":    model.StatusAccepted,
			"done_date": doneDate,
			"proof_url": proofURL,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *problemRepository) ListAcceptances(ctx context.Context) ([]Acceptance, error) {
	var rows []Acceptance
	err := r.db.WithContext(ctx).Model(&model.Problem{}).
		Select("schedules.member_id AS member_id, problems.done_date AS done_date").
		Joins("JOIN schedules ON schedules.id = problems.schedule_id").
		Where("problems.status = ? AND problems.done_date IS NOT NULL", model.StatusAccepted).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// first 取查询的第一条（使用 Limit+Find 以保留调用方的排序），无结果返回 nil, nil
func (r *problemRepository) first(db *gorm.DB) (*model.Problem, error) {
	var list []*model.Problem
	if err := db.Limit(1).Find(&list).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}
