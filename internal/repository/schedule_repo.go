package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ProgressSync/internal/model"

	"gorm.io/gorm"
)

// ScheduleRepository 计划仓储
type ScheduleRepository interface {
	// ExistsForSheetRow 该成员是否已有来自同一报名表行的计划
	ExistsForSheetRow(ctx context.Context, memberID uint64, sheetRow int) (bool, error)
	// CreateWithProblems 事务内创建计划及其题目
	CreateWithProblems(ctx context.Context, s *model.Schedule, problems []*model.Problem) error
	// GetRoot 获取题库根计划，不存在返回 nil, nil
	GetRoot(ctx context.Context) (*model.Schedule, error)
	// CreateRoot 为根成员创建题库根计划（目标为哨兵值）
	CreateRoot(ctx context.Context, rootMemberID uint64) (*model.Schedule, error)
	// LatestFree 成员最近开始的自由计划（start_date DESC, id DESC），不存在返回 nil, nil
	LatestFree(ctx context.Context, memberID uint64) (*model.Schedule, error)
	// ListByMember 成员全部计划（含题目），按 start_date DESC, id DESC
	ListByMember(ctx context.Context, memberID uint64) ([]*model.Schedule, error)
}

type scheduleRepository struct {
	db *gorm.DB
}

func NewScheduleRepository(db *gorm.DB) ScheduleRepository {
	return &scheduleRepository{db: db}
}

func (r *scheduleRepository) ExistsForSheetRow(ctx context.Context, memberID uint64, sheetRow int) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Schedule{}).
		Where("member_id = ? AND sheet_row = ?", memberID, sheetRow).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *scheduleRepository) CreateWithProblems(ctx context.Context, s *model.Schedule, problems []*model.Problem) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Problems").Create(s).Error; err != nil {
			return fmt.Errorf("保存Schedule失败: %w, member_id: %d", err, s.MemberID)
		}
		for _, p := range problems {
			p.ScheduleID = s.ID
		}
		if len(problems) == 0 {
			return nil
		}
		if err := tx.Create(problems).Error; err != nil {
			return fmt.Errorf("保存Problem失败: %w, schedule_id: %d", err, s.ID)
		}
		return nil
	})
}

func (r *scheduleRepository) GetRoot(ctx context.Context) (*model.Schedule, error) {
	var s model.Schedule
	err := r.db.WithContext(ctx).
		Where("schedule_type = ?", model.ScheduleRoot).
		Order("id ASC").
		First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *scheduleRepository) CreateRoot(ctx context.Context, rootMemberID uint64) (*model.Schedule, error) {
	s := &model.Schedule{
		MemberID:  rootMemberID,
		Type:      model.ScheduleRoot,
		Goals:     model.UnboundedGoals,
		StartDate: time.Now().UTC(),
	}
	if err := r.db.WithContext(ctx).Create(s).Error; err != nil {
		return nil, fmt.Errorf("创建题库根计划失败: %w", err)
	}
	return s, nil
}

func (r *scheduleRepository) LatestFree(ctx context.Context, memberID uint64) (*model.Schedule, error) {
	var s model.Schedule
	err := r.db.WithContext(ctx).
		Where("member_id = ? AND schedule_type = ?", memberID, model.ScheduleFree).
		Order("start_date DESC").Order("id DESC").
		First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *scheduleRepository) ListByMember(ctx context.Context, memberID uint64) ([]*model.Schedule, error) {
	var list []*model.Schedule
	err := r.db.WithContext(ctx).
		Preload("Problems", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("member_id = ?", memberID).
		Order("start_date DESC").Order("id DESC").
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}
