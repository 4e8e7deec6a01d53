package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ProgressSync/internal/model"

	"gorm.io/gorm"
)

// MemberRepository 成员仓储
type MemberRepository interface {
	// GetByEmail 按邮箱查成员，不存在返回 nil, nil
	GetByEmail(ctx context.Context, email string) (*model.Member, error)
	GetByID(ctx context.Context, id uint64) (*model.Member, error)
	// CreateWithDefaultSchedule 事务内创建成员及其默认自由计划（每个成员至少有一个自由计划）
	CreateWithDefaultSchedule(ctx context.Context, m *model.Member) error
	// GetOrCreateRoot 获取根成员（管理员），不存在则创建；先查后建，并发调用下非原子
	GetOrCreateRoot(ctx context.Context) (*model.Member, error)
	// List 按 id 升序返回全部成员
	List(ctx context.Context) ([]*model.Member, error)
}

type memberRepository struct {
	db *gorm.DB
}

func NewMemberRepository(db *gorm.DB) MemberRepository {
	return &memberRepository{db: db}
}

func (r *memberRepository) GetByEmail(ctx context.Context, email string) (*model.Member, error) {
	var m model.Member
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

func (r *memberRepository) GetByID(ctx context.Context, id uint64) (*model.Member, error) {
	var m model.Member
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *memberRepository) CreateWithDefaultSchedule(ctx context.Context, m *model.Member) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(m).Error; err != nil {
			return fmt.Errorf("保存Member失败: %w, email: %s", err, m.Email)
		}
		free := &model.Schedule{
			MemberID:  m.ID,
			Type:      model.ScheduleFree,
			Goals:     model.UnboundedGoals,
			StartDate: m.DateJoined,
		}
		if err := tx.Create(free).Error; err != nil {
			return fmt.Errorf("保存默认自由计划失败: %w, member_id: %d", err, m.ID)
		}
		m.Schedules = []model.Schedule{*free}
		return nil
	})
}

func (r *memberRepository) GetOrCreateRoot(ctx context.Context) (*model.Member, error) {
	root, err := r.GetByEmail(ctx, model.RootEmail)
	if err != nil || root != nil {
		return root, err
	}
	now := time.Now().UTC()
	root = &model.Member{
		Email:       model.RootEmail,
		DisplayName: model.RootUsername,
		Username:    model.RootUsername,
		Region:      model.RegionUS,
		IsStaff:     true,
		DateJoined:  now,
		LastLogin:   now,
	}
	if err := r.db.WithContext(ctx).Create(root).Error; err != nil {
		return nil, fmt.Errorf("创建根成员失败: %w", err)
	}
	return root, nil
}

func (r *memberRepository) List(ctx context.Context) ([]*model.Member, error) {
	var members []*model.Member
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}
