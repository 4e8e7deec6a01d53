package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ProgressSync/internal/model"
	"ProgressSync/internal/repository"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ErrMemberNotFound 成员不存在
var ErrMemberNotFound = errors.New("成员不存在")

// MemberView 对外展示的成员信息（不含邮箱）
type MemberView struct {
	ID          uint64       `json:"id"`
	DisplayName string       `json:"display_name"`
	Username    string       `json:"leetcode_username,omitempty"`
	Region      model.Region `json:"server_region"`
	DateJoined  time.Time    `json:"date_joined"`
}

// ScheduleProgress 单个计划的完成情况
type ScheduleProgress struct {
	*model.Schedule
	Accepted int `json:"accepted"`
	Total    int `json:"total"`
}

// MemberProgress 成员及其全部计划
type MemberProgress struct {
	Member    MemberView         `json:"member"`
	Schedules []ScheduleProgress `json:"schedules"`
}

// ProgressService 成员进度查询
type ProgressService struct {
	members   repository.MemberRepository
	schedules repository.ScheduleRepository
	logger    *logrus.Logger
}

func NewProgressService(members repository.MemberRepository, schedules repository.ScheduleRepository, logger *logrus.Logger) *ProgressService {
	return &ProgressService{members: members, schedules: schedules, logger: logger}
}

// MemberSchedules 成员的计划列表（按开始时间倒序），管理员视为不存在
func (s *ProgressService) MemberSchedules(ctx context.Context, memberID uint64) (*MemberProgress, error) {
	m, err := s.members.GetByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: member_id=%d", ErrMemberNotFound, memberID)
		}
		return nil, fmt.Errorf("查询成员失败: %w, member_id: %d", err, memberID)
	}
	if m.IsStaff {
		return nil, fmt.Errorf("%w: member_id=%d", ErrMemberNotFound, memberID)
	}

	schedules, err := s.schedules.ListByMember(ctx, m.ID)
	if err != nil {
		return nil, fmt.Errorf("查询成员计划失败: %w, member_id: %d", err, m.ID)
	}

	out := &MemberProgress{Member: viewOf(m), Schedules: make([]ScheduleProgress, 0, len(schedules))}
	for _, sc := range schedules {
		p := ScheduleProgress{Schedule: sc, Total: len(sc.Problems)}
		for _, pr := range sc.Problems {
			if pr.Status == model.StatusAccepted {
				p.Accepted++
			}
		}
		out.Schedules = append(out.Schedules, p)
	}
	return out, nil
}

func viewOf(m *model.Member) MemberView {
	v := MemberView{ID: m.ID, DisplayName: m.DisplayName, Region: m.Region, DateJoined: m.DateJoined}
	if m.IsUsernamePublic {
		v.Username = m.Username
	}
	return v
}
