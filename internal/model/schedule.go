package model

import "time"

// ScheduleType 计划类型
type ScheduleType string

const (
	ScheduleFree   ScheduleType = "FREE"   // 自由计划，无目标，累计临时 AC
	ScheduleNormal ScheduleType = "NORMAL" // 常规计划，每周目标 + 指定题单
	ScheduleRoot   ScheduleType = "ROOT"   // 题库根计划（单例），每道题一条 SP 记录
)

// UnboundedGoals 自由计划与根计划的目标哨兵值
const UnboundedGoals = 65535

// Schedule 计划表，属于唯一成员；sheet_row 为报名表行号，用于防止同一行重复导入
type Schedule struct {
	ID         uint64       `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	MemberID   uint64       `gorm:"column:member_id;type:bigint;not null;index;uniqueIndex:uq_member_sheet_row" json:"member_id"`
	SheetRow   *int         `gorm:"column:sheet_row;uniqueIndex:uq_member_sheet_row" json:"sheet_row,omitempty"`
	Type       ScheduleType `gorm:"column:schedule_type;type:varchar(6);not null;default:FREE;index" json:"schedule_type"`
	Goals      int          `gorm:"column:goals;not null" json:"goals"`
	StartDate  time.Time    `gorm:"column:start_date;not null" json:"start_date"`
	ExpireDate *time.Time   `gorm:"column:expire_date" json:"expire_date,omitempty"`
	Problems   []Problem    `gorm:"foreignKey:ScheduleID;constraint:OnDelete:CASCADE" json:"problems,omitempty"`
	CreatedAt  time.Time    `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (Schedule) TableName() string { return "schedules" }
