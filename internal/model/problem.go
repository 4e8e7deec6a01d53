package model

import "time"

// ProblemStatus 题目完成状态
type ProblemStatus string

const (
	StatusAccepted     ProblemStatus = "AC" // 已通过
	StatusNotAttempted ProblemStatus = "NA" // 未完成
	StatusSample       ProblemStatus = "SP" // 题库占位（仅根计划）
)

// Problem 计划中的一道题（题目编号/标题/slug 为创建时从题库拷贝的快照，不随题库修正而变化）
// 根计划下的 Problem 即题库条目本身
type Problem struct {
	ID         uint64        `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	ScheduleID uint64        `gorm:"column:schedule_id;type:bigint;not null;index" json:"schedule_id"`
	Code       int           `gorm:"column:problem_code;not null;index" json:"problem_code"`
	Title      string        `gorm:"column:problem_title;type:varchar(256);not null;index" json:"problem_title"`
	Slug       string        `gorm:"column:problem_slug;type:varchar(256);not null" json:"problem_slug"`
	Status     ProblemStatus `gorm:"column:status;type:varchar(2);not null;default:NA" json:"status"`
	DoneDate   *time.Time    `gorm:"column:done_date" json:"done_date,omitempty"`
	ProofURL   *string       `gorm:"column:proof_url;type:varchar(256);uniqueIndex" json:"proof_url,omitempty"` // 全局去重键
	CreatedAt  time.Time     `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (Problem) TableName() string { return "problems" }
