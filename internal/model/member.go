package model

import (
	"strings"
	"time"
)

// Region LeetCode 区服
type Region string

const (
	RegionUS Region = "US" // leetcode.com
	RegionCN Region = "CN" // leetcode.cn
)

// ParseRegion 报名表中的区服文本，包含 cn 即为国服，其余按美服处理
func ParseRegion(raw string) Region {
	if strings.Contains(strings.ToLower(raw), "cn") {
		return RegionCN
	}
	return RegionUS
}

// Key 对应配置文件 leetcode 下的键（us/cn）
func (r Region) Key() string {
	return strings.ToLower(string(r))
}

// Member 成员表，email 唯一；由报名表首次出现时创建，同步引擎不会删除
type Member struct {
	ID               uint64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Email            string     `gorm:"column:email;type:varchar(256);uniqueIndex;not null" json:"email"`
	DisplayName      string     `gorm:"column:display_name;type:varchar(256);not null" json:"display_name"`
	Username         string     `gorm:"column:leetcode_username;type:varchar(256);not null" json:"leetcode_username"`
	Region           Region     `gorm:"column:server_region;type:varchar(2);not null;default:US" json:"server_region"`
	IsUsernamePublic bool       `gorm:"column:is_username_public;not null;default:false" json:"is_username_public"`
	IsStaff          bool       `gorm:"column:is_staff;not null;default:false" json:"is_staff"`
	CreditRemains    int        `gorm:"column:credit_remains;not null;default:0" json:"credit_remains"`
	DateJoined       time.Time  `gorm:"column:date_joined;not null" json:"date_joined"`
	LastLogin        time.Time  `gorm:"column:last_login;not null" json:"last_login"`
	Schedules        []Schedule `gorm:"foreignKey:MemberID;constraint:OnDelete:CASCADE" json:"schedules,omitempty"`
	CreatedAt        time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Member) TableName() string { return "members" }

// 根成员：持有题库根计划，属于管理员，不参与排行
const (
	RootUsername = "root"
	RootEmail    = "root@root.com"
)
