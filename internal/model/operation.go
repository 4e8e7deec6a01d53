package model

import (
	"time"

	"gorm.io/datatypes"
)

// OperationName 服务端同步操作类型
type OperationName string

const (
	OperationUpdateMember    OperationName = "UPDATE_MEMBER"    // 报名表同步
	OperationUpdateProblem   OperationName = "UPDATE_PROBLEM"   // 提交记录同步
	OperationUpdateCatalog   OperationName = "UPDATE_CATALOG"   // 题库刷新
	OperationUpdateBenchmark OperationName = "UPDATE_BENCHMARK" // 排行榜缓存重建
)

// 操作状态
const (
	OperationSucceeded = "succeeded"
	OperationFailed    = "failed"
)

// ServerOperation 同步操作日志，每次运行一条
type ServerOperation struct {
	ID        uint64         `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	RunID     string         `gorm:"column:run_id;type:varchar(64);uniqueIndex;not null" json:"run_id"`
	Operation OperationName  `gorm:"column:operation_name;type:varchar(32);not null;index" json:"operation_name"`
	Status    string         `gorm:"column:status;type:varchar(16);not null" json:"status"`
	Message   string         `gorm:"column:message;type:text" json:"message"`
	Detail    datatypes.JSON `gorm:"column:detail;type:jsonb" json:"detail"`
	Timestamp time.Time      `gorm:"column:timestamp;not null;index" json:"timestamp"`
}

func (ServerOperation) TableName() string { return "server_operations" }
