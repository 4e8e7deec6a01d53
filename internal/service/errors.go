package service

import "errors"

var (
	// ErrNoFreeSchedule 成员没有任何自由计划：每个成员创建时都会附带一个，出现即说明数据已损坏
	ErrNoFreeSchedule = errors.New("成员缺少自由计划")
	// ErrUnknownWindow 不支持的排行榜时间窗口
	ErrUnknownWindow = errors.New("未知的排行榜时间窗口")
	// ErrSyncInProgress 已有同步任务在运行
	ErrSyncInProgress = errors.New("同步任务正在运行")
)
