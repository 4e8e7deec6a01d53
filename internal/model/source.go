package model

import "strings"

// OperationRecentAC 最近 AC 提交的 GraphQL 操作名
const OperationRecentAC = "recentAcSubmissions"

// Submission LeetCode 最近 AC 提交（recentAcSubmissionList 单条），id/timestamp 为字符串
type Submission struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	TitleSlug string `json:"titleSlug"`
	Timestamp string `json:"timestamp"` // unix 秒
}

// SubmissionFeed 操作名 -> 提交列表；拉取失败的操作不会出现在 map 中
type SubmissionFeed map[string][]Submission

// RecentAccepted 返回最近 AC 列表；缺失时视为空结果而不是错误
func (f SubmissionFeed) RecentAccepted() ([]Submission, bool) {
	if f == nil {
		return nil, false
	}
	subs, ok := f[OperationRecentAC]
	return subs, ok
}

// SheetRow 报名表单行（已去掉表头），列顺序固定
type SheetRow struct {
	Index        int // 表头之后的 0 基行号，即 Schedule.SheetRow
	RegisterTime string
	Username     string
	RegionText   string
	GoalsText    string
	StartDate    string
	ExpireDate   string
	ProblemCodes []string
	Email        string
	Mode         string
	DisplayName  string
}

// 报名表列下标
const (
	colRegisterTime = iota
	colUsername
	colRegion
	colGoals
	colStartDate
	colExpireDate
	colProblemCodes
	colEmail
	colMode
	colDisplayName

	// SheetMinColumns 必填列数（显示名可缺省）
	SheetMinColumns = colDisplayName
)

// ParseSheetRow 将一行单元格解析为 SheetRow；列数不足时返回 false
func ParseSheetRow(index int, cells []string) (*SheetRow, bool) {
	if len(cells) < SheetMinColumns {
		return nil, false
	}
	row := &SheetRow{
		Index:        index,
		RegisterTime: cells[colRegisterTime],
		Username:     cells[colUsername],
		RegionText:   cells[colRegion],
		GoalsText:    cells[colGoals],
		StartDate:    cells[colStartDate],
		ExpireDate:   cells[colExpireDate],
		ProblemCodes: strings.Fields(cells[colProblemCodes]),
		Email:        cells[colEmail],
		Mode:         cells[colMode],
		DisplayName:  cells[colUsername],
	}
	if len(cells) > colDisplayName && cells[colDisplayName] != "" {
		row.DisplayName = cells[colDisplayName]
	}
	return row, true
}
