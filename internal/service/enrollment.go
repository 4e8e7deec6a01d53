package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"ProgressSync/internal/metrics"
	"ProgressSync/internal/model"
	"ProgressSync/internal/repository"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	registerTimeLayout = "1/2/2006 15:04:05" // Google 表单时间戳，月/日可不补零
	sheetDateLayout    = "2006-01-02"
	normalModeMarker   = "Normal"
)

// 报名表行处理结果（同时作为指标 label）
const (
	rowCreated   = "created"
	rowDuplicate = "duplicate"
	rowMismatch  = "mismatch"
	rowInvalid   = "invalid"
)

// EnrollmentStats 一次报名表导入的统计
type EnrollmentStats struct {
	Rows             int `json:"rows"`
	MembersCreated   int `json:"members_created"`
	SchedulesCreated int `json:"schedules_created"`
	ProblemsCreated  int `json:"problems_created"`
	DuplicateRows    int `json:"duplicate_rows"`
	MismatchRows     int `json:"mismatch_rows"`
	InvalidRows      int `json:"invalid_rows"`
	SkippedCodes     int `json:"skipped_codes"`
}

// EnrollmentService 报名表 -> 成员/计划/题单
type EnrollmentService struct {
	members   repository.MemberRepository
	schedules repository.ScheduleRepository
	catalog   *CatalogService
	metrics   *metrics.Manager
	logger    *logrus.Logger
}

func NewEnrollmentService(
	members repository.MemberRepository,
	schedules repository.ScheduleRepository,
	catalog *CatalogService,
	m *metrics.Manager,
	logger *logrus.Logger,
) *EnrollmentService {
	return &EnrollmentService{
		members:   members,
		schedules: schedules,
		catalog:   catalog,
		metrics:   m,
		logger:    logger,
	}
}

// Ingest 按顺序处理报名表数据行（不含表头），行号即下标。
// 行级问题只记录日志并跳过；题库或成员写入失败会中断并返回错误
func (s *EnrollmentService) Ingest(ctx context.Context, rows [][]string) (*EnrollmentStats, error) {
	stats := &EnrollmentStats{Rows: len(rows)}
	if _, err := s.catalog.EnsureRoot(ctx); err != nil {
		return stats, err
	}
	for i, cells := range rows {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		result, err := s.ingestRow(ctx, i, cells, stats)
		if err != nil {
			return stats, err
		}
		s.metrics.IncRow(result)
		switch result {
		case rowDuplicate:
			stats.DuplicateRows++
		case rowMismatch:
			stats.MismatchRows++
		case rowInvalid:
			stats.InvalidRows++
		}
	}
	return stats, nil
}

// parsedRow 报名表行中需要类型转换的字段
type parsedRow struct {
	*model.SheetRow
	registeredAt time.Time
	startDate    time.Time
	expireDate   *time.Time
	region       model.Region
	kind         model.ScheduleType
	goals        int
}

func (s *EnrollmentService) ingestRow(ctx context.Context, index int, cells []string, stats *EnrollmentStats) (string, error) {
	log := s.logger.WithField("sheet_row", index)

	raw, ok := model.ParseSheetRow(index, cells)
	if !ok {
		log.WithField("columns", len(cells)).Warn("报名表行列数不足，跳过")
		return rowInvalid, nil
	}
	log = log.WithField("email", raw.Email)
	row, err := s.parseRow(raw, log)
	if err != nil {
		log.WithError(err).Warn("报名表行解析失败，跳过")
		return rowInvalid, nil
	}

	member, result, err := s.resolveMember(ctx, row, log, stats)
	if err != nil || member == nil {
		return result, err
	}

	exists, err := s.schedules.ExistsForSheetRow(ctx, member.ID, index)
	if err != nil {
		return "", fmt.Errorf("查询计划失败: %w, sheet_row: %d", err, index)
	}
	if exists {
		log.Debug("该行计划已导入，跳过")
		return rowDuplicate, nil
	}

	problems, err := s.resolveProblems(ctx, row, log, stats)
	if err != nil {
		return "", err
	}
	sheetRow := index
	schedule := &model.Schedule{
		MemberID:   member.ID,
		SheetRow:   &sheetRow,
		Type:       row.kind,
		Goals:      row.goals,
		StartDate:  row.startDate,
		ExpireDate: row.expireDate,
	}
	if err := s.schedules.CreateWithProblems(ctx, schedule, problems); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			log.Warn("该行计划已被并发导入，跳过")
			return rowDuplicate, nil
		}
		return "", err
	}
	stats.SchedulesCreated++
	stats.ProblemsCreated += len(problems)
	log.WithFields(logrus.Fields{
		"schedule_id":   schedule.ID,
		"schedule_type": schedule.Type,
		"problems":      len(problems),
	}).Info("计划导入成功")
	return rowCreated, nil
}

func (s *EnrollmentService) parseRow(raw *model.SheetRow, log *logrus.Entry) (*parsedRow, error) {
	registeredAt, err := time.ParseInLocation(registerTimeLayout, strings.TrimSpace(raw.RegisterTime), time.UTC)
	if err != nil {
		return nil, fmt.Errorf("报名时间格式错误: %w", err)
	}
	start, err := time.ParseInLocation(sheetDateLayout, strings.TrimSpace(raw.StartDate), time.UTC)
	if err != nil {
		return nil, fmt.Errorf("开始日期格式错误: %w", err)
	}
	row := &parsedRow{
		SheetRow:     raw,
		registeredAt: registeredAt,
		startDate:    start,
		region:       model.ParseRegion(raw.RegionText),
		kind:         model.ScheduleFree,
		goals:        model.UnboundedGoals,
	}
	if end := strings.TrimSpace(raw.ExpireDate); end != "" {
		expire, err := time.ParseInLocation(sheetDateLayout, end, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("结束日期格式错误: %w", err)
		}
		row.expireDate = &expire
	}
	if strings.Contains(raw.Mode, normalModeMarker) {
		row.kind = model.ScheduleNormal
		goals, err := strconv.Atoi(strings.TrimSpace(raw.GoalsText))
		if err != nil {
			log.WithField("goals", raw.GoalsText).Warn("每周目标不是合法整数，按0处理")
			goals = 0
		}
		row.goals = goals
	}
	return row, nil
}

// resolveMember 按邮箱查找或创建成员；已有成员的显示名/用户名/区服任一不一致则整行跳过
func (s *EnrollmentService) resolveMember(ctx context.Context, row *parsedRow, log *logrus.Entry, stats *EnrollmentStats) (*model.Member, string, error) {
	member, err := s.members.GetByEmail(ctx, row.Email)
	if err != nil {
		return nil, "", fmt.Errorf("查询成员失败: %w, email: %s", err, row.Email)
	}
	if member == nil {
		member = &model.Member{
			Email:       row.Email,
			DisplayName: row.DisplayName,
			Username:    row.Username,
			Region:      row.region,
			DateJoined:  row.registeredAt,
			LastLogin:   row.registeredAt,
		}
		err := s.members.CreateWithDefaultSchedule(ctx, member)
		if err == nil {
			stats.MembersCreated++
			log.WithField("member_id", member.ID).Info("新成员已创建")
			return member, "", nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, "", err
		}
		// 并发导入时被其他运行抢先创建，按已有成员继续校验
		member, err = s.members.GetByEmail(ctx, row.Email)
		if err != nil || member == nil {
			return nil, "", fmt.Errorf("重新查询成员失败: %w, email: %s", err, row.Email)
		}
	}

	switch {
	case member.DisplayName != row.DisplayName:
		log.WithFields(logrus.Fields{"stored": member.DisplayName, "sheet": row.DisplayName}).Error("显示名与报名表不一致，跳过该行")
		return nil, rowMismatch, nil
	case member.Username != row.Username:
		log.WithFields(logrus.Fields{"stored": member.Username, "sheet": row.Username}).Error("LeetCode用户名与报名表不一致，跳过该行")
		return nil, rowMismatch, nil
	case member.Region != row.region:
		log.WithFields(logrus.Fields{"stored": member.Region, "sheet": row.region}).Error("区服与报名表不一致，跳过该行")
		return nil, rowMismatch, nil
	}
	return member, "", nil
}

// resolveProblems 常规计划：逐个解析题号并从题库拷贝标题/slug 快照
func (s *EnrollmentService) resolveProblems(ctx context.Context, row *parsedRow, log *logrus.Entry, stats *EnrollmentStats) ([]*model.Problem, error) {
	if row.kind != model.ScheduleNormal {
		return nil, nil
	}
	problems := make([]*model.Problem, 0, len(row.ProblemCodes))
	for _, token := range row.ProblemCodes {
		code, err := strconv.Atoi(token)
		if err != nil {
			log.WithField("problem_code", token).Warn("题号不是合法整数，跳过")
			stats.SkippedCodes++
			continue
		}
		entry, err := s.catalog.LookupByCode(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("查询题库失败: %w, problem_code: %d", err, code)
		}
		if entry == nil {
			log.WithField("problem_code", code).Warn("题库中不存在该题号，跳过")
			stats.SkippedCodes++
			continue
		}
		problems = append(problems, &model.Problem{
			Code:   entry.Code,
			Title:  entry.Title,
			Slug:   entry.Slug,
			Status: model.StatusNotAttempted,
		})
	}
	return problems, nil
}
