package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"ProgressSync/internal/metrics"
	"ProgressSync/internal/model"
	"ProgressSync/internal/repository"
	"ProgressSync/internal/testutil"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var seedHeader = []string{"Problem ID", "Problem Name", "Difficulty", "Acceptance Rate"}

func defaultSeedRows() [][]string {
	return [][]string{
		seedHeader,
		{"1", "Two Sum", "Easy", "49.1%"},
		{"2", "Add Two Numbers", "Medium", "40.4%"},
		{"15", "3Sum", "Medium", "32.9%"},
		{"50", "Pow(x, n)", "Medium", "33.0%"},
	}
}

// mutableSeed 可在测试中途追加行，用于验证未命中时的刷新
type mutableSeed struct {
	mu    sync.Mutex
	rows  [][]string
	loads int
}

func (s *mutableSeed) Load(context.Context) ([][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	out := make([][]string, len(s.rows))
	copy(out, s.rows)
	return out, nil
}

func (s *mutableSeed) add(rows ...[]string) {
	s.mu.Lock()
	s.rows = append(s.rows, rows...)
	s.mu.Unlock()
}

type testEnv struct {
	db          *gorm.DB
	seed        *mutableSeed
	members     repository.MemberRepository
	schedules   repository.ScheduleRepository
	problems    repository.ProblemRepository
	operations  repository.OperationRepository
	metrics     *metrics.Manager
	catalog     *CatalogService
	enrollment  *EnrollmentService
	completion  *CompletionService
	leaderboard *LeaderboardService
}

func newTestEnv(t *testing.T, seedRows [][]string) *testEnv {
	t.Helper()
	if seedRows == nil {
		seedRows = defaultSeedRows()
	}
	db := testutil.NewDB(t)
	logger := testutil.NewLogger()
	m := metrics.NewManager(metrics.WithRegistry(prometheus.NewRegistry()))

	e := &testEnv{
		db:         db,
		seed:       &mutableSeed{rows: seedRows},
		members:    repository.NewMemberRepository(db),
		schedules:  repository.NewScheduleRepository(db),
		problems:   repository.NewProblemRepository(db),
		operations: repository.NewOperationRepository(db),
		metrics:    m,
	}
	e.catalog = NewCatalogService(e.members, e.schedules, e.problems, e.seed, m, logger)
	e.enrollment = NewEnrollmentService(e.members, e.schedules, e.catalog, m, logger)
	e.completion = NewCompletionService(e.problems, e.schedules, e.catalog, nil, m, logger)
	e.leaderboard = NewLeaderboardService(e.members, e.problems, nil, time.Minute, time.UTC, m, logger)
	return e
}

// sheetRow 按报名表列顺序构造一行
func sheetRow(registered, username, region, goals, start, end, codes, email, mode, display string) []string {
	row := []string{registered, username, region, goals, start, end, codes, email, mode}
	if display != "" {
		row = append(row, display)
	}
	return row
}

func normalRow(username, email, codes string) []string {
	return sheetRow("11/01/2023 10:00:00", username, "US", "3", "2023-11-01", "2023-12-01", codes, email, "Normal Mode", "")
}

// createMember 通过报名表路径创建成员（附带默认自由计划）
func (e *testEnv) createMember(t *testing.T, username, email string) *model.Member {
	t.Helper()
	_, err := e.enrollment.Ingest(context.Background(), [][]string{
		sheetRow("11/01/2023 10:00:00", username, "US", "", "2023-11-01", "", "", email, "Free Mode", ""),
	})
	require.NoError(t, err)
	m, err := e.members.GetByEmail(context.Background(), email)
	require.NoError(t, err)
	require.NotNil(t, m)
	return m
}

// addSchedule 直接写入一个带题单的计划
func (e *testEnv) addSchedule(t *testing.T, memberID uint64, kind model.ScheduleType, start time.Time, problems ...*model.Problem) *model.Schedule {
	t.Helper()
	s := &model.Schedule{MemberID: memberID, Type: kind, Goals: 3, StartDate: start}
	require.NoError(t, e.schedules.CreateWithProblems(context.Background(), s, problems))
	return s
}

func naProblem(code int, title, slug string) *model.Problem {
	return &model.Problem{Code: code, Title: title, Slug: slug, Status: model.StatusNotAttempted}
}

func (e *testEnv) problemByID(t *testing.T, id uint64) *model.Problem {
	t.Helper()
	var p model.Problem
	require.NoError(t, e.db.First(&p, id).Error)
	return &p
}

func (e *testEnv) countProblems(t *testing.T, where string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(&model.Problem{}).Where(where, args...).Count(&n).Error)
	return n
}

func (e *testEnv) countSchedules(t *testing.T, where string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(&model.Schedule{}).Where(where, args...).Count(&n).Error)
	return n
}

// counterValue 按 label 取值（顺序与定义一致）读取计数器
func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels ...string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
	next:
		for _, m := range f.GetMetric() {
			pairs := m.GetLabel()
			if len(pairs) != len(labels) {
				continue
			}
			for i, p := range pairs {
				if p.GetValue() != labels[i] {
					continue next
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	return 0
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
