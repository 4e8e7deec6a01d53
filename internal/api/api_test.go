package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ProgressSync/internal/adapter"
	"ProgressSync/internal/adapter/seed"
	"ProgressSync/internal/cache"
	"ProgressSync/internal/metrics"
	"ProgressSync/internal/model"
	"ProgressSync/internal/repository"
	"ProgressSync/internal/service"
	"ProgressSync/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gatedSheet 在 release 关闭前阻塞，用于构造并发同步
type gatedSheet struct {
	rows    [][]string
	started chan struct{}
	release chan struct{}
}

func (g *gatedSheet) FetchRows(ctx context.Context) [][]string {
	if g.started != nil {
		close(g.started)
		g.started = nil
		select {
		case <-g.release:
		case <-ctx.Done():
		}
	}
	return g.rows
}

type stubSource struct {
	feeds map[string][]model.Submission
}

func (s *stubSource) GetRegion() model.Region { return model.RegionUS }

func (s *stubSource) FetchRecentSubmissions(_ context.Context, username string) model.SubmissionFeed {
	subs, ok := s.feeds[username]
	if !ok {
		return nil
	}
	return model.SubmissionFeed{model.OperationRecentAC: subs}
}

type testServer struct {
	router *gin.Engine
	sync   *service.SyncService
	sheet  *gatedSheet
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.NewDB(t)
	logger := testutil.NewLogger()
	m := metrics.NewManager(metrics.WithRegistry(prometheus.NewRegistry()))

	members := repository.NewMemberRepository(db)
	schedules := repository.NewScheduleRepository(db)
	problems := repository.NewProblemRepository(db)
	operations := repository.NewOperationRepository(db)

	seeder := seed.Static{
		{"Problem ID", "Problem Name", "Difficulty", "Acceptance Rate"},
		{"1", "Two Sum", "Easy", "49.1%"},
		{"2", "Add Two Numbers", "Medium", "40.4%"},
	}
	sheet := &gatedSheet{rows: [][]string{
		{"Timestamp", "LeetCode Username", "Server", "Goals", "Start", "End", "Problems", "Email", "Mode", "Name"},
		{"11/01/2023 10:00:00", "alice", "US", "2", "2023-11-01", "2023-12-01", "1 2", "alice@example.com", "Normal Mode", "Alice"},
	}}
	source := &stubSource{feeds: map[string][]model.Submission{
		"alice": {{ID: "999", Title: "Two Sum", TitleSlug: "two-sum", Timestamp: fmt.Sprint(time.Now().Add(-time.Hour).Unix())}},
	}}

	catalog := service.NewCatalogService(members, schedules, problems, seeder, m, logger)
	enrollment := service.NewEnrollmentService(members, schedules, catalog, m, logger)
	completion := service.NewCompletionService(problems, schedules, catalog, nil, m, logger)
	leaderboard := service.NewLeaderboardService(members, problems, cache.NewMemory(), time.Minute, time.UTC, m, logger)
	syncSvc := service.NewSyncService(sheet, adapter.NewStaticRegistry(logger, source), members, operations,
		catalog, enrollment, completion, leaderboard, m, logger)
	progress := service.NewProgressService(members, schedules, logger)

	r := NewRouter(Handlers{
		Sync:        NewSyncHandler(syncSvc, logger),
		Leaderboard: NewLeaderboardHandler(leaderboard, syncSvc, logger),
		Progress:    NewProgressHandler(catalog, progress, logger),
	}, m)
	return &testServer{router: r, sync: syncSvc, sheet: sheet}
}

func (s *testServer) do(method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func TestSyncThenLeaderboard(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/sync/all")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodGet, "/api/leaderboard?window=day")
	require.Equal(t, http.StatusOK, w.Code)
	var board struct {
		Window  string          `json:"window"`
		Entries []service.Entry `json:"entries"`
	}
	decode(t, w, &board)
	assert.Equal(t, "day", board.Window)
	require.Len(t, board.Entries, 1)
	assert.Equal(t, "Alice", board.Entries[0].DisplayName)
	assert.Equal(t, 1, board.Entries[0].Count)
	assert.Empty(t, board.Entries[0].Username)

	w = s.do(http.MethodGet, "/api/benchmark")
	require.Equal(t, http.StatusOK, w.Code)
	var bench struct {
		Day        []service.Entry          `json:"day"`
		Week       []service.Entry          `json:"week"`
		All        []service.Entry          `json:"all"`
		Operations []*model.ServerOperation `json:"operations"`
	}
	decode(t, w, &bench)
	assert.Len(t, bench.All, 1)
	assert.Len(t, bench.Operations, 3)

	w = s.do(http.MethodGet, "/api/operations?limit=1")
	require.Equal(t, http.StatusOK, w.Code)
	var ops struct {
		Operations []*model.ServerOperation `json:"operations"`
	}
	decode(t, w, &ops)
	require.Len(t, ops.Operations, 1)
	assert.Equal(t, model.OperationUpdateBenchmark, ops.Operations[0].Operation)
}

func TestBadRequests(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/leaderboard?window=month").Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/operations?limit=abc").Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/members/abc/schedules").Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/members/4242/schedules").Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodPost, "/sync/everything").Code)
}

func TestConcurrentSyncReturnsConflict(t *testing.T) {
	s := newTestServer(t)
	s.sheet.started = make(chan struct{})
	s.sheet.release = make(chan struct{})
	started := s.sheet.started

	done := make(chan error, 1)
	go func() { done <- s.sync.SyncSchedules(context.Background()) }()
	<-started

	w := s.do(http.MethodPost, "/sync/submissions")
	assert.Equal(t, http.StatusConflict, w.Code)

	close(s.sheet.release)
	require.NoError(t, <-done)
	assert.Equal(t, http.StatusOK, s.do(http.MethodPost, "/sync/submissions").Code)
}

func TestProblemsAndMemberSchedules(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/sync/schedules").Code)

	w := s.do(http.MethodGet, "/api/problems")
	require.Equal(t, http.StatusOK, w.Code)
	var catalog struct {
		Total    int              `json:"total"`
		Problems []*model.Problem `json:"problems"`
	}
	decode(t, w, &catalog)
	assert.Equal(t, 2, catalog.Total)
	assert.Equal(t, "two-sum", catalog.Problems[0].Slug)

	// 根成员 id=1，alice 为 2
	w = s.do(http.MethodGet, "/api/members/2/schedules")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var progress service.MemberProgress
	decode(t, w, &progress)
	assert.Equal(t, "Alice", progress.Member.DisplayName)
	require.Len(t, progress.Schedules, 2)
	assert.NotContains(t, w.Body.String(), "alice@example.com")

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/members/1/schedules").Code, "管理员不对外展示")
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.do(http.MethodGet, "/healthz")
	w := s.do(http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), `progresssync_http_requests_total{endpoint="/healthz",method="GET",status_code="200"} 1`))
}
