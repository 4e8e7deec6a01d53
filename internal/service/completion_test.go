package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"ProgressSync/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func acEvent(id, title, slug, ts string) model.Submission {
	return model.Submission{ID: id, Title: title, TitleSlug: slug, Timestamp: ts}
}

func TestAcceptedEventSatisfiesAssignment(t *testing.T) {
	e := newTestEnv(t, nil)
	ctx := context.Background()

	_, err := e.enrollment.Ingest(ctx, [][]string{normalRow("alice", "alice@example.com", "1")})
	require.NoError(t, err)
	m, err := e.members.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)

	var assigned model.Problem
	require.NoError(t, e.db.Joins("JOIN schedules ON schedules.id = problems.schedule_id").
		Where("schedules.member_id = ? AND problems.problem_code = ?", m.ID, 1).First(&assigned).Error)
	assert.Equal(t, "Two Sum", assigned.Title)
	assert.Equal(t, "two-sum", assigned.Slug)
	assert.Equal(t, model.StatusNotAttempted, assigned.Status)

	stats, err := e.completion.Reconcile(ctx, m, []model.Submission{acEvent("999", "Two Sum", "two-sum", "1700000000")})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Matched)

	got := e.problemByID(t, assigned.ID)
	assert.Equal(t, model.StatusAccepted, got.Status)
	require.NotNil(t, got.ProofURL)
	assert.True(t, strings.Contains(*got.ProofURL, "999"))
	assert.Equal(t, "https://leetcode.com/submissions/detail/999/", *got.ProofURL)
	require.NotNil(t, got.DoneDate)
	assert.Equal(t, int64(1700000000), got.DoneDate.Unix())
}

func TestSameEventTwiceIsIdempotent(t *testing.T) {
	e := newTestEnv(t, nil)
	ctx := context.Background()
	_, err := e.enrollment.Ingest(ctx, [][]string{normalRow("alice", "alice@example.com", "1")})
	require.NoError(t, err)
	m, err := e.members.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)

	ev := acEvent("999", "Two Sum", "two-sum", "1700000000")
	_, err = e.completion.Reconcile(ctx, m, []model.Submission{ev})
	require.NoError(t, err)
	stats, err := e.completion.Reconcile(ctx, m, []model.Submission{ev, ev})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Duplicate)

	assert.EqualValues(t, 1, e.countProblems(t, "status = ?", model.StatusAccepted))
	assert.EqualValues(t, 1, e.countProblems(t, "proof_url = ?", "https://leetcode.com/submissions/detail/999/"))
}

func TestAcceptedAssignmentNeverTransitionsTwice(t *testing.T) {
	e := newTestEnv(t, nil)
	ctx := context.Background()
	_, err := e.enrollment.Ingest(ctx, [][]string{normalRow("alice", "alice@example.com", "1")})
	require.NoError(t, err)
	m, err := e.members.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)

	stats, err := e.completion.Reconcile(ctx, m, []model.Submission{
		acEvent("100", "Two Sum", "two-sum", "1700000000"),
		acEvent("101", "Two Sum", "two-sum", "1700000500"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Matched)
	assert.Equal(t, 1, stats.Fallback, "再次AC同一题进入自由计划")

	var normal model.Problem
	require.NoError(t, e.db.Joins("JOIN schedules ON schedules.id = problems.schedule_id").
		Where("schedules.schedule_type = ? AND schedules.member_id = ?", model.ScheduleNormal, m.ID).First(&normal).Error)
	assert.Equal(t, model.StatusAccepted, normal.Status)
	assert.Equal(t, "https://leetcode.com/submissions/detail/100/", *normal.ProofURL)
	assert.Equal(t, int64(1700000000), normal.DoneDate.Unix())

	changed, err := e.problems.MarkAccepted(ctx, normal.ID, time.Now(), "https://leetcode.com/submissions/detail/102/")
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestFirstMatchPrefersMostRecentSchedule(t *testing.T) {
	e := newTestEnv(t, nil)
	ctx := context.Background()
	m := e.createMember(t, "alice", "alice@example.com")

	older := e.addSchedule(t, m.ID, model.ScheduleNormal, date(2024, 1, 1), naProblem(1, "Two Sum", "two-sum"))
	newer := e.addSchedule(t, m.ID, model.ScheduleNormal, date(2024, 2, 1), naProblem(1, "Two Sum", "two-sum"))

	stats, err := e.completion.Reconcile(ctx, m, []model.Submission{acEvent("999", "Two Sum", "two-sum", "1700000000")})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Matched)

	assert.EqualValues(t, 1, e.countProblems(t, "schedule_id = ? AND status = ?", newer.ID, model.StatusAccepted))
	assert.EqualValues(t, 1, e.countProblems(t, "schedule_id = ? AND status = ?", older.ID, model.StatusNotAttempted))

	// 第二次 AC 命中剩下的旧计划
	_, err = e.completion.Reconcile(ctx, m, []model.Submission{acEvent("1000", "Two Sum", "two-sum", "1700000100")})
	require.NoError(t, err)
	assert.EqualValues(t, 1, e.countProblems(t, "schedule_id = ? AND status = ?", older.ID, model.StatusAccepted))
}

func TestFirstMatchTieBreaksOnScheduleID(t *testing.T) {
	e := newTestEnv(t, nil)
	ctx := context.Background()
	m := e.createMember(t, "alice", "alice@example.com")

	first := e.addSchedule(t, m.ID, model.ScheduleNormal, date(2024, 1, 1), naProblem(1, "Two Sum", "two-sum"))
	second := e.addSchedule(t, m.ID, model.ScheduleNormal, date(2024, 1, 1), naProblem(1, "Two Sum", "two-sum"))

	_, err := e.completion.Reconcile(ctx, m, []model.Submission{acEvent("999", "Two Sum", "two-sum", "1700000000")})
	require.NoError(t, err)
	assert.EqualValues(t, 1, e.countProblems(t, "schedule_id = ? AND status = ?", second.ID, model.StatusAccepted))
	assert.EqualValues(t, 0, e.countProblems(t, "schedule_id = ? AND status = ?", first.ID, model.StatusAccepted))
}

func TestUnmatchedEventFallsBackToLatestFreeSchedule(t *testing.T) {
	e := newTestEnv(t, nil)
	ctx := context.Background()
	m := e.createMember(t, "alice", "alice@example.com")
	latestFree := e.addSchedule(t, m.ID, model.ScheduleFree, date(2025, 1, 1))
	// 其他成员的常规计划不应被命中
	other := e.createMember(t, "bob", "bob@example.com")
	e.addSchedule(t, other.ID, model.ScheduleNormal, date(2025, 1, 1), naProblem(15, "3Sum", "3sum"))

	stats, err := e.completion.Reconcile(ctx, m, []model.Submission{acEvent("555", "3Sum", "3sum", "1700000000")})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Fallback)

	var created []model.Problem
	require.NoError(t, e.db.Where("proof_url = ?", "https://leetcode.com/submissions/detail/555/").Find(&created).Error)
	require.Len(t, created, 1)
	assert.Equal(t, latestFree.ID, created[0].ScheduleID)
	assert.Equal(t, model.StatusAccepted, created[0].Status)
	assert.Equal(t, 15, created[0].Code)
	assert.Equal(t, "3sum", created[0].Slug)
	assert.Equal(t, int64(1700000000), created[0].DoneDate.Unix())

	assert.EqualValues(t, 1, e.countProblems(t, "problem_title = ? AND status = ?", "3Sum", model.StatusNotAttempted))
}

func TestUnknownTitleIsSkipped(t *testing.T) {
	e := newTestEnv(t, nil)
	ctx := context.Background()
	m := e.createMember(t, "alice", "alice@example.com")
	before := e.countProblems(t, "1 = 1")

	stats, err := e.completion.Reconcile(ctx, m, []model.Submission{acEvent("1", "Unknown Problem", "unknown-problem", "1700000000")})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Unknown)
	assert.Equal(t, before, e.countProblems(t, "1 = 1"))
}

func TestMalformedEventsAreSkipped(t *testing.T) {
	e := newTestEnv(t, nil)
	ctx := context.Background()
	m := e.createMember(t, "alice", "alice@example.com")

	stats, err := e.completion.Reconcile(ctx, m, []model.Submission{
		acEvent("", "Two Sum", "two-sum", "1700000000"),
		acEvent("7", "Two Sum", "two-sum", "soon"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Invalid)
	assert.EqualValues(t, 0, e.countProblems(t, "status = ?", model.StatusAccepted))
}

func TestSlugRepairFromObservedEvent(t *testing.T) {
	e := newTestEnv(t, nil)
	ctx := context.Background()
	_, err := e.enrollment.Ingest(ctx, [][]string{normalRow("alice", "alice@example.com", "50")})
	require.NoError(t, err)
	m, err := e.members.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)

	stats, err := e.completion.Reconcile(ctx, m, []model.Submission{acEvent("42", "Pow(x, n)", "powx-n-observed", "1700000000")})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.SlugsFixed)
	assert.Equal(t, 1, stats.Matched)

	entry, err := e.catalog.LookupByCode(ctx, 50)
	require.NoError(t, err)
	assert.Equal(t, "powx-n-observed", entry.Slug)
	assert.EqualValues(t, 1, e.countProblems(t, "problem_code = ? AND problem_slug = ?", 50, "powx-n"), "成员计划中的快照保持原值")
}

func TestMissingFreeScheduleIsSurfaced(t *testing.T) {
	e := newTestEnv(t, nil)
	ctx := context.Background()
	m := e.createMember(t, "alice", "alice@example.com")
	require.NoError(t, e.db.Where("member_id = ? AND schedule_type = ?", m.ID, model.ScheduleFree).Delete(&model.Schedule{}).Error)

	_, err := e.completion.Reconcile(ctx, m, []model.Submission{acEvent("999", "Two Sum", "two-sum", "1700000000")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoFreeSchedule))
	assert.EqualValues(t, 0, e.countProblems(t, "status = ?", model.StatusAccepted))
}

func TestProofURLPerRegion(t *testing.T) {
	e := newTestEnv(t, nil)
	assert.Equal(t, "https://leetcode.com/submissions/detail/1/", e.completion.ProofURL(model.RegionUS, "1"))
	assert.Equal(t, "https://leetcode.cn/submissions/detail/1/", e.completion.ProofURL(model.RegionCN, "1"))
	assert.Equal(t, "https://leetcode.com/submissions/detail/1/", e.completion.ProofURL(model.Region("XX"), "1"))
}
