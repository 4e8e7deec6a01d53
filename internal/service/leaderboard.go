package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"ProgressSync/internal/interfaces"
	"ProgressSync/internal/metrics"
	"ProgressSync/internal/model"
	"ProgressSync/internal/repository"

	"github.com/sirupsen/logrus"
)

// Window 排行榜时间窗口
type Window string

const (
	WindowDay  Window = "day"
	WindowWeek Window = "week"
	WindowAll  Window = "all"
)

// Windows 全部窗口（展示顺序）
var Windows = []Window{WindowDay, WindowWeek, WindowAll}

// ParseWindow 解析窗口参数，空串视为 all
func ParseWindow(raw string) (Window, error) {
	switch Window(raw) {
	case WindowDay, WindowWeek:
		return Window(raw), nil
	case WindowAll, "":
		return WindowAll, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownWindow, raw)
}

// Since 窗口起点：loc 时区下今天零点往前推 1 天 / 7 天；all 返回零值
func (w Window) Since(now time.Time, loc *time.Location) time.Time {
	var days int
	switch w {
	case WindowDay:
		days = 1
	case WindowWeek:
		days = 7
	default:
		return time.Time{}
	}
	local := now.In(loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return today.AddDate(0, 0, -days)
}

// Entry 排行榜单行
type Entry struct {
	Rank         int          `json:"rank"`
	MemberID     uint64       `json:"member_id"`
	DisplayName  string       `json:"display_name"`
	Username     string       `json:"leetcode_username,omitempty"`
	Region       model.Region `json:"server_region"`
	Count        int          `json:"count"`
	LastActivity time.Time    `json:"last_activity"`
}

// ExcludeStaff 默认排除规则：管理员（包括根成员）
func ExcludeStaff(m *model.Member) bool { return m.IsStaff }

// RankMembers 纯函数：统计 since 之后（含）的 AC 数，只保留数量大于 0 的成员，
// 按数量降序、成员 id 升序排列。LastActivity 为全部时间内最近一次 AC，没有则取注册时间。
// since 为零值表示不限时间
func RankMembers(members []*model.Member, acceptances []repository.Acceptance, since time.Time, exclude func(*model.Member) bool) []Entry {
	counts := make(map[uint64]int)
	latest := make(map[uint64]time.Time)
	for _, a := range acceptances {
		if a.DoneDate.After(latest[a.MemberID]) {
			latest[a.MemberID] = a.DoneDate
		}
		if since.IsZero() || !a.DoneDate.Before(since) {
			counts[a.MemberID]++
		}
	}

	entries := make([]Entry, 0, len(counts))
	for _, m := range members {
		if exclude != nil && exclude(m) {
			continue
		}
		n := counts[m.ID]
		if n == 0 {
			continue
		}
		last, ok := latest[m.ID]
		if !ok {
			last = m.DateJoined
		}
		e := Entry{
			MemberID:     m.ID,
			DisplayName:  m.DisplayName,
			Region:       m.Region,
			Count:        n,
			LastActivity: last,
		}
		if m.IsUsernamePublic {
			e.Username = m.Username
		}
		entries = append(entries, e)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].MemberID < entries[j].MemberID
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

// LeaderboardService 排行榜读取（带缓存）
type LeaderboardService struct {
	members  repository.MemberRepository
	problems repository.ProblemRepository
	cache    interfaces.LeaderboardCache
	ttl      time.Duration
	loc      *time.Location
	metrics  *metrics.Manager
	logger   *logrus.Logger
	now      func() time.Time
}

// NewLeaderboardService cache 为 nil 时不缓存
func NewLeaderboardService(
	members repository.MemberRepository,
	problems repository.ProblemRepository,
	cache interfaces.LeaderboardCache,
	ttl time.Duration,
	loc *time.Location,
	m *metrics.Manager,
	logger *logrus.Logger,
) *LeaderboardService {
	if loc == nil {
		loc = time.UTC
	}
	return &LeaderboardService{
		members:  members,
		problems: problems,
		cache:    cache,
		ttl:      ttl,
		loc:      loc,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
	}
}

// Rank 计算指定窗口的排行榜
func (s *LeaderboardService) Rank(ctx context.Context, window Window) ([]Entry, error) {
	now := s.now()
	// 键里带上当天日期，跨天后自动失效
	key := fmt.Sprintf("%s:%s", window, now.In(s.loc).Format("2006-01-02"))
	if s.cache != nil {
		if raw, ok := s.cache.Get(ctx, key); ok {
			var cached []Entry
			if err := json.Unmarshal(raw, &cached); err == nil {
				s.metrics.IncCacheLookup(true)
				return cached, nil
			}
			s.logger.WithField("key", key).Warn("排行榜缓存内容损坏，重新计算")
		}
		s.metrics.IncCacheLookup(false)
	}

	members, err := s.members.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("查询成员失败: %w", err)
	}
	acceptances, err := s.problems.ListAcceptances(ctx)
	if err != nil {
		return nil, fmt.Errorf("查询AC记录失败: %w", err)
	}
	entries := RankMembers(members, acceptances, window.Since(now, s.loc), ExcludeStaff)

	if s.cache != nil {
		if raw, err := json.Marshal(entries); err == nil {
			s.cache.Set(ctx, key, raw, s.ttl)
		}
	}
	return entries, nil
}

// Benchmark 三个窗口的排行榜
func (s *LeaderboardService) Benchmark(ctx context.Context) (map[Window][]Entry, error) {
	out := make(map[Window][]Entry, len(Windows))
	for _, w := range Windows {
		entries, err := s.Rank(ctx, w)
		if err != nil {
			return nil, err
		}
		out[w] = entries
	}
	return out, nil
}

// Invalidate 同步写入后清空缓存
func (s *LeaderboardService) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Invalidate(ctx)
}
