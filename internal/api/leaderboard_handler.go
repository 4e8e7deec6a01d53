package api

import (
	"net/http"

	"ProgressSync/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// benchmarkOperations /api/benchmark 附带的最近同步记录条数
const benchmarkOperations = 10

// LeaderboardHandler 排行榜查询接口
type LeaderboardHandler struct {
	leaderboard *service.LeaderboardService
	syncService *service.SyncService
	logger      *logrus.Logger
}

func NewLeaderboardHandler(leaderboard *service.LeaderboardService, syncService *service.SyncService, logger *logrus.Logger) *LeaderboardHandler {
	return &LeaderboardHandler{
		leaderboard: leaderboard,
		syncService: syncService,
		logger:      logger,
	}
}

// GetLeaderboard 单个窗口的排行榜
// GET /api/leaderboard?window=day|week|all
func (h *LeaderboardHandler) GetLeaderboard(c *gin.Context) {
	window, err := service.ParseWindow(c.Query("window"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entries, err := h.leaderboard.Rank(c.Request.Context(), window)
	if err != nil {
		h.logger.WithError(err).WithField("window", window).Error("GetLeaderboard failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"window": window, "entries": entries})
}

// GetBenchmark 三个窗口的排行榜 + 最近的同步记录
// GET /api/benchmark
func (h *LeaderboardHandler) GetBenchmark(c *gin.Context) {
	ctx := c.Request.Context()
	boards, err := h.leaderboard.Benchmark(ctx)
	if err != nil {
		h.logger.WithError(err).Error("GetBenchmark failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ops, err := h.syncService.RecentOperations(ctx, benchmarkOperations)
	if err != nil {
		h.logger.WithError(err).Warn("查询同步记录失败")
	}
	c.JSON(http.StatusOK, gin.H{
		"day":        boards[service.WindowDay],
		"week":       boards[service.WindowWeek],
		"all":        boards[service.WindowAll],
		"operations": ops,
	})
}
