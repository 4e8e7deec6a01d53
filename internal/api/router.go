package api

import (
	"net/http"

	"ProgressSync/internal/metrics"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
)

// Handlers 路由依赖
type Handlers struct {
	Sync        *SyncHandler
	Leaderboard *LeaderboardHandler
	Progress    *ProgressHandler
}

// NewRouter 注册全部路由；m 为 nil 时不暴露 /metrics
func NewRouter(h Handlers, m *metrics.Manager) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	// 注册ppof 方便调试和监测性能问题
	pprof.Register(r)

	if m != nil {
		r.Use(m.GinMiddleware())
		r.GET("/metrics", gin.WrapH(m.Handler()))
	}

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// 手动同步（与定时任务共用一把锁，冲突返回 409）
	r.POST("/sync/:operation", h.Sync.TriggerSync)

	api := r.Group("/api")
	api.GET("/operations", h.Sync.ListOperations)
	api.GET("/leaderboard", h.Leaderboard.GetLeaderboard)
	api.GET("/benchmark", h.Leaderboard.GetBenchmark)
	api.GET("/problems", h.Progress.ListProblems)
	api.GET("/members/:id/schedules", h.Progress.GetMemberSchedules)
	return r
}
