package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"ProgressSync/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type SyncHandler struct {
	syncService *service.SyncService
	logger      *logrus.Logger
}

func NewSyncHandler(syncService *service.SyncService, logger *logrus.Logger) *SyncHandler {
	return &SyncHandler{
		syncService: syncService,
		logger:      logger,
	}
}

func (h *SyncHandler) operations() map[string]func(context.Context) error {
	return map[string]func(context.Context) error{
		"catalog":     h.syncService.SyncCatalog,
		"schedules":   h.syncService.SyncSchedules,
		"submissions": h.syncService.SyncSubmissions,
		"benchmark":   h.syncService.SyncBenchmark,
		"all":         h.syncService.SyncAll,
	}
}

// TriggerSync 手动触发一次同步
// @Summary 手动同步
// @Param operation path string true "catalog/schedules/submissions/benchmark/all"
// @Success 200 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /sync/{operation} [post]
func (h *SyncHandler) TriggerSync(c *gin.Context) {
	name := c.Param("operation")
	run, ok := h.operations()[name]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("不支持的同步类型: %s", name)})
		return
	}

	if err := run(c.Request.Context()); err != nil {
		if errors.Is(err, service.ErrSyncInProgress) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		h.logger.WithError(err).WithField("operation", name).Error("手动同步失败")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("%s同步成功", name),
	})
}

// ListOperations 最近的同步记录
// GET /api/operations?limit=20
func (h *SyncHandler) ListOperations(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 || limit > 200 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit 须为 1-200 的整数"})
		return
	}
	ops, err := h.syncService.RecentOperations(c.Request.Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("ListOperations failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"operations": ops})
}
