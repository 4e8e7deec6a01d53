package api

import (
	"errors"
	"net/http"
	"strconv"

	"ProgressSync/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ProgressHandler 题库与成员进度查询接口
type ProgressHandler struct {
	catalog  *service.CatalogService
	progress *service.ProgressService
	logger   *logrus.Logger
}

func NewProgressHandler(catalog *service.CatalogService, progress *service.ProgressService, logger *logrus.Logger) *ProgressHandler {
	return &ProgressHandler{
		catalog:  catalog,
		progress: progress,
		logger:   logger,
	}
}

// ListProblems 题库列表 GET /api/problems
func (h *ProgressHandler) ListProblems(c *gin.Context) {
	problems, err := h.catalog.List(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("ListProblems failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": len(problems), "problems": problems})
}

// GetMemberSchedules 成员计划与完成情况 GET /api/members/:id/schedules
func (h *ProgressHandler) GetMemberSchedules(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be a positive integer"})
		return
	}

	result, err := h.progress.MemberSchedules(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrMemberNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		h.logger.WithError(err).Error("GetMemberSchedules failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}
