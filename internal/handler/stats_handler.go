package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"focusflow/backend/internal/middleware"
	"focusflow/backend/internal/service"
)

type StatsHandler struct {
	statsService *service.StatsService
}

func NewStatsHandler(statsService *service.StatsService) *StatsHandler {
	return &StatsHandler{statsService: statsService}
}

func (h *StatsHandler) Weekly(c *gin.Context) {
	userID := middleware.UserID(c)
	summary, apiErr := h.statsService.Weekly(c.Request.Context(), userID, c.Query("date"), c.Query("tz"))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

func (h *StatsHandler) Monthly(c *gin.Context) {
	userID := middleware.UserID(c)
	summary, apiErr := h.statsService.Monthly(c.Request.Context(), userID, c.Query("date"), c.Query("tz"))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

func (h *StatsHandler) TypeStats(c *gin.Context) {
	userID := middleware.UserID(c)
	stats, apiErr := h.statsService.TypeStats(c.Request.Context(), userID, c.Param("type"))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": stats})
}

func (h *StatsHandler) Streaks(c *gin.Context) {
	userID := middleware.UserID(c)
	streaks, apiErr := h.statsService.Streaks(c.Request.Context(), userID, c.Query("tz"))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"streaks": streaks})
}

func (h *StatsHandler) PeakHour(c *gin.Context) {
	userID := middleware.UserID(c)
	peak, apiErr := h.statsService.PeakHour(c.Request.Context(), userID, c.Query("tz"))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"peakHour": peak})
}

func (h *StatsHandler) Recommendation(c *gin.Context) {
	userID := middleware.UserID(c)
	rec, apiErr := h.statsService.Recommendation(c.Request.Context(), userID)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recommendation": rec})
}
