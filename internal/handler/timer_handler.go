package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"focusflow/backend/internal/middleware"
	"focusflow/backend/internal/model"
	"focusflow/backend/internal/service"
	"focusflow/backend/internal/session"
)

type TimerHandler struct {
	timerService *service.TimerService
}

type versionRequest struct {
	BaseVersion int `json:"baseVersion"`
}

type startRequest struct {
	BaseVersion            int    `json:"baseVersion"`
	SessionType            string `json:"sessionType"`
	PlannedDurationSeconds int    `json:"plannedDurationSeconds"`
	LinkedTaskID           string `json:"linkedTaskId"`
}

type completeRequest struct {
	BaseVersion  int  `json:"baseVersion"`
	FocusQuality *int `json:"focusQuality"`
}

type taskRequest struct {
	BaseVersion  int    `json:"baseVersion"`
	LinkedTaskID string `json:"linkedTaskId"`
}

type settingsRequest struct {
	BaseVersion int                    `json:"baseVersion"`
	Durations   model.DurationSettings `json:"durations"`
}

func NewTimerHandler(timerService *service.TimerService) *TimerHandler {
	return &TimerHandler{timerService: timerService}
}

// bindVersionRequest handles the bodies that carry nothing but baseVersion.
// It writes the error response itself and reports whether to proceed.
func bindVersionRequest(c *gin.Context) (versionRequest, bool) {
	var req versionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{"code": "invalid_json", "message": "invalid request body"},
		})
		return req, false
	}
	if req.BaseVersion <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{"code": "invalid_base_version", "message": "baseVersion is required"},
		})
		return req, false
	}
	return req, true
}

func (h *TimerHandler) GetState(c *gin.Context) {
	userID := middleware.UserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": gin.H{"code": "unauthorized", "message": "unauthorized"},
		})
		return
	}

	state, apiErr := h.timerService.GetState(c.Request.Context(), userID)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state})
}

func (h *TimerHandler) Start(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{"code": "invalid_json", "message": "invalid request body"},
		})
		return
	}
	if req.BaseVersion <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{"code": "invalid_base_version", "message": "baseVersion is required"},
		})
		return
	}

	userID := middleware.UserID(c)
	state, apiErr := h.timerService.Start(c.Request.Context(), userID, service.StartInput{
		BaseVersion:            req.BaseVersion,
		SessionType:            session.Type(req.SessionType),
		PlannedDurationSeconds: req.PlannedDurationSeconds,
		LinkedTaskID:           req.LinkedTaskID,
	})
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state})
}

func (h *TimerHandler) Pause(c *gin.Context) {
	req, ok := bindVersionRequest(c)
	if !ok {
		return
	}

	userID := middleware.UserID(c)
	state, apiErr := h.timerService.Pause(c.Request.Context(), userID, req.BaseVersion)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state})
}

func (h *TimerHandler) Resume(c *gin.Context) {
	req, ok := bindVersionRequest(c)
	if !ok {
		return
	}

	userID := middleware.UserID(c)
	state, apiErr := h.timerService.Resume(c.Request.Context(), userID, req.BaseVersion)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state})
}

func (h *TimerHandler) Complete(c *gin.Context) {
	var req completeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{"code": "invalid_json", "message": "invalid request body"},
		})
		return
	}
	if req.BaseVersion <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{"code": "invalid_base_version", "message": "baseVersion is required"},
		})
		return
	}

	userID := middleware.UserID(c)
	state, apiErr := h.timerService.Complete(c.Request.Context(), userID, req.BaseVersion, req.FocusQuality)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state})
}

func (h *TimerHandler) Cancel(c *gin.Context) {
	req, ok := bindVersionRequest(c)
	if !ok {
		return
	}

	userID := middleware.UserID(c)
	state, apiErr := h.timerService.Cancel(c.Request.Context(), userID, req.BaseVersion)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state})
}

func (h *TimerHandler) SwitchTask(c *gin.Context) {
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{"code": "invalid_json", "message": "invalid request body"},
		})
		return
	}
	if req.BaseVersion <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{"code": "invalid_base_version", "message": "baseVersion is required"},
		})
		return
	}

	userID := middleware.UserID(c)
	state, apiErr := h.timerService.SwitchTask(c.Request.Context(), userID, req.BaseVersion, req.LinkedTaskID)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state})
}

func (h *TimerHandler) UpdateSettings(c *gin.Context) {
	var req settingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{"code": "invalid_json", "message": "invalid request body"},
		})
		return
	}
	if req.BaseVersion <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{"code": "invalid_base_version", "message": "baseVersion is required"},
		})
		return
	}

	userID := middleware.UserID(c)
	state, apiErr := h.timerService.UpdateSettings(c.Request.Context(), userID, service.UpdateSettingsInput{
		BaseVersion: req.BaseVersion,
		Durations:   req.Durations,
	})
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state})
}
