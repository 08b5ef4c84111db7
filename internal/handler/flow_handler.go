package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"focusflow/backend/internal/flow"
	"focusflow/backend/internal/middleware"
	"focusflow/backend/internal/service"
)

// FlowHandler serves flow definitions and run commands. Run commands go to
// the timer service because a run lives in the timer state row.
type FlowHandler struct {
	flowService  *service.FlowService
	timerService *service.TimerService
}

type flowRequest struct {
	Name  string      `json:"name"`
	Steps []flow.Step `json:"steps"`
}

func NewFlowHandler(flowService *service.FlowService, timerService *service.TimerService) *FlowHandler {
	return &FlowHandler{flowService: flowService, timerService: timerService}
}

func (h *FlowHandler) List(c *gin.Context) {
	userID := middleware.UserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": gin.H{"code": "unauthorized", "message": "unauthorized"},
		})
		return
	}

	flows, apiErr := h.flowService.List(c.Request.Context(), userID)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"flows": flows})
}

func (h *FlowHandler) Get(c *gin.Context) {
	userID := middleware.UserID(c)
	def, apiErr := h.flowService.Get(c.Request.Context(), userID, c.Param("id"))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"flow": def})
}

func (h *FlowHandler) Create(c *gin.Context) {
	var req flowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{"code": "invalid_json", "message": "invalid request body"},
		})
		return
	}

	userID := middleware.UserID(c)
	def, apiErr := h.flowService.Create(c.Request.Context(), userID, service.FlowInput{
		Name:  req.Name,
		Steps: req.Steps,
	})
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"flow": def})
}

func (h *FlowHandler) Update(c *gin.Context) {
	var req flowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{"code": "invalid_json", "message": "invalid request body"},
		})
		return
	}

	userID := middleware.UserID(c)
	def, apiErr := h.flowService.Update(c.Request.Context(), userID, c.Param("id"), service.FlowInput{
		Name:  req.Name,
		Steps: req.Steps,
	})
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"flow": def})
}

func (h *FlowHandler) Delete(c *gin.Context) {
	userID := middleware.UserID(c)
	if apiErr := h.flowService.Delete(c.Request.Context(), userID, c.Param("id")); apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *FlowHandler) Start(c *gin.Context) {
	req, ok := bindVersionRequest(c)
	if !ok {
		return
	}

	userID := middleware.UserID(c)
	state, apiErr := h.timerService.StartFlow(c.Request.Context(), userID, req.BaseVersion, c.Param("id"))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state})
}

func (h *FlowHandler) Pause(c *gin.Context) {
	req, ok := bindVersionRequest(c)
	if !ok {
		return
	}

	userID := middleware.UserID(c)
	state, apiErr := h.timerService.PauseFlow(c.Request.Context(), userID, req.BaseVersion)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state})
}

func (h *FlowHandler) Continue(c *gin.Context) {
	req, ok := bindVersionRequest(c)
	if !ok {
		return
	}

	userID := middleware.UserID(c)
	state, apiErr := h.timerService.ContinueFlow(c.Request.Context(), userID, req.BaseVersion)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state})
}

func (h *FlowHandler) End(c *gin.Context) {
	req, ok := bindVersionRequest(c)
	if !ok {
		return
	}

	userID := middleware.UserID(c)
	state, apiErr := h.timerService.EndFlow(c.Request.Context(), userID, req.BaseVersion)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state})
}
