package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"focusflow/backend/internal/handler"
	"focusflow/backend/internal/middleware"
	"focusflow/backend/internal/service"
)

func New(
	authService *service.AuthService,
	authHandler *handler.AuthHandler,
	timerHandler *handler.TimerHandler,
	flowHandler *handler.FlowHandler,
	historyHandler *handler.HistoryHandler,
	statsHandler *handler.StatsHandler,
	corsOrigins []string,
) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Logger(), gin.Recovery(), middleware.CORS(corsOrigins))

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := engine.Group("/api")
	auth := api.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)

	timer := api.Group("/timer")
	timer.Use(middleware.Auth(authService))
	timer.GET("/state", timerHandler.GetState)
	timer.POST("/start", timerHandler.Start)
	timer.POST("/pause", timerHandler.Pause)
	timer.POST("/resume", timerHandler.Resume)
	timer.POST("/complete", timerHandler.Complete)
	timer.POST("/cancel", timerHandler.Cancel)
	timer.POST("/task", timerHandler.SwitchTask)
	timer.PUT("/settings", timerHandler.UpdateSettings)

	flows := api.Group("/flows")
	flows.Use(middleware.Auth(authService))
	flows.GET("", flowHandler.List)
	flows.POST("", flowHandler.Create)
	flows.GET("/:id", flowHandler.Get)
	flows.PUT("/:id", flowHandler.Update)
	flows.DELETE("/:id", flowHandler.Delete)
	flows.POST("/:id/start", flowHandler.Start)
	flows.POST("/pause", flowHandler.Pause)
	flows.POST("/continue", flowHandler.Continue)
	flows.POST("/end", flowHandler.End)

	history := api.Group("/history")
	history.Use(middleware.Auth(authService))
	history.GET("/sessions", historyHandler.Sessions)
	history.GET("/flows", historyHandler.Flows)

	stats := api.Group("/stats")
	stats.Use(middleware.Auth(authService))
	stats.GET("/weekly", statsHandler.Weekly)
	stats.GET("/monthly", statsHandler.Monthly)
	stats.GET("/types/:type", statsHandler.TypeStats)
	stats.GET("/streaks", statsHandler.Streaks)
	stats.GET("/peak-hour", statsHandler.PeakHour)
	stats.GET("/recommendation", statsHandler.Recommendation)

	return engine
}
