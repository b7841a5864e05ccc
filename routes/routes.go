package routes

import (
	"stock_alert_system/controllers"
	"stock_alert_system/scheduler"
	"stock_alert_system/services"
	"stock_alert_system/services/marketdata"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SetupRoutes sets up the operator control surface. User-facing alert
// CRUD lives in a separate API service; only engine operations are
// exposed here.
func SetupRoutes(router *gin.Engine, db *gorm.DB, sched *scheduler.Scheduler, prices *services.PriceService, limiter *marketdata.RateLimiter) {
	schedulerController := controllers.NewSchedulerController(sched)
	stockController := controllers.NewStockController(db, prices, limiter)

	api := router.Group("/api")
	{
		sch := api.Group("/scheduler")
		{
			sch.GET("/status", schedulerController.GetStatus)
			sch.GET("/jobs", schedulerController.GetJobs)
			sch.POST("/start", schedulerController.Start)
			sch.POST("/stop", schedulerController.Stop)
			sch.POST("/restart", schedulerController.Restart)
			sch.POST("/jobs/:id/pause", schedulerController.PauseJob)
			sch.POST("/jobs/:id/resume", schedulerController.ResumeJob)
			sch.DELETE("/jobs/:id", schedulerController.RemoveJob)
		}

		stocks := api.Group("/stocks")
		{
			stocks.GET("", stockController.GetStocks)
			stocks.POST("/:symbol/refresh", stockController.RefreshStock)
		}

		api.GET("/quota", stockController.GetQuota)
	}
}
