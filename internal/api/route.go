package api

import (
	"Reelwatch/internal/api/middleware"
	"Reelwatch/internal/pkg/logger"
	"net/http"

	"github.com/gin-gonic/gin"
)

func SetupRouter(group *HandlersGroup) *gin.Engine {
	r := gin.New()
	_ = r.SetTrustedProxies([]string{"localhost"})

	// TraceId & Logger & CORS
	r.Use(middleware.TraceMiddleware())
	r.Use(middleware.AuditMiddleware())
	r.Use(middleware.CORSMiddleware())
	logger.SetupGin(r)

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"Code":    200,
				"Message": "pong",
				"Data":    nil,
			})
		})

		reelGroup := apiGroup.Group("/reels")
		{
			reelGroup.POST("/import", group.ReelHandler.ImportReel)
			reelGroup.GET("/:reel_id", group.ReelHandler.GetReel)
			reelGroup.GET("/:reel_id/history", group.ReelHandler.GetHistory)
			reelGroup.GET("/:reel_id/snapshot/latest", group.ReelHandler.GetLatestSnapshot)
		}

		analyticsGroup := apiGroup.Group("/analytics")
		{
			analyticsGroup.GET("/growth", group.AnalyticsHandler.GetGrowth)
			analyticsGroup.GET("/growth/total", group.AnalyticsHandler.GetTotalGrowth)
		}

		refreshGroup := apiGroup.Group("/refresh")
		{
			refreshGroup.POST("/reel/:reel_id", group.RefreshHandler.RefreshReel)
			refreshGroup.GET("/recommendation", group.RefreshHandler.GetRecommendation)
			refreshGroup.POST("/batch", group.RefreshHandler.BatchRefresh)

			refreshGroup.POST("/queue/:reel_id", group.RefreshHandler.EnqueueRefresh)
			refreshGroup.DELETE("/queue/pending", group.RefreshHandler.CancelPending)
			refreshGroup.GET("/queue/status", group.RefreshHandler.QueueStatus)
			refreshGroup.GET("/ws", group.WSHandler.Connect)
		}
	}

	return r
}
