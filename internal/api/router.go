package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/vessel-tracks/internal/config"
	"github.com/jengzang/vessel-tracks/internal/handler"
	"github.com/jengzang/vessel-tracks/internal/middleware"
)

// SetupRouter 设置路由
func SetupRouter(cfg *config.Config, days *handler.DayTaskHandler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.Logger(), middleware.RateLimit(120, time.Minute))

	// CORS 中间件
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Vessel track processor is running",
			"region":  cfg.Region.Name,
		})
	})

	// API 路由组
	v1 := r.Group("/api/v1")
	{
		v1.GET("/days", days.ListDays)
		v1.GET("/days/:id", days.GetDay)
		v1.GET("/outputs/:day", days.DownloadOutput)
	}

	admin := r.Group("/api/admin", middleware.JWTAuth(cfg.Server.JWTSecret))
	{
		admin.POST("/runs", days.StartRun)
		admin.POST("/runs/:run_id/retry", days.RetryRun)
	}

	return r
}
