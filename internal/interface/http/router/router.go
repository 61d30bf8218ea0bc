package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/xiebiao/emotions/internal/infrastructure/config"
	"github.com/xiebiao/emotions/internal/interface/http/handler"
	"github.com/xiebiao/emotions/internal/interface/http/middleware"
	"github.com/xiebiao/emotions/pkg/response"
)

// New 创建并配置Gin引擎
//
// 路由：
//   - GET /ping          健康检查
//   - GET /metrics       Prometheus指标
//   - GET /swagger/*any  API文档（仅debug模式）
//   - /api/v1/users      用户CRUD
func New(cfg *config.Config, log *zap.Logger, userHandler *handler.UserHandler) *gin.Engine {
	switch cfg.Server.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()
	r.Use(middleware.Recovery(log), middleware.Logger(log), middleware.Metrics())

	r.GET("/ping", func(c *gin.Context) {
		response.Success(c, gin.H{
			"message": "pong",
			"status":  "healthy",
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 生产环境不暴露API文档
	if cfg.Server.Mode == "debug" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	v1 := r.Group("/api/v1")
	userHandler.RegisterRoutes(v1)

	return r
}
