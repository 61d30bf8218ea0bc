package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xiebiao/emotions/pkg/logger"
)

// RequestIDHeader 请求ID响应头
const RequestIDHeader = "X-Request-ID"

// slowRequestThreshold 超过该耗时的请求记为Warn
const slowRequestThreshold = 3 * time.Second

// Logger 请求日志中间件
//
// 1. 沿用上游传入的X-Request-ID，没有时生成一个
// 2. 把带request_id字段的logger放进请求context，handler和response.Error都从这里取
// 3. 请求结束后输出方法、路径、状态码、耗时、客户端IP
//
// 不记录请求体，避免把大字段和隐私信息写进日志。
func Logger(base *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Header(RequestIDHeader, requestID)

		reqLogger := base.With(zap.String("request_id", requestID))
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context(), reqLogger))

		start := time.Now()
		c.Next()
		latency := time.Since(start)

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch {
		case c.Writer.Status() >= 500:
			reqLogger.Error("请求失败", fields...)
		case latency > slowRequestThreshold:
			reqLogger.Warn("慢请求", fields...)
		default:
			reqLogger.Info("请求完成", fields...)
		}
	}
}

// Recovery panic恢复中间件，panic信息写入zap日志并返回500
func Recovery(base *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		base.Error("请求处理panic",
			zap.String("request_id", c.GetString("request_id")),
			zap.Any("panic", recovered),
			zap.String("path", c.Request.URL.Path),
			zap.Stack("stack"),
		)
		c.AbortWithStatus(http.StatusInternalServerError)
	})
}
