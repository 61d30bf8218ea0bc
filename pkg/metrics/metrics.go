// Package metrics 提供基于Prometheus的指标收集
//
// 指标分三类：
//   - HTTP请求：请求总数、耗时分布、处理中的请求数
//   - 用户操作：按operation和result统计服务层调用
//   - 基础设施：用户缓存命中率、事件发布数
//
// 使用方式：
//
//	metrics.InitMetrics()
//	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
//
// 命名规范：Counter以_total结尾，Histogram以单位结尾（_seconds）。
// 不要使用user_id等高基数字段作为标签。
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 操作结果标签
const (
	ResultSuccess  = "success"
	ResultNotFound = "not_found"
	ResultError    = "error"
)

var (
	initOnce sync.Once

	// HTTPRequestsTotal HTTP请求总数
	// 标签：method、path（路由模板）、status
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPRequestDuration HTTP请求耗时
	HTTPRequestDuration *prometheus.HistogramVec

	// HTTPRequestsInProgress 正在处理的HTTP请求数
	HTTPRequestsInProgress prometheus.Gauge

	// UserOperationsTotal 用户服务调用次数
	// 标签：operation（GetUserByID等）、result（success/not_found/error）
	UserOperationsTotal *prometheus.CounterVec

	// UserCacheRequestsTotal 用户缓存访问次数
	// 标签：result（hit/miss/error/bypass，bypass表示熔断期间跳过缓存）
	UserCacheRequestsTotal *prometheus.CounterVec

	// EventsPublishedTotal 用户事件发布次数
	// 标签：routing_key
	EventsPublishedTotal *prometheus.CounterVec
)

// InitMetrics 初始化并注册所有指标
// 可重复调用，只有第一次生效
func InitMetrics() {
	initOnce.Do(func() {
		HTTPRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "HTTP请求总数",
			},
			[]string{"method", "path", "status"},
		)

		HTTPRequestDuration = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "http_request_duration_seconds",
				Help: "HTTP请求耗时（秒）",
				// 1ms、10ms、100ms、500ms、1s、5s、10s
				Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10},
			},
			[]string{"method", "path"},
		)

		HTTPRequestsInProgress = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_progress",
				Help: "正在处理的HTTP请求数",
			},
		)

		UserOperationsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "user_operations_total",
				Help: "用户服务调用次数",
			},
			[]string{"operation", "result"},
		)

		UserCacheRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "user_cache_requests_total",
				Help: "用户缓存访问次数",
			},
			[]string{"result"},
		)

		EventsPublishedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "user_events_published_total",
				Help: "用户事件发布次数",
			},
			[]string{"routing_key"},
		)
	})
}

// RecordUserOperation 记录一次用户服务调用
// 服务层把"不存在"转换成了空结果，调用方用found传入，found为false计为not_found
func RecordUserOperation(operation string, found bool, err error) {
	InitMetrics()

	result := ResultSuccess
	switch {
	case err != nil:
		result = ResultError
	case !found:
		result = ResultNotFound
	}
	UserOperationsTotal.WithLabelValues(operation, result).Inc()
}

// RecordCacheResult 记录一次缓存访问（hit/miss/error/bypass）
func RecordCacheResult(result string) {
	InitMetrics()
	UserCacheRequestsTotal.WithLabelValues(result).Inc()
}

// RecordEventPublished 记录一次事件发布
func RecordEventPublished(routingKey string) {
	InitMetrics()
	EventsPublishedTotal.WithLabelValues(routingKey).Inc()
}

// IncGauge 递增Gauge
func IncGauge(gauge prometheus.Gauge) {
	gauge.Inc()
}

// DecGauge 递减Gauge
func DecGauge(gauge prometheus.Gauge) {
	gauge.Dec()
}

// IncCounterVec 递增CounterVec（带标签）
func IncCounterVec(counter *prometheus.CounterVec, labels map[string]string) {
	counter.With(labels).Inc()
}

// ObserveHistogramVec 记录HistogramVec观测值（带标签）
func ObserveHistogramVec(histogram *prometheus.HistogramVec, labels map[string]string, value float64) {
	histogram.With(labels).Observe(value)
}
