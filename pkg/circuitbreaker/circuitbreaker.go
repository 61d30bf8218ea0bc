// Package circuitbreaker 熔断器（基于sony/gobreaker）
//
// 用在"失败了也不影响结果"的旁路依赖上（如用户缓存）：
// 依赖连续失败时打开熔断器，之后的调用立即返回ErrOpenState，
// 不再每次都等待连接超时；Timeout之后放少量请求探测是否恢复。
//
// 状态转换：
//
//	CLOSED --连续失败--> OPEN --Timeout--> HALF_OPEN --成功--> CLOSED
//	                                          |
//	                                          +--失败--> OPEN
package circuitbreaker

import (
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// State 熔断器状态
type State = gobreaker.State

const (
	StateClosed   = gobreaker.StateClosed
	StateHalfOpen = gobreaker.StateHalfOpen
	StateOpen     = gobreaker.StateOpen
)

// ErrOpenState 熔断器打开，或半开状态下探测名额已用完
var ErrOpenState = gobreaker.ErrOpenState

// Config 熔断器配置
type Config struct {
	// MaxRequests 半开状态下允许的探测请求数，0按1处理
	MaxRequests uint32

	// Interval CLOSED状态下的统计窗口，过期后清零计数；0表示不清零
	Interval time.Duration

	// Timeout OPEN状态持续时间，之后转为HALF_OPEN
	Timeout time.Duration

	// FailureThreshold 连续失败多少次后打开，0按5处理
	FailureThreshold uint32
}

// CircuitBreaker 熔断器，并发安全
type CircuitBreaker struct {
	cb *gobreaker.CircuitBreaker[struct{}]
}

// New 创建熔断器，状态变化记录Warn日志
//
// 示例：
//
//	cb := circuitbreaker.New("user-cache", circuitbreaker.Config{
//	    Timeout: 30 * time.Second,
//	}, logger)
func New(name string, cfg Config, logger *zap.Logger) *CircuitBreaker {
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("熔断器状态变化",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return &CircuitBreaker{cb: gobreaker.NewCircuitBreaker[struct{}](settings)}
}

// Execute 执行请求
// 熔断器拒绝时不调用req，统一返回ErrOpenState；否则返回req的错误
func (b *CircuitBreaker) Execute(req func() error) error {
	_, err := b.cb.Execute(func() (struct{}, error) {
		return struct{}{}, req()
	})
	if errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrOpenState
	}
	return err
}

// State 当前状态
func (b *CircuitBreaker) State() State {
	return b.cb.State()
}

// Counts 当前统计窗口内的计数
func (b *CircuitBreaker) Counts() gobreaker.Counts {
	return b.cb.Counts()
}
