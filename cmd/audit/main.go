// audit 订阅用户事件并写入结构化日志
//
// 启动方式：
//
//	go run ./cmd/audit -config ./config/config.yaml
//
// 需要mq.enabled为true且RabbitMQ可用。
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/xiebiao/emotions/internal/domain/user"
	"github.com/xiebiao/emotions/internal/infrastructure/config"
	"github.com/xiebiao/emotions/pkg/logger"
	"github.com/xiebiao/emotions/pkg/mq"
)

const auditQueue = "emotions.user.audit"

func main() {
	configPath := flag.String("config", "", "配置文件路径（默认 ./config/config.yaml）")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	zlog := logger.Must(cfg.Log)
	defer zlog.Sync()

	if !cfg.MQ.Enabled {
		zlog.Fatal("消息队列未启用，请设置mq.enabled=true")
	}

	consumer, err := mq.NewConsumer(cfg.MQ.URL, cfg.MQ.Exchange, cfg.MQ.ExchangeType,
		auditQueue, []string{"user.*"}, zlog)
	if err != nil {
		zlog.Fatal("创建消费者失败", zap.Error(err))
	}
	defer consumer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := consumer.Consume(ctx, auditHandler(zlog)); err != nil {
		zlog.Error("消费中断", zap.Error(err))
	}
}

// auditHandler 解析用户事件并写日志
// 无法解析的消息直接丢弃（返回nil），否则会被无限重新入队
// TODO: 接入死信队列后，无法解析的消息改为转发到DLX
func auditHandler(zlog *zap.Logger) func(routingKey string, body []byte) error {
	return func(routingKey string, body []byte) error {
		var event user.Event
		if err := json.Unmarshal(body, &event); err != nil {
			zlog.Warn("丢弃无法解析的用户事件", zap.String("routing_key", routingKey), zap.Error(err))
			return nil
		}
		if event.Type != routingKey {
			zlog.Warn("事件类型与路由键不一致",
				zap.String("routing_key", routingKey),
				zap.String("type", event.Type),
			)
		}

		zlog.Info("用户事件",
			zap.String("type", event.Type),
			zap.Uint("user_id", event.UserID),
			zap.String("username", event.Username),
			zap.String("email", event.Email),
			zap.Uint("version", event.Version),
			zap.Time("occurred_at", event.OccurredAt),
		)
		return nil
	}
}
