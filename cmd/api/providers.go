package main

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/xiebiao/emotions/internal/domain/user"
	"github.com/xiebiao/emotions/internal/infrastructure/config"
	"github.com/xiebiao/emotions/internal/infrastructure/persistence/mysql"
	"github.com/xiebiao/emotions/internal/infrastructure/persistence/redis"
	"github.com/xiebiao/emotions/pkg/mq"
)

// provideUserRepository 创建用户仓储
// redis.enabled为true时在MySQL仓储外面包一层缓存
func provideUserRepository(cfg *config.Config, db *gorm.DB, log *zap.Logger) (user.Repository, func(), error) {
	repo := mysql.NewUserRepository(db)
	if !cfg.Redis.Enabled {
		return repo, func() {}, nil
	}

	client, cleanup, err := redis.NewClient(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return redis.NewCachedUserRepository(repo, client, cfg.Redis.UserTTL, log), cleanup, nil
}

// provideEventPublisher 创建用户事件发布者
// mq.enabled为false时使用NopPublisher
func provideEventPublisher(cfg *config.Config, log *zap.Logger) (user.EventPublisher, func(), error) {
	if !cfg.MQ.Enabled {
		return mq.NewNopPublisher(log), func() {}, nil
	}

	publisher, err := mq.NewPublisher(cfg.MQ.URL, cfg.MQ.Exchange, cfg.MQ.ExchangeType, log)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		if err := publisher.Close(); err != nil {
			log.Warn("关闭消息发布者失败", zap.Error(err))
		}
	}
	return publisher, cleanup, nil
}
