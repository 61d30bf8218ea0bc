//go:build wireinject
// +build wireinject

// Wire依赖注入配置文件
//
// 修改本文件后运行 `wire gen ./cmd/api` 重新生成wire_gen.go。

package main

import (
	"github.com/gin-gonic/gin"
	"github.com/google/wire"
	"go.uber.org/zap"

	"github.com/xiebiao/emotions/internal/domain/user"
	"github.com/xiebiao/emotions/internal/infrastructure/config"
	"github.com/xiebiao/emotions/internal/infrastructure/persistence/mysql"
	"github.com/xiebiao/emotions/internal/interface/http/handler"
	"github.com/xiebiao/emotions/internal/interface/http/router"
)

// infrastructureSet 基础设施层依赖：数据库连接、仓储（可选Redis缓存）、事务管理器、事件发布
var infrastructureSet = wire.NewSet(
	mysql.NewDB,
	provideUserRepository,
	mysql.NewTxManager,
	wire.Bind(new(user.Transactor), new(*mysql.TxManager)),
	provideEventPublisher,
)

// domainSet 领域层依赖
var domainSet = wire.NewSet(
	user.NewService,
)

// interfaceSet HTTP层依赖
var interfaceSet = wire.NewSet(
	handler.NewUserHandler,
	router.New,
)

// InitializeApp 初始化整个应用
// 返回配置好的Gin引擎和cleanup（按创建的逆序释放数据库、Redis、MQ连接）
func InitializeApp(cfg *config.Config, log *zap.Logger) (*gin.Engine, func(), error) {
	wire.Build(
		infrastructureSet,
		domainSet,
		interfaceSet,
	)
	return nil, nil, nil
}
