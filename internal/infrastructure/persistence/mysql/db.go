package mysql

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"moul.io/zapgorm2"

	"github.com/xiebiao/emotions/internal/infrastructure/config"
	"github.com/xiebiao/emotions/pkg/tracing"
)

// NewDB 创建数据库连接池
// 设计说明：
// 1. 返回显式的*gorm.DB句柄，由wire注入到Repository，不使用全局变量
// 2. 配置连接池参数（MaxOpenConns、MaxIdleConns、ConnMaxLifetime）
// 3. TranslateError开启后唯一索引冲突会被转换为gorm.ErrDuplicatedKey
// 4. cleanup在程序退出时关闭连接池
func NewDB(cfg *config.Config, log *zap.Logger) (*gorm.DB, func(), error) {
	db, err := gorm.Open(mysql.Open(cfg.Database.DSN()), &gorm.Config{
		Logger:         newGormLogger(log, cfg.Server.Mode),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().Truncate(time.Microsecond)
		},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("获取SQL DB失败: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, nil, fmt.Errorf("数据库连接测试失败: %w", err)
	}

	log.Info("数据库连接成功",
		zap.String("host", cfg.Database.Host),
		zap.String("dbname", cfg.Database.DBName),
	)

	// 生产环境应使用版本化的迁移脚本，通过database.auto_migrate关闭
	if cfg.Database.AutoMigrate {
		if err := AutoMigrate(db); err != nil {
			sqlDB.Close()
			return nil, nil, fmt.Errorf("数据库迁移失败: %w", err)
		}
	}

	cleanup := func() {
		if err := sqlDB.Close(); err != nil {
			log.Warn("关闭数据库连接失败", zap.Error(err))
		}
	}
	return db, cleanup, nil
}

// newGormLogger GORM日志接入zap
// 1. debug模式打印全部SQL（zap Debug级别），其余模式只记录慢查询和错误
// 2. 记录不存在是正常业务结果，不作为错误日志
// 3. 带上当前Span的trace_id，便于和请求日志关联
func newGormLogger(log *zap.Logger, mode string) logger.Interface {
	l := zapgorm2.New(log.Named("gorm"))
	l.SlowThreshold = 200 * time.Millisecond
	l.IgnoreRecordNotFoundError = true
	l.Context = func(ctx context.Context) []zapcore.Field {
		if traceID := tracing.ExtractTraceID(ctx); traceID != "" {
			return []zapcore.Field{zap.String("trace_id", traceID)}
		}
		return nil
	}

	level := logger.Warn
	if mode == "debug" {
		level = logger.Info
	}
	return l.LogMode(level)
}

// AutoMigrate 自动迁移表结构
// 只会创建表、添加字段和索引，不会删除或修改现有字段
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&UserModel{})
}

// UserModel GORM用户模型
// 设计说明：
// 1. infrastructure层的数据模型，包含GORM tag；domain/user/entity.go不依赖GORM
// 2. username、email的唯一性由UNIQUE索引保证
// 3. version是乐观锁版本号，UPDATE时带上WHERE version = ?
type UserModel struct {
	ID        uint      `gorm:"primaryKey"`
	Username  string    `gorm:"uniqueIndex;size:64;not null;comment:用户名"`
	Email     string    `gorm:"uniqueIndex;size:100;not null;comment:邮箱"`
	Version   uint      `gorm:"not null;default:1;comment:乐观锁版本号"`
	CreatedAt time.Time `gorm:"comment:创建时间"`
	UpdatedAt time.Time `gorm:"comment:更新时间"`
}

// TableName 指定表名
func (UserModel) TableName() string {
	return "users"
}
