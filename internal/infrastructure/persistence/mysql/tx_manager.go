package mysql

import (
	"context"

	"gorm.io/gorm"

	"github.com/xiebiao/emotions/internal/domain/user"
)

type txKey struct{}

// TxManager 事务管理器
// 设计说明:
// 1. 封装GORM的Transaction方法，实现domain/user.Transactor
// 2. 通过context传递事务DB(避免全局变量)
// 3. fn返回error或panic时ROLLBACK，返回nil时COMMIT，连接在所有路径上都会归还连接池
// 4. 嵌套调用时复用外层事务(GORM自动使用Savepoint)
// 5. user.AfterCommit注册的回调在最外层事务COMMIT之后执行，回滚时丢弃
type TxManager struct {
	db *gorm.DB
}

// NewTxManager 创建事务管理器
func NewTxManager(db *gorm.DB) *TxManager {
	return &TxManager{db: db}
}

// Transaction 执行事务
//
// 使用示例:
//
//	err := txManager.Transaction(ctx, func(ctx context.Context) error {
//	    u, err := userRepo.FindByID(ctx, id)
//	    if err != nil {
//	        return err
//	    }
//	    u.Overwrite(patch)
//	    _, err = userRepo.Save(ctx, u)
//	    return err // nil则提交,非nil则回滚
//	})
func (m *TxManager) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, commit := user.WithCommitHooks(ctx)

	err := dbFromContext(ctx, m.db).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
	if err != nil {
		return err
	}

	commit()
	return nil
}

// dbFromContext 从context获取事务DB,如果没有则使用默认DB
func dbFromContext(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return db.WithContext(ctx)
}

// inTx ctx中是否有TxManager开启的事务
func inTx(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(*gorm.DB)
	return ok
}
