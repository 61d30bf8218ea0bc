package user

import (
	"context"
)

// Repository 用户仓储接口
// 设计说明：
// 1. 接口定义在domain层，具体实现在infrastructure/persistence
// 2. 查询不到记录时返回errors.ErrUserNotFound
// 3. 其余数据库错误以errors.ErrCodeDatabaseError包装后返回
type Repository interface {
	// List 返回全部用户，按主键升序
	List(ctx context.Context) ([]*User, error)

	// FindByID 根据ID查找用户
	FindByID(ctx context.Context, id uint) (*User, error)

	// FindByUsername 根据用户名查找用户
	FindByUsername(ctx context.Context, username string) (*User, error)

	// FindByEmail 根据邮箱查找用户
	FindByEmail(ctx context.Context, email string) (*User, error)

	// Save 保存用户
	// ID为0时插入并回填ID；否则按ID和Version覆盖已有记录
	// 版本号不一致返回errors.ErrConcurrentUpdate，唯一索引冲突返回errors.ErrDuplicateUser
	Save(ctx context.Context, user *User) (*User, error)

	// Delete 删除用户
	// 记录不存在时返回errors.ErrUserNotFound
	Delete(ctx context.Context, user *User) error
}

// Transactor 事务执行器
// fn内通过ctx调用的仓储方法共享同一个数据库事务，fn返回error时回滚
type Transactor interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
}
