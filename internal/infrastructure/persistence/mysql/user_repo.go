package mysql

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xiebiao/emotions/internal/domain/user"
	apperrors "github.com/xiebiao/emotions/pkg/errors"
)

// userRepository 用户仓储实现（MySQL）
// 设计说明：
// 1. 实现domain/user/repository.go定义的接口
// 2. 负责domain实体与GORM模型之间的转换
// 3. 按用户名、邮箱的查询使用显式的参数化条件
// 4. 处理数据库特定的错误（唯一索引冲突、版本冲突），转换为业务错误
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建用户仓储
func NewUserRepository(db *gorm.DB) user.Repository {
	return &userRepository{db: db}
}

// List 查询全部用户（按主键升序，即插入顺序）
func (r *userRepository) List(ctx context.Context) ([]*user.User, error) {
	var models []UserModel
	if err := r.getDB(ctx).Order("id").Find(&models).Error; err != nil {
		return nil, apperrors.WrapCode(err, apperrors.ErrCodeDatabaseError, "查询用户列表失败")
	}

	users := make([]*user.User, 0, len(models))
	for i := range models {
		users = append(users, toEntity(&models[i]))
	}
	return users, nil
}

// FindByID 根据ID查找用户
// 事务内使用SELECT ... FOR UPDATE：读到最新提交的数据，并锁住该行直到事务结束，
// 之后的UPDATE/DELETE不会因为并发删除而落空
func (r *userRepository) FindByID(ctx context.Context, id uint) (*user.User, error) {
	db := r.getDB(ctx)
	if inTx(ctx) {
		db = db.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var model UserModel
	err := db.First(&model, id).Error
	return r.found(&model, err)
}

// FindByUsername 根据用户名查找用户
func (r *userRepository) FindByUsername(ctx context.Context, username string) (*user.User, error) {
	var model UserModel
	err := r.getDB(ctx).Where("username = ?", username).First(&model).Error
	return r.found(&model, err)
}

// FindByEmail 根据邮箱查找用户
func (r *userRepository) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	var model UserModel
	err := r.getDB(ctx).Where("email = ?", email).First(&model).Error
	return r.found(&model, err)
}

// Save 保存用户
// ID为0时插入，否则按乐观锁更新
func (r *userRepository) Save(ctx context.Context, u *user.User) (*user.User, error) {
	if u.IsNew() {
		return r.create(ctx, u)
	}
	return r.update(ctx, u)
}

// create 插入新用户，回填自增ID
func (r *userRepository) create(ctx context.Context, u *user.User) (*user.User, error) {
	model := &UserModel{
		Username: u.Username,
		Email:    u.Email,
		Version:  1,
	}

	if err := r.getDB(ctx).Create(model).Error; err != nil {
		if isDuplicateError(err) {
			return nil, apperrors.ErrDuplicateUser
		}
		return nil, apperrors.WrapCode(err, apperrors.ErrCodeDatabaseError, "创建用户失败")
	}

	return toEntity(model), nil
}

// update 覆盖已有用户
// 学习要点：
// 1. UPDATE ... WHERE id = ? AND version = ?，并把version加1
// 2. RowsAffected为0说明记录已被其他请求修改（或已被删除），返回ErrConcurrentUpdate
// 3. version每次都会变化，所以即使用户名邮箱没变，RowsAffected也不会是0
func (r *userRepository) update(ctx context.Context, u *user.User) (*user.User, error) {
	now := time.Now().Truncate(time.Microsecond)

	result := r.getDB(ctx).
		Model(&UserModel{}).
		Where("id = ? AND version = ?", u.ID, u.Version).
		Updates(map[string]interface{}{
			"username":   u.Username,
			"email":      u.Email,
			"version":    gorm.Expr("version + 1"),
			"updated_at": now,
		})

	if result.Error != nil {
		if isDuplicateError(result.Error) {
			return nil, apperrors.ErrDuplicateUser
		}
		return nil, apperrors.WrapCode(result.Error, apperrors.ErrCodeDatabaseError, "更新用户失败")
	}

	if result.RowsAffected == 0 {
		return nil, apperrors.ErrConcurrentUpdate
	}

	saved := *u
	saved.Version = u.Version + 1
	saved.UpdatedAt = now
	return &saved, nil
}

// Delete 删除用户（物理删除）
func (r *userRepository) Delete(ctx context.Context, u *user.User) error {
	result := r.getDB(ctx).Delete(&UserModel{}, u.ID)

	if result.Error != nil {
		return apperrors.WrapCode(result.Error, apperrors.ErrCodeDatabaseError, "删除用户失败")
	}

	if result.RowsAffected == 0 {
		return apperrors.ErrUserNotFound
	}

	return nil
}

// getDB 从context获取事务DB,如果没有则使用默认DB
func (r *userRepository) getDB(ctx context.Context) *gorm.DB {
	return dbFromContext(ctx, r.db)
}

// found 把First查询结果转换为实体或业务错误
func (r *userRepository) found(model *UserModel, err error) (*user.User, error) {
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.WrapCode(err, apperrors.ErrCodeDatabaseError, "查询用户失败")
	}
	return toEntity(model), nil
}

// toEntity GORM模型 → 领域实体
func toEntity(model *UserModel) *user.User {
	return &user.User{
		ID:        model.ID,
		Username:  model.Username,
		Email:     model.Email,
		Version:   model.Version,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}
