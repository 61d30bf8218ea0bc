package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xiebiao/emotions/internal/domain/user"
	"github.com/xiebiao/emotions/pkg/circuitbreaker"
	apperrors "github.com/xiebiao/emotions/pkg/errors"
	"github.com/xiebiao/emotions/pkg/metrics"
)

// cachedUserRepository 带缓存的用户仓储（装饰器）
//
// 缓存策略：
// 1. Cache-Aside：FindByID先查缓存，未命中再查下一层仓储并回填
// 2. Save、Delete先写下一层仓储，事务提交后删除缓存（不是更新缓存）
// 3. List、FindByUsername、FindByEmail不缓存，直接透传
// 4. 缓存是旁路：Redis读写失败只记日志并按未命中处理，不影响业务结果
// 5. Redis连续失败5次后熔断30秒，期间直接跳过缓存，不再逐个请求等待超时
// 6. 事务内的FindByID不读也不回填缓存，读改写必须基于数据库里的最新数据
//
// "不存在"不缓存，避免创建后仍然读到空结果。
type cachedUserRepository struct {
	next    user.Repository
	client  *redis.Client
	ttl     time.Duration
	breaker *circuitbreaker.CircuitBreaker
	logger  *zap.Logger
}

// NewCachedUserRepository 创建带缓存的用户仓储
func NewCachedUserRepository(next user.Repository, client *redis.Client, ttl time.Duration, logger *zap.Logger) user.Repository {
	breaker := circuitbreaker.New("user-cache", circuitbreaker.Config{
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
	}, logger)

	return &cachedUserRepository{
		next:    next,
		client:  client,
		ttl:     ttl,
		breaker: breaker,
		logger:  logger,
	}
}

// userCacheKey 用户缓存键，例如 user:123
func userCacheKey(id uint) string {
	return fmt.Sprintf("user:%d", id)
}

func (r *cachedUserRepository) List(ctx context.Context) ([]*user.User, error) {
	return r.next.List(ctx)
}

// FindByID 根据ID查找用户（Cache-Aside）
func (r *cachedUserRepository) FindByID(ctx context.Context, id uint) (*user.User, error) {
	if user.InTransaction(ctx) {
		return r.next.FindByID(ctx, id)
	}

	key := userCacheKey(id)

	data, err := r.get(ctx, key)
	switch {
	case err == nil && data != nil:
		var u user.User
		if err := json.Unmarshal(data, &u); err == nil {
			metrics.RecordCacheResult("hit")
			return &u, nil
		}
		// 反序列化失败说明缓存内容已损坏，删掉重新加载
		r.logger.Warn("用户缓存内容无效", zap.String("key", key))
		r.invalidate(ctx, id)
		metrics.RecordCacheResult("error")
	case err == nil:
		metrics.RecordCacheResult("miss")
	case errors.Is(err, circuitbreaker.ErrOpenState):
		metrics.RecordCacheResult("bypass")
	default:
		r.logger.Warn("读取用户缓存失败", zap.String("key", key), zap.Error(err))
		metrics.RecordCacheResult("error")
	}

	u, err := r.next.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(u); err == nil {
		err = r.breaker.Execute(func() error {
			return r.client.Set(ctx, key, data, r.ttl).Err()
		})
		if err != nil && !errors.Is(err, circuitbreaker.ErrOpenState) {
			r.logger.Warn("写入用户缓存失败", zap.String("key", key), zap.Error(err))
		}
	}
	return u, nil
}

func (r *cachedUserRepository) FindByUsername(ctx context.Context, username string) (*user.User, error) {
	return r.next.FindByUsername(ctx, username)
}

func (r *cachedUserRepository) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	return r.next.FindByEmail(ctx, email)
}

// Save 保存用户，更新成功并提交后删除缓存
// 版本冲突时立即删除缓存：冲突可能是缓存里的旧版本导致的，下次读取会回源拿到最新版本
func (r *cachedUserRepository) Save(ctx context.Context, u *user.User) (*user.User, error) {
	saved, err := r.next.Save(ctx, u)
	if err != nil {
		if errors.Is(err, apperrors.ErrConcurrentUpdate) {
			r.invalidate(ctx, u.ID)
		}
		return nil, err
	}
	// 新建的用户不可能有缓存
	if !u.IsNew() {
		r.invalidateAfterCommit(ctx, saved.ID)
	}
	return saved, nil
}

// Delete 删除用户，提交后删除缓存
func (r *cachedUserRepository) Delete(ctx context.Context, u *user.User) error {
	if err := r.next.Delete(ctx, u); err != nil {
		return err
	}
	r.invalidateAfterCommit(ctx, u.ID)
	return nil
}

// get 读取缓存，未命中时返回(nil, nil)
func (r *cachedUserRepository) get(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := r.breaker.Execute(func() error {
		var err error
		data, err = r.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return err
	})
	return data, err
}

// invalidateAfterCommit 事务提交后删除缓存，不在事务中时立即删除
// 事务提交前删除的话，其他请求可能在提交前从数据库读到旧数据并重新回填
func (r *cachedUserRepository) invalidateAfterCommit(ctx context.Context, id uint) {
	ctx = context.WithoutCancel(ctx)
	user.AfterCommit(ctx, func() { r.invalidate(ctx, id) })
}

// invalidate 删除缓存
// 熔断期间无法删除，缓存最多在ttl之后过期
func (r *cachedUserRepository) invalidate(ctx context.Context, id uint) {
	err := r.breaker.Execute(func() error {
		return r.client.Del(ctx, userCacheKey(id)).Err()
	})
	if err != nil {
		r.logger.Warn("删除用户缓存失败", zap.Uint("user_id", id), zap.Error(err))
	}
}
