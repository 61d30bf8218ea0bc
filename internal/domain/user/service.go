package user

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	apperrors "github.com/xiebiao/emotions/pkg/errors"
	"github.com/xiebiao/emotions/pkg/metrics"
	"github.com/xiebiao/emotions/pkg/tracing"
)

const tracerName = "user-service"

// Service 用户服务
// 设计说明：
// 1. 把外部请求翻译成仓储操作，本身不持有任何状态、不做缓存
// 2. "不存在"不是错误：查询返回nil，删除返回false
// 3. 仓储返回的其他错误原样向上传递，不做重试或转换
type Service interface {
	// GetAllUsers 查询全部用户
	GetAllUsers(ctx context.Context) ([]*User, error)

	// GetUserByID 根据ID查询，不存在时返回(nil, nil)
	GetUserByID(ctx context.Context, id uint) (*User, error)

	// GetUserByUsername 根据用户名查询，不存在时返回(nil, nil)
	GetUserByUsername(ctx context.Context, username string) (*User, error)

	// GetUserByEmail 根据邮箱查询，不存在时返回(nil, nil)
	GetUserByEmail(ctx context.Context, email string) (*User, error)

	// CreateUser 创建用户，返回带有存储层分配ID的记录
	CreateUser(ctx context.Context, u *User) (*User, error)

	// UpdateUser 用patch覆盖用户名和邮箱，不存在时返回(nil, nil)
	UpdateUser(ctx context.Context, id uint, patch *User) (*User, error)

	// DeleteUser 删除用户，不存在时返回false
	DeleteUser(ctx context.Context, id uint) (bool, error)
}

type service struct {
	repo   Repository
	tx     Transactor
	events EventPublisher
	logger *zap.Logger
}

// NewService 创建用户服务
func NewService(repo Repository, tx Transactor, events EventPublisher, logger *zap.Logger) Service {
	return &service{
		repo:   repo,
		tx:     tx,
		events: events,
		logger: logger,
	}
}

func (s *service) GetAllUsers(ctx context.Context) (users []*User, err error) {
	ctx, done := s.trace(ctx, "GetAllUsers")
	defer func() { done(true, err) }()

	return s.repo.List(ctx)
}

func (s *service) GetUserByID(ctx context.Context, id uint) (u *User, err error) {
	ctx, done := s.trace(ctx, "GetUserByID", attribute.Int64("user.id", int64(id)))
	defer func() { done(u != nil, err) }()

	return optional(s.repo.FindByID(ctx, id))
}

func (s *service) GetUserByUsername(ctx context.Context, username string) (u *User, err error) {
	ctx, done := s.trace(ctx, "GetUserByUsername")
	defer func() { done(u != nil, err) }()

	return optional(s.repo.FindByUsername(ctx, username))
}

func (s *service) GetUserByEmail(ctx context.Context, email string) (u *User, err error) {
	ctx, done := s.trace(ctx, "GetUserByEmail")
	defer func() { done(u != nil, err) }()

	return optional(s.repo.FindByEmail(ctx, email))
}

// CreateUser 创建用户
// 调用方传入的ID、Version会被忽略，新记录总是由存储层分配ID
func (s *service) CreateUser(ctx context.Context, u *User) (created *User, err error) {
	ctx, done := s.trace(ctx, "CreateUser")
	defer func() { done(true, err) }()

	created, err = s.repo.Save(ctx, NewUser(u.Username, u.Email))
	if err != nil {
		return nil, err
	}

	s.publish(ctx, EventCreated, created)
	return created, nil
}

// UpdateUser 更新用户
// 业务规则：
// 1. 读取与写回在同一事务内完成
// 2. 只覆盖Username和Email，ID保持不变
// 3. 仓储层按Version做乐观锁校验，并发修改返回ErrConcurrentUpdate
// 4. 冲突是因为记录已被并发删除时，按不存在处理返回(nil, nil)
func (s *service) UpdateUser(ctx context.Context, id uint, patch *User) (updated *User, err error) {
	ctx, done := s.trace(ctx, "UpdateUser", attribute.Int64("user.id", int64(id)))
	defer func() { done(updated != nil, err) }()

	err = s.tx.Transaction(ctx, func(ctx context.Context) error {
		existing, err := s.repo.FindByID(ctx, id)
		if err != nil {
			if apperrors.IsNotFound(err) {
				return nil
			}
			return err
		}

		existing.Overwrite(patch)
		updated, err = s.repo.Save(ctx, existing)
		if errors.Is(err, apperrors.ErrConcurrentUpdate) && s.vanished(ctx, id) {
			updated = nil
			return nil
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	if updated != nil {
		s.publish(ctx, EventUpdated, updated)
	}
	return updated, nil
}

// DeleteUser 删除用户
// 先查询再删除，记录不存在时返回false且没有任何副作用
func (s *service) DeleteUser(ctx context.Context, id uint) (deleted bool, err error) {
	ctx, done := s.trace(ctx, "DeleteUser", attribute.Int64("user.id", int64(id)))
	defer func() { done(deleted, err) }()

	var removed *User
	err = s.tx.Transaction(ctx, func(ctx context.Context) error {
		existing, err := s.repo.FindByID(ctx, id)
		if err != nil {
			if apperrors.IsNotFound(err) {
				return nil
			}
			return err
		}

		if err := s.repo.Delete(ctx, existing); err != nil {
			// 查询之后被并发删除
			if apperrors.IsNotFound(err) {
				return nil
			}
			return err
		}
		removed = existing
		return nil
	})
	if err != nil {
		return false, err
	}

	if removed == nil {
		return false, nil
	}

	s.publish(ctx, EventDeleted, removed)
	return true, nil
}

// publish 发布用户事件
// 发布失败只记录日志，不影响已经提交的数据库操作
func (s *service) publish(ctx context.Context, eventType string, u *User) {
	if err := s.events.Publish(ctx, eventType, NewEvent(eventType, u)); err != nil {
		s.logger.Warn("发布用户事件失败",
			zap.String("event", eventType),
			zap.Uint("user_id", u.ID),
			zap.String("trace_id", tracing.ExtractTraceID(ctx)),
			zap.Error(err),
		)
		return
	}
	metrics.RecordEventPublished(eventType)
}

// trace 为一次服务调用创建Span，返回的done在调用结束时记录状态和指标
// found为false表示目标用户不存在（空结果或false）
func (s *service) trace(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(found bool, err error)) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "UserService."+op)
	span.SetAttributes(attrs...)

	return ctx, func(found bool, err error) {
		defer span.End()
		metrics.RecordUserOperation(op, found, err)
		if err != nil {
			// 错误日志由接口层统一记录，这里只写Span
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}
}

// vanished 版本冲突后重新查询，记录已经不存在时返回true
func (s *service) vanished(ctx context.Context, id uint) bool {
	_, err := s.repo.FindByID(ctx, id)
	return apperrors.IsNotFound(err)
}

// optional 把仓储的ErrUserNotFound转换为空结果
func optional(u *User, err error) (*User, error) {
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}
