package redis

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xiebiao/emotions/internal/domain/user"
	"github.com/xiebiao/emotions/internal/mocks"
	"github.com/xiebiao/emotions/pkg/circuitbreaker"
	apperrors "github.com/xiebiao/emotions/pkg/errors"
)

const testTTL = 10 * time.Minute

func setupCache(t *testing.T) (*miniredis.Miniredis, *mocks.UserRepository, user.Repository) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	next := new(mocks.UserRepository)
	return mr, next, NewCachedUserRepository(next, client, testTTL, zap.NewNop())
}

func alice() *user.User {
	ts := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	return &user.User{ID: 1, Username: "alice", Email: "alice@x.com", Version: 1, CreatedAt: ts, UpdatedAt: ts}
}

func TestCachedUserRepository_FindByID_MissThenHit(t *testing.T) {
	mr, next, repo := setupCache(t)
	ctx := context.Background()
	next.On("FindByID", mock.Anything, uint(1)).Return(alice(), nil).Once()

	// 第一次未命中，回源并回填
	got, err := repo.FindByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, alice(), got)
	assert.True(t, mr.Exists("user:1"))
	assert.Equal(t, testTTL, mr.TTL("user:1"))

	// 第二次命中，不再访问下一层
	got, err = repo.FindByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, alice(), got)

	next.AssertNumberOfCalls(t, "FindByID", 1)
}

func TestCachedUserRepository_FindByID_NotFoundNotCached(t *testing.T) {
	mr, next, repo := setupCache(t)
	next.On("FindByID", mock.Anything, uint(9)).Return(nil, apperrors.ErrUserNotFound)

	got, err := repo.FindByID(context.Background(), 9)

	assert.Nil(t, got)
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
	assert.False(t, mr.Exists("user:9"))
}

func TestCachedUserRepository_FindByID_CorruptEntry(t *testing.T) {
	mr, next, repo := setupCache(t)
	require.NoError(t, mr.Set("user:1", "{not json"))
	next.On("FindByID", mock.Anything, uint(1)).Return(alice(), nil)

	got, err := repo.FindByID(context.Background(), 1)

	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)

	raw, err := mr.Get("user:1")
	require.NoError(t, err)
	var cached user.User
	require.NoError(t, json.Unmarshal([]byte(raw), &cached))
	assert.Equal(t, uint(1), cached.ID)
}

func TestCachedUserRepository_RedisDown(t *testing.T) {
	mr, next, repo := setupCache(t)
	mr.Close()
	next.On("FindByID", mock.Anything, uint(1)).Return(alice(), nil)
	next.On("Delete", mock.Anything, mock.Anything).Return(nil)

	// Redis不可用时按未命中处理
	got, err := repo.FindByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, uint(1), got.ID)

	// 删除缓存失败也不影响结果
	assert.NoError(t, repo.Delete(context.Background(), alice()))
}

func TestCachedUserRepository_SaveInvalidates(t *testing.T) {
	mr, next, repo := setupCache(t)
	ctx := context.Background()
	require.NoError(t, mr.Set("user:1", "stale"))

	updated := alice()
	updated.Username = "alice2"
	updated.Version = 2
	next.On("Save", mock.Anything, mock.Anything).Return(updated, nil)

	saved, err := repo.Save(ctx, alice())

	require.NoError(t, err)
	assert.Equal(t, "alice2", saved.Username)
	assert.False(t, mr.Exists("user:1"))
}

func TestCachedUserRepository_SaveFailureKeepsCache(t *testing.T) {
	mr, next, repo := setupCache(t)
	require.NoError(t, mr.Set("user:1", "cached"))
	next.On("Save", mock.Anything, mock.Anything).Return(nil, apperrors.ErrDuplicateUser)

	saved, err := repo.Save(context.Background(), alice())

	assert.Nil(t, saved)
	assert.ErrorIs(t, err, apperrors.ErrDuplicateUser)
	assert.True(t, mr.Exists("user:1"))
}

func TestCachedUserRepository_ConcurrentUpdateInvalidates(t *testing.T) {
	mr, next, repo := setupCache(t)
	require.NoError(t, mr.Set("user:1", "stale version"))
	next.On("Save", mock.Anything, mock.Anything).Return(nil, apperrors.ErrConcurrentUpdate)

	saved, err := repo.Save(context.Background(), alice())

	assert.Nil(t, saved)
	assert.ErrorIs(t, err, apperrors.ErrConcurrentUpdate)
	assert.False(t, mr.Exists("user:1"))
}

func TestCachedUserRepository_DeleteInvalidates(t *testing.T) {
	mr, next, repo := setupCache(t)
	require.NoError(t, mr.Set("user:1", "cached"))
	next.On("Delete", mock.Anything, mock.Anything).Return(nil)

	require.NoError(t, repo.Delete(context.Background(), alice()))

	assert.False(t, mr.Exists("user:1"))
}

func TestCachedUserRepository_PassThrough(t *testing.T) {
	mr, next, repo := setupCache(t)
	ctx := context.Background()
	next.On("List", mock.Anything).Return([]*user.User{alice()}, nil)
	next.On("FindByUsername", mock.Anything, "alice").Return(alice(), nil)
	next.On("FindByEmail", mock.Anything, "alice@x.com").Return(alice(), nil)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = repo.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	_, err = repo.FindByEmail(ctx, "alice@x.com")
	require.NoError(t, err)

	assert.Empty(t, mr.Keys())
	next.AssertExpectations(t)
}

func TestCachedUserRepository_BreakerBypassesRedis(t *testing.T) {
	mr, next, repo := setupCache(t)
	mr.Close()
	next.On("FindByID", mock.Anything, uint(1)).Return(alice(), nil)

	for i := 0; i < 5; i++ {
		_, err := repo.FindByID(context.Background(), 1)
		require.NoError(t, err)
	}

	// 读缓存失败加上回填失败，很快累计到熔断阈值
	breaker := repo.(*cachedUserRepository).breaker
	assert.Equal(t, circuitbreaker.StateOpen, breaker.State())

	// 熔断期间仍然能从下一层读到数据
	got, err := repo.FindByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, uint(1), got.ID)
}

func TestCachedUserRepository_DeleteInvalidatesAfterCommit(t *testing.T) {
	mr, next, repo := setupCache(t)
	tx := new(mocks.Transactor)
	next.On("Delete", mock.Anything, mock.Anything).Return(nil)
	next.On("FindByID", mock.Anything, uint(1)).Return(alice(), nil)

	err := tx.Transaction(context.Background(), func(ctx context.Context) error {
		require.NoError(t, repo.Delete(ctx, alice()))

		// 提交前另一个请求读到尚未删除的行并回填缓存
		_, err := repo.FindByID(context.Background(), 1)
		require.NoError(t, err)
		assert.True(t, mr.Exists("user:1"))
		return nil
	})

	require.NoError(t, err)
	assert.False(t, mr.Exists("user:1"), "提交后缓存必须被删除")
}

func TestCachedUserRepository_RollbackKeepsCache(t *testing.T) {
	mr, next, repo := setupCache(t)
	tx := new(mocks.Transactor)
	require.NoError(t, mr.Set("user:1", "cached"))
	next.On("Save", mock.Anything, mock.Anything).Return(alice(), nil)
	boom := errors.New("boom")

	err := tx.Transaction(context.Background(), func(ctx context.Context) error {
		_, err := repo.Save(ctx, alice())
		require.NoError(t, err)
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.True(t, mr.Exists("user:1"))
}

func TestCachedUserRepository_TransactionReadsSkipCache(t *testing.T) {
	mr, next, repo := setupCache(t)
	tx := new(mocks.Transactor)
	stale, _ := json.Marshal(alice())
	require.NoError(t, mr.Set("user:1", string(stale)))
	next.On("FindByID", mock.Anything, uint(1)).Return(nil, apperrors.ErrUserNotFound)

	err := tx.Transaction(context.Background(), func(ctx context.Context) error {
		got, err := repo.FindByID(ctx, 1)
		assert.Nil(t, got)
		assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
		return nil
	})

	require.NoError(t, err)
	next.AssertNumberOfCalls(t, "FindByID", 1)
}

// 已删除的用户仍留在缓存中时，服务层的删除和查询都不能再看到它
func TestCachedUserRepository_ServiceWithStaleEntry(t *testing.T) {
	mr, next, repo := setupCache(t)
	stale, _ := json.Marshal(alice())
	require.NoError(t, mr.Set("user:1", string(stale)))
	next.On("FindByID", mock.Anything, uint(1)).Return(nil, apperrors.ErrUserNotFound)

	events := new(mocks.EventPublisher)
	svc := user.NewService(repo, new(mocks.Transactor), events, zap.NewNop())

	ok, err := svc.DeleteUser(context.Background(), 1)

	require.NoError(t, err)
	assert.False(t, ok)
	next.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	events.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestCachedUserRepository_ServiceDeleteRace(t *testing.T) {
	mr, next, repo := setupCache(t)
	// 删除事务内的查询和并发读取都看到尚未删除的行
	next.On("FindByID", mock.Anything, uint(1)).Return(alice(), nil).Times(2)
	next.On("Delete", mock.Anything, mock.Anything).Return(nil)
	next.On("FindByID", mock.Anything, uint(1)).Return(nil, apperrors.ErrUserNotFound)

	events := new(mocks.EventPublisher)
	events.On("Publish", mock.Anything, user.EventDeleted, mock.Anything).Return(nil)

	// 在fn执行完、提交之前插入一次并发读取
	tx := &interleavingTx{before: func() {
		_, _ = repo.FindByID(context.Background(), 1)
	}}
	svc := user.NewService(repo, tx, events, zap.NewNop())

	ok, err := svc.DeleteUser(context.Background(), 1)
	require.NoError(t, err)
	require.True(t, ok)

	got, err := svc.GetUserByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.False(t, mr.Exists("user:1"))
}

// interleavingTx 在fn成功之后、提交之前执行before
type interleavingTx struct {
	before func()
}

func (t *interleavingTx) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, commit := user.WithCommitHooks(ctx)
	if err := fn(ctx); err != nil {
		return err
	}
	t.before()
	commit()
	return nil
}
