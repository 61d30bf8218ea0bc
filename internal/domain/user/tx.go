package user

import (
	"context"
	"sync"
)

type commitHooksKey struct{}

type commitHooks struct {
	mu  sync.Mutex
	fns []func()
}

// WithCommitHooks 标记ctx处于事务中，返回的run在事务提交后调用
//
// 由Transactor实现调用。ctx已经处于事务中（嵌套调用）时返回的run什么都不做，
// 回调统一由最外层事务在真正COMMIT之后执行；回滚时不调用run，回调全部丢弃。
func WithCommitHooks(ctx context.Context) (context.Context, func()) {
	if _, ok := ctx.Value(commitHooksKey{}).(*commitHooks); ok {
		return ctx, func() {}
	}

	hooks := &commitHooks{}
	return context.WithValue(ctx, commitHooksKey{}, hooks), func() {
		hooks.mu.Lock()
		fns := hooks.fns
		hooks.fns = nil
		hooks.mu.Unlock()

		for _, fn := range fns {
			fn()
		}
	}
}

// AfterCommit 注册事务提交后执行的回调，ctx不在事务中时立即执行
func AfterCommit(ctx context.Context, fn func()) {
	hooks, ok := ctx.Value(commitHooksKey{}).(*commitHooks)
	if !ok {
		fn()
		return
	}

	hooks.mu.Lock()
	hooks.fns = append(hooks.fns, fn)
	hooks.mu.Unlock()
}

// InTransaction ctx是否处于事务中
func InTransaction(ctx context.Context) bool {
	_, ok := ctx.Value(commitHooksKey{}).(*commitHooks)
	return ok
}
