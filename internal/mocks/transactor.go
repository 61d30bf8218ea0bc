package mocks

import (
	"context"

	"github.com/xiebiao/emotions/internal/domain/user"
)

// Transactor 直接执行fn，记录调用次数
// fn返回nil时执行提交回调，模拟COMMIT
type Transactor struct {
	Calls int
}

func (t *Transactor) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	t.Calls++

	ctx, commit := user.WithCommitHooks(ctx)
	if err := fn(ctx); err != nil {
		return err
	}
	commit()
	return nil
}
