package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/xiebiao/emotions/internal/domain/user"
)

type UserRepository struct{ mock.Mock }

func (m *UserRepository) List(ctx context.Context) ([]*user.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*user.User), args.Error(1)
}

func (m *UserRepository) FindByID(ctx context.Context, id uint) (*user.User, error) {
	return userResult(m.Called(ctx, id))
}

func (m *UserRepository) FindByUsername(ctx context.Context, username string) (*user.User, error) {
	return userResult(m.Called(ctx, username))
}

func (m *UserRepository) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	return userResult(m.Called(ctx, email))
}

func (m *UserRepository) Save(ctx context.Context, u *user.User) (*user.User, error) {
	return userResult(m.Called(ctx, u))
}

func (m *UserRepository) Delete(ctx context.Context, u *user.User) error {
	return m.Called(ctx, u).Error(0)
}

func userResult(args mock.Arguments) (*user.User, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}
