package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/xiebiao/emotions/internal/domain/user"
)

type UserService struct{ mock.Mock }

func (m *UserService) GetAllUsers(ctx context.Context) ([]*user.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*user.User), args.Error(1)
}

func (m *UserService) GetUserByID(ctx context.Context, id uint) (*user.User, error) {
	return userResult(m.Called(ctx, id))
}

func (m *UserService) GetUserByUsername(ctx context.Context, username string) (*user.User, error) {
	return userResult(m.Called(ctx, username))
}

func (m *UserService) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	return userResult(m.Called(ctx, email))
}

func (m *UserService) CreateUser(ctx context.Context, u *user.User) (*user.User, error) {
	return userResult(m.Called(ctx, u))
}

func (m *UserService) UpdateUser(ctx context.Context, id uint, patch *user.User) (*user.User, error) {
	return userResult(m.Called(ctx, id, patch))
}

func (m *UserService) DeleteUser(ctx context.Context, id uint) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}
