package dto

import (
	"time"

	"github.com/xiebiao/emotions/internal/domain/user"
)

// CreateUserRequest 创建用户请求
// 说明：HTTP层的DTO，包含参数验证tag；id即使传了也会被忽略
type CreateUserRequest struct {
	Username string `json:"username" binding:"required,max=64"`
	Email    string `json:"email" binding:"required,max=100"`
}

// UpdateUserRequest 更新用户请求（整体覆盖用户名和邮箱）
type UpdateUserRequest struct {
	Username string `json:"username" binding:"required,max=64"`
	Email    string `json:"email" binding:"required,max=100"`
}

// UserResponse 用户响应
type UserResponse struct {
	ID        uint      `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Version   uint      `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ToUserResponse 领域实体 → 响应DTO
func ToUserResponse(u *user.User) *UserResponse {
	return &UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Version:   u.Version,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// ToUserResponses 批量转换，空列表返回[]而不是null
func ToUserResponses(users []*user.User) []*UserResponse {
	list := make([]*UserResponse, 0, len(users))
	for _, u := range users {
		list = append(list, ToUserResponse(u))
	}
	return list
}

// DeleteUserResponse 删除结果
type DeleteUserResponse struct {
	Deleted bool `json:"deleted"`
}
