package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/xiebiao/emotions/internal/domain/user"
	"github.com/xiebiao/emotions/internal/interface/http/dto"
	apperrors "github.com/xiebiao/emotions/pkg/errors"
	"github.com/xiebiao/emotions/pkg/response"
)

// UserHandler 用户HTTP处理器
// 设计说明：
// 1. Handler只负责HTTP相关的事情：解析请求、调用服务、返回响应
// 2. 服务层用nil/false表示"不存在"，在这里转换为40401
// 3. 使用依赖注入，便于测试
type UserHandler struct {
	userService user.Service
}

// NewUserHandler 创建用户处理器
func NewUserHandler(userService user.Service) *UserHandler {
	return &UserHandler{userService: userService}
}

// RegisterRoutes 注册用户路由
func (h *UserHandler) RegisterRoutes(rg *gin.RouterGroup) {
	users := rg.Group("/users")
	users.GET("", h.ListUsers)
	users.POST("", h.CreateUser)
	users.GET("/:id", h.GetUser)
	users.PUT("/:id", h.UpdateUser)
	users.DELETE("/:id", h.DeleteUser)
}

// ListUsers 查询用户
// @Summary      查询用户列表
// @Description  不带参数时返回全部用户；带username或email时按唯一键精确查询
// @Tags         用户
// @Produce      json
// @Param        username query string false "用户名"
// @Param        email    query string false "邮箱"
// @Success      200 {object} response.Response{data=[]dto.UserResponse}
// @Failure      200 {object} response.Response "40401 用户不存在"
// @Router       /api/v1/users [get]
func (h *UserHandler) ListUsers(c *gin.Context) {
	ctx := c.Request.Context()

	if username, ok := c.GetQuery("username"); ok {
		u, err := h.userService.GetUserByUsername(ctx, username)
		h.single(c, u, err)
		return
	}
	if email, ok := c.GetQuery("email"); ok {
		u, err := h.userService.GetUserByEmail(ctx, email)
		h.single(c, u, err)
		return
	}

	users, err := h.userService.GetAllUsers(ctx)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToUserResponses(users))
}

// GetUser 查询单个用户
// @Summary      查询用户
// @Tags         用户
// @Produce      json
// @Param        id path int true "用户ID"
// @Success      200 {object} response.Response{data=dto.UserResponse}
// @Failure      200 {object} response.Response "40401 用户不存在"
// @Router       /api/v1/users/{id} [get]
func (h *UserHandler) GetUser(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	u, err := h.userService.GetUserByID(c.Request.Context(), id)
	h.single(c, u, err)
}

// CreateUser 创建用户
// @Summary      创建用户
// @Tags         用户
// @Accept       json
// @Produce      json
// @Param        request body dto.CreateUserRequest true "用户信息"
// @Success      200 {object} response.Response{data=dto.UserResponse}
// @Failure      200 {object} response.Response "40003 用户名或邮箱已存在"
// @Router       /api/v1/users [post]
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req dto.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, apperrors.ErrCodeInvalidParams, "参数错误: "+err.Error())
		return
	}

	u, err := h.userService.CreateUser(c.Request.Context(), user.NewUser(req.Username, req.Email))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToUserResponse(u))
}

// UpdateUser 更新用户
// @Summary      更新用户
// @Description  覆盖用户名和邮箱，ID不变
// @Tags         用户
// @Accept       json
// @Produce      json
// @Param        id      path int                   true "用户ID"
// @Param        request body dto.UpdateUserRequest true "用户信息"
// @Success      200 {object} response.Response{data=dto.UserResponse}
// @Failure      200 {object} response.Response "40401 用户不存在 / 40902 并发修改"
// @Router       /api/v1/users/{id} [put]
func (h *UserHandler) UpdateUser(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req dto.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, apperrors.ErrCodeInvalidParams, "参数错误: "+err.Error())
		return
	}

	u, err := h.userService.UpdateUser(c.Request.Context(), id, user.NewUser(req.Username, req.Email))
	h.single(c, u, err)
}

// DeleteUser 删除用户
// @Summary      删除用户
// @Tags         用户
// @Produce      json
// @Param        id path int true "用户ID"
// @Success      200 {object} response.Response{data=dto.DeleteUserResponse}
// @Failure      200 {object} response.Response "40401 用户不存在"
// @Router       /api/v1/users/{id} [delete]
func (h *UserHandler) DeleteUser(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	deleted, err := h.userService.DeleteUser(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !deleted {
		response.Error(c, apperrors.ErrUserNotFound)
		return
	}
	response.Success(c, &dto.DeleteUserResponse{Deleted: true})
}

// single 输出单个用户，nil表示不存在
func (h *UserHandler) single(c *gin.Context, u *user.User, err error) {
	if err != nil {
		response.Error(c, err)
		return
	}
	if u == nil {
		response.Error(c, apperrors.ErrUserNotFound)
		return
	}
	response.Success(c, dto.ToUserResponse(u))
}

// parseID 解析路径参数id，失败时直接写入错误响应
func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		response.Error(c, apperrors.ErrBindError)
		return 0, false
	}
	return uint(id), true
}
