package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/emotions/internal/domain/user"
	"github.com/xiebiao/emotions/internal/mocks"
	apperrors "github.com/xiebiao/emotions/pkg/errors"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func setupRouter(svc user.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewUserHandler(svc).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func do(t *testing.T, r *gin.Engine, method, path, body string) envelope {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func alice() *user.User {
	return &user.User{ID: 1, Username: "alice", Email: "alice@x.com", Version: 1}
}

func TestUserHandler_ListUsers(t *testing.T) {
	svc := new(mocks.UserService)
	svc.On("GetAllUsers", mock.Anything).Return([]*user.User{alice()}, nil)
	r := setupRouter(svc)

	resp := do(t, r, http.MethodGet, "/api/v1/users", "")

	assert.Equal(t, 0, resp.Code)
	var list []map[string]interface{}
	require.NoError(t, json.Unmarshal(resp.Data, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "alice", list[0]["username"])
}

func TestUserHandler_ListUsers_Empty(t *testing.T) {
	svc := new(mocks.UserService)
	svc.On("GetAllUsers", mock.Anything).Return([]*user.User{}, nil)
	r := setupRouter(svc)

	resp := do(t, r, http.MethodGet, "/api/v1/users", "")

	assert.Equal(t, 0, resp.Code)
	assert.JSONEq(t, `[]`, string(resp.Data))
}

func TestUserHandler_ListUsers_Filters(t *testing.T) {
	svc := new(mocks.UserService)
	svc.On("GetUserByUsername", mock.Anything, "alice").Return(alice(), nil)
	svc.On("GetUserByEmail", mock.Anything, "ghost@x.com").Return(nil, nil)
	r := setupRouter(svc)

	resp := do(t, r, http.MethodGet, "/api/v1/users?username=alice", "")
	assert.Equal(t, 0, resp.Code)
	assert.Contains(t, string(resp.Data), `"email":"alice@x.com"`)

	resp = do(t, r, http.MethodGet, "/api/v1/users?email=ghost@x.com", "")
	assert.Equal(t, apperrors.ErrCodeUserNotFound, resp.Code)

	svc.AssertNotCalled(t, "GetAllUsers", mock.Anything)
}

func TestUserHandler_GetUser(t *testing.T) {
	svc := new(mocks.UserService)
	svc.On("GetUserByID", mock.Anything, uint(1)).Return(alice(), nil)
	svc.On("GetUserByID", mock.Anything, uint(2)).Return(nil, nil)
	svc.On("GetUserByID", mock.Anything, uint(3)).
		Return(nil, apperrors.WrapCode(errors.New("connection refused"), apperrors.ErrCodeDatabaseError, "查询用户失败"))
	r := setupRouter(svc)

	tests := []struct {
		name string
		path string
		code int
	}{
		{"存在", "/api/v1/users/1", 0},
		{"不存在", "/api/v1/users/2", apperrors.ErrCodeUserNotFound},
		{"数据库错误", "/api/v1/users/3", apperrors.ErrCodeDatabaseError},
		{"非法ID", "/api/v1/users/abc", apperrors.ErrCodeBindError},
		{"ID为0", "/api/v1/users/0", apperrors.ErrCodeBindError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, r, http.MethodGet, tt.path, "")
			assert.Equal(t, tt.code, resp.Code)
		})
	}
}

func TestUserHandler_CreateUser(t *testing.T) {
	t.Run("成功", func(t *testing.T) {
		svc := new(mocks.UserService)
		svc.On("CreateUser", mock.Anything, mock.MatchedBy(func(u *user.User) bool {
			return u.ID == 0 && u.Username == "alice" && u.Email == "alice@x.com"
		})).Return(alice(), nil)
		r := setupRouter(svc)

		resp := do(t, r, http.MethodPost, "/api/v1/users", `{"id":99,"username":"alice","email":"alice@x.com"}`)

		assert.Equal(t, 0, resp.Code)
		assert.Contains(t, string(resp.Data), `"id":1`)
		svc.AssertExpectations(t)
	})

	t.Run("缺少字段", func(t *testing.T) {
		svc := new(mocks.UserService)
		r := setupRouter(svc)

		resp := do(t, r, http.MethodPost, "/api/v1/users", `{"username":"alice"}`)

		assert.Equal(t, apperrors.ErrCodeInvalidParams, resp.Code)
		svc.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
	})

	t.Run("重复用户", func(t *testing.T) {
		svc := new(mocks.UserService)
		svc.On("CreateUser", mock.Anything, mock.Anything).Return(nil, apperrors.ErrDuplicateUser)
		r := setupRouter(svc)

		resp := do(t, r, http.MethodPost, "/api/v1/users", `{"username":"alice","email":"alice@x.com"}`)

		assert.Equal(t, apperrors.ErrCodeDuplicateUser, resp.Code)
	})
}

func TestUserHandler_UpdateUser(t *testing.T) {
	svc := new(mocks.UserService)
	updated := &user.User{ID: 1, Username: "alice2", Email: "a2@x.com", Version: 2}
	svc.On("UpdateUser", mock.Anything, uint(1), mock.Anything).Return(updated, nil)
	svc.On("UpdateUser", mock.Anything, uint(8), mock.Anything).Return(nil, nil)
	svc.On("UpdateUser", mock.Anything, uint(9), mock.Anything).Return(nil, apperrors.ErrConcurrentUpdate)
	r := setupRouter(svc)
	body := `{"username":"alice2","email":"a2@x.com"}`

	resp := do(t, r, http.MethodPut, "/api/v1/users/1", body)
	assert.Equal(t, 0, resp.Code)
	assert.Contains(t, string(resp.Data), `"username":"alice2"`)

	resp = do(t, r, http.MethodPut, "/api/v1/users/8", body)
	assert.Equal(t, apperrors.ErrCodeUserNotFound, resp.Code)

	resp = do(t, r, http.MethodPut, "/api/v1/users/9", body)
	assert.Equal(t, apperrors.ErrCodeConcurrentUpdate, resp.Code)

	resp = do(t, r, http.MethodPut, "/api/v1/users/1", `{bad json`)
	assert.Equal(t, apperrors.ErrCodeInvalidParams, resp.Code)
}

func TestUserHandler_DeleteUser(t *testing.T) {
	svc := new(mocks.UserService)
	svc.On("DeleteUser", mock.Anything, uint(1)).Return(true, nil)
	svc.On("DeleteUser", mock.Anything, uint(2)).Return(false, nil)
	r := setupRouter(svc)

	resp := do(t, r, http.MethodDelete, "/api/v1/users/1", "")
	assert.Equal(t, 0, resp.Code)
	assert.JSONEq(t, `{"deleted":true}`, string(resp.Data))

	resp = do(t, r, http.MethodDelete, "/api/v1/users/2", "")
	assert.Equal(t, apperrors.ErrCodeUserNotFound, resp.Code)
}
