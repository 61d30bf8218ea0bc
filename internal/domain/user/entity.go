package user

import (
	"time"
)

// User 用户实体（聚合根）
// 设计说明：
// 1. ID由存储层在首次保存时分配，之后不再变更
// 2. Username、Email的唯一性由数据库UNIQUE索引保证，领域层不做校验
// 3. Version是乐观锁版本号，每次更新+1，防止并发更新互相覆盖
// 4. 领域实体不依赖GORM tag（由infrastructure层的Repository实现负责映射）
type User struct {
	ID        uint      `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Version   uint      `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewUser 创建未持久化的用户（ID为0）
func NewUser(username, email string) *User {
	return &User{
		Username: username,
		Email:    email,
	}
}

// IsNew 是否尚未持久化
func (u *User) IsNew() bool {
	return u.ID == 0
}

// Overwrite 用patch覆盖用户名和邮箱
// 只修改这两个字段，ID、Version、时间戳保持不变
func (u *User) Overwrite(patch *User) {
	u.Username = patch.Username
	u.Email = patch.Email
}
