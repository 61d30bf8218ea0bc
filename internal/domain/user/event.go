package user

import (
	"context"
	"time"
)

// 用户事件路由键
const (
	EventCreated = "user.created"
	EventUpdated = "user.updated"
	EventDeleted = "user.deleted"
)

// Event 用户变更事件
type Event struct {
	Type       string    `json:"type"`
	UserID     uint      `json:"user_id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	Version    uint      `json:"version"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewEvent 根据用户快照创建事件
func NewEvent(eventType string, u *User) Event {
	return Event{
		Type:       eventType,
		UserID:     u.ID,
		Username:   u.Username,
		Email:      u.Email,
		Version:    u.Version,
		OccurredAt: time.Now(),
	}
}

// EventPublisher 事件发布接口（由pkg/mq实现）
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, message interface{}) error
}
