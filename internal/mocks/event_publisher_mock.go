package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type EventPublisher struct{ mock.Mock }

func (m *EventPublisher) Publish(ctx context.Context, routingKey string, message interface{}) error {
	return m.Called(ctx, routingKey, message).Error(0)
}
