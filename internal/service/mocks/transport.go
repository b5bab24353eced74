package mocks

import (
	"context"

	"referral_contest/internal/model"

	"github.com/stretchr/testify/mock"
)

// MockMessenger is a mock implementation of service.Messenger
type MockMessenger struct {
	mock.Mock
}

func (m *MockMessenger) IsChannelMember(ctx context.Context, userID int64) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockMessenger) SendMessage(ctx context.Context, userID int64, text string, button *model.Button) error {
	args := m.Called(ctx, userID, text, button)
	return args.Error(0)
}

// MockEventPublisher is a mock implementation of service.EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, event model.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}
