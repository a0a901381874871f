package chathub_test

import (
	"context"
	"time"

	"friendchat/backend/internal/delivery"
	"friendchat/backend/internal/models"

	"github.com/stretchr/testify/mock"
)

type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) SetUserStatus(ctx context.Context, userID string, status models.PresenceStatus, lastSeen time.Time) error {
	args := m.Called(ctx, userID, status, lastSeen)
	return args.Error(0)
}

func (m *MockStorage) FriendIDs(ctx context.Context, userID string) ([]string, error) {
	args := m.Called(ctx, userID)
	ids, _ := args.Get(0).([]string)
	return ids, args.Error(1)
}

func (m *MockStorage) AreFriends(ctx context.Context, a, b string) (bool, error) {
	args := m.Called(ctx, a, b)
	return args.Bool(0), args.Error(1)
}

type MockMirror struct {
	mock.Mock
}

func (m *MockMirror) Mirror(ctx context.Context, userID string, status models.PresenceStatus) error {
	return m.Called(ctx, userID, status).Error(0)
}

type MockSender struct {
	mock.Mock
}

func (m *MockSender) SendMessage(ctx context.Context, in delivery.SendInput) (*models.Message, error) {
	args := m.Called(ctx, in)
	msg, _ := args.Get(0).(*models.Message)
	return msg, args.Error(1)
}
