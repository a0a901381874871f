package events_test

import (
	"context"
	"errors"
	"testing"

	"friendchat/backend/internal/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, subject string, payload any) error {
	return m.Called(ctx, subject, payload).Error(0)
}

func TestEmit_SwallowsFailures(t *testing.T) {
	pub := new(MockPublisher)
	payload := events.FriendRequested{RequestID: 1, SenderID: "a", ReceiverID: "b"}
	pub.On("Publish", mock.Anything, events.SubjectFriendRequested, payload).Return(errors.New("no servers"))

	assert.NotPanics(t, func() {
		events.Emit(context.Background(), pub, events.SubjectFriendRequested, payload)
	})
	pub.AssertExpectations(t)
}

func TestEmit_NilPublisher(t *testing.T) {
	assert.NotPanics(t, func() {
		events.Emit(context.Background(), nil, events.SubjectMessageSent, events.MessageSent{})
	})
}

func TestNoop(t *testing.T) {
	assert.NoError(t, events.Noop{}.Publish(context.Background(), "x", nil))
}

func TestConnect_UnreachableServer(t *testing.T) {
	_, err := events.Connect("nats://127.0.0.1:1", "test")
	assert.Error(t, err)
}
