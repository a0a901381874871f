package chathub_test

import (
	"context"
	"encoding/json"
	"testing"

	"friendchat/backend/internal/apperr"
	"friendchat/backend/internal/chathub"
	"friendchat/backend/internal/delivery"
	"friendchat/backend/internal/models"
	"friendchat/backend/internal/storage/storagetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newHub(storageMock *MockStorage, sender *MockSender) *chathub.ManagerService {
	reg := chathub.NewRegistry()
	return chathub.NewManagerService(reg, chathub.NewPropagator(storageMock, reg, nil), sender, storageMock)
}

func frame(t *testing.T, typ string, data any) []byte {
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	out, err := json.Marshal(models.Frame{Type: typ, Data: raw})
	require.NoError(t, err)
	return out
}

func TestManager_ConnectDisconnect(t *testing.T) {
	storageMock := new(MockStorage)
	hub := newHub(storageMock, nil)
	storageMock.On("SetUserStatus", mock.Anything, "user_A", mock.Anything, mock.Anything).Return(nil)
	storageMock.On("FriendIDs", mock.Anything, "user_A").Return([]string{}, nil)
	clientA := newMockClient("user_A")

	hub.Connect(context.Background(), clientA)
	_, ok := hub.Registry.Lookup("user_A")
	assert.True(t, ok)

	hub.Disconnect(context.Background(), clientA)
	_, ok = hub.Registry.Lookup("user_A")
	assert.False(t, ok)
	assert.True(t, clientA.IsClosed())

	storageMock.AssertCalled(t, "SetUserStatus", mock.Anything, "user_A", models.StatusOnline, mock.Anything)
	storageMock.AssertCalled(t, "SetUserStatus", mock.Anything, "user_A", models.StatusOffline, mock.Anything)
}

func TestManager_ReconnectReplacesAndStaleDisconnectIsIgnored(t *testing.T) {
	storageMock := new(MockStorage)
	hub := newHub(storageMock, nil)
	storageMock.On("SetUserStatus", mock.Anything, "user_A", models.StatusOnline, mock.Anything).Return(nil)
	storageMock.On("FriendIDs", mock.Anything, "user_A").Return([]string{}, nil)
	old := newMockClient("user_A")
	fresh := newMockClient("user_A")

	hub.Connect(context.Background(), old)
	hub.Connect(context.Background(), fresh)

	assert.True(t, old.IsClosed(), "superseded connection is terminated")
	got := old.Drain()
	require.Len(t, got, 1)
	assert.Equal(t, models.EventSessionReplaced, got[0].Type)

	hub.Disconnect(context.Background(), old)

	cur, ok := hub.Registry.Lookup("user_A")
	require.True(t, ok)
	assert.Same(t, fresh, cur)
	storageMock.AssertNotCalled(t, "SetUserStatus", mock.Anything, "user_A", models.StatusOffline, mock.Anything)
}

// Friends A and B plus stranger C are connected; A leaves. B sees exactly
// one offline event for A and C sees nothing.
func TestManager_PresenceScenario(t *testing.T) {
	s := storagetest.New(t)
	ctx := context.Background()
	a := storagetest.CreateUser(t, s, "a")
	b := storagetest.CreateUser(t, s, "b")
	c := storagetest.CreateUser(t, s, "c")
	storagetest.MakeFriends(t, s, a.ID, b.ID)

	reg := chathub.NewRegistry()
	hub := chathub.NewManagerService(reg, chathub.NewPropagator(s, reg, nil), nil, s)
	clientA, clientB, clientC := newMockClient(a.ID), newMockClient(b.ID), newMockClient(c.ID)

	hub.Connect(ctx, clientA)
	hub.Connect(ctx, clientB)
	hub.Connect(ctx, clientC)
	clientA.Drain()
	clientB.Drain()

	hub.Disconnect(ctx, clientA)

	got := clientB.Drain()
	require.Len(t, got, 1)
	assert.Equal(t, models.PresencePayload{UserID: a.ID, Status: models.StatusOffline}, got[0].Data)
	assert.Empty(t, clientC.Drain())

	u, err := s.GetUserByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusOffline, u.Status)
}

func TestManager_HandleFrame_SendMessage(t *testing.T) {
	storageMock := new(MockStorage)
	sender := new(MockSender)
	hub := newHub(storageMock, sender)
	clientA := newMockClient("user_A")
	fileID := uint(3)
	sender.On("SendMessage", mock.Anything, delivery.SendInput{
		SenderID: "user_A", ReceiverID: "user_B", Content: "hi", MessageType: "image", FileID: &fileID, ClientRef: "c1",
	}).Return(&models.Message{ID: 1}, nil)

	hub.HandleFrame(context.Background(), clientA, frame(t, models.FrameSendMessage, models.SendMessageFrame{
		ReceiverID: "user_B", Content: "hi", MessageType: "image", FileID: &fileID, ClientRef: "c1",
	}))

	sender.AssertExpectations(t)
	assert.Empty(t, clientA.Drain(), "success echo comes from the coordinator, not the frame handler")
}

func TestManager_HandleFrame_SendMessageErrorIsReported(t *testing.T) {
	storageMock := new(MockStorage)
	sender := new(MockSender)
	hub := newHub(storageMock, sender)
	clientA := newMockClient("user_A")
	sender.On("SendMessage", mock.Anything, mock.Anything).Return(nil, apperr.ErrNotFriends)

	hub.HandleFrame(context.Background(), clientA, frame(t, models.FrameSendMessage, models.SendMessageFrame{ReceiverID: "user_X", Content: "hi"}))

	got := clientA.Drain()
	require.Len(t, got, 1)
	assert.Equal(t, models.EventError, got[0].Type)
	assert.Equal(t, models.ErrorPayload{Error: "not_friends"}, got[0].Data)
}

func TestManager_HandleFrame_TypingOnlyBetweenFriends(t *testing.T) {
	storageMock := new(MockStorage)
	hub := newHub(storageMock, nil)
	clientA := newMockClient("user_A")
	clientB := newMockClient("user_B")
	clientC := newMockClient("user_C")
	hub.Registry.Register(clientB)
	hub.Registry.Register(clientC)
	storageMock.On("AreFriends", mock.Anything, "user_A", "user_B").Return(true, nil)
	storageMock.On("AreFriends", mock.Anything, "user_A", "user_C").Return(false, nil)

	hub.HandleFrame(context.Background(), clientA, frame(t, models.FrameTyping, models.TypingFrame{ReceiverID: "user_B"}))
	hub.HandleFrame(context.Background(), clientA, frame(t, models.FrameStopTyping, models.TypingFrame{ReceiverID: "user_C"}))

	got := clientB.Drain()
	require.Len(t, got, 1)
	assert.Equal(t, models.EventUserTyping, got[0].Type)
	assert.Equal(t, models.TypingPayload{UserID: "user_A"}, got[0].Data)
	assert.Empty(t, clientC.Drain())

	errs := clientA.Drain()
	require.Len(t, errs, 1)
	assert.Equal(t, models.EventError, errs[0].Type)
}

func TestManager_HandleFrame_SetStatus(t *testing.T) {
	storageMock := new(MockStorage)
	hub := newHub(storageMock, nil)
	clientA := newMockClient("user_A")
	hub.Registry.Register(clientA)
	storageMock.On("SetUserStatus", mock.Anything, "user_A", models.StatusAway, mock.Anything).Return(nil)
	storageMock.On("FriendIDs", mock.Anything, "user_A").Return([]string{}, nil)

	hub.HandleFrame(context.Background(), clientA, frame(t, models.FrameSetStatus, models.SetStatusFrame{Status: models.StatusAway}))
	hub.HandleFrame(context.Background(), clientA, frame(t, models.FrameSetStatus, models.SetStatusFrame{Status: models.StatusOffline}))

	storageMock.AssertCalled(t, "SetUserStatus", mock.Anything, "user_A", models.StatusAway, mock.Anything)
	errs := clientA.Drain()
	require.Len(t, errs, 1, "offline cannot be set from the client")
	assert.Equal(t, models.ErrorPayload{Error: "validation"}, errs[0].Data)
}

func TestManager_HandleFrame_Malformed(t *testing.T) {
	hub := newHub(new(MockStorage), nil)
	clientA := newMockClient("user_A")

	hub.HandleFrame(context.Background(), clientA, []byte("{not json"))
	hub.HandleFrame(context.Background(), clientA, frame(t, "dance", struct{}{}))

	got := clientA.Drain()
	require.Len(t, got, 2)
	for _, ev := range got {
		assert.Equal(t, models.EventError, ev.Type)
	}
}

func TestManager_KickAndMarkOffline(t *testing.T) {
	storageMock := new(MockStorage)
	hub := newHub(storageMock, nil)
	storageMock.On("SetUserStatus", mock.Anything, "user_A", models.StatusOffline, mock.Anything).Return(nil)
	storageMock.On("FriendIDs", mock.Anything, "user_A").Return([]string{}, nil)
	clientA := newMockClient("user_A")
	hub.Registry.Register(clientA)

	assert.True(t, hub.Kick("user_A"))
	assert.True(t, clientA.IsClosed())
	assert.False(t, hub.Kick("user_Z"))

	require.NoError(t, hub.MarkOffline(context.Background(), "user_A"), "still registered until its pump disconnects")
	storageMock.AssertNotCalled(t, "SetUserStatus", mock.Anything, "user_A", models.StatusOffline, mock.Anything)

	hub.Registry.Unregister(clientA)
	require.NoError(t, hub.MarkOffline(context.Background(), "user_A"))
	storageMock.AssertCalled(t, "SetUserStatus", mock.Anything, "user_A", models.StatusOffline, mock.Anything)
}
