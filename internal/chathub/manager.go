package chathub

import (
	"context"
	"encoding/json"
	"errors"

	"friendchat/backend/internal/apperr"
	"friendchat/backend/internal/config"
	"friendchat/backend/internal/delivery"
	"friendchat/backend/internal/keylock"
	"friendchat/backend/internal/logger"
	"friendchat/backend/internal/models"

	"go.uber.org/zap"
)

type MessageSender interface {
	SendMessage(ctx context.Context, in delivery.SendInput) (*models.Message, error)
}

type FriendChecker interface {
	AreFriends(ctx context.Context, a, b string) (bool, error)
}

// ManagerService owns the connection lifecycle: registry entry, presence
// and inbound frames. Connect and Disconnect of one user never interleave.
type ManagerService struct {
	Registry *Registry
	Presence *Propagator
	Messages MessageSender
	Friends  FriendChecker

	locks *keylock.Locker
}

func NewManagerService(registry *Registry, presence *Propagator, messages MessageSender, friends FriendChecker) *ManagerService {
	return &ManagerService{
		Registry: registry,
		Presence: presence,
		Messages: messages,
		Friends:  friends,
		locks:    keylock.New(config.LockShards),
	}
}

// Connect makes c the user's live connection and announces them online.
// A previous connection of the same user is told it was replaced and closed.
func (m *ManagerService) Connect(ctx context.Context, c Client) {
	userID := c.GetUserID()
	unlock := m.locks.Lock(userID)
	defer unlock()

	if prev := m.Registry.Register(c); prev != nil && prev.GetSessionID() != c.GetSessionID() {
		prev.Deliver(models.Event{Type: models.EventSessionReplaced})
		prev.Close()
		logger.Info("session replaced", zap.String("user_id", userID), zap.String("old_session", prev.GetSessionID()))
	}

	if _, err := m.Presence.Publish(ctx, userID, models.StatusOnline); err != nil {
		logger.Error("failed to publish online presence", zap.String("user_id", userID), zap.Error(err))
	}
	logger.Info("client connected", zap.String("user_id", userID), zap.String("session", c.GetSessionID()))
}

// Disconnect removes c. Only the live connection turns the user offline;
// a connection that was already replaced changes nothing.
func (m *ManagerService) Disconnect(ctx context.Context, c Client) {
	userID := c.GetUserID()
	unlock := m.locks.Lock(userID)
	defer unlock()

	c.Close()
	if !m.Registry.Unregister(c) {
		logger.Debug("stale client disconnected", zap.String("user_id", userID), zap.String("session", c.GetSessionID()))
		return
	}

	if _, err := m.Presence.Publish(ctx, userID, models.StatusOffline); err != nil {
		logger.Error("failed to publish offline presence", zap.String("user_id", userID), zap.Error(err))
	}
	logger.Info("client disconnected", zap.String("user_id", userID), zap.String("session", c.GetSessionID()))
}

// SetStatus switches a connected user between online and away.
func (m *ManagerService) SetStatus(ctx context.Context, userID string, status models.PresenceStatus) error {
	if status != models.StatusOnline && status != models.StatusAway {
		return apperr.Validation("status must be online or away")
	}
	unlock := m.locks.Lock(userID)
	defer unlock()

	if _, ok := m.Registry.Lookup(userID); !ok {
		return apperr.ErrNotFound
	}
	_, err := m.Presence.Publish(ctx, userID, status)
	return err
}

// Kick closes the user's live connection. Its read pump then runs the
// normal Disconnect path. Reports whether there was one.
func (m *ManagerService) Kick(userID string) bool {
	c, ok := m.Registry.Lookup(userID)
	if !ok {
		return false
	}
	c.Close()
	return true
}

// MarkOffline records offline presence for a user with no live connection.
func (m *ManagerService) MarkOffline(ctx context.Context, userID string) error {
	unlock := m.locks.Lock(userID)
	defer unlock()

	if _, ok := m.Registry.Lookup(userID); ok {
		return nil
	}
	_, err := m.Presence.Publish(ctx, userID, models.StatusOffline)
	return err
}

// HandleFrame processes one inbound websocket frame from c.
func (m *ManagerService) HandleFrame(ctx context.Context, c Client, raw []byte) {
	var frame models.Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		m.replyError(c, apperr.Validation("malformed frame"))
		return
	}

	var err error
	switch frame.Type {
	case models.FrameSendMessage:
		err = m.handleSendMessage(ctx, c, frame.Data)
	case models.FrameTyping:
		err = m.relayTyping(ctx, c, frame.Data, models.EventUserTyping)
	case models.FrameStopTyping:
		err = m.relayTyping(ctx, c, frame.Data, models.EventUserStopTyping)
	case models.FrameSetStatus:
		var p models.SetStatusFrame
		if err = json.Unmarshal(frame.Data, &p); err != nil {
			err = apperr.Validation("malformed set-status frame")
			break
		}
		err = m.SetStatus(ctx, c.GetUserID(), p.Status)
	default:
		err = apperr.Validation("unknown frame type " + frame.Type)
	}

	if err != nil {
		m.replyError(c, err)
	}
}

func (m *ManagerService) handleSendMessage(ctx context.Context, c Client, data json.RawMessage) error {
	var p models.SendMessageFrame
	if err := json.Unmarshal(data, &p); err != nil {
		return apperr.Validation("malformed send-message frame")
	}
	// the coordinator echoes message-sent to this connection on success
	_, err := m.Messages.SendMessage(ctx, delivery.SendInput{
		SenderID:    c.GetUserID(),
		ReceiverID:  p.ReceiverID,
		Content:     p.Content,
		MessageType: p.MessageType,
		FileID:      p.FileID,
		ClientRef:   p.ClientRef,
	})
	return err
}

// relayTyping forwards typing indicators between friends only.
func (m *ManagerService) relayTyping(ctx context.Context, c Client, data json.RawMessage, eventType string) error {
	var p models.TypingFrame
	if err := json.Unmarshal(data, &p); err != nil || p.ReceiverID == "" {
		return apperr.Validation("malformed typing frame")
	}
	ok, err := m.Friends.AreFriends(ctx, c.GetUserID(), p.ReceiverID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.ErrNotFriends
	}
	m.Registry.TryPush(p.ReceiverID, models.Event{
		Type: eventType,
		Data: models.TypingPayload{UserID: c.GetUserID()},
	})
	return nil
}

func (m *ManagerService) replyError(c Client, err error) {
	if !errors.Is(err, apperr.ErrValidation) && !errors.Is(err, apperr.ErrNotFriends) && !errors.Is(err, apperr.ErrNotFound) {
		logger.Warn("frame failed", zap.String("user_id", c.GetUserID()), zap.Error(err))
	}
	c.Deliver(models.Event{
		Type: models.EventError,
		Data: models.ErrorPayload{Error: apperr.Code(err)},
	})
}
