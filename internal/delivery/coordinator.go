// Package delivery persists messages between friends and pushes them to
// the receiver's live connection when there is one.
package delivery

import (
	"context"
	"strings"
	"time"

	"friendchat/backend/internal/apperr"
	"friendchat/backend/internal/events"
	"friendchat/backend/internal/logger"
	"friendchat/backend/internal/models"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type Store interface {
	AreFriends(ctx context.Context, a, b string) (bool, error)
	GetFile(ctx context.Context, id uint) (*models.File, error)
	SaveMessage(ctx context.Context, msg *models.Message) error
	History(ctx context.Context, viewerID, otherID string) ([]models.Message, error)
	Conversations(ctx context.Context, viewerID string) ([]models.Conversation, error)
	GetUsersByIDs(ctx context.Context, ids []string) ([]models.User, error)
}

// Pusher reaches a user's live connection, if any. It never blocks.
type Pusher interface {
	TryPush(userID string, ev models.Event) bool
}

type UnreadCounter interface {
	UnreadCounts(ctx context.Context, viewerID string, friendIDs []string) (map[string]int64, error)
}

// SendInput is a message as submitted by its sender.
type SendInput struct {
	SenderID    string
	ReceiverID  string
	Content     string
	MessageType string
	FileID      *uint
	ClientRef   string
}

type Coordinator struct {
	store  Store
	pusher Pusher
	unread UnreadCounter
	events events.Publisher
	now    func() time.Time
}

func NewCoordinator(store Store, pusher Pusher, unread UnreadCounter, pub events.Publisher) *Coordinator {
	return &Coordinator{
		store:  store,
		pusher: pusher,
		unread: unread,
		events: pub,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// SendMessage stores a message from one friend to another and pushes it
// to the receiver if they are connected. The stored message is returned
// whether or not the push happened.
func (c *Coordinator) SendMessage(ctx context.Context, in SendInput) (*models.Message, error) {
	msg, err := c.newMessage(in)
	if err != nil {
		return nil, err
	}

	friends, err := c.store.AreFriends(ctx, in.SenderID, in.ReceiverID)
	if err != nil {
		return nil, errors.Wrap(err, "check friendship")
	}
	if !friends {
		return nil, apperr.ErrNotFriends
	}

	if in.FileID != nil {
		file, err := c.store.GetFile(ctx, *in.FileID)
		if err != nil {
			return nil, errors.Wrap(err, "load file reference")
		}
		msg.File = file
		if msg.Type == "" {
			msg.Type = models.MessageTypeForMIME(file.FileType)
		}
	}

	if err := c.store.SaveMessage(ctx, msg); err != nil {
		return nil, errors.Wrap(err, "save message")
	}

	delivered := c.pusher.TryPush(in.ReceiverID, models.Event{
		Type: models.EventReceiveMessage,
		Data: models.MessagePayload{Message: msg},
	})
	c.pusher.TryPush(in.SenderID, models.Event{
		Type: models.EventMessageSent,
		Data: models.MessagePayload{Message: msg, ClientRef: in.ClientRef},
	})

	events.Emit(ctx, c.events, events.SubjectMessageSent, events.MessageSent{
		MessageID:  msg.ID,
		SenderID:   msg.SenderID,
		ReceiverID: msg.ReceiverID,
		Type:       string(msg.Type),
		Delivered:  delivered,
		CreatedAt:  msg.CreatedAt,
	})

	logger.Debug("message stored",
		zap.Uint("message_id", msg.ID),
		zap.String("sender_id", msg.SenderID),
		zap.String("receiver_id", msg.ReceiverID),
		zap.Bool("delivered", delivered))
	return msg, nil
}

// newMessage checks the shape of the input. Type stays empty when it has
// to be inferred from the attached file.
func (c *Coordinator) newMessage(in SendInput) (*models.Message, error) {
	if in.ReceiverID == "" {
		return nil, apperr.Validation("receiver_id is required")
	}
	if in.ReceiverID == in.SenderID {
		return nil, apperr.Validation("cannot message yourself")
	}

	msg := &models.Message{
		SenderID:   in.SenderID,
		ReceiverID: in.ReceiverID,
		Content:    strings.TrimSpace(in.Content),
		FileID:     in.FileID,
		CreatedAt:  c.now(),
	}

	switch {
	case in.MessageType != "":
		mt, ok := models.ParseMessageType(in.MessageType)
		if !ok {
			return nil, apperr.Validation("unknown message_type")
		}
		msg.Type = mt
	case in.FileID == nil:
		msg.Type = models.MessageText
	}

	if msg.Type == models.MessageText && msg.Content == "" && in.FileID == nil {
		return nil, apperr.Validation("content is required for text messages")
	}
	if msg.Type != models.MessageText && msg.Type != "" && in.FileID == nil {
		return nil, apperr.Validation("file_id is required for " + string(msg.Type) + " messages")
	}
	return msg, nil
}

// FetchHistory returns the pair's messages oldest first. Fetching counts
// as reading: every message otherID sent to viewerID becomes read.
func (c *Coordinator) FetchHistory(ctx context.Context, viewerID, otherID string) ([]models.Message, error) {
	friends, err := c.store.AreFriends(ctx, viewerID, otherID)
	if err != nil {
		return nil, errors.Wrap(err, "check friendship")
	}
	if !friends {
		return nil, apperr.ErrNotFriends
	}

	msgs, err := c.store.History(ctx, viewerID, otherID)
	if err != nil {
		return nil, errors.Wrap(err, "load history")
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	return msgs, nil
}

// ListConversations returns the viewer's conversations, newest first,
// with partner profiles and unread counts.
func (c *Coordinator) ListConversations(ctx context.Context, viewerID string) ([]models.ConversationView, error) {
	convs, err := c.store.Conversations(ctx, viewerID)
	if err != nil {
		return nil, errors.Wrap(err, "list conversations")
	}
	out := make([]models.ConversationView, 0, len(convs))
	if len(convs) == 0 {
		return out, nil
	}

	partnerIDs := make([]string, 0, len(convs))
	for _, cv := range convs {
		partnerIDs = append(partnerIDs, partnerOf(cv, viewerID))
	}

	users, err := c.store.GetUsersByIDs(ctx, partnerIDs)
	if err != nil {
		return nil, errors.Wrap(err, "load conversation partners")
	}
	profiles := make(map[string]models.Profile, len(users))
	for _, u := range users {
		profiles[u.ID] = u.Profile()
	}

	counts, err := c.unread.UnreadCounts(ctx, viewerID, partnerIDs)
	if err != nil {
		return nil, err
	}

	for _, cv := range convs {
		pid := partnerOf(cv, viewerID)
		p, ok := profiles[pid]
		if !ok {
			continue
		}
		out = append(out, models.ConversationView{
			ID:            cv.ID,
			Partner:       p,
			LastMessageAt: cv.LastMessageAt,
			UnreadCount:   counts[pid],
		})
	}
	return out, nil
}

func partnerOf(cv models.Conversation, viewerID string) string {
	if cv.User1ID == viewerID {
		return cv.User2ID
	}
	return cv.User1ID
}
