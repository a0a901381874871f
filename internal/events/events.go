// Package events publishes domain events for other services. Publishing
// is best effort: a failure is logged and never fails the operation that
// produced the event.
package events

import (
	"context"
	"encoding/json"
	"time"

	"friendchat/backend/internal/logger"

	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	SubjectFriendRequested = "friendchat.friend.requested"
	SubjectFriendAccepted  = "friendchat.friend.accepted"
	SubjectMessageSent     = "friendchat.message.sent"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, payload any) error
}

type FriendRequested struct {
	RequestID  uint   `json:"request_id"`
	SenderID   string `json:"sender_id"`
	ReceiverID string `json:"receiver_id"`
}

type FriendAccepted struct {
	RequestID  uint   `json:"request_id"`
	SenderID   string `json:"sender_id"`
	ReceiverID string `json:"receiver_id"`
}

type MessageSent struct {
	MessageID  uint      `json:"message_id"`
	SenderID   string    `json:"sender_id"`
	ReceiverID string    `json:"receiver_id"`
	Type       string    `json:"message_type"`
	Delivered  bool      `json:"delivered"`
	CreatedAt  time.Time `json:"created_at"`
}

// Emit publishes through p and logs a failure instead of returning it.
func Emit(ctx context.Context, p Publisher, subject string, payload any) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, subject, payload); err != nil {
		logger.Warn("domain event not published", zap.String("subject", subject), zap.Error(err))
	}
}

// Noop drops every event. Used when NATS is not configured.
type Noop struct{}

func (Noop) Publish(context.Context, string, any) error { return nil }

type NATSPublisher struct {
	nc *nats.Conn
}

// Connect dials NATS with unlimited reconnects.
func Connect(url, name string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(500*time.Millisecond),
		nats.ReconnectJitter(100*time.Millisecond, 500*time.Millisecond),
		nats.Timeout(3*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to nats")
	}
	return &NATSPublisher{nc: nc}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, subject string, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrapf(err, "encode %s", subject)
	}
	return errors.Wrapf(p.nc.Publish(subject, data), "publish %s", subject)
}

// Close flushes pending publishes and closes the connection.
func (p *NATSPublisher) Close() {
	if err := p.nc.Drain(); err != nil {
		logger.Warn("nats drain failed", zap.Error(err))
	}
}
