package chathub

import (
	"context"
	"time"

	"friendchat/backend/internal/logger"
	"friendchat/backend/internal/models"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type PresenceStore interface {
	SetUserStatus(ctx context.Context, userID string, status models.PresenceStatus, lastSeen time.Time) error
	FriendIDs(ctx context.Context, userID string) ([]string, error)
}

// PresenceMirror receives a copy of every status change. Best effort.
type PresenceMirror interface {
	Mirror(ctx context.Context, userID string, status models.PresenceStatus) error
}

// Propagator records a user's presence and tells their online friends.
type Propagator struct {
	store    PresenceStore
	registry *Registry
	mirror   PresenceMirror
	now      func() time.Time
}

// NewPropagator builds a Propagator. mirror may be nil.
func NewPropagator(store PresenceStore, registry *Registry, mirror PresenceMirror) *Propagator {
	return &Propagator{
		store:    store,
		registry: registry,
		mirror:   mirror,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Publish writes status durably, then pushes it to every friend that has a
// live client. Friends without one are skipped; nothing is queued. It
// returns how many friends received the event.
func (p *Propagator) Publish(ctx context.Context, userID string, status models.PresenceStatus) (int, error) {
	if err := p.store.SetUserStatus(ctx, userID, status, p.now()); err != nil {
		return 0, errors.Wrap(err, "write presence")
	}

	if p.mirror != nil {
		if err := p.mirror.Mirror(ctx, userID, status); err != nil {
			logger.Warn("presence mirror failed", zap.String("user_id", userID), zap.Error(err))
		}
	}

	friends, err := p.store.FriendIDs(ctx, userID)
	if err != nil {
		return 0, errors.Wrap(err, "load friends for presence")
	}

	ev := models.PresenceEvent(userID, status)
	delivered := 0
	for _, id := range friends {
		if p.registry.TryPush(id, ev) {
			delivered++
		}
	}
	logger.Debug("presence published",
		zap.String("user_id", userID),
		zap.String("status", string(status)),
		zap.Int("friends", len(friends)),
		zap.Int("delivered", delivered))
	return delivered, nil
}
