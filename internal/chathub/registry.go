package chathub

import (
	"sync"

	"friendchat/backend/internal/logger"
	"friendchat/backend/internal/models"

	"go.uber.org/zap"
)

// Registry maps each online user to their single live client.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]Client
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]Client)}
}

// Register makes c the user's live client and returns the client it
// replaced, if any.
func (r *Registry) Register(c Client) Client {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.sessions[c.GetUserID()]
	r.sessions[c.GetUserID()] = c
	return prev
}

// Unregister removes c only if it is still the user's live client. A
// stale client (already replaced) leaves the entry alone and gets false.
func (r *Registry) Unregister(c Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.sessions[c.GetUserID()]
	if !ok || cur.GetSessionID() != c.GetSessionID() {
		return false
	}
	delete(r.sessions, c.GetUserID())
	return true
}

func (r *Registry) Lookup(userID string) (Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.sessions[userID]
	return c, ok
}

// TryPush delivers ev to the user's live client. It never blocks and
// reports false when the user is offline or the client cannot take it.
func (r *Registry) TryPush(userID string, ev models.Event) bool {
	c, ok := r.Lookup(userID)
	if !ok {
		return false
	}
	if !c.Deliver(ev) {
		logger.Debug("push dropped", zap.String("user_id", userID), zap.String("event", ev.Type))
		return false
	}
	return true
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
