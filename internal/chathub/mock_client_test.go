package chathub_test

import (
	"fmt"
	"sync"
	"sync/atomic"

	"friendchat/backend/internal/models"
)

var sessionSeq atomic.Int64

type MockClient struct {
	userID    string
	sessionID string

	mu          sync.Mutex
	closed      bool
	RecvChannel chan models.Event
}

func newMockClient(userID string) *MockClient {
	return &MockClient{
		userID:      userID,
		sessionID:   fmt.Sprintf("session-%d", sessionSeq.Add(1)),
		RecvChannel: make(chan models.Event, 16),
	}
}

func (c *MockClient) GetUserID() string    { return c.userID }
func (c *MockClient) GetSessionID() string { return c.sessionID }

func (c *MockClient) Deliver(ev models.Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.RecvChannel <- ev:
		return true
	default:
		return false
	}
}

func (c *MockClient) Run() {
	// Not needed for testing
}

func (c *MockClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *MockClient) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Drain returns every event received so far without blocking.
func (c *MockClient) Drain() []models.Event {
	var out []models.Event
	for {
		select {
		case ev := <-c.RecvChannel:
			out = append(out, ev)
		default:
			return out
		}
	}
}
