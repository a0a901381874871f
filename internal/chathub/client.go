package chathub

import "friendchat/backend/internal/models"

// Client is one live connection of an authenticated user.
type Client interface {
	// GetUserID returns the authenticated user behind the connection.
	GetUserID() string
	// GetSessionID identifies this connection. A newer connection of the
	// same user has a different session ID.
	GetSessionID() string

	// Deliver queues an event without blocking. It returns false when the
	// buffer is full or the client is closed; the event is then dropped.
	Deliver(models.Event) bool

	// Run starts the read and write pumps.
	Run()
	// Close stops the client. Safe to call more than once.
	Close()
}
