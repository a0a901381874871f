package config

import "time"

const (
	// Store
	DefaultStoreTimeout = 5 * time.Second
	DefaultMaxFileSize  = 50 << 20

	// Search
	SearchMinQueryLength = 2
	SearchResultLimit    = 20

	// Auth
	BcryptCost        = 12
	MinPasswordLength = 6

	// WebSocket
	WriteWait      = 10 * time.Second
	PongWait       = 60 * time.Second
	PingPeriod     = (PongWait * 9) / 10
	MaxFrameSize   = 64 << 10
	SendBufferSize = 256

	// Serialization shards for per-user and per-pair locks
	LockShards = 256

	// Redis presence mirror
	PresenceKeyTTL = 5 * time.Minute
)
